package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/coinbase/rosetta-sdk-go/server"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deso-protocol/rosetta-aptos/aptos"
	"github.com/deso-protocol/rosetta-aptos/mocknode"
)

var serveMockCmd = &cobra.Command{
	Use:   "serve-mock",
	Short: "Serve an in-memory rosetta node for local testing",
	Long: `serve-mock runs a rosetta node backed by an in-memory ledger. Every
submitted transaction is committed into its own block. Accounts can be
funded at startup with --fund address=octas.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		network := aptos.Network(strings.ToUpper(viper.GetString("network")))

		offline, err := cmd.Flags().GetBool("offline")
		if err != nil {
			return err
		}
		node, err := mocknode.NewNode(&mocknode.Config{
			Network: network,
			Offline: offline,
		})
		if err != nil {
			return err
		}

		funds, err := cmd.Flags().GetStringSlice("fund")
		if err != nil {
			return err
		}
		if err := fundAccounts(node, funds); err != nil {
			return err
		}

		handler, err := node.Handler()
		if err != nil {
			glog.Errorf("unable to create handler: %v", err)
			return err
		}

		port, err := cmd.Flags().GetInt("port")
		if err != nil {
			return err
		}

		loggedRouter := server.LoggerMiddleware(handler)
		corsRouter := server.CorsMiddleware(loggedRouter)
		httpServer := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           corsRouter,
			ReadHeaderTimeout: 10 * time.Second,
		}

		serveErr := make(chan error, 1)
		go func() {
			glog.Infof("Listening on port %d", port)
			serveErr <- httpServer.ListenAndServe()
		}()

		shutdownListener := make(chan os.Signal, 1)
		signal.Notify(shutdownListener, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(shutdownListener)

		select {
		case err := <-serveErr:
			return errors.Wrap(err, "server stopped")
		case <-shutdownListener:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			return errors.Wrap(err, "unable to shut down")
		}

		glog.Info("Shutdown complete")
		return nil
	},
}

// fundAccounts credits each address=octas pair.
func fundAccounts(node *mocknode.Node, funds []string) error {
	for _, fund := range funds {
		addressString, amountString, ok := strings.Cut(fund, "=")
		if !ok {
			return errors.Errorf("invalid --fund %q, want address=octas", fund)
		}

		address, err := aptos.ParseAccountAddress(addressString)
		if err != nil {
			return err
		}
		amount, err := strconv.ParseUint(amountString, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid amount in --fund %q", fund)
		}

		node.Fund(address, amount)
		glog.V(1).Infof("Funded %s with %d", address, amount)
	}
	return nil
}

func init() {
	serveMockCmd.Flags().Int("port", 8082, "rosetta api listener port")
	serveMockCmd.Flags().Bool("offline", false, "refuse every call that needs chain state")
	serveMockCmd.Flags().StringSlice("fund", []string{}, "address=octas to credit at startup, repeatable")

	rootCmd.AddCommand(serveMockCmd)
}
