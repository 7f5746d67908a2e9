package cmd

import (
	"flag"
	"fmt"
	"path/filepath"
	"time"

	"github.com/golang/glog"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/deso-protocol/rosetta-aptos/aptos"
)

const configName = ".rosetta-aptos"

var configFile string

var rootCmd = &cobra.Command{
	Use:   "rosetta-aptos",
	Short: "Build, sign and submit aptos transactions through a rosetta node",
	Long: `rosetta-aptos drives the rosetta construction API of an aptos node.
Every transaction is parsed back and checked against what was asked for
before it is signed and again before it is submitted.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), formatError(err))
	}
	glog.Flush()
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default $HOME/"+configName+".yaml)")
	rootCmd.PersistentFlags().String("network", string(aptos.Mainnet), "network to build transactions for")
	rootCmd.PersistentFlags().String("node-url", "http://localhost:8082", "rosetta node to talk to")
	rootCmd.PersistentFlags().Uint64("max-fee", aptos.DefaultMaxFee, "maximum fee in octas")
	rootCmd.PersistentFlags().Float64("fee-multiplier", aptos.DefaultFeeMultiplier, "multiplier applied to the gas unit price")
	rootCmd.PersistentFlags().Duration("expiry", time.Minute, "how long a built transaction stays valid")
	rootCmd.PersistentFlags().Duration("request-timeout", 0, "timeout of each call to the node, 0 for none")
	rootCmd.PersistentFlags().Float64("rate-limit", 0, "calls per second to the node, 0 for unlimited")
	rootCmd.PersistentFlags().String("statsd-address", "", "statsd agent receiving construction metrics")
	rootCmd.PersistentFlags().String("journal-directory", filepath.Join("~", configName, "journal"), "where submissions are recorded")
	rootCmd.PersistentFlags().String("key-file", filepath.Join("~", configName, "keys.yaml"), "yaml file holding signing keys")

	rootCmd.PersistentFlags().VisitAll(func(flag *pflag.Flag) {
		viper.BindPFlag(flag.Name, flag)
	})

	// glog registers its flags on the standard flag set.
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
}

func initConfig() error {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return errors.Wrap(err, "unable to find home directory")
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return errors.Wrap(err, "unable to read config")
		}
		return nil
	}

	glog.V(1).Infof("Using config file %s", viper.ConfigFileUsed())
	return nil
}

// expandPath resolves a leading ~ in path.
func expandPath(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", errors.Wrapf(err, "unable to expand %q", path)
	}
	return expanded, nil
}
