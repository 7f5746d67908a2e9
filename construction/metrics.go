package construction

import (
	"time"

	"github.com/golang/glog"

	"github.com/deso-protocol/rosetta-aptos/apierror"
)

const (
	metricSubmissions  = "rosetta_aptos.construction.submissions"
	metricStepFailures = "rosetta_aptos.construction.step_failures"
	metricLatency      = "rosetta_aptos.construction.latency"
)

// fail classifies err, records which step produced it and returns the
// classified error.
func (c *Client) fail(step string, err error) *apierror.Error {
	apiErr := apierror.Convert(err)

	glog.V(1).Infof("Construction %s step failed: %v", step, apiErr)

	tags := []string{"step:" + step, "kind:" + apiErr.Kind.String()}
	if statErr := c.stats.Incr(metricStepFailures, tags, 1); statErr != nil {
		glog.V(2).Infof("statsd: %v", statErr)
	}
	if statErr := c.stats.Incr(metricSubmissions, []string{"result:failure"}, 1); statErr != nil {
		glog.V(2).Infof("statsd: %v", statErr)
	}

	return apiErr
}

func (c *Client) succeed(start time.Time) {
	if err := c.stats.Incr(metricSubmissions, []string{"result:success"}, 1); err != nil {
		glog.V(2).Infof("statsd: %v", err)
	}
	if err := c.stats.Timing(metricLatency, time.Since(start), nil, 1); err != nil {
		glog.V(2).Infof("statsd: %v", err)
	}
}
