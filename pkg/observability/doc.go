/*
Package observability turns the engine's lifecycle hooks into Prometheus metrics.

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	eng, _ := switchboard.New(client, switchboard.WithLifecycleHooks(metrics.Hooks()))

Node visits, capability calls and turn outcomes are counted; node, capability
and turn latencies are recorded as histograms.
*/
package observability
