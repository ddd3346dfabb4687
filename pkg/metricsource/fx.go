package metricsource

import "go.uber.org/fx"

var Module = fx.Module("metricsource",
	fx.Provide(
		NewTwitterClient,
		func(c *TwitterClient) Source { return c },
		func(c *TwitterClient) Searcher { return c },
	),
)
