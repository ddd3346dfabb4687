package ledger

import "go.uber.org/fx"

var Module = fx.Module("ledger",
	fx.Provide(
		NewSolanaClient,
		func(c *SolanaClient) Client { return c },
	),
)
