package rpcclient

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	solrpc "github.com/gagliardetto/solana-go/rpc"
)

// config defines how RPC round trips are retried and how confirmations are polled.
type config struct {
	// RetryAttempts determines how many times a single RPC round trip is attempted. If set to 0,
	// retries will continue until the context is done.
	RetryAttempts uint
	// RetryDelay is the duration to wait between retry attempts.
	RetryDelay time.Duration
	// PollInterval is the delay between signature status polls while waiting for confirmation.
	PollInterval time.Duration
	// MaxPollAttempts caps the number of status polls. The blockhash validity window normally
	// ends the wait first; this bounds it when the node cannot report a block height.
	MaxPollAttempts uint
	// Commitment is the commitment level used for reads, preflight and confirmation.
	Commitment solrpc.CommitmentType
}

// configDefault provides the default retry and polling configuration.
var configDefault = config{
	RetryAttempts:   3,
	RetryDelay:      250 * time.Millisecond,
	PollInterval:    500 * time.Millisecond,
	MaxPollAttempts: 300,
	Commitment:      solrpc.CommitmentConfirmed,
}

func newConfig(opts ...Opt) config {
	cfg := configDefault
	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

// RetryOpts returns the retry options for single RPC round trips.
func (c *config) RetryOpts(ctx context.Context) []retry.Option {
	return []retry.Option{
		retry.Context(ctx),
		retry.Attempts(c.RetryAttempts),
		retry.Delay(c.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	}
}

// PollOpts returns the retry options for polling a signature until it is confirmed.
func (c *config) PollOpts(ctx context.Context) []retry.Option {
	return []retry.Option{
		retry.Context(ctx),
		retry.Attempts(c.MaxPollAttempts),
		retry.Delay(c.PollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	}
}

// Opt is a functional option type that allows for configuring RPC round trips.
type Opt func(*config)

// WithRetry sets the number of attempts and the delay between attempts for single RPC calls.
func WithRetry(attempts uint, delay time.Duration) Opt {
	return func(c *config) {
		c.RetryAttempts = attempts
		c.RetryDelay = delay
	}
}

// WithPolling sets the interval and maximum number of signature status polls.
func WithPolling(interval time.Duration, maxAttempts uint) Opt {
	return func(c *config) {
		c.PollInterval = interval
		c.MaxPollAttempts = maxAttempts
	}
}

// WithCommitment overrides the commitment level. Only confirmed and finalized are meaningful
// for confirmation.
func WithCommitment(commitment solrpc.CommitmentType) Opt {
	return func(c *config) {
		c.Commitment = commitment
	}
}
