package paylazor

import (
	"time"

	"github.com/paylazor/paylazor-go/ledger"
	"github.com/paylazor/paylazor-go/logger"
	"github.com/paylazor/paylazor-go/metrics"
	"github.com/paylazor/paylazor-go/types"
)

// Option configures a Checkout.
type Option func(*Checkout)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Checkout) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetrics sets the metrics recorder. Defaults to a no-op recorder.
func WithMetrics(rec metrics.Recorder) Option {
	return func(c *Checkout) {
		if rec != nil {
			c.metrics = rec
		}
	}
}

// WithLedgerClient overrides the RPC-backed ledger client, for custom
// endpoints or tests.
func WithLedgerClient(client *ledger.Client) Option {
	return func(c *Checkout) {
		if client != nil {
			c.chain = client
		}
	}
}

// WithRetryPolicy overrides the submit retry policy: retries extra
// attempts after the first, delay between attempts.
func WithRetryPolicy(retries int, delay time.Duration) Option {
	return func(c *Checkout) {
		if retries >= 0 {
			c.retries = retries
		}
		if delay > 0 {
			c.retryDelay = delay
		}
	}
}

// WithStepCallback registers an observer for state transitions.
func WithStepCallback(fn func(Step)) Option {
	return func(c *Checkout) {
		c.onStep = fn
	}
}

// WithSuccessCallback registers an observer invoked once per
// successful payment submission.
func WithSuccessCallback(fn func(types.CheckoutResult)) Option {
	return func(c *Checkout) {
		c.onSuccess = fn
	}
}

// WithErrorCallback registers an observer invoked whenever a new
// checkout error becomes active, including configuration failures
// reported by New.
func WithErrorCallback(fn func(*types.CheckoutError)) Option {
	return func(c *Checkout) {
		c.onError = fn
	}
}
