package wallet

import (
	"bytes"
	"context"
	"iter"
	"time"

	"github.com/streamingfast/eth-go"
	"go.uber.org/zap"
)

// AccountLister lists the accounts a wallet currently exposes, the first one
// being the active account
type AccountLister interface {
	Accounts(ctx context.Context) ([]eth.Address, error)
}

// AccountChange is emitted when the wallet's active account changes. Current
// is nil when the wallet exposes no account anymore.
type AccountChange struct {
	Previous eth.Address
	Current  eth.Address
}

// AccountWatcher turns wallet account polling into a sequence of changes
type AccountWatcher struct {
	lister   AccountLister
	interval time.Duration
	logger   *zap.Logger
}

func NewAccountWatcher(lister AccountLister, interval time.Duration) *AccountWatcher {
	if interval <= 0 {
		interval = time.Second
	}
	return &AccountWatcher{lister: lister, interval: interval, logger: zlog}
}

// Changes returns a lazy sequence of account changes. Every iteration starts
// from a fresh read: the first value yielded is the currently active account
// (Previous nil), then one value per change. Iteration stops when ctx is done
// or when the consumer breaks out of the loop.
func (w *AccountWatcher) Changes(ctx context.Context) iter.Seq[AccountChange] {
	return func(yield func(AccountChange) bool) {
		var current eth.Address
		first := true

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			accounts, err := w.lister.Accounts(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				w.logger.Debug("listing wallet accounts failed", zap.Error(err))
			} else {
				var active eth.Address
				if len(accounts) > 0 {
					active = accounts[0]
				}

				if first || !bytes.Equal(active, current) {
					change := AccountChange{Previous: current, Current: active}
					current = active
					first = false

					if !yield(change) {
						return
					}
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}
}
