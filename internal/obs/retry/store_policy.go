package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// StoreConnectPolicy retries the startup dedup store connection. Permanent
// reports errors that no retry can fix, such as a bad DSN.
func StoreConnectPolicy(attempts int, permanent func(error) bool, log *zap.Logger) Policy {
	if log == nil {
		log = zap.NewNop()
	}
	return Policy{
		Name:     "store_connect",
		Attempts: attempts,
		Backoff:  ExpoJitter{Base: 500 * time.Millisecond, Max: 10 * time.Second, Jitter: 0.2},
		Retryable: func(err error) bool {
			return err != nil && (permanent == nil || !permanent(err))
		},
		OnAttempt: func(i int, err error) {
			log.Warn("store connect failed", zap.Int("attempt", i+1), zap.Error(err))
		},
		OnExhaust: func(err error) {
			if !errors.Is(err, context.Canceled) {
				log.Error("store connect gave up", zap.Error(err))
			}
		},
	}
}
