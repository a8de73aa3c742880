// Package messaging holds what the payment feed transports share.
package messaging

import (
	"context"
	"fmt"
	"time"

	"carrental/internal/utils"

	"github.com/cenkalti/backoff/v4"
)

// Handler consumes one raw feed payload. It owns the terminal decision for
// the message, so transports acknowledge unconditionally once it returns.
type Handler func(ctx context.Context, body []byte)

// DialRetries and DialWait bound how long a transport waits for its broker
// at startup.
const (
	DialRetries = 10
	DialWait    = 5 * time.Second
)

// Dial retries connect until it succeeds, ctx ends or DialRetries is spent.
func Dial(ctx context.Context, module string, connect func() error) error {
	attempt := 0
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(DialWait), DialRetries-1), ctx)
	return backoff.RetryNotify(func() error {
		attempt++
		return connect()
	}, b, func(err error, wait time.Duration) {
		utils.LogError("", module, "dial", fmt.Sprintf("broker not ready (%d/%d), retry in %s", attempt, DialRetries, wait), err)
	})
}
