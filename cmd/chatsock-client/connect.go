package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/chatsock/chatsock-go/pkg/config"
	"github.com/chatsock/chatsock-go/pkg/connection"
	"github.com/chatsock/chatsock-go/pkg/transport"
)

// maxAuthenticateTries bounds the initial login retries.
const maxAuthenticateTries = 8

// authenticator is the part of the socket manager used to log in.
type authenticator interface {
	Authenticate(ctx context.Context, creds transport.Credentials) error
}

// connectBackoff returns the manager's reconnect policy for login retries.
func connectBackoff(cfg *config.ClientConfig) backoff.BackOff {
	return connection.NewBackoffWithConfig(connection.BackoffConfig{
		Sequence: connection.FibonacciSequence,
		Jitter:   cfg.Backoff.Jitter.D(),
	})
}

// authenticateWithRetry logs in, retrying while the server rate limits the
// client. Every other failure ends the retries.
func authenticateWithRetry(ctx context.Context, a authenticator, creds transport.Credentials, b backoff.BackOff, logger *slog.Logger) error {
	op := func() (struct{}, error) {
		err := a.Authenticate(ctx, creds)
		if err == nil {
			return struct{}{}, nil
		}
		if !retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(maxAuthenticateTries),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("authenticate rate limited, retrying", "error", err, "in", next)
		}),
	)
	return err
}

// retryable reports whether a failed login may be retried.
func retryable(err error) bool {
	status, ok := transport.HTTPStatusOf(err)
	return ok && status == http.StatusTooManyRequests
}
