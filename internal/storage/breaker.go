package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

type BreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// The breaker trips once FailureThreshold of at least MinRequests failed.
	FailureThreshold float64
	MinRequests      uint32
}

func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// Breaker fails fast with ErrUnavailable while the wrapped backend keeps failing.
type Breaker struct {
	next Storage
	cb   *gobreaker.CircuitBreaker
}

func NewBreaker(next Storage, c BreakerConfig) *Breaker {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        c.Name,
		MaxRequests: c.MaxRequests,
		Interval:    c.Interval,
		Timeout:     c.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < c.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("storage circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// Client cancellations and bad paths say nothing about backend health.
			return err == nil ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, ErrInvalidPath)
		},
	})
	return &Breaker{next: next, cb: cb}
}

func (b *Breaker) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.next.Upload(ctx, bucket, path, data, contentType)
	})
	if err != nil {
		return "", mapBreakerErr(err)
	}
	return res.(string), nil
}

func (b *Breaker) Delete(ctx context.Context, bucket, path string) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.Delete(ctx, bucket, path)
	})
	return mapBreakerErr(err)
}

func (b *Breaker) State() string {
	return b.cb.State().String()
}

// Unwrap returns the wrapped backend.
func (b *Breaker) Unwrap() Storage {
	return b.next
}

func mapBreakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrUnavailable
	}
	return err
}
