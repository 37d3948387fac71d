package service

import (
	"time"
)

// DefaultCallTimeout bounds a single supplier call when no timeout is configured
const DefaultCallTimeout = 30 * time.Second

type options struct {
	now         func() time.Time
	callTimeout time.Duration
}

// Option customizes a service
type Option func(*options)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithCallTimeout bounds every supplier call made by the service
func WithCallTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.callTimeout = d
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		now:         func() time.Time { return time.Now().UTC() },
		callTimeout: DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
