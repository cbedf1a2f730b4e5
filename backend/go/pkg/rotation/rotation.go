// Package rotation tries an ordered set of interchangeable credentials until one succeeds.
package rotation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"TicketBlitz_Recommendation/backend/go/internal/models"
	"TicketBlitz_Recommendation/backend/go/pkg/logger"
)

// ErrAllProvidersExhausted is returned when every credential in a pool failed.
// The returned error also wraps the last credential's error.
var ErrAllProvidersExhausted = errors.New("all providers exhausted")

// Kind classifies a single credential failure. Both kinds move on to the next credential.
type Kind int

const (
	// KindProvider is any failure that is not about the credential itself.
	KindProvider Kind = iota
	// KindAuth means the credential is invalid, expired or forbidden.
	KindAuth
)

func (k Kind) String() string {
	if k == KindAuth {
		return "auth_failure"
	}
	return "provider_failure"
}

// Classifier decides the Kind of a failure.
type Classifier func(error) Kind

// Observer is notified of every failed attempt.
type Observer func(pool, label string, kind Kind)

// Credential is one client bound to one access credential.
type Credential[T any] struct {
	Label  string
	Client T
}

// Pool holds credentials in a fixed order.
type Pool[T any] struct {
	name     string
	creds    []Credential[T]
	classify Classifier
	timeout  time.Duration
	log      *logger.Logger
	observe  Observer
}

// Option configures a Pool.
type Option func(*options)

type options struct {
	classify Classifier
	timeout  time.Duration
	log      *logger.Logger
	observe  Observer
}

// WithClassifier sets how failures are classified. The default treats everything as KindProvider.
func WithClassifier(c Classifier) Option {
	return func(o *options) { o.classify = c }
}

// WithTimeout bounds every single attempt.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithLogger sets the logger used for failed attempts.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithObserver registers a callback for failed attempts.
func WithObserver(fn Observer) Option {
	return func(o *options) { o.observe = fn }
}

// New creates a pool. Credentials are tried in the order given.
func New[T any](name string, creds []Credential[T], opts ...Option) *Pool[T] {
	o := options{classify: func(error) Kind { return KindProvider }}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.New(name, "", "")
	}
	cp := make([]Credential[T], len(creds))
	copy(cp, creds)
	for i := range cp {
		if cp[i].Label == "" {
			cp[i].Label = fmt.Sprintf("Key %d", i+1)
		}
	}
	return &Pool[T]{
		name:     name,
		creds:    cp,
		classify: o.classify,
		timeout:  o.timeout,
		log:      o.log,
		observe:  o.observe,
	}
}

// Len returns the number of credentials.
func (p *Pool[T]) Len() int { return len(p.creds) }

// Close closes every client that holds resources.
func (p *Pool[T]) Close() error {
	var errs []error
	for _, c := range p.creds {
		if closer, ok := any(c.Client).(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", c.Label, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Name returns the pool name.
func (p *Pool[T]) Name() string { return p.name }

// Try calls fn once per credential, in order, until one call returns nil.
// There is no retry of the same credential and no backoff.
func (p *Pool[T]) Try(ctx context.Context, fn func(ctx context.Context, client T) error) error {
	if len(p.creds) == 0 {
		return fmt.Errorf("%w: %s: no credentials configured", ErrAllProvidersExhausted, p.name)
	}

	var last error
	for _, cred := range p.creds {
		if err := ctx.Err(); err != nil {
			if last == nil {
				last = err
			}
			break
		}

		err := p.attempt(ctx, cred.Client, fn)
		if err == nil {
			return nil
		}
		last = err

		kind := p.classify(err)
		l := p.log.WithPayload(map[string]interface{}{"pool": p.name, "credential": cred.Label}).
			WithError(models.NewErrorInfo(err, kind.String()))
		if kind == KindAuth {
			l.Warn("credential rejected, trying next")
		} else {
			l.Error("credential attempt failed, trying next")
		}
		if p.observe != nil {
			p.observe(p.name, cred.Label, kind)
		}
	}

	return fmt.Errorf("%w: %s: last error: %w", ErrAllProvidersExhausted, p.name, last)
}

func (p *Pool[T]) attempt(ctx context.Context, client T, fn func(context.Context, T) error) error {
	if p.timeout <= 0 {
		return fn(ctx, client)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return fn(attemptCtx, client)
}
