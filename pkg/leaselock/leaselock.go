// Package leaselock implements expiring locks on the app_locks table. A lease
// is renewed in the background while held; if renewal fails the lease
// context is canceled with ErrLost.
package leaselock

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	pgdb "github.com/OFFIS-RIT/graphvis/pkg/db/pgx"

	"github.com/jackc/pgx/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrBusy     = errors.New("lease lock busy")
	ErrLost     = errors.New("lease lock lost")
	ErrEmptyKey = errors.New("lease lock key is empty")
)

const renewAttempts = 3

type Client struct {
	q *pgdb.Queries
}

// Options configures a lease. Zero values get defaults: a five minute TTL
// renewed at half its length, and a 250ms poll interval when waiting.
type Options struct {
	TTL        time.Duration
	RenewEvery time.Duration

	Wait         bool
	WaitInterval time.Duration
	WaitJitter   time.Duration

	TokenPrefix string
}

// Lease is a held key. Context is canceled once the lease is released or lost.
type Lease struct {
	Key   string
	Token string

	Context context.Context

	q      *pgdb.Queries
	ttlMs  int64
	cancel context.CancelCauseFunc
	once   sync.Once
	done   chan struct{}
}

// New returns a client on conn, usually a *pgxpool.Pool.
func New(conn pgdb.DBTX) *Client {
	return &Client{q: pgdb.New(conn)}
}

// Key builds a lock key from a resource kind and id, e.g. "graph:G1".
func Key(kind, id string) string {
	return kind + ":" + id
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = 5 * time.Minute
	}
	if o.RenewEvery <= 0 || o.RenewEvery >= o.TTL {
		o.RenewEvery = max(o.TTL/2, time.Second)
	}
	if o.WaitInterval <= 0 {
		o.WaitInterval = 250 * time.Millisecond
	}
	o.WaitJitter = max(o.WaitJitter, 0)
	return o
}

// WithLease runs fn while holding key. fn receives the lease context, which is
// canceled if the lease is lost.
func (c *Client) WithLease(ctx context.Context, key string, opts Options, fn func(ctx context.Context) error) error {
	lease, err := c.Acquire(ctx, key, opts)
	if err != nil {
		return err
	}
	defer lease.Release(context.Background())
	return fn(lease.Context)
}

// Acquire takes key. Without Options.Wait a held key fails with ErrBusy.
func (c *Client) Acquire(ctx context.Context, key string, opts Options) (*Lease, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	opts = opts.withDefaults()

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	params := pgdb.TryAcquireLockParams{
		LockKey:  key,
		LockedBy: opts.TokenPrefix + id,
		TtlMs:    max(opts.TTL.Milliseconds(), 1),
	}

	for {
		_, err := c.q.TryAcquireLock(ctx, params)
		if err == nil {
			break
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		if !opts.Wait {
			return nil, ErrBusy
		}
		if err := pause(ctx, opts.WaitInterval, opts.WaitJitter); err != nil {
			return nil, err
		}
	}

	leaseCtx, cancel := context.WithCancelCause(ctx)
	l := &Lease{
		Key:     params.LockKey,
		Token:   params.LockedBy,
		Context: leaseCtx,
		q:       c.q,
		ttlMs:   params.TtlMs,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go l.keepAlive(opts.RenewEvery)

	return l, nil
}

// Release stops renewal and frees the key if this lease still holds it.
func (l *Lease) Release(ctx context.Context) error {
	l.once.Do(func() {
		close(l.done)
		l.cancel(context.Canceled)
	})
	return l.q.ReleaseLock(ctx, pgdb.ReleaseLockParams{LockKey: l.Key, LockedBy: l.Token})
}

func (l *Lease) keepAlive(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-l.Context.Done():
			return
		case <-t.C:
			if err := l.renew(); err != nil {
				l.cancel(err)
				return
			}
		}
	}
}

func (l *Lease) renew() error {
	var err error
	for attempt := range renewAttempts {
		if attempt > 0 {
			if perr := pause(l.Context, 200*time.Millisecond, 0); perr != nil {
				return perr
			}
		}
		ctx, cancel := context.WithTimeout(l.Context, 15*time.Second)
		_, err = l.q.RenewLock(ctx, pgdb.RenewLockParams{TtlMs: l.ttlMs, LockKey: l.Key, LockedBy: l.Token})
		cancel()
		if err == nil {
			return nil
		}
		// Someone else took over an expired lease.
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrLost
		}
	}
	return err
}

func pause(ctx context.Context, base, jitter time.Duration) error {
	d := base
	if jitter > 0 {
		d += time.Duration(rand.Int64N(int64(jitter) + 1))
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
