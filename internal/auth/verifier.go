package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/letterdrop/letterdrop/internal/krypto"
	"golang.org/x/sync/semaphore"
)

// Verifier derives and verifies password hashes on a bounded worker
// pool. Argon2 is intentionally expensive, running it unrestricted on
// request goroutines would let a burst of login attempts starve the
// rest of the server.
//
// Callers suspend until a worker slot is available and the work is
// done. A failure to get a slot is reported as an error, it is never
// silently dropped.
type Verifier struct {
	sem *semaphore.Weighted
}

// NewVerifier creates a Verifier that runs at most workers hashing
// operations concurrently.
func NewVerifier(workers int) (*Verifier, error) {
	if workers < 1 {
		return nil, errors.New("verifier needs at least one worker")
	}

	return &Verifier{
		sem: semaphore.NewWeighted(int64(workers)),
	}, nil
}

// Hash derives a new hash for the provided password.
func (v *Verifier) Hash(ctx context.Context, pwd Password) (krypto.Argon2Hash, error) {
	return dispatch(ctx, v, func() (krypto.Argon2Hash, error) {
		return krypto.HashArgon2(pwd.plain)
	})
}

// Match checks if the password matches the provided hash.
func (v *Verifier) Match(ctx context.Context, pwd Password, hash krypto.Argon2Hash) (bool, error) {
	return dispatch(ctx, v, func() (bool, error) {
		return hash.MatchBytes(pwd.plain), nil
	})
}

func dispatch[T any](ctx context.Context, v *Verifier, f func() (T, error)) (T, error) {
	var zero T

	if err := v.sem.Acquire(ctx, 1); err != nil {
		return zero, fmt.Errorf("failed to dispatch to hashing pool: %w", err)
	}

	type result struct {
		val T
		err error
	}

	ch := make(chan result, 1)
	go func() {
		defer v.sem.Release(1)

		val, err := f()
		ch <- result{val: val, err: err}
	}()

	select {
	case <-ctx.Done():
		// The worker finishes in the background, the caller is no
		// longer interested in the result.
		return zero, ctx.Err()
	case res := <-ch:
		return res.val, res.err
	}
}
