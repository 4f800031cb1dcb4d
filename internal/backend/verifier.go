// Package backend holds the remote collaborators of the workflow and their simulations.
package backend

import (
	"context"
	"time"

	"github.com/spec-kit/semillero-service/internal/auth"
)

// Verifier confirms one-time codes.
type Verifier interface {
	Verify(ctx context.Context, code string) (bool, error)
}

// SimulatedVerifier accepts a single fixed code after a fixed delay.
type SimulatedVerifier struct {
	codeHash string
	delay    time.Duration
}

// NewSimulatedVerifier stores only the bcrypt hash of code.
func NewSimulatedVerifier(code string, delay time.Duration, bcryptCost int) (*SimulatedVerifier, error) {
	hash, err := auth.HashSecret(code, bcryptCost)
	if err != nil {
		return nil, err
	}
	return &SimulatedVerifier{codeHash: hash, delay: delay}, nil
}

// Verify waits the configured delay, then compares code. Only ctx can make it fail.
func (v *SimulatedVerifier) Verify(ctx context.Context, code string) (bool, error) {
	if err := wait(ctx, v.delay); err != nil {
		return false, err
	}
	return auth.CompareSecret(v.codeHash, code) == nil, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
