package backend

import (
	"context"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/spec-kit/semillero-service/internal/domain"
)

// Preference is a payment transaction created by the payment backend.
type Preference struct {
	ID     string `json:"preference_id"`
	Status string `json:"status"`
}

// PreferenceCreator creates payment preferences.
type PreferenceCreator interface {
	CreatePreference(ctx context.Context, p domain.Payment) (Preference, error)
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// SimulatedPreferences fabricates test preference identifiers after a fixed delay.
type SimulatedPreferences struct {
	delay time.Duration
	now   func() time.Time
	intn  func(n int) int
}

// NewSimulatedPreferences builds the simulator with the wall clock and a random source.
func NewSimulatedPreferences(delay time.Duration) *SimulatedPreferences {
	return &SimulatedPreferences{delay: delay, now: time.Now, intn: rand.IntN}
}

// WithSource replaces the clock and random source.
func (s *SimulatedPreferences) WithSource(now func() time.Time, intn func(n int) int) *SimulatedPreferences {
	s.now = now
	s.intn = intn
	return s
}

// CreatePreference returns "TEST-<unix millis>-<9 base36 chars>" with status "created".
func (s *SimulatedPreferences) CreatePreference(ctx context.Context, _ domain.Payment) (Preference, error) {
	if err := wait(ctx, s.delay); err != nil {
		return Preference{}, err
	}
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = base36[s.intn(len(base36))]
	}
	id := "TEST-" + strconv.FormatInt(s.now().UnixMilli(), 10) + "-" + string(suffix)
	return Preference{ID: id, Status: "created"}, nil
}
