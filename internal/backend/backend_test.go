package backend

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/spec-kit/semillero-service/internal/domain"
)

func TestSimulatedVerifier(t *testing.T) {
	v, err := NewSimulatedVerifier("123456", 0, 4)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	cases := map[string]bool{
		"123456":  true,
		"654321":  false,
		"":        false,
		"1234567": false,
		" 123456": false,
	}
	for code, want := range cases {
		got, err := v.Verify(context.Background(), code)
		if err != nil {
			t.Fatalf("verify %q: unexpected error %v", code, err)
		}
		if got != want {
			t.Errorf("verify %q = %v, want %v", code, got, want)
		}
	}
}

func TestSimulatedVerifierWaitsDelay(t *testing.T) {
	v, err := NewSimulatedVerifier("123456", 30*time.Millisecond, 4)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	start := time.Now()
	ok, err := v.Verify(context.Background(), "123456")
	if err != nil || !ok {
		t.Fatalf("expected success, got %v %v", ok, err)
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Fatal("verify resolved before the delay")
	}
}

func TestSimulatedVerifierTimeout(t *testing.T) {
	v, err := NewSimulatedVerifier("123456", time.Hour, 4)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := v.Verify(ctx, "123456"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestSimulatedPreferences(t *testing.T) {
	fixed := time.UnixMilli(1739577600000)
	i := 0
	sim := NewSimulatedPreferences(0).WithSource(
		func() time.Time { return fixed },
		func(n int) int { i++; return (i * 7) % n },
	)
	pref, err := sim.CreatePreference(context.Background(), domain.Payment{ID: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pref.ID != "TEST-1739577600000-7elsz6dkr" {
		t.Errorf("unexpected id %q", pref.ID)
	}
	if pref.Status != "created" {
		t.Errorf("unexpected status %q", pref.Status)
	}
}

func TestSimulatedPreferencesFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^TEST-\d+-[0-9a-z]{9}$`)
	sim := NewSimulatedPreferences(0)
	for i := 0; i < 20; i++ {
		pref, err := sim.CreatePreference(context.Background(), domain.Payment{ID: 2})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !pattern.MatchString(pref.ID) {
			t.Fatalf("unexpected id %q", pref.ID)
		}
	}
}
