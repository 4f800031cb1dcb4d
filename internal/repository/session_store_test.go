package repository

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/semillero-service/internal/domain"
)

func TestSessionStoreBasicOperations(t *testing.T) {
	store := NewSessionStore(time.Minute, 0)
	defer store.Stop()

	store.Create(domain.NewSession("s1"))

	got, err := store.Get("s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Screen != domain.ScreenLogin {
		t.Errorf("expected login screen, got %s", got.Screen)
	}

	if _, err := store.Get("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}

	updated, err := store.Update("s1", func(s domain.Session) domain.Session {
		s.Screen = domain.ScreenInscription
		s.ID = "tampered"
		return s
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Screen != domain.ScreenInscription || updated.ID != "s1" {
		t.Errorf("unexpected update result %+v", updated)
	}

	store.Delete("s1")
	if store.Len() != 0 {
		t.Errorf("expected empty store, got %d", store.Len())
	}
}

func TestSessionStoreExpiration(t *testing.T) {
	store := NewSessionStore(time.Minute, 0)
	defer store.Stop()

	now := time.Now()
	store.now = func() time.Time { return now }
	store.Create(domain.NewSession("s1"))

	now = now.Add(30 * time.Second)
	if _, err := store.Get("s1"); err != nil {
		t.Fatalf("session should still be alive: %v", err)
	}

	// access extends the deadline
	now = now.Add(45 * time.Second)
	if _, err := store.Get("s1"); err != nil {
		t.Fatalf("session should have been extended: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := store.Get("s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
	if removed := store.DeleteExpired(); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
}

func TestSessionStoreConcurrentUpdates(t *testing.T) {
	store := NewSessionStore(time.Minute, 0)
	defer store.Stop()
	store.Create(domain.NewSession("s1"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Update("s1", func(s domain.Session) domain.Session {
				s.Auth.VerificationCode += "x"
				return s
			})
		}()
	}
	wg.Wait()

	got, _ := store.Get("s1")
	if len(got.Auth.VerificationCode) != 50 {
		t.Fatalf("lost updates: %d", len(got.Auth.VerificationCode))
	}
}
