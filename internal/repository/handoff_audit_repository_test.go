package repository

import (
	"context"
	"testing"
)

func TestHandoffAuditWithoutPostgres(t *testing.T) {
	repo := NewHandoffAuditRepository(nil)
	ctx := context.Background()

	entry := &HandoffAudit{EventID: "e1", EventType: "enrollment_dispatched", SessionID: "s1", Payload: []byte(`{}`)}
	if err := repo.Append(ctx, entry); err != nil {
		t.Fatalf("append: %v", err)
	}
	if entry.ID != 0 {
		t.Errorf("nothing is stored, got id %d", entry.ID)
	}

	history, err := repo.ListBySession(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %v", history)
	}
}
