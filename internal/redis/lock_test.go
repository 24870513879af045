package redisclient

import (
	"testing"

	"github.com/google/uuid"
)

func TestLockKey_PerSession(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	if lockKey(a) != lockKey(a) {
		t.Error("same session must map to the same key")
	}
	if lockKey(a) == lockKey(b) {
		t.Error("different sessions must not share a key")
	}
	if want := "lock:editor-session:" + a.String(); lockKey(a) != want {
		t.Errorf("expected %q, got %q", want, lockKey(a))
	}
}
