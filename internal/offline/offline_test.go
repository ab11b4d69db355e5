package offline

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestPlaceholderNumberFormat(t *testing.T) {
	id := uuid.MustParse("a1b2c3d4-0000-0000-0000-000000000000")
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	got := placeholderNumber(now, id)
	if got != "OFF-20260831-A1B2C3D4" {
		t.Fatalf("placeholder = %q", got)
	}
}

func TestSyncTaskCarriesRecordID(t *testing.T) {
	id := uuid.New()
	task, err := NewSyncTask(id)
	if err != nil {
		t.Fatalf("NewSyncTask: %v", err)
	}
	if task.Type() != TaskSyncDocument {
		t.Fatalf("type = %q", task.Type())
	}
	if !strings.Contains(string(task.Payload()), id.String()) {
		t.Fatalf("payload %s missing record id", task.Payload())
	}
}
