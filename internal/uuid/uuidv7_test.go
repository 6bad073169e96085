package uuid

import (
	"strings"
	"testing"

	googleuuid "github.com/google/uuid"
)

func TestNew_IsVersion7(t *testing.T) {
	id := New()
	parsed, err := googleuuid.Parse(id)
	if err != nil {
		t.Fatalf("New() returned invalid UUID %q: %v", id, err)
	}
	if parsed.Version() != 7 {
		t.Errorf("expected version 7, got %d", parsed.Version())
	}
}

func TestNew_SortsByCreation(t *testing.T) {
	prev := New()
	for i := 0; i < 50; i++ {
		next := New()
		if next == prev {
			t.Fatalf("duplicate id %s", next)
		}
		// The 48-bit millisecond prefix never goes backwards.
		if next[:13] < prev[:13] {
			t.Fatalf("ids not time ordered: %s came after %s", next, prev)
		}
		prev = next
	}
}

func TestParse(t *testing.T) {
	upper := strings.ToUpper(New())
	got, err := Parse(upper)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != strings.ToLower(upper) {
		t.Errorf("expected canonical lowercase, got %s", got)
	}

	if _, err := Parse("not-a-uuid"); err == nil {
		t.Error("expected error for invalid input")
	}
	if IsValid("123") {
		t.Error("IsValid should reject garbage")
	}
}
