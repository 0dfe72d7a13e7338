package utility

import (
	"regexp"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewPlayerID(t *testing.T) {
	id := NewPlayerID()
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("NewPlayerID() = %q, not a UUID: %v", id, err)
	}
}

func TestNewConnID(t *testing.T) {
	pattern := regexp.MustCompile(`^conn-[0-9a-f-]{36}$`)

	for i := 0; i < 100; i++ {
		id := NewConnID()
		if !pattern.MatchString(id) {
			t.Errorf("NewConnID() = %q, want conn-<uuid>", id)
		}
	}
}

func TestIDs_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewPlayerID()
		if seen[id] {
			t.Fatalf("duplicate player id %q", id)
		}
		seen[id] = true
	}
	if strings.HasPrefix(NewPlayerID(), "conn-") {
		t.Error("player ids should not share the connection prefix")
	}
}
