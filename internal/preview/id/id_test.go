package id

import (
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
)

func TestGenerate(t *testing.T) {
	id := Generate()

	if !strings.HasPrefix(id, Prefix) {
		t.Errorf("expected ID to start with %q, got %s", Prefix, id)
	}
	if _, err := ulid.ParseStrict(strings.ToUpper(strings.TrimPrefix(id, Prefix))); err != nil {
		t.Errorf("expected a ULID suffix, got %s: %v", id, err)
	}

	id2 := Generate()
	if id == id2 {
		t.Error("expected different IDs for consecutive calls")
	}
}

func TestGenerate_UniqueAndSorted(t *testing.T) {
	seen := make(map[string]bool)
	prev := ""
	for i := 0; i < 1000; i++ {
		id := Generate()
		if seen[id] {
			t.Errorf("duplicate ID generated: %s", id)
		}
		if id <= prev {
			t.Errorf("expected %s to sort after %s", id, prev)
		}
		seen[id] = true
		prev = id
	}
}
