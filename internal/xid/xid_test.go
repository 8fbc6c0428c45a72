package xid

import (
	"strings"
	"testing"
)

func TestNewShape(t *testing.T) {
	id := New("sale")
	parts := strings.Split(id, "-")
	if len(parts) != 3 || parts[0] != "sale" {
		t.Fatalf("unexpected id %q", id)
	}
	if len(parts[2]) != 12 {
		t.Fatalf("expected 12 hex chars of tail, got %q", parts[2])
	}
	if other := New("sale"); other == id {
		t.Fatalf("expected distinct ids, got %q twice", id)
	}
}
