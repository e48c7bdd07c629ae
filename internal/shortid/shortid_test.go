package shortid

import (
	"regexp"
	"testing"
)

var shortIDPattern = regexp.MustCompile(`^RCL-[A-Z0-9]{8}$`)

func TestGenerate_Format(t *testing.T) {
	id, err := Generate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !shortIDPattern.MatchString(id) {
		t.Fatalf("id %q does not match %s", id, shortIDPattern.String())
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		id, err := Generate()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen[id] {
			t.Fatalf("generated duplicate id %q within 1000 draws", id)
		}
		seen[id] = true
	}
}
