package gazetteer

import (
	"errors"
	"testing"

	"github.com/cognicore/placewatch/pkg/placewatch/internalerr"
)

func TestNewIndexEmpty(t *testing.T) {
	_, err := NewIndex(nil)
	if err == nil {
		t.Fatal("Expected error for empty place list")
	}
	if !errors.Is(err, internalerr.ErrEmptyGazetteer) {
		t.Errorf("Expected ErrEmptyGazetteer, got %v", err)
	}
}

func TestNewIndexNoUsableNames(t *testing.T) {
	_, err := NewIndex([]Place{{ID: 1, Name: "  ...  "}})
	if !errors.Is(err, internalerr.ErrEmptyGazetteer) {
		t.Errorf("Expected ErrEmptyGazetteer for untokenizable names, got %v", err)
	}
}

func TestIndexLookup(t *testing.T) {
	ix, err := NewIndex([]Place{
		{ID: 1, Name: "New York"},
		{ID: 2, Name: "Seattle"},
	})
	if err != nil {
		t.Fatal(err)
	}

	ids, ok := ix.lookup("New York")
	if !ok || len(ids) != 1 || ids[0] != 1 {
		t.Errorf("lookup(New York) = %v, %v", ids, ok)
	}

	if _, ok := ix.lookup("New"); ok {
		t.Error("Partial phrase should not be indexed")
	}

	if ix.maxTokens() != 2 {
		t.Errorf("maxTokens = %d, want 2", ix.maxTokens())
	}
	if ix.Len() != 2 {
		t.Errorf("Len = %d, want 2", ix.Len())
	}
}

func TestIndexDuplicateNames(t *testing.T) {
	// Two unrelated places sharing one name: both ids are retained.
	ix, err := NewIndex([]Place{
		{ID: 5, Name: "Springfield"},
		{ID: 9, Name: "Springfield"},
	})
	if err != nil {
		t.Fatal(err)
	}

	ids, ok := ix.lookup("Springfield")
	if !ok {
		t.Fatal("Expected Springfield to be indexed")
	}
	if len(ids) != 2 {
		t.Fatalf("Expected both ids retained, got %v", ids)
	}
}

func TestIndexWhitespaceInsensitiveNames(t *testing.T) {
	ix, err := NewIndex([]Place{{ID: 3, Name: "  Lake   Oswego "}})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ix.lookup("Lake Oswego"); !ok {
		t.Error("Name should normalize to single-space token phrase")
	}
}
