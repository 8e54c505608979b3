package utils_test

import (
	"testing"

	"jack2hack.dev/toolchain/pkg/utils"
)

func TestInsertionOrderIsPreserved(t *testing.T) {
	om := utils.OrderedMap[string, int]{}
	om.Set("charlie", 3)
	om.Set("alpha", 1)
	om.Set("bravo", 2)

	entries := om.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	expected := []string{"charlie", "alpha", "bravo"}
	for i, entry := range entries {
		if entry.Key != expected[i] {
			t.Errorf("entry %d: expected key '%s', got '%s'", i, expected[i], entry.Key)
		}
	}
}

func TestUpdateKeepsThePosition(t *testing.T) {
	om := utils.OrderedMap[string, int]{}
	om.Set("first", 1)
	om.Set("second", 2)
	om.Set("first", 10)

	if om.Size() != 2 {
		t.Fatalf("expected 2 entries, got %d", om.Size())
	}
	if entries := om.Entries(); entries[0].Key != "first" || entries[0].Value != 10 {
		t.Errorf("expected the updated 'first' entry to stay first, got %+v", entries[0])
	}

	value, found := om.Get("first")
	if !found || value != 10 {
		t.Errorf("expected Get to see the update, got (%d, %v)", value, found)
	}
	if _, found := om.Get("missing"); found {
		t.Error("resolved a key that was never set")
	}
}

func TestBuildFromList(t *testing.T) {
	om := utils.NewOrderedMapFromList([]utils.MapEntry[string, int]{
		{Key: "a", Value: 1}, {Key: "b", Value: 2},
	})

	if om.Size() != 2 {
		t.Fatalf("expected 2 entries, got %d", om.Size())
	}
	if entries := om.Entries(); entries[0].Key != "a" || entries[1].Key != "b" {
		t.Errorf("unexpected order: %+v", entries)
	}
}
