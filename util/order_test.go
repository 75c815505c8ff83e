package util

import (
	"testing"
)

func TestOrderedMap(t *testing.T) {
	m := NewOrderedMap[string, string]()
	m.Insert("VERSION_STRING", "v1")
	m.Insert("BUILD_ID", "42")
	m.Insert("TIMESTAMP_STRING", "now")

	expected := []OrderedMapEntry[string, string]{
		{Key: "BUILD_ID", Value: "42"},
		{Key: "TIMESTAMP_STRING", Value: "now"},
		{Key: "VERSION_STRING", Value: "v1"},
	}

	entries := m.Entries()
	keys := m.Keys()
	if len(entries) != len(expected) {
		t.Fatal("unexpected number of entries")
	}
	if len(keys) != len(expected) {
		t.Fatal("unexpected number of keys")
	}
	for i := range entries {
		if entries[i] != expected[i] {
			t.Fatalf("unexpected entry at index %d", i)
		}
		if keys[i] != expected[i].Key {
			t.Fatalf("unexpected key at index %d", i)
		}
	}
}

func TestOverridesForbidden(t *testing.T) {
	m := NewOrderedMap[int, string]()
	if err := m.Insert(1, "hello"); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := m.Insert(1, "world"); err == nil {
		t.Fatal("override should have failed")
	}
	if entries := m.Entries(); len(entries) != 1 || entries[0].Value != "hello" {
		t.Fatal("value was overridden")
	}
}
