package catalog

import (
	"testing"

	"orchd/pkg/types"
)

func TestDefaultHasAllRoleKeys(t *testing.T) {
	c := Default()
	for _, k := range []types.ModelKey{
		types.KeyCode, types.KeyReason, types.KeyPersonality,
		types.KeyCloudCode, types.KeyCloudUniversal, types.KeyCloudVision,
	} {
		d, ok := c.Get(k)
		if !ok {
			t.Fatalf("missing key %q", k)
		}
		if d.Model == "" {
			t.Fatalf("key %q has empty model name", k)
		}
	}
}

func TestLocalModelNames(t *testing.T) {
	c := New([]types.ModelDescriptor{
		{Key: "a", Model: "m-a", Locality: types.LocalityLocal},
		{Key: "b", Model: "m-b", Locality: types.LocalityCloud},
		{Key: "c", Model: "m-c", Locality: types.LocalityLocal},
	})
	names := c.LocalModelNames()
	if len(names) != 2 || names[0] != "m-a" || names[1] != "m-c" {
		t.Fatalf("unexpected local names: %v", names)
	}
	cloud := c.CloudKeys()
	if len(cloud) != 1 || cloud[0] != "b" {
		t.Fatalf("unexpected cloud keys: %v", cloud)
	}
}

func TestNewLaterDuplicateWins(t *testing.T) {
	c := New([]types.ModelDescriptor{
		{Key: "a", Model: "old", Locality: types.LocalityLocal},
		{Key: "a", Model: "new", Locality: types.LocalityLocal},
	})
	d, _ := c.Get("a")
	if d.Model != "new" {
		t.Fatalf("expected override, got %q", d.Model)
	}
	if got := len(c.List()); got != 1 {
		t.Fatalf("expected 1 entry, got %d", got)
	}
}
