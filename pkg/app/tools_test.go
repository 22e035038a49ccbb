package app

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stallworks/go-stallcam/pkg/listing"
)

func newTestApp(t *testing.T) *App {
	t.Helper()

	store, err := listing.NewJSONStore(filepath.Join(t.TempDir(), "listings.json"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	return &App{config: DefaultConfig(), store: store}
}

func TestToolLookupListing(t *testing.T) {
	a := newTestApp(t)
	a.store.Save(&listing.Listing{Title: "Vintage brass lamp", Price: 45, Condition: listing.ConditionGood})

	result, err := a.toolLookupListing(map[string]any{"query": "lamp"})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !strings.Contains(result, "Vintage brass lamp") {
		t.Errorf("result missing title: %q", result)
	}
	if !strings.Contains(result, "$45.00") {
		t.Errorf("result missing price: %q", result)
	}
}

func TestToolLookupListingNoMatch(t *testing.T) {
	a := newTestApp(t)

	result, err := a.toolLookupListing(map[string]any{"query": "nothing"})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !strings.Contains(result, "No listings") {
		t.Errorf("unexpected result: %q", result)
	}
}

func TestToolLookupListingRequiresQuery(t *testing.T) {
	a := newTestApp(t)
	if _, err := a.toolLookupListing(map[string]any{}); err == nil {
		t.Fatal("expected error for missing query")
	}
}

func TestToolListRecent(t *testing.T) {
	a := newTestApp(t)
	for _, title := range []string{"Teapot", "Record player", "Wool scarf"} {
		a.store.Save(&listing.Listing{Title: title, Price: 10})
	}

	result, err := a.toolListRecent(map[string]any{"limit": float64(2)})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := strings.Count(result, "- "); got != 2 {
		t.Errorf("listed %d items, want 2: %q", got, result)
	}
}

func TestToolListRecentEmpty(t *testing.T) {
	a := newTestApp(t)

	result, err := a.toolListRecent(map[string]any{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(result, "No listings") {
		t.Errorf("unexpected result: %q", result)
	}
}

func TestTriggerToolUnknown(t *testing.T) {
	a := newTestApp(t)
	if _, err := a.triggerTool("no_such_tool", nil); err == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestTriggerToolDispatches(t *testing.T) {
	a := newTestApp(t)
	a.store.Save(&listing.Listing{Title: "Ceramic vase", Price: 20})

	result, err := a.triggerTool("lookup_listing", map[string]interface{}{"query": "vase"})
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if !strings.Contains(result, "Ceramic vase") {
		t.Errorf("unexpected result: %q", result)
	}
}
