package listing

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *JSONStore {
	t.Helper()
	store, err := NewJSONStore(filepath.Join(t.TempDir(), "listings.json"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestStoreSaveAssignsIDAndTimestamps(t *testing.T) {
	store := newTestStore(t)

	l := &Listing{SubjectRef: "mug-1", Title: "Blue mug", Price: 12}
	if err := store.Save(l); err != nil {
		t.Fatalf("save: %v", err)
	}

	if l.ID == "" {
		t.Error("save should assign an ID")
	}
	if l.CreatedAt.IsZero() || l.UpdatedAt.IsZero() {
		t.Error("save should set timestamps")
	}
	if l.Condition != ConditionGood {
		t.Errorf("save should default condition, got %s", l.Condition)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.json")
	store, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	l := &Listing{SubjectRef: "mug-1", Title: "Blue mug", Condition: ConditionFair}
	if err := store.Save(l); err != nil {
		t.Fatalf("save: %v", err)
	}

	// A second store over the same file sees the persisted record.
	reopened, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.Get(l.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Blue mug" || got.Condition != ConditionFair {
		t.Errorf("unexpected record: %+v", got)
	}
}

func TestStoreGetBySubject(t *testing.T) {
	store := newTestStore(t)

	first := &Listing{SubjectRef: "mug-1", Title: "First"}
	if err := store.Save(first); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Force a later UpdatedAt on the second record.
	time.Sleep(5 * time.Millisecond)
	second := &Listing{SubjectRef: "mug-1", Title: "Second"}
	if err := store.Save(second); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.GetBySubject("mug-1")
	if err != nil {
		t.Fatalf("get by subject: %v", err)
	}
	if got.Title != "Second" {
		t.Errorf("expected the most recent record, got %q", got.Title)
	}

	if _, err := store.GetBySubject("missing"); err == nil {
		t.Error("expected error for unknown subject")
	}
}

func TestStoreListSorted(t *testing.T) {
	store := newTestStore(t)

	for _, title := range []string{"a", "b", "c"} {
		if err := store.Save(&Listing{Title: title}); err != nil {
			t.Fatalf("save: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	listings, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listings) != 3 {
		t.Fatalf("expected 3 listings, got %d", len(listings))
	}
	if listings[0].Title != "c" {
		t.Errorf("expected newest first, got %q", listings[0].Title)
	}
}

func TestStoreDelete(t *testing.T) {
	store := newTestStore(t)

	l := &Listing{Title: "Mug"}
	if err := store.Save(l); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(l.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(l.ID); err == nil {
		t.Error("expected error after delete")
	}
	if err := store.Delete(l.ID); err == nil {
		t.Error("expected error deleting twice")
	}
}

func TestStoreSearch(t *testing.T) {
	store := newTestStore(t)

	store.Save(&Listing{Title: "Blue ceramic mug", Brand: "Heath"})
	store.Save(&Listing{Title: "Wool blanket", Category: "textiles"})

	results, err := store.Search("heath")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Brand != "Heath" {
		t.Errorf("unexpected results: %v", results)
	}

	results, _ = store.Search("textiles")
	if len(results) != 1 {
		t.Errorf("expected category match, got %d results", len(results))
	}

	if store.Count() != 2 {
		t.Errorf("expected 2 listings, got %d", store.Count())
	}
}
