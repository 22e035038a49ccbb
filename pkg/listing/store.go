package listing

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a listing does not exist.
var ErrNotFound = errors.New("listing not found")

// Store defines listing persistence operations.
type Store interface {
	// Save creates or updates a listing
	Save(l *Listing) error

	// Get retrieves a listing by ID
	Get(id string) (*Listing, error)

	// GetBySubject retrieves the most recent listing for a subject reference
	GetBySubject(subjectRef string) (*Listing, error)

	// List returns all listings, sorted by updated time (newest first)
	List() ([]*Listing, error)

	// Delete removes a listing by ID
	Delete(id string) error

	// Search finds listings matching a query (title, description, brand, category)
	Search(query string) ([]*Listing, error)

	// Count returns the total number of listings
	Count() int
}

// JSONStore implements Store using a JSON file for persistence.
type JSONStore struct {
	path     string
	listings map[string]*Listing
	mu       sync.RWMutex
}

var _ Store = (*JSONStore)(nil)

// storeData is the JSON structure for the store file.
type storeData struct {
	Version   int        `json:"version"`
	UpdatedAt string     `json:"updated_at"`
	Listings  []*Listing `json:"listings"`
}

const currentVersion = 1

// NewJSONStore creates a JSON-backed store at the given path. If the file
// doesn't exist, it will be created on first save.
func NewJSONStore(path string) (*JSONStore, error) {
	store := &JSONStore{
		path:     path,
		listings: make(map[string]*Listing),
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := store.load(); err != nil {
			return nil, fmt.Errorf("failed to load store: %w", err)
		}
	}

	return store, nil
}

// NewDefaultStore creates a store at ~/.stallcam/listings.json.
func NewDefaultStore() (*JSONStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewJSONStore(filepath.Join(homeDir, ".stallcam", "listings.json"))
}

func (s *JSONStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var stored storeData
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	s.listings = make(map[string]*Listing)
	for _, l := range stored.Listings {
		s.listings[l.ID] = l
	}
	return nil
}

// save writes the store to disk with a temp-file rename for atomicity.
func (s *JSONStore) save() error {
	listings := make([]*Listing, 0, len(s.listings))
	for _, l := range s.listings {
		listings = append(listings, l)
	}

	stored := storeData{
		Version:   currentVersion,
		UpdatedAt: time.Now().Format(time.RFC3339),
		Listings:  listings,
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Save creates or updates a listing.
func (s *JSONStore) Save(l *Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.Condition == "" {
		l.Condition = DefaultCondition
	}

	now := time.Now()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now

	s.listings[l.ID] = l
	return s.save()
}

// Get retrieves a listing by ID.
func (s *JSONStore) Get(id string) (*Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.listings[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return l, nil
}

// GetBySubject retrieves the most recent listing for a subject reference.
func (s *JSONStore) GetBySubject(subjectRef string) (*Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *Listing
	for _, l := range s.listings {
		if l.SubjectRef != subjectRef {
			continue
		}
		if latest == nil || l.UpdatedAt.After(latest.UpdatedAt) {
			latest = l
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("%w for subject: %s", ErrNotFound, subjectRef)
	}
	return latest, nil
}

// List returns all listings, sorted by updated time (newest first).
func (s *JSONStore) List() ([]*Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	listings := make([]*Listing, 0, len(s.listings))
	for _, l := range s.listings {
		listings = append(listings, l)
	}
	sort.Slice(listings, func(i, j int) bool {
		return listings[i].UpdatedAt.After(listings[j].UpdatedAt)
	})
	return listings, nil
}

// Delete removes a listing by ID.
func (s *JSONStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.listings[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.listings, id)
	return s.save()
}

// Search finds listings matching a query across title, description, brand
// and category.
func (s *JSONStore) Search(query string) ([]*Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	var results []*Listing
	for _, l := range s.listings {
		if strings.Contains(strings.ToLower(l.Title), q) ||
			strings.Contains(strings.ToLower(l.Description), q) ||
			strings.Contains(strings.ToLower(l.Brand), q) ||
			strings.Contains(strings.ToLower(l.Category), q) {
			results = append(results, l)
		}
	}
	return results, nil
}

// Count returns the total number of listings.
func (s *JSONStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listings)
}

// Path returns the file path of the store.
func (s *JSONStore) Path() string {
	return s.path
}
