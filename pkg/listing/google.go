package listing

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/docs/v1"
	"google.golang.org/api/option"

	"github.com/stallworks/go-stallcam/internal/httpc"
)

// GoogleDocsClient exports listings to Google Docs so sellers can review
// and edit them off-device. Handles OAuth2 and the Docs API.
type GoogleDocsClient struct {
	config      *oauth2.Config
	token       *oauth2.Token
	tokenPath   string
	docsService *docs.Service

	mu sync.RWMutex
}

// GoogleDocsConfig configures the Google Docs client.
type GoogleDocsConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g., "http://localhost:8090/api/google/callback"
	TokenPath    string // Path to store token (default: ~/.stallcam/google_token.json)
}

// NewGoogleDocsClient creates a new Google Docs client.
func NewGoogleDocsClient(cfg GoogleDocsConfig) (*GoogleDocsClient, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required")
	}
	if cfg.RedirectURL == "" {
		cfg.RedirectURL = "http://localhost:8090/api/google/callback"
	}
	if cfg.TokenPath == "" {
		homeDir, _ := os.UserHomeDir()
		cfg.TokenPath = filepath.Join(homeDir, ".stallcam", "google_token.json")
	}

	oauthConfig := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/documents",
			"https://www.googleapis.com/auth/drive.file",
		},
		Endpoint: google.Endpoint,
	}

	client := &GoogleDocsClient{
		config:    oauthConfig,
		tokenPath: cfg.TokenPath,
	}

	if err := client.loadToken(); err == nil {
		if err := client.initService(); err != nil {
			// Token likely expired; re-auth required.
			client.token = nil
		}
	}

	return client, nil
}

// IsAuthenticated returns true if the client has a valid token.
func (g *GoogleDocsClient) IsAuthenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.token != nil && g.token.Valid()
}

// AuthURL returns the OAuth2 authorization URL for user consent.
func (g *GoogleDocsClient) AuthURL() string {
	return g.config.AuthCodeURL("stallcam-state", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// HandleCallback processes the OAuth2 callback with the authorization code.
func (g *GoogleDocsClient) HandleCallback(code string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpc.Client)

	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange code for token: %w", err)
	}

	g.mu.Lock()
	g.token = token
	g.mu.Unlock()

	if err := g.saveToken(); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	if err := g.initService(); err != nil {
		return fmt.Errorf("failed to initialize docs service: %w", err)
	}
	return nil
}

// Disconnect clears the authentication and removes the stored token.
func (g *GoogleDocsClient) Disconnect() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.token = nil
	g.docsService = nil

	if err := os.Remove(g.tokenPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

// ExportListing writes a listing to Google Docs, creating a new doc if the
// listing has none and updating the existing doc otherwise. The doc ID is
// recorded on the listing.
func (g *GoogleDocsClient) ExportListing(l *Listing) error {
	if !g.IsAuthenticated() {
		return fmt.Errorf("not authenticated - please connect to Google first")
	}

	content := formatListingForDoc(l)

	if l.DocID == "" {
		docID, err := g.createDoc(l.Title, content)
		if err != nil {
			return err
		}
		l.DocID = docID
		return nil
	}
	return g.updateDoc(l.DocID, content)
}

// DocURL returns the URL to view/edit a Google Doc.
func DocURL(docID string) string {
	return fmt.Sprintf("https://docs.google.com/document/d/%s/edit", docID)
}

func (g *GoogleDocsClient) createDoc(title, content string) (string, error) {
	g.mu.RLock()
	service := g.docsService
	g.mu.RUnlock()
	if service == nil {
		return "", fmt.Errorf("not authenticated - please connect to Google first")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created, err := service.Documents.Create(&docs.Document{Title: title}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create document: %w", err)
	}

	if content != "" {
		requests := []*docs.Request{
			{
				InsertText: &docs.InsertTextRequest{
					Location: &docs.Location{Index: 1},
					Text:     content,
				},
			},
		}
		_, err = service.Documents.BatchUpdate(created.DocumentId, &docs.BatchUpdateDocumentRequest{
			Requests: requests,
		}).Context(ctx).Do()
		if err != nil {
			return created.DocumentId, fmt.Errorf("created doc but failed to add content: %w", err)
		}
	}
	return created.DocumentId, nil
}

func (g *GoogleDocsClient) updateDoc(docID, content string) error {
	g.mu.RLock()
	service := g.docsService
	g.mu.RUnlock()
	if service == nil {
		return fmt.Errorf("not authenticated - please connect to Google first")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	doc, err := service.Documents.Get(docID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	endIndex := doc.Body.Content[len(doc.Body.Content)-1].EndIndex - 1

	var requests []*docs.Request
	if endIndex > 1 {
		requests = append(requests, &docs.Request{
			DeleteContentRange: &docs.DeleteContentRangeRequest{
				Range: &docs.Range{StartIndex: 1, EndIndex: endIndex},
			},
		})
	}
	requests = append(requests, &docs.Request{
		InsertText: &docs.InsertTextRequest{
			Location: &docs.Location{Index: 1},
			Text:     content,
		},
	})

	_, err = service.Documents.BatchUpdate(docID, &docs.BatchUpdateDocumentRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	return nil
}

func (g *GoogleDocsClient) initService() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.token == nil {
		return fmt.Errorf("no token available")
	}

	ctx := context.Background()
	client := g.config.Client(ctx, g.token)

	service, err := docs.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return fmt.Errorf("failed to create docs service: %w", err)
	}
	g.docsService = service
	return nil
}

func (g *GoogleDocsClient) loadToken() error {
	data, err := os.ReadFile(g.tokenPath)
	if err != nil {
		return err
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return err
	}

	g.mu.Lock()
	g.token = &token
	g.mu.Unlock()
	return nil
}

func (g *GoogleDocsClient) saveToken() error {
	g.mu.RLock()
	token := g.token
	g.mu.RUnlock()
	if token == nil {
		return fmt.Errorf("no token to save")
	}

	if err := os.MkdirAll(filepath.Dir(g.tokenPath), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(g.tokenPath, data, 0600)
}

// formatListingForDoc renders a listing as plain text for a Google Doc.
func formatListingForDoc(l *Listing) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n\n", l.Title)
	fmt.Fprintf(&b, "Price: $%.2f\n", l.Price)
	fmt.Fprintf(&b, "Condition: %s\n", l.Condition)
	if l.Brand != "" {
		fmt.Fprintf(&b, "Brand: %s\n", l.Brand)
	}
	if l.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", l.Category)
	}
	b.WriteString("\n")

	if l.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", l.Description)
	}
	if l.ArtifactURL != "" {
		fmt.Fprintf(&b, "Image: %s\n", l.ArtifactURL)
	}
	fmt.Fprintf(&b, "\nCreated: %s\n", l.CreatedAt.Format("January 2, 2006 3:04 PM"))

	return b.String()
}
