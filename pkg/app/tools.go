package app

import (
	"fmt"
	"strings"

	"github.com/stallworks/go-stallcam/pkg/live"
)

// registerTools adds the store-backed tools to the session so the AI can
// answer questions about earlier listings while the seller works.
func (a *App) registerTools() {
	for _, t := range a.sessionTools() {
		a.session.RegisterTool(t)
	}
}

// sessionTools returns the extra tools beyond the built-in capture and
// finalize operations.
func (a *App) sessionTools() []live.Tool {
	return []live.Tool{
		{
			Name:        "lookup_listing",
			Description: "Search the seller's saved listings by title, description, brand or category. Use when the seller asks what something was listed for, or whether an item was already listed.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string", "description": "Free-text search query"},
				},
				"required": []string{"query"},
			},
			Handler: a.toolLookupListing,
		},
		{
			Name:        "list_recent_listings",
			Description: "List the seller's most recently created listings. Use when the seller asks what has been listed so far today.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"limit": map[string]any{"type": "number", "description": "Maximum listings to return (default 5)"},
				},
			},
			Handler: a.toolListRecent,
		},
	}
}

func (a *App) toolLookupListing(args map[string]any) (string, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return "", fmt.Errorf("query is required")
	}

	results, err := a.store.Search(query)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return fmt.Sprintf("No listings match %q.", query), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d listing(s):\n", len(results))
	for _, l := range results {
		fmt.Fprintf(&b, "- %s: $%.2f, %s condition\n", l.Title, l.Price, l.Condition)
	}
	return b.String(), nil
}

func (a *App) toolListRecent(args map[string]any) (string, error) {
	limit := 5
	if v, ok := args["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}

	all, err := a.store.List()
	if err != nil {
		return "", err
	}
	if len(all) == 0 {
		return "No listings have been created yet.", nil
	}
	if len(all) > limit {
		all = all[:limit]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Most recent %d listing(s):\n", len(all))
	for _, l := range all {
		fmt.Fprintf(&b, "- %s: $%.2f (%s)\n", l.Title, l.Price, l.UpdatedAt.Format("15:04"))
	}
	return b.String(), nil
}

// triggerTool runs a registered tool by name on behalf of the dashboard.
func (a *App) triggerTool(name string, args map[string]interface{}) (string, error) {
	for _, t := range a.sessionTools() {
		if t.Name == name {
			return t.Handler(args)
		}
	}
	return "", fmt.Errorf("unknown tool: %s", name)
}
