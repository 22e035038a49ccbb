// Package listing holds the marketplace listing domain model: the record
// produced when a stall item is finalized, argument normalization for
// tool-call input, and persistence.
package listing

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"
)

// Condition describes the physical state of an item.
type Condition string

const (
	ConditionNew     Condition = "new"
	ConditionLikeNew Condition = "like_new"
	ConditionGood    Condition = "good"
	ConditionFair    Condition = "fair"
	ConditionPoor    Condition = "poor"
)

// DefaultCondition is used when the supplied value is absent or not in the
// allowed set. Incomplete input never blocks finalization.
const DefaultCondition = ConditionGood

// ParseCondition maps a free-form value onto the allowed set, falling back
// to DefaultCondition.
func ParseCondition(v string) Condition {
	switch Condition(strings.ToLower(strings.TrimSpace(v))) {
	case ConditionNew:
		return ConditionNew
	case ConditionLikeNew:
		return ConditionLikeNew
	case ConditionGood:
		return ConditionGood
	case ConditionFair:
		return ConditionFair
	case ConditionPoor:
		return ConditionPoor
	default:
		return DefaultCondition
	}
}

// Listing is a finalized marketplace record for one stall item.
type Listing struct {
	ID          string    `json:"id"`
	SubjectRef  string    `json:"subject_ref"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Condition   Condition `json:"condition"`
	Brand       string    `json:"brand,omitempty"`
	Category    string    `json:"category"`
	ImagePrompt string    `json:"image_prompt,omitempty"`
	ArtifactURL string    `json:"artifact_url,omitempty"`
	DocID       string    `json:"doc_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Draft holds normalized finalize arguments before the pipeline runs.
type Draft struct {
	SubjectRef  string
	Title       string
	Description string
	Price       float64
	Condition   Condition
	Brand       string
	Category    string
	ImagePrompt string
}

// NormalizeArgs converts raw tool-call arguments into a Draft. Missing or
// invalid fields fall back to documented defaults rather than failing:
// strings default to empty, price to 0, condition to "good".
func NormalizeArgs(args map[string]any) Draft {
	return Draft{
		SubjectRef:  argString(args, "subject_ref"),
		Title:       argString(args, "title"),
		Description: argString(args, "description"),
		Price:       argPrice(args, "price"),
		Condition:   ParseCondition(argString(args, "condition")),
		Brand:       argString(args, "brand"),
		Category:    argString(args, "category"),
		ImagePrompt: argString(args, "image_prompt"),
	}
}

// TitleHash returns a short stable hash of the draft title, used to key
// duplicate finalize attempts.
func (d Draft) TitleHash() string {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(d.Title))))
	return fmt.Sprintf("%08x", h.Sum32())
}

func argString(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func argPrice(args map[string]any, key string) float64 {
	switch v := args[key].(type) {
	case float64:
		if v < 0 {
			return 0
		}
		return v
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || p < 0 {
			return 0
		}
		return p
	default:
		return 0
	}
}
