// Package pipeline defines the contract with the background listing
// pipeline: given a normalized draft plus captured reference images, it
// derives a presentation image and persists the final listing record.
// Pipeline calls are slow and run off the session's hot path.
package pipeline

import (
	"context"

	"github.com/stallworks/go-stallcam/pkg/listing"
)

// ReferenceImage is one captured view of the item being finalized.
type ReferenceImage struct {
	Data        []byte `json:"data"`
	Description string `json:"description,omitempty"`
}

// Request carries everything the pipeline needs to finalize one item.
type Request struct {
	SubjectRef      string            `json:"subject_ref"`
	ReferenceImages []ReferenceImage  `json:"reference_images"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Price           float64           `json:"price"`
	Condition       listing.Condition `json:"condition"`
	Brand           string            `json:"brand,omitempty"`
	Category        string            `json:"category"`
	ImagePrompt     string            `json:"image_prompt,omitempty"`
}

// Result is the outcome of a successful pipeline run.
type Result struct {
	RecordID    string `json:"record_id"`
	ArtifactURL string `json:"artifact_url,omitempty"`
}

// Pipeline finalizes listings in the background.
type Pipeline interface {
	Finalize(ctx context.Context, req Request) (Result, error)
}

// NewRequest builds a Request from a normalized draft and captures.
func NewRequest(draft listing.Draft, images []ReferenceImage) Request {
	return Request{
		SubjectRef:      draft.SubjectRef,
		ReferenceImages: images,
		Title:           draft.Title,
		Description:     draft.Description,
		Price:           draft.Price,
		Condition:       draft.Condition,
		Brand:           draft.Brand,
		Category:        draft.Category,
		ImagePrompt:     draft.ImagePrompt,
	}
}
