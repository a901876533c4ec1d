package domain

import "context"

// PageExtractor renders a source page and reads it into a roster or a hero detail.
// An empty Extraction is a valid answer; failures come back as errors.
type PageExtractor interface {
	Fetch(ctx context.Context, target FetchTarget) (*Extraction, error)
}
