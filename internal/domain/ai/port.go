package ai

import "context"

// Client returns the raw JSON text of a five-stage analysis for one
// submitted text. Parsing and validation happen in the application layer.
type Client interface {
	Analyze(ctx context.Context, text, channel string) (string, error)
}
