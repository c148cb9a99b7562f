package interactions

import "context"

// KeyValue port (persistence collaborator). Get returns found=false when the
// key has never been set or was removed.
type KeyValue interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// ClassifyRequest is what the classification service receives.
type ClassifyRequest struct {
	Text    string
	Channel Channel
}

// Classifier port (external classification service). Implementations return
// a validated Analysis, or an error that matches ErrServiceFailure,
// ErrSchemaViolation or ai.ErrEmptyResponse.
type Classifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (*Analysis, error)
}

// ArtifactStore port (export target). Put must not leave a partial artifact
// under name when it fails.
type ArtifactStore interface {
	Put(ctx context.Context, name, contentType string, data []byte) (location string, err error)
}
