package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bryanwahyu/interaction-log/internal/domain/ai"
	"github.com/bryanwahyu/interaction-log/internal/domain/interactions"
)

// Service adapts a raw ai.Client into an interactions.Classifier.
type Service struct {
	client ai.Client
	log    *slog.Logger
}

func NewService(client ai.Client, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{client: client, log: log}
}

// Classify calls the provider and validates its answer against the analysis
// schema. Transport failures are reported as retryable service failures.
func (s *Service) Classify(ctx context.Context, req interactions.ClassifyRequest) (*interactions.Analysis, error) {
	raw, err := s.client.Analyze(ctx, req.Text, string(req.Channel))
	if err != nil {
		s.log.Error("classification call failed", "channel", req.Channel, "err", err)
		if errors.Is(err, ai.ErrEmptyResponse) || errors.Is(err, interactions.ErrServiceFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", interactions.ErrServiceFailure, err)
	}
	if strings.TrimSpace(interactions.StripCodeFences(raw)) == "" {
		s.log.Warn("classification returned empty body", "channel", req.Channel)
		return nil, ai.ErrEmptyResponse
	}

	a, err := interactions.ParseAnalysis([]byte(raw))
	if err != nil {
		s.log.Error("classification response rejected", "err", err, "raw_len", len(raw))
		return nil, err
	}
	return a, nil
}
