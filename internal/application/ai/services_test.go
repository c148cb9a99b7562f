package ai

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	aidomain "github.com/bryanwahyu/interaction-log/internal/domain/ai"
	"github.com/bryanwahyu/interaction-log/internal/domain/interactions"
	"github.com/bryanwahyu/interaction-log/internal/infra/ai/heuristic"
)

type stubClient struct {
	raw string
	err error
}

func (s stubClient) Analyze(context.Context, string, string) (string, error) {
	return s.raw, s.err
}

func newTestService(c aidomain.Client) *Service {
	var buf bytes.Buffer
	return NewService(c, slog.New(slog.NewTextHandler(&buf, nil)))
}

func TestClassify_Valid(t *testing.T) {
	raw := heuristic.AnalyzeInteraction("Dust from the road again", "Social Media")
	svc := newTestService(stubClient{raw: "```json\n" + raw + "\n```"})

	a, err := svc.Classify(context.Background(), interactions.ClassifyRequest{Text: "x", Channel: interactions.ChannelSocialMedia})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if a.Observer.Channel != interactions.ChannelSocialMedia {
		t.Fatalf("channel = %q", a.Observer.Channel)
	}
}

func TestClassify_Errors(t *testing.T) {
	tests := []struct {
		name   string
		client stubClient
		want   error
	}{
		{"transport failure is retryable", stubClient{err: errors.New("connection reset")}, interactions.ErrServiceFailure},
		{"quota", stubClient{err: aidomain.ErrQuotaExceeded}, aidomain.ErrQuotaExceeded},
		{"quota is a service failure", stubClient{err: aidomain.ErrQuotaExceeded}, interactions.ErrServiceFailure},
		{"empty body", stubClient{raw: "  "}, aidomain.ErrEmptyResponse},
		{"empty fenced body", stubClient{raw: "```json\n```"}, aidomain.ErrEmptyResponse},
		{"malformed body", stubClient{raw: `{"observer": 1}`}, interactions.ErrSchemaViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestService(tt.client).Classify(context.Background(), interactions.ClassifyRequest{Text: "x", Channel: interactions.ChannelOther})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestClassify_EmptyIsNotSchemaViolation(t *testing.T) {
	_, err := newTestService(stubClient{raw: ""}).Classify(context.Background(), interactions.ClassifyRequest{Text: "x"})
	if errors.Is(err, interactions.ErrSchemaViolation) || errors.Is(err, interactions.ErrServiceFailure) {
		t.Fatalf("empty response must be reported distinctly, got %v", err)
	}
}
