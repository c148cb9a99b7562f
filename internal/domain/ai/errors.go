package ai

import (
	"errors"
	"fmt"

	"github.com/bryanwahyu/interaction-log/internal/domain/interactions"
)

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = fmt.Errorf("ai quota exceeded: %w", interactions.ErrServiceFailure)

// ErrServiceUnavailable covers network, timeout and provider-side failures.
var ErrServiceUnavailable = fmt.Errorf("ai service unavailable: %w", interactions.ErrServiceFailure)

// ErrEmptyResponse means the provider answered but produced no content.
var ErrEmptyResponse = errors.New("ai returned an empty response")
