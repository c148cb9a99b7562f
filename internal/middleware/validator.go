package middleware

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	domain "github.com/bryanwahyu/interaction-log/internal/domain/interactions"
	"github.com/bryanwahyu/interaction-log/internal/infra/report"
)

// Input validation and sanitization utilities

// MaxTextLength caps one submitted report, in characters.
const MaxTextLength = 5000

var (
	tenantPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
	// ids are opaque; imported logs carry millisecond timestamps and the like
	recordIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)
)

// ValidateText checks a submitted report. The checks run on a sanitized
// copy; callers keep and store the text as submitted.
func ValidateText(text string) error {
	clean := SanitizeString(text)
	if clean == "" {
		return fmt.Errorf("%w: text cannot be empty", domain.ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(clean); n > MaxTextLength {
		return fmt.Errorf("%w: text too long (%d > %d characters)", domain.ErrInvalidInput, n, MaxTextLength)
	}
	return nil
}

// ValidateChannel accepts the channel enumeration; empty means Other.
func ValidateChannel(channel string) (domain.Channel, error) {
	if strings.TrimSpace(channel) == "" {
		return domain.ChannelOther, nil
	}
	c, ok := domain.ParseChannel(channel)
	if !ok {
		return "", fmt.Errorf("%w: invalid channel %q (allowed: WhatsApp, Web Form, Email, Mobile App, Kiosk, Social Media, Other)", domain.ErrInvalidInput, channel)
	}
	return c, nil
}

// ValidatePeriod parses an optional period; empty means the whole log.
func ValidatePeriod(period string) (domain.Period, error) {
	if strings.TrimSpace(period) == "" {
		return "", nil
	}
	return domain.ParsePeriod(period)
}

// ValidateFormat parses an export format; empty means xlsx.
func ValidateFormat(format string) (report.Format, error) {
	if strings.TrimSpace(format) == "" {
		return report.FormatXLSX, nil
	}
	return report.ParseFormat(format)
}

// ValidateRecordID checks an interaction id for a sane length and charset.
func ValidateRecordID(id string) error {
	if !recordIDPattern.MatchString(id) || strings.Trim(id, ".") == "" {
		return fmt.Errorf("%w: invalid interaction id %q", domain.ErrInvalidInput, id)
	}
	return nil
}

// ValidateTicket checks a pending-submission ticket.
func ValidateTicket(ticket string) error {
	if _, err := uuid.Parse(ticket); err != nil {
		return fmt.Errorf("%w: invalid ticket %q", domain.ErrInvalidInput, ticket)
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// ValidateTenantID validates tenant ID format
func ValidateTenantID(tenant string) error {
	if !tenantPattern.MatchString(tenant) {
		return fmt.Errorf("invalid tenant ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}
	return nil
}

// ValidateLimit validates list limit; 0 means no limit.
func ValidateLimit(limit int) int {
	if limit < 0 {
		return 0
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
