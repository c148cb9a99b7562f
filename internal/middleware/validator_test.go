package middleware

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	domain "github.com/bryanwahyu/interaction-log/internal/domain/interactions"
	"github.com/bryanwahyu/interaction-log/internal/infra/report"
)

func TestValidateText(t *testing.T) {
	if err := ValidateText("  dust\x00 everywhere\x07\r\n "); err != nil {
		t.Fatalf("ValidateText: %v", err)
	}
	for _, in := range []string{"", " \n\t ", "\x00\x01", strings.Repeat("a", MaxTextLength+1)} {
		if err := ValidateText(in); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("ValidateText(%.10q) err = %v", in, err)
		}
	}
	if err := ValidateText(strings.Repeat("ã", MaxTextLength)); err != nil {
		t.Fatalf("limit counts characters: %v", err)
	}
}

func TestValidateChannel(t *testing.T) {
	tests := []struct {
		in      string
		want    domain.Channel
		wantErr bool
	}{
		{"", domain.ChannelOther, false},
		{"web form", domain.ChannelWebForm, false},
		{"Redes Sociais", domain.ChannelSocialMedia, false},
		{"telegram", "", true},
	}
	for _, tt := range tests {
		got, err := ValidateChannel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ValidateChannel(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestValidatePeriodAndFormat(t *testing.T) {
	if p, err := ValidatePeriod(""); err != nil || p != "" {
		t.Fatalf("empty period = %q, %v", p, err)
	}
	if p, err := ValidatePeriod("Weekly"); err != nil || p != domain.PeriodWeekly {
		t.Fatalf("weekly = %q, %v", p, err)
	}
	if _, err := ValidatePeriod("hourly"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("hourly err = %v", err)
	}
	if f, err := ValidateFormat(""); err != nil || f != report.FormatXLSX {
		t.Fatalf("default format = %q, %v", f, err)
	}
	if _, err := ValidateFormat("odt"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("odt err = %v", err)
	}
}

func TestValidateIDs(t *testing.T) {
	id := uuid.NewString()
	if err := ValidateRecordID(id); err != nil {
		t.Fatal(err)
	}
	if err := ValidateTicket(id); err != nil {
		t.Fatal(err)
	}
	for _, ok := range []string{"1715000000000", "import:2024-07.42", "r1"} {
		if err := ValidateRecordID(ok); err != nil {
			t.Errorf("ValidateRecordID(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"", "..", "../etc/passwd", "has space", strings.Repeat("a", 129)} {
		if err := ValidateRecordID(bad); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("ValidateRecordID(%.20q) err = %v", bad, err)
		}
	}
	if err := ValidateTicket("1715000000000"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("ticket err = %v", err)
	}
}

func TestValidateTenantAndLimit(t *testing.T) {
	if err := ValidateTenantID("ops-team_1"); err != nil {
		t.Fatal(err)
	}
	if err := ValidateTenantID("ops team"); err == nil {
		t.Fatal("space accepted")
	}
	for in, want := range map[int]int{-5: 0, 0: 0, 20: 20, 5000: 1000} {
		if got := ValidateLimit(in); got != want {
			t.Errorf("ValidateLimit(%d) = %d", in, got)
		}
	}
}
