package interactions

import (
	"errors"
	"strings"
	"testing"
)

const validPayload = `{
  "observer": {
    "normalized_text": "Dam wall near the school is cracking",
    "geolocation": {"lat": -20.1, "lon": -44.2, "address_description": "North district"},
    "detected_entities": ["dam", "school"],
    "channel": "WhatsApp"
  },
  "triage": {
    "type": "Complaint",
    "theme": "Dam Safety",
    "sentiment": "Extreme-Negative",
    "urgency": "Critical",
    "confidence_score": 0.92,
    "responsible_area": "Civil Defense",
    "sla_recommendation": "2 hours"
  },
  "analyst": {
    "risk_score": 0.95,
    "latent_themes": ["structural safety"],
    "prediction": "Likely media attention within 24h",
    "confidence_index_impact": "Declining",
    "silent_risk_detected": false
  },
  "strategist": {
    "suggested_actions": ["Dispatch inspection team", "Notify residents"],
    "priority_level": 5,
    "escalation_required": true,
    "escalation_target": "Civil Defense Director",
    "proactive_mitigation_plan": "Publish inspection timeline"
  },
  "communicator": {
    "reply_text": "Thank you, an inspection team is on its way.",
    "tone_used": "Empathetic",
    "needs_human_review": true
  }
}`

func TestParseAnalysis_Valid(t *testing.T) {
	a, err := ParseAnalysis([]byte(validPayload))
	if err != nil {
		t.Fatalf("ParseAnalysis: %v", err)
	}
	if a.Triage.Urgency != UrgencyCritical {
		t.Errorf("urgency = %q", a.Triage.Urgency)
	}
	if a.Observer.Channel != ChannelWhatsApp {
		t.Errorf("channel = %q", a.Observer.Channel)
	}
	if got := a.EscalationTargetOr("N/A"); got != "Civil Defense Director" {
		t.Errorf("escalation target = %q", got)
	}
	if got := a.AddressDescription(); got != "North district" {
		t.Errorf("address = %q", got)
	}
	if len(a.Strategist.SuggestedActions) != 2 || a.Strategist.SuggestedActions[0] != "Dispatch inspection team" {
		t.Errorf("actions order not preserved: %v", a.Strategist.SuggestedActions)
	}
}

func TestParseAnalysis_CodeFences(t *testing.T) {
	raw := "```json\n" + validPayload + "\n```"
	if _, err := ParseAnalysis([]byte(raw)); err != nil {
		t.Fatalf("fenced payload rejected: %v", err)
	}
}

func TestParseAnalysis_PortugueseLabels(t *testing.T) {
	raw := strings.NewReplacer(
		`"urgency": "Critical"`, `"urgency": "Crítica"`,
		`"sentiment": "Extreme-Negative"`, `"sentiment": "Negativo Extremo"`,
		`"confidence_index_impact": "Declining"`, `"confidence_index_impact": "Em Queda"`,
		`"channel": "WhatsApp"`, `"channel": "Formulário Web"`,
	).Replace(validPayload)

	a, err := ParseAnalysis([]byte(raw))
	if err != nil {
		t.Fatalf("ParseAnalysis: %v", err)
	}
	if a.Triage.Urgency != UrgencyCritical || a.Triage.Sentiment != SentimentExtremeNegative ||
		a.Analyst.ConfidenceIndexImpact != ImpactDeclining || a.Observer.Channel != ChannelWebForm {
		t.Fatalf("labels not normalized: %+v %+v", a.Triage, a.Analyst)
	}
}

func TestParseAnalysis_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		old   string
		new   string
		field string
	}{
		{"unknown urgency", `"urgency": "Critical"`, `"urgency": "Apocalyptic"`, "triage.urgency"},
		{"unknown sentiment", `"sentiment": "Extreme-Negative"`, `"sentiment": "Furious"`, "triage.sentiment"},
		{"unknown channel", `"channel": "WhatsApp"`, `"channel": "Carrier Pigeon"`, "observer.channel"},
		{"confidence above 1", `"confidence_score": 0.92`, `"confidence_score": 1.2`, "triage.confidence_score"},
		{"negative risk", `"risk_score": 0.95`, `"risk_score": -0.1`, "analyst.risk_score"},
		{"priority 0", `"priority_level": 5`, `"priority_level": 0`, "strategist.priority_level"},
		{"priority 6", `"priority_level": 5`, `"priority_level": 6`, "strategist.priority_level"},
		{"fractional priority", `"priority_level": 5`, `"priority_level": 4.5`, "body"},
		{"missing urgency", `"urgency": "Critical",`, ``, "triage.urgency"},
		{"target without escalation", `"escalation_required": true`, `"escalation_required": false`, "strategist.escalation_target"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := strings.Replace(validPayload, tt.old, tt.new, 1)
			_, err := ParseAnalysis([]byte(raw))
			if !errors.Is(err, ErrSchemaViolation) {
				t.Fatalf("expected schema violation, got %v", err)
			}
			var se *SchemaError
			if !errors.As(err, &se) || se.Field != tt.field {
				t.Fatalf("field = %v, want %q", err, tt.field)
			}
		})
	}
}

func TestParseAnalysis_MissingStage(t *testing.T) {
	_, err := ParseAnalysis([]byte(`{"observer":{"channel":"Email"},"triage":{}}`))
	if !errors.Is(err, ErrSchemaViolation) {
		t.Fatalf("expected schema violation, got %v", err)
	}
}

func TestParseAnalysis_Empty(t *testing.T) {
	for _, raw := range []string{"", "   ", "```json\n```"} {
		if _, err := ParseAnalysis([]byte(raw)); !errors.Is(err, ErrSchemaViolation) {
			t.Errorf("ParseAnalysis(%q) = %v, want schema violation", raw, err)
		}
	}
}

func TestValidate_EscalationTarget(t *testing.T) {
	t.Run("absent while required is tolerated", func(t *testing.T) {
		a := validAnalysis(t)
		a.Strategist.EscalationTarget = nil
		if err := Validate(a); err != nil {
			t.Fatalf("Validate: %v", err)
		}
		if got := a.EscalationTargetOr("N/A"); got != "N/A" {
			t.Fatalf("fallback = %q", got)
		}
		if a.Strategist.EscalationTarget != nil {
			t.Fatal("fallback must not be written into the record")
		}
	})
	t.Run("blank target becomes absent", func(t *testing.T) {
		a := validAnalysis(t)
		a.Strategist.EscalationRequired = false
		blank := "  "
		a.Strategist.EscalationTarget = &blank
		if err := Validate(a); err != nil {
			t.Fatalf("Validate: %v", err)
		}
		if a.Strategist.EscalationTarget != nil {
			t.Fatal("blank target should be cleared")
		}
	})
}

func TestStripCodeFences(t *testing.T) {
	tests := map[string]string{
		"{}":                  "{}",
		"```json\n{}\n```":    "{}",
		"```\n{\"a\":1}\n```": `{"a":1}`,
		"  {} ":               "{}",
	}
	for in, want := range tests {
		if got := StripCodeFences(in); got != want {
			t.Errorf("StripCodeFences(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUrgencyRank(t *testing.T) {
	order := []Urgency{UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical}
	for i := 1; i < len(order); i++ {
		if order[i-1].Rank() >= order[i].Rank() {
			t.Fatalf("%s should rank below %s", order[i-1], order[i])
		}
	}
	if Urgency("Bogus").Rank() != -1 {
		t.Fatal("unknown urgency should rank -1")
	}
}

func validAnalysis(t *testing.T) *Analysis {
	t.Helper()
	a, err := ParseAnalysis([]byte(validPayload))
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	return a
}
