package interactions

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Portuguese labels are what older classifier prompts answer with.
var (
	channelAliases = map[string]Channel{
		"whatsapp":       ChannelWhatsApp,
		"web form":       ChannelWebForm,
		"formulário web": ChannelWebForm,
		"email":          ChannelEmail,
		"e-mail":         ChannelEmail,
		"mobile app":     ChannelMobileApp,
		"app móvel":      ChannelMobileApp,
		"kiosk":          ChannelKiosk,
		"totens":         ChannelKiosk,
		"social media":   ChannelSocialMedia,
		"redes sociais":  ChannelSocialMedia,
		"other":          ChannelOther,
		"outros":         ChannelOther,
	}
	sentimentAliases = map[string]Sentiment{
		"extreme-negative":  SentimentExtremeNegative,
		"negativo extremo":  SentimentExtremeNegative,
		"moderate-negative": SentimentModerateNegative,
		"negativo moderado": SentimentModerateNegative,
		"neutral":           SentimentNeutral,
		"neutro":            SentimentNeutral,
		"positive":          SentimentPositive,
		"positivo":          SentimentPositive,
	}
	urgencyAliases = map[string]Urgency{
		"low":      UrgencyLow,
		"baixa":    UrgencyLow,
		"medium":   UrgencyMedium,
		"média":    UrgencyMedium,
		"high":     UrgencyHigh,
		"alta":     UrgencyHigh,
		"critical": UrgencyCritical,
		"crítica":  UrgencyCritical,
	}
	impactAliases = map[string]ConfidenceImpact{
		"positive":  ImpactPositive,
		"positivo":  ImpactPositive,
		"stable":    ImpactStable,
		"estável":   ImpactStable,
		"declining": ImpactDeclining,
		"em queda":  ImpactDeclining,
	}
)

func key(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// ParseChannel normalizes a channel label to the canonical enumeration.
func ParseChannel(s string) (Channel, bool) {
	c, ok := channelAliases[key(s)]
	return c, ok
}

func ParseUrgency(s string) (Urgency, bool) {
	u, ok := urgencyAliases[key(s)]
	return u, ok
}

func ParseSentiment(s string) (Sentiment, bool) {
	v, ok := sentimentAliases[key(s)]
	return v, ok
}

func ParseConfidenceImpact(s string) (ConfidenceImpact, bool) {
	v, ok := impactAliases[key(s)]
	return v, ok
}

// StripCodeFences removes a surrounding markdown code block, if any.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseAnalysis decodes a raw classifier payload and validates it.
func ParseAnalysis(raw []byte) (*Analysis, error) {
	body := StripCodeFences(string(raw))
	if body == "" {
		return nil, &SchemaError{Field: "body", Reason: "empty"}
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, &SchemaError{Field: "body", Reason: fmt.Sprintf("not a JSON object: %v", err)}
	}
	for _, stage := range []string{"observer", "triage", "analyst", "strategist", "communicator"} {
		if v, ok := doc[stage]; !ok || string(v) == "null" {
			return nil, &SchemaError{Field: stage, Reason: "missing"}
		}
	}
	if err := requireFields(doc, "triage", "urgency", "sentiment", "confidence_score"); err != nil {
		return nil, err
	}
	if err := requireFields(doc, "analyst", "risk_score", "confidence_index_impact"); err != nil {
		return nil, err
	}
	if err := requireFields(doc, "strategist", "priority_level", "escalation_required"); err != nil {
		return nil, err
	}
	if err := requireFields(doc, "observer", "channel"); err != nil {
		return nil, err
	}

	var a Analysis
	if err := json.Unmarshal([]byte(body), &a); err != nil {
		return nil, &SchemaError{Field: "body", Reason: err.Error()}
	}
	if err := Validate(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

func requireFields(doc map[string]json.RawMessage, stage string, fields ...string) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(doc[stage], &m); err != nil {
		return &SchemaError{Field: stage, Reason: "not an object"}
	}
	for _, f := range fields {
		if v, ok := m[f]; !ok || string(v) == "null" {
			return &SchemaError{Field: stage + "." + f, Reason: "missing"}
		}
	}
	return nil
}

// Validate checks enumerations, numeric ranges and the escalation rule, and
// normalizes enumerated labels in place. A present escalation target while
// escalation is not required is rejected; an absent target while it is
// required is tolerated and rendered with a fallback.
func Validate(a *Analysis) error {
	ch, ok := ParseChannel(string(a.Observer.Channel))
	if !ok {
		return &SchemaError{Field: "observer.channel", Reason: fmt.Sprintf("unknown value %q", a.Observer.Channel)}
	}
	a.Observer.Channel = ch

	s, ok := ParseSentiment(string(a.Triage.Sentiment))
	if !ok {
		return &SchemaError{Field: "triage.sentiment", Reason: fmt.Sprintf("unknown value %q", a.Triage.Sentiment)}
	}
	a.Triage.Sentiment = s

	u, ok := ParseUrgency(string(a.Triage.Urgency))
	if !ok {
		return &SchemaError{Field: "triage.urgency", Reason: fmt.Sprintf("unknown value %q", a.Triage.Urgency)}
	}
	a.Triage.Urgency = u

	im, ok := ParseConfidenceImpact(string(a.Analyst.ConfidenceIndexImpact))
	if !ok {
		return &SchemaError{Field: "analyst.confidence_index_impact", Reason: fmt.Sprintf("unknown value %q", a.Analyst.ConfidenceIndexImpact)}
	}
	a.Analyst.ConfidenceIndexImpact = im

	if !unitRange(a.Triage.ConfidenceScore) {
		return &SchemaError{Field: "triage.confidence_score", Reason: "must be within [0,1]"}
	}
	if !unitRange(a.Analyst.RiskScore) {
		return &SchemaError{Field: "analyst.risk_score", Reason: "must be within [0,1]"}
	}
	if p := a.Strategist.PriorityLevel; p < 1 || p > 5 {
		return &SchemaError{Field: "strategist.priority_level", Reason: "must be within [1,5]"}
	}

	t := a.Strategist.EscalationTarget
	if t != nil && strings.TrimSpace(*t) == "" {
		a.Strategist.EscalationTarget = nil
		t = nil
	}
	if !a.Strategist.EscalationRequired && t != nil {
		return &SchemaError{Field: "strategist.escalation_target", Reason: "present while escalation is not required"}
	}

	if a.Observer.DetectedEntities == nil {
		a.Observer.DetectedEntities = []string{}
	}
	return nil
}

func unitRange(f float64) bool {
	return !math.IsNaN(f) && f >= 0 && f <= 1
}
