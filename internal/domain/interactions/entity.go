package interactions

import (
	"time"
)

// RecordID tipe untuk Record
type RecordID string

// Channel enum
type Channel string

const (
	ChannelWhatsApp    Channel = "WhatsApp"
	ChannelWebForm     Channel = "Web Form"
	ChannelEmail       Channel = "Email"
	ChannelMobileApp   Channel = "Mobile App"
	ChannelKiosk       Channel = "Kiosk"
	ChannelSocialMedia Channel = "Social Media"
	ChannelOther       Channel = "Other"
)

// Sentiment enum
type Sentiment string

const (
	SentimentExtremeNegative  Sentiment = "Extreme-Negative"
	SentimentModerateNegative Sentiment = "Moderate-Negative"
	SentimentNeutral          Sentiment = "Neutral"
	SentimentPositive         Sentiment = "Positive"
)

// Urgency enum, ordered Low < Medium < High < Critical.
type Urgency string

const (
	UrgencyLow      Urgency = "Low"
	UrgencyMedium   Urgency = "Medium"
	UrgencyHigh     Urgency = "High"
	UrgencyCritical Urgency = "Critical"
)

// Rank returns the position of u in the urgency order, or -1 if unknown.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyLow:
		return 0
	case UrgencyMedium:
		return 1
	case UrgencyHigh:
		return 2
	case UrgencyCritical:
		return 3
	}
	return -1
}

// ConfidenceImpact enum
type ConfidenceImpact string

const (
	ImpactPositive  ConfidenceImpact = "Positive"
	ImpactStable    ConfidenceImpact = "Stable"
	ImpactDeclining ConfidenceImpact = "Declining"
)

// Geolocation is optional on the observer stage; every field may be absent.
type Geolocation struct {
	Lat                *float64 `json:"lat,omitempty"`
	Lon                *float64 `json:"lon,omitempty"`
	AddressDescription *string  `json:"address_description,omitempty"`
}

type Observer struct {
	NormalizedText   string       `json:"normalized_text"`
	Geolocation      *Geolocation `json:"geolocation"`
	DetectedEntities []string     `json:"detected_entities"`
	Channel          Channel      `json:"channel"`
}

type Triage struct {
	Type              string    `json:"type"`
	Theme             string    `json:"theme"`
	Sentiment         Sentiment `json:"sentiment"`
	Urgency           Urgency   `json:"urgency"`
	ConfidenceScore   float64   `json:"confidence_score"`
	ResponsibleArea   string    `json:"responsible_area"`
	SLARecommendation string    `json:"sla_recommendation"`
}

type Analyst struct {
	RiskScore             float64          `json:"risk_score"`
	LatentThemes          []string         `json:"latent_themes"`
	Prediction            string           `json:"prediction"`
	ConfidenceIndexImpact ConfidenceImpact `json:"confidence_index_impact"`
	SilentRiskDetected    bool             `json:"silent_risk_detected"`
}

type Strategist struct {
	SuggestedActions        []string `json:"suggested_actions"`
	PriorityLevel           int      `json:"priority_level"`
	EscalationRequired      bool     `json:"escalation_required"`
	EscalationTarget        *string  `json:"escalation_target"`
	ProactiveMitigationPlan string   `json:"proactive_mitigation_plan"`
}

type Communicator struct {
	ReplyText        string `json:"reply_text"`
	ToneUsed         string `json:"tone_used"`
	NeedsHumanReview bool   `json:"needs_human_review"`
}

// Analysis is the five-stage structured result returned by the classifier.
// It is produced once per record and never edited afterwards.
type Analysis struct {
	Observer     Observer     `json:"observer"`
	Triage       Triage       `json:"triage"`
	Analyst      Analyst      `json:"analyst"`
	Strategist   Strategist   `json:"strategist"`
	Communicator Communicator `json:"communicator"`
}

// Aggregate Root: Record
type Record struct {
	ID        RecordID  `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	InputText string    `json:"input_text"`
	Analysis  Analysis  `json:"analysis"`
}

// Clone returns a deep copy so snapshots never share slices or pointers
// with the live log.
func (r Record) Clone() Record {
	out := r
	a := &out.Analysis
	a.Observer.DetectedEntities = cloneStrings(r.Analysis.Observer.DetectedEntities)
	if g := r.Analysis.Observer.Geolocation; g != nil {
		cp := Geolocation{
			Lat:                cloneFloat(g.Lat),
			Lon:                cloneFloat(g.Lon),
			AddressDescription: cloneString(g.AddressDescription),
		}
		a.Observer.Geolocation = &cp
	}
	a.Analyst.LatentThemes = cloneStrings(r.Analysis.Analyst.LatentThemes)
	a.Strategist.SuggestedActions = cloneStrings(r.Analysis.Strategist.SuggestedActions)
	a.Strategist.EscalationTarget = cloneString(r.Analysis.Strategist.EscalationTarget)
	return out
}

// AddressDescription returns the geolocation description, or "" when absent.
func (a Analysis) AddressDescription() string {
	g := a.Observer.Geolocation
	if g == nil || g.AddressDescription == nil {
		return ""
	}
	return *g.AddressDescription
}

// EscalationTargetOr returns the escalation target or fallback when absent.
// It never writes the fallback back into the record.
func (a Analysis) EscalationTargetOr(fallback string) string {
	t := a.Strategist.EscalationTarget
	if t == nil || *t == "" {
		return fallback
	}
	return *t
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
