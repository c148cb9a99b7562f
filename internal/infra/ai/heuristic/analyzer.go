// Package heuristic is an offline stand-in for the classification service.
// It inspects the submitted text with keyword rules and returns a JSON string
// matching the same schema the remote model is asked for.
package heuristic

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"unicode"
)

type Client struct{}

func NewClient() *Client { return &Client{} }

func (c *Client) Analyze(ctx context.Context, text, channel string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return AnalyzeInteraction(text, channel), nil
}

type rule struct {
	re     *regexp.Regexp
	theme  string
	area   string
	risk   float64
	silent bool
	action string
}

// Silent-risk topics: harmless-looking reports about dams, chronic health or
// recurring collective complaints.
var rules = []rule{
	{regexp.MustCompile(`(?i)\b(dam|dams|barragem|barragens|tailings|rejeito)\b`), "Dam safety", "Geotechnical", 0.85, true, "Dispatch a geotechnical inspection team"},
	{regexp.MustCompile(`(?i)\b(cough|asthma|rash|headache|chronic|tosse|doen[cç]a|sa[uú]de)\b`), "Community health", "Health & Safety", 0.75, true, "Open a health surveillance case with the local clinic"},
	{regexp.MustCompile(`(?i)\b(again|every week|still|always|de novo|sempre|recorrente)\b`), "Recurring complaint", "Community Relations", 0.55, true, "Review previous cases for the same location"},
	{regexp.MustCompile(`(?i)\b(dust|poeira|smoke|fuma[cç]a|air)\b`), "Air quality", "Environment", 0.5, false, "Check air monitoring stations near the site"},
	{regexp.MustCompile(`(?i)\b(water|[aá]gua|river|rio|well|po[cç]o)\b`), "Water", "Environment", 0.6, false, "Collect water samples for analysis"},
	{regexp.MustCompile(`(?i)\b(noise|barulho|blast|explos[aã]o|vibration)\b`), "Noise and vibration", "Operations", 0.45, false, "Review blasting and traffic schedules"},
	{regexp.MustCompile(`(?i)\b(truck|caminh[aã]o|road|estrada|traffic)\b`), "Traffic", "Logistics", 0.4, false, "Audit haul-road speed controls"},
	{regexp.MustCompile(`(?i)\b(job|emprego|hiring|contrata[cç][aã]o)\b`), "Employment", "Human Resources", 0.2, false, "Share local hiring programme information"},
}

var (
	rxExtreme  = regexp.MustCompile(`(?i)\b(urgent|emergency|danger|dying|urgente|emerg[eê]ncia|perigo|absurd[oa]|revolta)\b`)
	rxNegative = regexp.MustCompile(`(?i)\b(problem|complain|bad|angry|worried|problema|reclama|ruim|preocupad[oa])\b`)
	rxPositive = regexp.MustCompile(`(?i)\b(thank|thanks|great|good|obrigad[oa]|parab[eé]ns|[oó]timo)\b`)
	rxQuestion = regexp.MustCompile(`\?\s*$`)
	rxEntity   = regexp.MustCompile(`\b\p{Lu}[\p{L}]+(?:\s+\p{Lu}[\p{L}]+)*\b`)
)

// AnalyzeInteraction inspects the text and returns a JSON string matching the
// analysis schema. It never fails; the worst case is a neutral low-risk result.
func AnalyzeInteraction(text, channel string) string {
	normalized := strings.Join(strings.Fields(text), " ")

	type observer struct {
		NormalizedText   string   `json:"normalized_text"`
		Geolocation      any      `json:"geolocation"`
		DetectedEntities []string `json:"detected_entities"`
		Channel          string   `json:"channel"`
	}
	type triage struct {
		Type              string  `json:"type"`
		Theme             string  `json:"theme"`
		Sentiment         string  `json:"sentiment"`
		Urgency           string  `json:"urgency"`
		ConfidenceScore   float64 `json:"confidence_score"`
		ResponsibleArea   string  `json:"responsible_area"`
		SLARecommendation string  `json:"sla_recommendation"`
	}
	type analyst struct {
		RiskScore             float64  `json:"risk_score"`
		LatentThemes          []string `json:"latent_themes"`
		Prediction            string   `json:"prediction"`
		ConfidenceIndexImpact string   `json:"confidence_index_impact"`
		SilentRiskDetected    bool     `json:"silent_risk_detected"`
	}
	type strategist struct {
		SuggestedActions        []string `json:"suggested_actions"`
		PriorityLevel           int      `json:"priority_level"`
		EscalationRequired      bool     `json:"escalation_required"`
		EscalationTarget        *string  `json:"escalation_target"`
		ProactiveMitigationPlan string   `json:"proactive_mitigation_plan"`
	}
	type communicator struct {
		ReplyText        string `json:"reply_text"`
		ToneUsed         string `json:"tone_used"`
		NeedsHumanReview bool   `json:"needs_human_review"`
	}
	type output struct {
		Observer     observer     `json:"observer"`
		Triage       triage       `json:"triage"`
		Analyst      analyst      `json:"analyst"`
		Strategist   strategist   `json:"strategist"`
		Communicator communicator `json:"communicator"`
	}

	theme, area := "General inquiry", "Community Relations"
	risk := 0.1
	silent := false
	latent := []string{}
	actions := []string{}
	matched := 0
	for _, r := range rules {
		if r.re.FindStringIndex(normalized) == nil {
			continue
		}
		if matched == 0 {
			theme, area = r.theme, r.area
		} else {
			latent = append(latent, r.theme)
		}
		matched++
		if r.risk > risk {
			risk = r.risk
		}
		silent = silent || r.silent
		actions = append(actions, r.action)
	}
	// Two or more matched topics compound the risk.
	if matched > 1 {
		risk += 0.05 * float64(matched-1)
	}

	sentiment := "Neutral"
	switch {
	case rxExtreme.MatchString(normalized):
		sentiment = "Extreme-Negative"
		risk += 0.1
	case rxNegative.MatchString(normalized):
		sentiment = "Moderate-Negative"
	case rxPositive.MatchString(normalized):
		sentiment = "Positive"
	}
	if risk > 1 {
		risk = 1
	}

	kind := "Complaint"
	switch {
	case sentiment == "Positive":
		kind = "Compliment"
	case rxQuestion.MatchString(normalized):
		kind = "Question"
	case matched == 0:
		kind = "Information"
	}

	urgency, sla, priority := "Low", "48 hours", 1
	switch {
	case risk >= 0.8:
		urgency, sla, priority = "Critical", "2 hours", 5
	case risk > 0.6:
		urgency, sla, priority = "High", "8 hours", 4
	case risk >= 0.4:
		urgency, sla, priority = "Medium", "24 hours", 3
	case matched > 0:
		priority = 2
	}

	impact := "Stable"
	switch {
	case sentiment == "Positive":
		impact = "Positive"
	case risk > 0.6 || sentiment == "Extreme-Negative":
		impact = "Declining"
	}

	escalate := risk > 0.6 || silent && risk >= 0.5
	var target *string
	if escalate {
		t := area + " leadership"
		target = &t
	}

	if len(actions) == 0 {
		actions = append(actions, "Register the interaction and acknowledge the resident")
	}

	confidence := 0.55 + 0.1*float64(matched)
	if confidence > 0.95 {
		confidence = 0.95
	}

	out := output{
		Observer: observer{
			NormalizedText:   normalized,
			Geolocation:      nil,
			DetectedEntities: entities(normalized),
			Channel:          channel,
		},
		Triage: triage{
			Type:              kind,
			Theme:             theme,
			Sentiment:         sentiment,
			Urgency:           urgency,
			ConfidenceScore:   round2(confidence),
			ResponsibleArea:   area,
			SLARecommendation: sla,
		},
		Analyst: analyst{
			RiskScore:             round2(risk),
			LatentThemes:          latent,
			Prediction:            prediction(risk, silent),
			ConfidenceIndexImpact: impact,
			SilentRiskDetected:    silent,
		},
		Strategist: strategist{
			SuggestedActions:        actions,
			PriorityLevel:           priority,
			EscalationRequired:      escalate,
			EscalationTarget:        target,
			ProactiveMitigationPlan: "Track " + strings.ToLower(theme) + " reports by location and publish a monthly follow-up to the community.",
		},
		Communicator: communicator{
			ReplyText:        reply(theme, sla),
			ToneUsed:         "Empathetic",
			NeedsHumanReview: escalate || sentiment == "Extreme-Negative",
		},
	}

	b, err := json.Marshal(out)
	if err != nil {
		return ""
	}
	return string(b)
}

func entities(text string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, m := range rxEntity.FindAllString(text, -1) {
		// skip sentence-initial words
		if idx := strings.Index(text, m); idx == 0 || precededByStop(text, idx) {
			continue
		}
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

func precededByStop(text string, idx int) bool {
	prefix := strings.TrimRightFunc(text[:idx], unicode.IsSpace)
	return strings.HasSuffix(prefix, ".") || strings.HasSuffix(prefix, "!") || strings.HasSuffix(prefix, "?")
}

func prediction(risk float64, silent bool) string {
	switch {
	case silent && risk > 0.6:
		return "Latent issue likely to escalate into a reputational crisis without early action."
	case risk > 0.6:
		return "High chance of repeated complaints in the coming weeks."
	case silent:
		return "Low visibility today, but the pattern deserves monitoring."
	}
	return "No escalation expected."
}

func reply(theme, sla string) string {
	return "Thank you for reaching out. We have registered your report about " +
		strings.ToLower(theme) + " and the responsible team will get back to you within " + sla + "."
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
