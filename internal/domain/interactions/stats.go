package interactions

import (
	"gonum.org/v1/gonum/stat"
)

// HighRiskThreshold is the analyst risk score above which a record counts as high risk.
const HighRiskThreshold = 0.6

// recentThemeWindow bounds the risk-by-theme series to the latest records.
const recentThemeWindow = 10

// ThemeRisk is one point of the risk-by-theme series.
type ThemeRisk struct {
	ID        RecordID `json:"id"`
	Theme     string   `json:"theme"`
	RiskScore float64  `json:"risk_score"`
	HighRisk  bool     `json:"high_risk"`
}

// Stats value object
type Stats struct {
	Total          int             `json:"total"`
	ByUrgency      map[Urgency]int `json:"by_urgency"`
	HighRisk       int             `json:"high_risk"`
	Escalations    int             `json:"escalations"`
	SilentRisks    int             `json:"silent_risks"`
	NeedsReview    int             `json:"needs_review"`
	MeanConfidence float64         `json:"mean_confidence"`
	RiskByTheme    []ThemeRisk     `json:"risk_by_theme"`
}

// UrgencyHistogram counts records per urgency; only observed labels appear.
func UrgencyHistogram(records []Record) map[Urgency]int {
	out := make(map[Urgency]int)
	for _, r := range records {
		out[r.Analysis.Triage.Urgency]++
	}
	return out
}

func HighRiskCount(records []Record) int {
	n := 0
	for _, r := range records {
		if r.Analysis.Analyst.RiskScore > HighRiskThreshold {
			n++
		}
	}
	return n
}

func EscalationCount(records []Record) int {
	n := 0
	for _, r := range records {
		if r.Analysis.Strategist.EscalationRequired {
			n++
		}
	}
	return n
}

// MeanConfidence is the arithmetic mean of triage confidence; 0 for no records.
func MeanConfidence(records []Record) float64 {
	if len(records) == 0 {
		return 0
	}
	xs := make([]float64, len(records))
	for i, r := range records {
		xs[i] = r.Analysis.Triage.ConfidenceScore
	}
	return stat.Mean(xs, nil)
}

// Aggregate computes every indicator over records. Records are expected
// newest-first; RiskByTheme is returned oldest-to-newest for charting.
func Aggregate(records []Record) Stats {
	s := Stats{
		Total:          len(records),
		ByUrgency:      UrgencyHistogram(records),
		HighRisk:       HighRiskCount(records),
		Escalations:    EscalationCount(records),
		MeanConfidence: MeanConfidence(records),
		RiskByTheme:    []ThemeRisk{},
	}
	for _, r := range records {
		if r.Analysis.Analyst.SilentRiskDetected {
			s.SilentRisks++
		}
		if r.Analysis.Communicator.NeedsHumanReview {
			s.NeedsReview++
		}
	}
	n := len(records)
	if n > recentThemeWindow {
		n = recentThemeWindow
	}
	for i := n - 1; i >= 0; i-- {
		r := records[i]
		s.RiskByTheme = append(s.RiskByTheme, ThemeRisk{
			ID:        r.ID,
			Theme:     r.Analysis.Triage.Theme,
			RiskScore: r.Analysis.Analyst.RiskScore,
			HighRisk:  r.Analysis.Analyst.RiskScore > HighRiskThreshold,
		})
	}
	return s
}
