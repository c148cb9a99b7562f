package report

import (
	"strconv"
	"strings"
	"time"

	domain "github.com/bryanwahyu/interaction-log/internal/domain/interactions"
)

const (
	// NotAvailable replaces any absent value.
	NotAvailable = "N/A"
	Yes          = "Yes"
	No           = "No"

	dateTimeLayout = "2006-01-02 15:04:05"
	dateLayout     = "2006-01-02"
	invalidDate    = "Invalid date"
	listSeparator  = "; "
)

// Columns is the fixed tabular layout; every flattened row has exactly these
// columns in this order.
var Columns = []string{
	"ID",
	"Date",
	"Channel",
	"Original_Message",
	"Location",
	"Type",
	"Theme",
	"Urgency",
	"Sentiment",
	"Confidence_Score",
	"Recommended_SLA",
	"Responsible_Area",
	"Risk_Score",
	"Silent_Risk",
	"Prediction",
	"Confidence_Impact",
	"Latent_Themes",
	"Priority",
	"Escalation",
	"Escalation_Target",
	"Suggested_Actions",
	"Mitigation_Plan",
	"Suggested_Reply",
	"Tone",
	"Human_Review",
	"Detected_Entities",
}

// Field is one cell of a flattened row. Value is a string, float64 or int.
type Field struct {
	Column string
	Value  any
}

// Row is a flattened record in Columns order.
type Row []Field

// Strings renders every value as text.
func (r Row) Strings() []string {
	out := make([]string, len(r))
	for i, f := range r {
		out[i] = display(f.Value)
	}
	return out
}

// Values returns the raw cell values.
func (r Row) Values() []any {
	out := make([]any, len(r))
	for i, f := range r {
		out[i] = f.Value
	}
	return out
}

func display(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	}
	return NotAvailable
}

// Flatten maps a record onto the fixed column set. It is pure: the same
// record and location always give the same row.
func Flatten(r domain.Record, loc *time.Location) Row {
	a := r.Analysis
	values := []any{
		orNA(string(r.ID)),
		formatTime(r.Timestamp, loc, dateTimeLayout),
		orNA(string(a.Observer.Channel)),
		r.InputText,
		orNA(a.AddressDescription()),
		orNA(a.Triage.Type),
		orNA(a.Triage.Theme),
		orNA(string(a.Triage.Urgency)),
		orNA(string(a.Triage.Sentiment)),
		a.Triage.ConfidenceScore,
		orNA(a.Triage.SLARecommendation),
		orNA(a.Triage.ResponsibleArea),
		a.Analyst.RiskScore,
		yesNo(a.Analyst.SilentRiskDetected),
		a.Analyst.Prediction,
		orNA(string(a.Analyst.ConfidenceIndexImpact)),
		joinOrNA(a.Analyst.LatentThemes),
		a.Strategist.PriorityLevel,
		yesNo(a.Strategist.EscalationRequired),
		a.EscalationTargetOr(NotAvailable),
		joinOrNA(a.Strategist.SuggestedActions),
		orNA(a.Strategist.ProactiveMitigationPlan),
		a.Communicator.ReplyText,
		orNA(a.Communicator.ToneUsed),
		yesNo(a.Communicator.NeedsHumanReview),
		joinOrNA(a.Observer.DetectedEntities),
	}
	row := make(Row, len(Columns))
	for i, c := range Columns {
		row[i] = Field{Column: c, Value: values[i]}
	}
	return row
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotAvailable
	}
	return s
}

func joinOrNA(items []string) string {
	return orNA(strings.Join(items, listSeparator))
}

func yesNo(b bool) string {
	if b {
		return Yes
	}
	return No
}

func formatTime(t time.Time, loc *time.Location, layout string) string {
	if t.IsZero() {
		return invalidDate
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(layout)
}
