package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	appinteractions "github.com/bryanwahyu/interaction-log/internal/application/interactions"
	domain "github.com/bryanwahyu/interaction-log/internal/domain/interactions"
	"github.com/bryanwahyu/interaction-log/internal/infra/report"
)

// printStructured handles the json and yaml output formats. It reports false
// for human output.
func printStructured(w io.Writer, v any) (bool, error) {
	switch outputFormat {
	case "json":
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return true, err
		}
		fmt.Fprintln(w, string(out))
		return true, nil
	case "yaml":
		// go through JSON so keys match the API field names
		raw, err := json.Marshal(v)
		if err != nil {
			return true, err
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return true, err
		}
		out, err := yaml.Marshal(doc)
		if err != nil {
			return true, err
		}
		fmt.Fprint(w, string(out))
		return true, nil
	}
	return false, nil
}

func urgencyColor(u domain.Urgency) *color.Color {
	switch u {
	case domain.UrgencyCritical:
		return color.New(color.FgRed, color.Bold)
	case domain.UrgencyHigh:
		return color.New(color.FgRed)
	case domain.UrgencyMedium:
		return color.New(color.FgYellow)
	}
	return color.New(color.FgGreen)
}

func printRecord(w io.Writer, r domain.Record) error {
	if done, err := printStructured(w, r); done {
		return err
	}
	cyan := color.New(color.FgCyan, color.Bold)
	bold := color.New(color.Bold)
	a := r.Analysis
	row := report.Flatten(r, nil)
	value := func(col string) string {
		for _, f := range row {
			if f.Column == col {
				return fmt.Sprint(f.Value)
			}
		}
		return report.NotAvailable
	}

	fmt.Fprintln(w)
	cyan.Fprintf(w, "Interaction %s\n", r.ID)
	fmt.Fprintf(w, "  Date:     %s\n", value("Date"))
	fmt.Fprintf(w, "  Channel:  %s\n", value("Channel"))
	fmt.Fprintf(w, "  Location: %s\n", value("Location"))
	fmt.Fprintf(w, "  Text:     %s\n\n", r.InputText)

	bold.Fprintln(w, "Triage")
	fmt.Fprintf(w, "  %s / %s, urgency ", value("Type"), value("Theme"))
	urgencyColor(a.Triage.Urgency).Fprintln(w, a.Triage.Urgency)
	fmt.Fprintf(w, "  SLA %s, area %s, sentiment %s\n\n", value("Recommended_SLA"), value("Responsible_Area"), a.Triage.Sentiment)

	bold.Fprintln(w, "Risk")
	riskLine := fmt.Sprintf("  score %.0f%%", a.Analyst.RiskScore*100)
	if a.Analyst.RiskScore > domain.HighRiskThreshold {
		color.New(color.FgRed).Fprintln(w, riskLine+" (high)")
	} else {
		fmt.Fprintln(w, riskLine)
	}
	if a.Analyst.SilentRiskDetected {
		color.New(color.FgMagenta, color.Bold).Fprintln(w, "  silent risk detected")
	}
	fmt.Fprintf(w, "  %s\n\n", value("Prediction"))

	bold.Fprintln(w, "Strategy")
	fmt.Fprintf(w, "  priority %d, escalation %s", a.Strategist.PriorityLevel, value("Escalation"))
	if a.Strategist.EscalationRequired {
		fmt.Fprintf(w, " to %s", a.EscalationTargetOr(report.NotAvailable))
	}
	fmt.Fprintln(w)
	for _, act := range a.Strategist.SuggestedActions {
		fmt.Fprintf(w, "  - %s\n", act)
	}
	fmt.Fprintln(w)

	bold.Fprintln(w, "Suggested reply")
	fmt.Fprintf(w, "  %s\n", a.Communicator.ReplyText)
	if a.Communicator.NeedsHumanReview {
		color.New(color.FgYellow).Fprintln(w, "  needs human review")
	}
	return nil
}

func printList(w io.Writer, records []domain.Record) error {
	if done, err := printStructured(w, records); done {
		return err
	}
	if len(records) == 0 {
		printWarning("No interactions")
		return nil
	}
	for _, r := range records {
		cells := report.SummaryCells(r, nil)
		fmt.Fprintf(w, "%-36s  %s  %-28s  ", r.ID, cells[1], report.Truncate(cells[2], 25))
		urgencyColor(r.Analysis.Triage.Urgency).Fprintf(w, "%-8s", cells[3])
		fmt.Fprintf(w, "  %-13s  %s\n", cells[4], cells[5])
	}
	return nil
}

func printStats(w io.Writer, p domain.Period, s domain.Stats) error {
	if done, err := printStructured(w, s); done {
		return err
	}
	cyan := color.New(color.FgCyan, color.Bold)
	scope := "all time"
	if p != "" {
		scope = strings.ToLower(string(p))
	}
	fmt.Fprintln(w)
	cyan.Fprintf(w, "Interaction statistics (%s)\n", scope)
	fmt.Fprintf(w, "  Total:            %d\n", s.Total)
	color.New(color.FgRed).Fprintf(w, "  High risk:        %d\n", s.HighRisk)
	fmt.Fprintf(w, "  Escalations:      %d\n", s.Escalations)
	fmt.Fprintf(w, "  Silent risks:     %d\n", s.SilentRisks)
	fmt.Fprintf(w, "  Needs review:     %d\n", s.NeedsReview)
	fmt.Fprintf(w, "  Mean confidence:  %.2f\n", s.MeanConfidence)

	if len(s.ByUrgency) > 0 {
		fmt.Fprintln(w, "  By urgency:")
		keys := make([]domain.Urgency, 0, len(s.ByUrgency))
		for u := range s.ByUrgency {
			keys = append(keys, u)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].Rank() > keys[j].Rank() })
		for _, u := range keys {
			urgencyColor(u).Fprintf(w, "    %-8s %d\n", u, s.ByUrgency[u])
		}
	}
	if len(s.RiskByTheme) > 0 {
		fmt.Fprintln(w, "  Recent risk by theme:")
		for _, t := range s.RiskByTheme {
			bar := strings.Repeat("#", int(t.RiskScore*20+0.5))
			line := fmt.Sprintf("    %-24s %-20s %.2f\n", report.Truncate(t.Theme, 21), bar, t.RiskScore)
			if t.HighRisk {
				color.New(color.FgRed).Fprint(w, line)
			} else {
				fmt.Fprint(w, line)
			}
		}
	}
	return nil
}

func printExport(w io.Writer, e appinteractions.Export) error {
	if done, err := printStructured(w, e); done {
		return err
	}
	printSuccess(fmt.Sprintf("Exported %d record(s) to %s (%d bytes)", e.Records, e.Location, e.Bytes))
	return nil
}

func printSuccess(msg string) {
	color.New(color.FgGreen).Printf("✓ %s\n", msg)
}

func printWarning(msg string) {
	color.New(color.FgYellow).Printf("! %s\n", msg)
}

func printError(msg string) {
	color.New(color.FgRed).Printf("✗ %s\n", msg)
}
