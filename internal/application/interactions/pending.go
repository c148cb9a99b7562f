package interactions

import (
	"sort"
	"time"

	domain "github.com/bryanwahyu/interaction-log/internal/domain/interactions"
)

type PendingState string

const (
	PendingWaiting PendingState = "waiting"
	PendingReady   PendingState = "ready"
	PendingFailed  PendingState = "failed"
)

// Pending is an abandoned submission. Record is set once the result arrived.
type Pending struct {
	Ticket      string         `json:"ticket"`
	InputText   string         `json:"input_text"`
	Channel     domain.Channel `json:"channel"`
	SubmittedAt time.Time      `json:"submitted_at"`
	State       PendingState   `json:"state"`
	Error       string         `json:"error,omitempty"`
	Record      *domain.Record `json:"record,omitempty"`

	err error
}

func sortPending(ps []Pending) {
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].SubmittedAt.Equal(ps[j].SubmittedAt) {
			return ps[i].Ticket < ps[j].Ticket
		}
		return ps[i].SubmittedAt.Before(ps[j].SubmittedAt)
	})
}
