// Package interactions implements the operator use cases on top of the
// interaction log: submit, browse, aggregate, clear and export.
package interactions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/interaction-log/internal/application"
	"github.com/bryanwahyu/interaction-log/internal/application/history"
	domain "github.com/bryanwahyu/interaction-log/internal/domain/interactions"
	"github.com/bryanwahyu/interaction-log/internal/infra/report"
)

// DefaultClassifyTimeout bounds one classification call. The call is never
// cancelled by the caller, only by this deadline.
const DefaultClassifyTimeout = 90 * time.Second

// Service is safe for concurrent use. At most one submission is in flight.
type Service struct {
	store      *history.Store
	classifier domain.Classifier
	renderer   *report.Renderer
	target     domain.ArtifactStore
	clock      application.Clock
	timeout    time.Duration
	log        *slog.Logger

	busy atomic.Bool

	mu      sync.Mutex
	pending map[string]*Pending
}

type Option func(*Service)

func WithClock(c application.Clock) Option { return func(s *Service) { s.clock = c } }

func WithRenderer(r *report.Renderer) Option { return func(s *Service) { s.renderer = r } }

func WithTarget(t domain.ArtifactStore) Option { return func(s *Service) { s.target = t } }

func WithClassifyTimeout(d time.Duration) Option { return func(s *Service) { s.timeout = d } }

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = l } }

func NewService(store *history.Store, classifier domain.Classifier, opts ...Option) *Service {
	s := &Service{
		store:      store,
		classifier: classifier,
		renderer:   report.NewRenderer(time.UTC),
		clock:      application.SystemClock{},
		timeout:    DefaultClassifyTimeout,
		log:        slog.Default(),
		pending:    make(map[string]*Pending),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitCommand is one operator report waiting for classification.
type SubmitCommand struct {
	Text    string
	Channel string
}

type outcome struct {
	analysis *domain.Analysis
	err      error
	at       time.Time
}

// Busy reports whether a classification is outstanding.
func (s *Service) Busy() bool { return s.busy.Load() }

// Submit classifies the text and appends the resulting record. A second
// submission while one is outstanding fails with ErrBusy.
//
// If ctx ends before the classification returns, Submit returns an
// *AbandonedError. The late result is parked under the ticket and reaches
// the log only through ConfirmPending.
func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (domain.Record, error) {
	if strings.TrimSpace(cmd.Text) == "" {
		return domain.Record{}, fmt.Errorf("%w: text is required", domain.ErrInvalidInput)
	}
	channel := domain.ChannelOther
	if strings.TrimSpace(cmd.Channel) != "" {
		c, ok := domain.ParseChannel(cmd.Channel)
		if !ok {
			return domain.Record{}, fmt.Errorf("%w: unknown channel %q", domain.ErrInvalidInput, cmd.Channel)
		}
		channel = c
	}
	if !s.busy.CompareAndSwap(false, true) {
		return domain.Record{}, domain.ErrBusy
	}

	ticket := uuid.NewString()
	submittedAt := s.clock.Now()
	done := make(chan outcome, 1)

	callCtx := context.WithoutCancel(ctx)
	cancel := context.CancelFunc(func() {})
	if s.timeout > 0 {
		callCtx, cancel = context.WithTimeout(callCtx, s.timeout)
	}
	go func() {
		a, err := s.classifier.Classify(callCtx, domain.ClassifyRequest{Text: cmd.Text, Channel: channel})
		cancel()
		at := s.clock.Now()
		// released before the send so a caller that got its result can submit again
		s.busy.Store(false)
		done <- outcome{analysis: a, err: err, at: at}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			s.log.Error("classification failed", "channel", channel, "err", out.err)
			return domain.Record{}, out.err
		}
		rec := newRecord(cmd.Text, out)
		// the result is in hand, a caller leaving now must not drop it
		if err := s.store.Append(context.WithoutCancel(ctx), rec); err != nil {
			s.log.Error("append failed", "id", rec.ID, "err", err)
			return domain.Record{}, err
		}
		s.log.Info("interaction recorded", "id", rec.ID, "urgency", rec.Analysis.Triage.Urgency, "escalation", rec.Analysis.Strategist.EscalationRequired)
		return rec, nil
	case <-ctx.Done():
		p := &Pending{
			Ticket:      ticket,
			InputText:   cmd.Text,
			Channel:     channel,
			SubmittedAt: submittedAt,
			State:       PendingWaiting,
		}
		s.mu.Lock()
		s.pending[ticket] = p
		s.mu.Unlock()
		go s.park(ticket, done)
		s.log.Warn("submission abandoned, result will be held for confirmation", "ticket", ticket, "err", ctx.Err())
		return domain.Record{}, &domain.AbandonedError{Ticket: ticket}
	}
}

func newRecord(text string, out outcome) domain.Record {
	return domain.Record{
		ID:        domain.RecordID(uuid.NewString()),
		Timestamp: out.at,
		InputText: text,
		Analysis:  *out.analysis,
	}
}

// park waits for an abandoned classification and holds its result.
func (s *Service) park(ticket string, done <-chan outcome) {
	out := <-done

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[ticket]
	if !ok {
		s.log.Info("late result dropped, ticket already discarded", "ticket", ticket)
		return
	}
	if out.err != nil {
		p.State = PendingFailed
		p.Error = out.err.Error()
		p.err = out.err
		s.log.Error("late classification failed", "ticket", ticket, "err", out.err)
		return
	}
	rec := newRecord(p.InputText, out)
	p.State = PendingReady
	p.Record = &rec
	s.log.Info("late classification arrived, awaiting confirmation", "ticket", ticket, "id", rec.ID)
}

// List returns the log newest-first. An empty period means the whole log.
func (s *Service) List(p domain.Period) []domain.Record {
	records := s.store.Snapshot()
	if p != "" {
		records = domain.FilterByPeriod(records, p, s.clock.Now())
	}
	domain.SortNewestFirst(records)
	return records
}

func (s *Service) Get(id domain.RecordID) (domain.Record, error) {
	return s.store.Get(id)
}

// Stats aggregates over the records of period, or the whole log.
func (s *Service) Stats(p domain.Period) domain.Stats {
	return domain.Aggregate(s.List(p))
}

// Clear wipes the log. It refuses to run without explicit confirmation.
func (s *Service) Clear(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return domain.ErrConfirmationRequired
	}
	n := s.store.Len()
	if err := s.store.Clear(ctx); err != nil {
		s.log.Error("clear failed", "err", err)
		return err
	}
	s.log.Warn("interaction log cleared", "records", n)
	return nil
}

// errStillRunning is returned when confirming a ticket whose result has not arrived.
var errStillRunning = fmt.Errorf("%w: classification still running", domain.ErrBusy)

// ConfirmPending appends the parked result of ticket. A failed ticket is
// dropped and its classification error returned.
func (s *Service) ConfirmPending(ctx context.Context, ticket string) (domain.Record, error) {
	s.mu.Lock()
	p, ok := s.pending[ticket]
	if !ok {
		s.mu.Unlock()
		return domain.Record{}, fmt.Errorf("%w: pending ticket %s", domain.ErrNotFound, ticket)
	}
	switch p.State {
	case PendingWaiting:
		s.mu.Unlock()
		return domain.Record{}, errStillRunning
	case PendingFailed:
		delete(s.pending, ticket)
		s.mu.Unlock()
		return domain.Record{}, p.err
	}
	rec := p.Record.Clone()
	s.mu.Unlock()

	if err := s.store.Append(ctx, rec); err != nil {
		s.log.Error("append of confirmed result failed", "ticket", ticket, "id", rec.ID, "err", err)
		return domain.Record{}, err
	}

	s.mu.Lock()
	delete(s.pending, ticket)
	s.mu.Unlock()
	s.log.Info("pending result confirmed", "ticket", ticket, "id", rec.ID)
	return rec, nil
}

// DiscardPending forgets ticket. A result still running is dropped on arrival.
func (s *Service) DiscardPending(ticket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[ticket]; !ok {
		return fmt.Errorf("%w: pending ticket %s", domain.ErrNotFound, ticket)
	}
	delete(s.pending, ticket)
	s.log.Info("pending result discarded", "ticket", ticket)
	return nil
}

// ListPending returns copies of the parked submissions, oldest first.
func (s *Service) ListPending() []Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Pending, 0, len(s.pending))
	for _, p := range s.pending {
		cp := *p
		if p.Record != nil {
			rec := p.Record.Clone()
			cp.Record = &rec
		}
		out = append(out, cp)
	}
	sortPending(out)
	return out
}

// IsRetryable reports whether a submission error may be retried with the
// same text.
func IsRetryable(err error) bool {
	return errors.Is(err, domain.ErrServiceFailure) || errors.Is(err, domain.ErrBusy)
}
