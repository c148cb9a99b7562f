package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	appinteractions "github.com/bryanwahyu/interaction-log/internal/application/interactions"
	"github.com/bryanwahyu/interaction-log/internal/application/history"
	aidomain "github.com/bryanwahyu/interaction-log/internal/domain/ai"
	domain "github.com/bryanwahyu/interaction-log/internal/domain/interactions"
	"github.com/bryanwahyu/interaction-log/internal/middleware"
)

type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type stubClassifier struct {
	mu      sync.Mutex
	err     error
	release chan struct{}
}

func (s *stubClassifier) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *stubClassifier) Classify(_ context.Context, req domain.ClassifyRequest) (*domain.Analysis, error) {
	s.mu.Lock()
	err, release := s.err, s.release
	s.mu.Unlock()
	if release != nil {
		<-release
	}
	if err != nil {
		return nil, err
	}
	return &domain.Analysis{
		Observer:     domain.Observer{NormalizedText: req.Text, DetectedEntities: []string{}, Channel: req.Channel},
		Triage:       domain.Triage{Type: "Question", Theme: "Jobs", Sentiment: domain.SentimentNeutral, Urgency: domain.UrgencyLow, ConfidenceScore: 0.9},
		Analyst:      domain.Analyst{RiskScore: 0.1, ConfidenceIndexImpact: domain.ImpactStable},
		Strategist:   domain.Strategist{PriorityLevel: 5},
		Communicator: domain.Communicator{ReplyText: "We will share the job fair dates soon."},
	}, nil
}

func newTestServer(t *testing.T, c domain.Classifier, opts Options) (*httptest.Server, *appinteractions.Service) {
	t.Helper()
	store := history.New(&memKV{data: map[string][]byte{}})
	store.Load(context.Background())
	svc := appinteractions.NewService(store, c)
	srv := httptest.NewServer(NewRouter(svc, opts))
	t.Cleanup(srv.Close)
	return srv, svc
}

func do(t *testing.T, method, url, body string, header ...string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	return resp, []byte(buf.String())
}

func TestRouter_SubmitListGet(t *testing.T) {
	srv, _ := newTestServer(t, &stubClassifier{}, Options{})

	resp, body := do(t, http.MethodPost, srv.URL+"/v1/interactions", `{"text":"When is the job fair?","channel":"whatsapp"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit status = %d: %s", resp.StatusCode, body)
	}
	var rec domain.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		t.Fatal(err)
	}
	if rec.Analysis.Observer.Channel != domain.ChannelWhatsApp {
		t.Fatalf("channel = %q", rec.Analysis.Observer.Channel)
	}

	resp, body = do(t, http.MethodGet, srv.URL+"/v1/interactions?period=daily", "")
	var list struct {
		Total int             `json:"total"`
		Items []domain.Record `json:"items"`
	}
	if err := json.Unmarshal(body, &list); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("list: %d %v", resp.StatusCode, err)
	}
	if list.Total != 1 || list.Items[0].ID != rec.ID {
		t.Fatalf("list = %+v", list)
	}

	resp, _ = do(t, http.MethodGet, srv.URL+"/v1/interactions/"+string(rec.ID), "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	resp, _ = do(t, http.MethodGet, srv.URL+"/v1/interactions/"+uuid.NewString(), "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown id status = %d", resp.StatusCode)
	}
	resp, _ = do(t, http.MethodGet, srv.URL+"/v1/interactions/1715000000000", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("opaque id status = %d", resp.StatusCode)
	}
	resp, _ = do(t, http.MethodGet, srv.URL+"/v1/interactions/"+strings.Repeat("a", 200), "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", resp.StatusCode)
	}

	resp, body = do(t, http.MethodGet, srv.URL+"/v1/stats", "")
	var st domain.Stats
	if err := json.Unmarshal(body, &st); err != nil || resp.StatusCode != http.StatusOK || st.Total != 1 {
		t.Fatalf("stats: %d %s", resp.StatusCode, body)
	}
}

func TestRouter_SubmitKeepsTextAsSent(t *testing.T) {
	srv, svc := newTestServer(t, &stubClassifier{}, Options{})

	text := "  Rua alagada\r\nperto da escola\t  "
	payload, err := json.Marshal(map[string]string{"text": text, "channel": "Email"})
	if err != nil {
		t.Fatal(err)
	}
	resp, body := do(t, http.MethodPost, srv.URL+"/v1/interactions", string(payload))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit status = %d: %s", resp.StatusCode, body)
	}
	var rec domain.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		t.Fatal(err)
	}
	stored, err := svc.Get(rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.InputText != text || rec.InputText != text {
		t.Fatalf("input text = %q, want %q", stored.InputText, text)
	}
}

func TestRouter_ErrorStatus(t *testing.T) {
	c := &stubClassifier{}
	srv, _ := newTestServer(t, c, Options{})
	url := srv.URL + "/v1/interactions"

	tests := []struct {
		name string
		err  error
		body string
		want int
	}{
		{"blank text", nil, `{"text":"   "}`, http.StatusBadRequest},
		{"bad channel", nil, `{"text":"x","channel":"fax"}`, http.StatusBadRequest},
		{"bad json", nil, `{"text":`, http.StatusBadRequest},
		{"quota", aidomain.ErrQuotaExceeded, `{"text":"x"}`, http.StatusTooManyRequests},
		{"unavailable", aidomain.ErrServiceUnavailable, `{"text":"x"}`, http.StatusServiceUnavailable},
		{"schema", &domain.SchemaError{Field: "triage.urgency", Reason: "bad"}, `{"text":"x"}`, http.StatusBadGateway},
		{"empty response", aidomain.ErrEmptyResponse, `{"text":"x"}`, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.setErr(tt.err)
			resp, body := do(t, http.MethodPost, url, tt.body)
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d: %s", resp.StatusCode, tt.want, body)
			}
			var e errorBody
			if err := json.Unmarshal(body, &e); err != nil || e.Error == "" {
				t.Fatalf("error body = %s", body)
			}
		})
	}
}

func TestRouter_ClearNeedsConfirmation(t *testing.T) {
	srv, svc := newTestServer(t, &stubClassifier{}, Options{})
	do(t, http.MethodPost, srv.URL+"/v1/interactions", `{"text":"x"}`)

	resp, _ := do(t, http.MethodDelete, srv.URL+"/v1/interactions", "")
	if resp.StatusCode != http.StatusPreconditionRequired {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	resp, _ = do(t, http.MethodDelete, srv.URL+"/v1/interactions?confirm=true", "")
	if resp.StatusCode != http.StatusOK || len(svc.List("")) != 0 {
		t.Fatalf("confirmed clear status = %d", resp.StatusCode)
	}
}

func TestRouter_ReportDownload(t *testing.T) {
	srv, _ := newTestServer(t, &stubClassifier{}, Options{})

	resp, body := do(t, http.MethodGet, srv.URL+"/v1/reports/weekly?format=csv", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"empty"`) {
		t.Fatalf("empty report: %d %s", resp.StatusCode, body)
	}

	do(t, http.MethodPost, srv.URL+"/v1/interactions", `{"text":"x"}`)
	resp, body = do(t, http.MethodGet, srv.URL+"/v1/reports/weekly?format=csv", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "report_weekly.csv") {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	if resp.Header.Get("X-Record-Count") != "1" || !strings.HasPrefix(string(body), "ID,Date,Channel") {
		t.Fatalf("csv = %s", body)
	}

	resp, _ = do(t, http.MethodGet, srv.URL+"/v1/reports/yearly", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown period status = %d", resp.StatusCode)
	}
	// no export target configured
	resp, _ = do(t, http.MethodPost, srv.URL+"/v1/reports/weekly?format=pdf", "")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("export without target status = %d", resp.StatusCode)
	}
}

func TestRouter_WaitAbandonsAndConfirms(t *testing.T) {
	c := &stubClassifier{release: make(chan struct{})}
	srv, svc := newTestServer(t, c, Options{})

	resp, body := do(t, http.MethodPost, srv.URL+"/v1/interactions?wait=20ms", `{"text":"slow"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var accepted struct {
		Ticket string `json:"ticket"`
	}
	if err := json.Unmarshal(body, &accepted); err != nil || accepted.Ticket == "" {
		t.Fatalf("body = %s", body)
	}

	confirm := srv.URL + "/v1/pending/" + accepted.Ticket + "/confirm"
	if resp, _ := do(t, http.MethodPost, confirm, ""); resp.StatusCode != http.StatusConflict {
		t.Fatalf("confirm while running status = %d", resp.StatusCode)
	}
	if resp, _ := do(t, http.MethodPost, srv.URL+"/v1/interactions", `{"text":"another"}`); resp.StatusCode != http.StatusConflict {
		t.Fatalf("submit while busy status = %d", resp.StatusCode)
	}

	close(c.release)
	deadline := time.Now().Add(2 * time.Second)
	for {
		ps := svc.ListPending()
		if len(ps) == 1 && ps[0].State == appinteractions.PendingReady {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("late result never arrived")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if resp, body := do(t, http.MethodPost, confirm, ""); resp.StatusCode != http.StatusCreated {
		t.Fatalf("confirm status = %d: %s", resp.StatusCode, body)
	}
	if n := len(svc.List("")); n != 1 {
		t.Fatalf("log has %d records", n)
	}
}

func TestRouter_Auth(t *testing.T) {
	srv, _ := newTestServer(t, &stubClassifier{}, Options{APIKeys: map[string]string{"ops": "secret-key"}})

	if resp, _ := do(t, http.MethodGet, srv.URL+"/v1/interactions", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing key status = %d", resp.StatusCode)
	}
	if resp, _ := do(t, http.MethodGet, srv.URL+"/v1/interactions", "", "X-API-Key", "wrong"); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong key status = %d", resp.StatusCode)
	}
	if resp, _ := do(t, http.MethodGet, srv.URL+"/v1/interactions", "", "Authorization", "Bearer secret-key"); resp.StatusCode != http.StatusOK {
		t.Fatalf("bearer status = %d", resp.StatusCode)
	}
	if resp, _ := do(t, http.MethodGet, srv.URL+"/health", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("health must stay public, status = %d", resp.StatusCode)
	}
}

func TestRouter_Health(t *testing.T) {
	failing := middleware.CheckFunc(func(context.Context) error { return errors.New("disk gone") })
	srv, _ := newTestServer(t, &stubClassifier{}, Options{Checkers: map[string]middleware.HealthChecker{"storage": failing}})

	resp, body := do(t, http.MethodGet, srv.URL+"/health", "")
	if resp.StatusCode != http.StatusServiceUnavailable || !strings.Contains(string(body), "disk gone") {
		t.Fatalf("health: %d %s", resp.StatusCode, body)
	}
	if resp, _ := do(t, http.MethodGet, srv.URL+"/live", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("live status = %d", resp.StatusCode)
	}
	if resp, _ := do(t, http.MethodGet, srv.URL+"/ready", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("ready status = %d", resp.StatusCode)
	}
}
