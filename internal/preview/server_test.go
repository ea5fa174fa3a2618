package preview

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/foxzi/leadflow/internal/backend"
	"github.com/foxzi/leadflow/internal/campaign"
	"github.com/foxzi/leadflow/internal/config"
	"github.com/foxzi/leadflow/internal/draftstore"
	"github.com/foxzi/leadflow/internal/placeholder"
)

type stubBackend struct {
	failCampaign bool
	calls        int
	steps        int
	started      chan struct{}
	release      chan struct{}
	onCampaign   func()
}

func (b *stubBackend) CreateCampaign(ctx context.Context, req *backend.CampaignCreateRequest) (*backend.Campaign, error) {
	b.calls++
	if b.started != nil {
		close(b.started)
		<-b.release
	}
	if b.onCampaign != nil {
		b.onCampaign()
	}
	if b.failCampaign {
		return nil, &backend.APIError{Status: 422, Message: "Name is taken"}
	}
	return &backend.Campaign{ID: 12, Name: req.Name}, nil
}

func (b *stubBackend) CreateStep(ctx context.Context, id int64, req *backend.StepCreateRequest) (*backend.Step, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.steps++
	return &backend.Step{ID: int64(req.StepOrder), CampaignID: id, StepOrder: req.StepOrder}, nil
}

func (b *stubBackend) BulkLeads(ctx context.Context, id int64, req *backend.BulkLeadsRequest) (*backend.BulkLeadsResponse, error) {
	return &backend.BulkLeadsResponse{Added: len(req.LeadIDs)}, nil
}

func setupTestServer(t *testing.T, be campaign.Backend) (*Server, *draftstore.Store) {
	t.Helper()

	store, err := draftstore.Open(filepath.Join(t.TempDir(), "drafts.db"))
	if err != nil {
		t.Fatalf("draftstore.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.PreviewConfig{ListenAddr: "127.0.0.1:0"}
	s, err := NewServer(cfg, store, campaign.NewSubmitter(be, logger), logger)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return s, store
}

func readyDraft() campaign.Draft {
	b := campaign.NewBuilder()
	b.SetInfo(campaign.Info{Name: "Spring launch"})
	steps := b.Steps()
	b.UpdateStep(steps[0].ID, func(s *campaign.StepDraft) {
		s.Subject = "Hello"
		s.Body = "Hi " + placeholder.Token("lead", "first_name") + ", **welcome**."
	})
	st, _ := b.AddStep()
	b.UpdateStep(st.ID, func(s *campaign.StepDraft) {
		s.Subject = "Follow up"
		s.Body = "Just checking in."
	})
	b.AddLeads(campaign.LeadRef{ID: 1, Name: "Ada Lovelace", Email: "ada@example.com"})
	b.Next()
	b.Next()
	return b.Snapshot()
}

func TestHealth(t *testing.T) {
	s, _ := setupTestServer(t, &stubBackend{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp HealthResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Status != "ok" {
		t.Errorf("Status = %q, want ok", resp.Status)
	}
}

func TestListDrafts(t *testing.T) {
	s, store := setupTestServer(t, &stubBackend{})
	store.Create(context.Background(), readyDraft())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/drafts", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var list []DraftSummary
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Spring launch" || list[0].Steps != 2 || list[0].Leads != 1 {
		t.Errorf("list = %+v", list)
	}
}

func TestIndexPage(t *testing.T) {
	s, store := setupTestServer(t, &stubBackend{})
	store.Create(context.Background(), readyDraft())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Spring launch") {
		t.Errorf("index page missing draft name")
	}
}

func TestDraftPage(t *testing.T) {
	s, store := setupTestServer(t, &stubBackend{})
	draft, _ := store.Create(context.Background(), readyDraft())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/drafts/"+draft.ID[:8], nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{
		`<span class="placeholder-chip" data-placeholder="lead.first_name">{{lead.first_name}}</span>`,
		"<strong>welcome</strong>",
		"Wait 1 day (24h)",
		"Ada Lovelace",
		"Create campaign",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("draft page missing %q", want)
		}
	}
	if strings.Count(body, "Wait ") != 1 {
		t.Errorf("only the second step should show a delay")
	}
}

func TestDraftPageNotFound(t *testing.T) {
	s, _ := setupTestServer(t, &stubBackend{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/drafts/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRender(t *testing.T) {
	s, _ := setupTestServer(t, &stubBackend{})

	body, _ := json.Marshal(RenderRequest{Markdown: "Dear " + placeholder.Token("lead", "last_name")})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/render", bytes.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp RenderResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if !strings.Contains(resp.HTML, "placeholder-chip") {
		t.Errorf("HTML = %q, want chip", resp.HTML)
	}
	if len(resp.Placeholders) != 1 || resp.Placeholders[0] != "lead.last_name" {
		t.Errorf("Placeholders = %v", resp.Placeholders)
	}
}

func TestRenderInvalidJSON(t *testing.T) {
	s, _ := setupTestServer(t, &stubBackend{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/render", strings.NewReader("{")))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSubmitDeletesDraft(t *testing.T) {
	s, store := setupTestServer(t, &stubBackend{})
	ctx := context.Background()
	draft, _ := store.Create(ctx, readyDraft())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/drafts/"+draft.ID+"/submit", nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var resp SubmitResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.CampaignID != 12 || resp.StepsCreated != 2 || resp.LeadsAttached != 1 {
		t.Errorf("resp = %+v", resp)
	}
	if _, err := store.Get(ctx, draft.ID); !errors.Is(err, draftstore.ErrNotFound) {
		t.Errorf("draft still stored after submit: %v", err)
	}
}

func TestSubmitFailureKeepsDraft(t *testing.T) {
	s, store := setupTestServer(t, &stubBackend{failCampaign: true})
	ctx := context.Background()
	draft, _ := store.Create(ctx, readyDraft())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/drafts/"+draft.ID+"/submit", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var resp ErrorResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Error != "Name is taken" || resp.Stage != "campaign" {
		t.Errorf("resp = %+v", resp)
	}
	if _, err := store.Get(ctx, draft.ID); err != nil {
		t.Errorf("draft should be kept after failure: %v", err)
	}
}

func TestSubmitIncompleteDraft(t *testing.T) {
	be := &stubBackend{}
	s, store := setupTestServer(t, be)
	draft, _ := store.Create(context.Background(), campaign.NewBuilder().Snapshot())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/drafts/"+draft.ID+"/submit", nil))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
	if be.calls != 0 {
		t.Errorf("backend calls = %d, want 0", be.calls)
	}
}

func TestSubmitWrongStage(t *testing.T) {
	be := &stubBackend{}
	s, store := setupTestServer(t, be)

	d := readyDraft()
	d.Stage = campaign.StageSteps
	draft, _ := store.Create(context.Background(), d)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/drafts/"+draft.ID+"/submit", nil))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
	if be.calls != 0 {
		t.Errorf("backend calls = %d, want 0", be.calls)
	}
	if _, err := store.Get(context.Background(), draft.ID); err != nil {
		t.Errorf("draft should be kept: %v", err)
	}
}

func TestSubmitSurvivesClientDisconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	be := &stubBackend{onCampaign: cancel}
	s, store := setupTestServer(t, be)
	draft, _ := store.Create(context.Background(), readyDraft())

	req := httptest.NewRequest(http.MethodPost, "/drafts/"+draft.ID+"/submit", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
	}
	if be.steps != 2 {
		t.Errorf("steps created = %d, want 2", be.steps)
	}
	if _, err := store.Get(context.Background(), draft.ID); !errors.Is(err, draftstore.ErrNotFound) {
		t.Errorf("Get() after submit error = %v, want ErrNotFound", err)
	}
}

// staleDrafts keeps answering Find with a record loaded before a submission
// removed it.
type staleDrafts struct {
	*draftstore.Store
	stale *draftstore.Record
}

func (d staleDrafts) Find(ctx context.Context, prefix string) (*draftstore.Record, error) {
	return d.stale, nil
}

func TestSubmitStaleRecordNotResubmitted(t *testing.T) {
	store, err := draftstore.Open(filepath.Join(t.TempDir(), "drafts.db"))
	if err != nil {
		t.Fatalf("draftstore.Open() error = %v", err)
	}
	defer store.Close()

	draft, _ := store.Create(context.Background(), readyDraft())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	be := &stubBackend{}
	s, err := NewServer(&config.PreviewConfig{}, staleDrafts{Store: store, stale: draft},
		campaign.NewSubmitter(be, logger), logger)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	path := "/drafts/" + draft.ID + "/submit"
	first := httptest.NewRecorder()
	s.Handler().ServeHTTP(first, httptest.NewRequest(http.MethodPost, path, nil))
	if first.Code != http.StatusCreated {
		t.Fatalf("first status = %d, want 201", first.Code)
	}

	second := httptest.NewRecorder()
	s.Handler().ServeHTTP(second, httptest.NewRequest(http.MethodPost, path, nil))
	if second.Code != http.StatusNotFound {
		t.Errorf("second status = %d, want 404", second.Code)
	}
	if be.calls != 1 {
		t.Errorf("campaigns created = %d, want 1", be.calls)
	}
}

func TestSubmitConflict(t *testing.T) {
	be := &stubBackend{started: make(chan struct{}), release: make(chan struct{})}
	s, store := setupTestServer(t, be)
	draft, _ := store.Create(context.Background(), readyDraft())
	path := "/drafts/" + draft.ID + "/submit"

	first := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		s.Handler().ServeHTTP(first, httptest.NewRequest(http.MethodPost, path, nil))
		close(done)
	}()

	<-be.started
	second := httptest.NewRecorder()
	s.Handler().ServeHTTP(second, httptest.NewRequest(http.MethodPost, path, nil))
	if second.Code != http.StatusConflict {
		t.Errorf("second status = %d, want 409", second.Code)
	}

	close(be.release)
	<-done
	if first.Code != http.StatusCreated {
		t.Errorf("first status = %d, want 201", first.Code)
	}
}

func TestAllowedIPs(t *testing.T) {
	store, err := draftstore.Open(filepath.Join(t.TempDir(), "drafts.db"))
	if err != nil {
		t.Fatalf("draftstore.Open() error = %v", err)
	}
	defer store.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.PreviewConfig{ListenAddr: "127.0.0.1:0", AllowedIPs: []string{"127.0.0.1"}}
	s, err := NewServer(cfg, store, campaign.NewSubmitter(&stubBackend{}, logger), logger)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	tests := []struct {
		name       string
		path       string
		remoteAddr string
		wantStatus int
	}{
		{name: "local drafts", path: "/drafts", remoteAddr: "127.0.0.1:40000", wantStatus: http.StatusOK},
		{name: "remote drafts", path: "/drafts", remoteAddr: "192.0.2.1:40000", wantStatus: http.StatusForbidden},
		{name: "remote health", path: "/health", remoteAddr: "192.0.2.1:40000", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.RemoteAddr = tt.remoteAddr
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
