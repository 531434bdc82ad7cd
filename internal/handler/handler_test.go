package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gustavoab019/startia/internal/message"
	"github.com/Gustavoab019/startia/internal/model"
	"github.com/Gustavoab019/startia/internal/report"
	"github.com/Gustavoab019/startia/internal/store/memstore"
)

type recorder struct {
	mu  sync.Mutex
	got []message.Inbound
	err error
}

func (r *recorder) Process(_ context.Context, in message.Inbound) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, in)
	return r.err
}

func (r *recorder) messages() []message.Inbound {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]message.Inbound(nil), r.got...)
}

type processorFunc func(ctx context.Context, in message.Inbound) error

func (f processorFunc) Process(ctx context.Context, in message.Inbound) error { return f(ctx, in) }

func post(t *testing.T, h http.Handler, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

const textCallback = `{"type":"ReceivedCallback","phone":"351910000001","senderName":"Ana","text":{"message":"menu"}}`

func TestWebhook_ProcessesText(t *testing.T) {
	proc := &recorder{}
	h := NewRouter(RouterDeps{Webhook: NewWebhookHandler(proc, WebhookConfig{}, nil)})

	rec, out := post(t, h, "/webhook", textCallback)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", out["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	got := proc.messages()
	require.Len(t, got, 1)
	assert.Equal(t, message.Inbound{ActorID: "351910000001", Text: "menu", NameHint: "Ana"}, got[0])
}

func TestWebhook_IgnoresOwnMessages(t *testing.T) {
	proc := &recorder{}
	h := NewRouter(RouterDeps{Webhook: NewWebhookHandler(proc, WebhookConfig{}, nil)})

	rec, out := post(t, h, "/webhook", `{"phone":"351910000001","fromMe":true,"text":{"message":"hi"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ignored", out["status"])
	assert.Empty(t, proc.messages())
}

func TestWebhook_Malformed(t *testing.T) {
	h := NewRouter(RouterDeps{Webhook: NewWebhookHandler(&recorder{}, WebhookConfig{}, nil)})
	rec, _ := post(t, h, "/webhook", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_Token(t *testing.T) {
	proc := &recorder{}
	h := NewRouter(RouterDeps{Webhook: NewWebhookHandler(proc, WebhookConfig{Token: "s3cret"}, nil)})

	rec, _ := post(t, h, "/webhook", textCallback)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = post(t, h, "/webhook?token=wrong", textCallback)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, proc.messages())

	rec, _ = post(t, h, "/webhook?token=s3cret", textCallback)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, proc.messages(), 1)
}

func TestWebhook_ProcessFailureStillAcknowledged(t *testing.T) {
	proc := &recorder{err: errors.New("store down")}
	h := NewRouter(RouterDeps{Webhook: NewWebhookHandler(proc, WebhookConfig{}, nil)})

	rec, out := post(t, h, "/webhook", textCallback)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "failed", out["status"])
}

func TestWebhook_AsyncDrain(t *testing.T) {
	proc := &recorder{}
	wh := NewWebhookHandler(proc, WebhookConfig{Async: true}, nil)
	h := NewRouter(RouterDeps{Webhook: wh})

	rec, out := post(t, h, "/webhook", textCallback)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "accepted", out["status"])

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, wh.Drain(ctx))
	assert.Len(t, proc.messages(), 1)
}

func TestWebhook_AsyncKeepsArrivalOrderPerActor(t *testing.T) {
	proc := &recorder{}
	slow := processorFunc(func(ctx context.Context, in message.Inbound) error {
		runtime.Gosched()
		return proc.Process(ctx, in)
	})
	wh := NewWebhookHandler(slow, WebhookConfig{Async: true}, nil)
	h := NewRouter(RouterDeps{Webhook: wh})

	const n = 300
	phones := []string{"351910000001", "351910000002"}
	for i := range n {
		for _, p := range phones {
			body := fmt.Sprintf(`{"type":"ReceivedCallback","phone":%q,"text":{"message":"%d"}}`, p, i)
			rec, _ := post(t, h, "/webhook", body)
			require.Equal(t, http.StatusOK, rec.Code)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, wh.Drain(ctx))

	seen := map[string][]string{}
	for _, m := range proc.messages() {
		seen[m.ActorID] = append(seen[m.ActorID], m.Text)
	}
	for _, p := range phones {
		require.Len(t, seen[p], n, p)
		for i, text := range seen[p] {
			require.Equal(t, fmt.Sprint(i), text, "actor %s turn %d", p, i)
		}
	}

	wh.mu.Lock()
	assert.Empty(t, wh.queues)
	wh.mu.Unlock()
}

func TestHealthAndReady(t *testing.T) {
	ready := errors.New("mongo unreachable")
	h := NewRouter(RouterDeps{Ready: func(context.Context) error { return ready }})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	ready = nil
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func newReportRouter(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()
	gw := memstore.New()
	owner := &model.Actor{Phone: "351910000001", Name: "Ana", Role: model.RoleSupervisor, State: model.StateMenu}
	require.NoError(t, gw.Actors.Create(ctx, owner))
	site := &model.Site{Name: "Riverside", AccessCode: "RIV123", OwnerID: owner.ID, BreakStart: "12:00", BreakEnd: "13:00", BreakMinutes: 60}
	require.NoError(t, gw.Sites.Create(ctx, site))
	require.NoError(t, gw.WorkItems.CreateMany(ctx, []*model.WorkItem{
		{SiteID: site.ID, Title: "Paint", Unit: "101", Status: model.WorkItemPending, CreatedBy: owner.ID},
	}))
	in := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	out := in.Add(9 * time.Hour)
	require.NoError(t, gw.Attendance.Create(ctx, &model.AttendanceRecord{
		ActorID: owner.ID, SiteID: site.ID, Date: "2025-03-10", CheckIn: in, CheckOut: &out,
		Status: model.AttendanceClosed, WorkedHours: 8, BreakDeducted: true,
	}))
	return NewRouter(RouterDeps{Reports: NewReportHandler(report.NewService(gw, time.UTC), nil)})
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestReports(t *testing.T) {
	h := newReportRouter(t)

	rec := get(t, h, "/api/reports/work-items?site=RIV123")
	require.Equal(t, http.StatusOK, rec.Code)
	var items struct {
		Count int                  `json:"count"`
		Items []report.WorkItemRow `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Equal(t, 1, items.Count)
	assert.Equal(t, "Riverside", items.Items[0].Site)

	rec = get(t, h, "/api/reports/attendance?from=2025-03-01&to=2025-03-31")
	require.Equal(t, http.StatusOK, rec.Code)
	var att struct {
		Count  int                 `json:"count"`
		Totals []report.ActorTotal `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &att))
	assert.Equal(t, 1, att.Count)
	require.Len(t, att.Totals, 1)
	assert.Equal(t, 8.0, att.Totals[0].Hours)

	rec = get(t, h, "/api/reports/problems")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReports_Errors(t *testing.T) {
	h := newReportRouter(t)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/reports/attendance?site=NOPE").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/reports/attendance?from=yesterday").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/reports/problems?status=lost").Code)
}

func TestReports_XLSX(t *testing.T) {
	h := newReportRouter(t)
	rec := get(t, h, "/api/reports/attendance?format=xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attendance_")
	// xlsx files are zip archives
	assert.Equal(t, "PK", rec.Body.String()[:2])
}
