package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cashbook/internal/config"
	"cashbook/internal/core"
	"cashbook/internal/dashboard"
	"cashbook/internal/feed"
	"cashbook/internal/identity"
	"cashbook/internal/purge"
	"cashbook/internal/services"
	"cashbook/internal/sheets/memory"
	memstore "cashbook/internal/store/memory"

	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

type fakeActivity struct {
	items []core.Activity
	ready bool
}

func (f fakeActivity) Latest() ([]core.Activity, bool) { return f.items, f.ready }

type testEnv struct {
	srv      *Server
	store    *memstore.Store
	verifier *identity.Verifier
	sheets   *memory.Exporter
	bc       *feed.Broadcaster
}

func newTestEnv(t *testing.T, activity ActivitySource) *testEnv {
	t.Helper()
	entries, err := config.ParseRoster(config.DefaultRoster)
	if err != nil {
		t.Fatal(err)
	}
	roster, err := identity.FromConfig(entries)
	if err != nil {
		t.Fatal(err)
	}

	st := memstore.New()
	clock := func() time.Time { return fixedNow }
	dash := dashboard.NewService(st, roster, dashboard.WithLocation(time.UTC), dashboard.WithClock(clock))
	records := services.NewRecordService(st, roster,
		services.WithViews(dash),
		services.WithLocation(time.UTC),
		services.WithClock(clock))
	engine := purge.NewEngine(st, roster,
		purge.WithLocation(time.UTC),
		purge.OnPurged(func(context.Context, purge.Outcome) { dash.Reload() }))
	exporter := memory.New()
	exports := services.NewExportProcessor(records, roster, exporter, services.DefaultExportProcessorConfig(), nil)
	if activity == nil {
		activity = fakeActivity{}
	}
	bc := feed.NewBroadcaster()

	srv := NewServer(":0", Deps{
		Dashboard:   dash,
		Board:       dashboard.NewBoard(dash),
		Records:     records,
		Purge:       engine,
		Exports:     exports,
		Activity:    activity,
		Broadcaster: bc,
		Roster:      roster,
		Verifier:    identity.NewVerifier("test-secret"),
		Location:    time.UTC,
		Now:         clock,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, store: st, verifier: srv.deps.Verifier, sheets: exporter, bc: bc}
}

func (e *testEnv) token(t *testing.T, email string) string {
	t.Helper()
	tok, err := e.verifier.Issue(email, "", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func (e *testEnv) do(t *testing.T, method, target, email, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if email != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(t, email))
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

const (
	admin = "admin@admin.com"
	ibrar = "ibrar@ibrar.com"
)

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := env.do(t, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s missing request id", path)
		}
	}

	env.srv.deps.Ready = func(context.Context) error { return errors.New("db down") }
	if rr := env.do(t, http.MethodGet, "/readyz", "", ""); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz with failing backend status=%d", rr.Code)
	}
}

func TestAuthentication(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodGet, "/api/dashboard/totals", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status=%d", rr.Code)
	}
	if got := decode[errorBody](t, rr).Error; got != "missing token" {
		t.Errorf("error = %q", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/totals", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rr = httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status=%d", rr.Code)
	}
}

func TestAdminRoutesRejectUsers(t *testing.T) {
	env := newTestEnv(t, nil)
	if _, err := env.store.Insert(context.Background(), "expenses", map[string]any{"amount": 5, "date": "2024-03-15"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path string
		body string
	}{
		{"/api/transfers", `{"receiver":"Ibrar","amount":"100"}`},
		{"/api/purge", `{"preset":"allTime"}`},
		{"/api/expenses/export", ""},
	}
	for _, tt := range tests {
		rr := env.do(t, http.MethodPost, tt.path, ibrar, tt.body)
		if rr.Code != http.StatusForbidden {
			t.Errorf("%s as user: status=%d, want 403", tt.path, rr.Code)
		}
	}

	docs, _ := env.store.ReadAll(context.Background(), "expenses")
	if len(docs) != 1 {
		t.Errorf("store changed by forbidden requests: %d docs", len(docs))
	}
}

func TestCreateTransferAndTotals(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodPost, "/api/transfers", admin, `{"receiver":"ibrar","amount":"1500","paymentMethod":"Cash"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create transfer status=%d body=%s", rr.Code, rr.Body.String())
	}
	created := decode[createdResponse](t, rr)
	if created.ID == "" {
		t.Error("empty id")
	}

	totals := decode[core.TotalsView](t, env.do(t, http.MethodGet, "/api/dashboard/totals", ibrar, ""))
	if !totals.Total.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("total = %s, want 1500", totals.Total)
	}
	if !totals.ByReceiver["Ibrar"].Equal(decimal.NewFromInt(1500)) {
		t.Errorf("Ibrar = %s, want 1500", totals.ByReceiver["Ibrar"])
	}
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	tests := []struct {
		name  string
		path  string
		email string
		body  string
		want  int
	}{
		{"unknown field", "/api/expenses", ibrar, `{"title":"x","amount":"1","type":"Office","bogus":1}`, http.StatusBadRequest},
		{"empty body", "/api/expenses", ibrar, "", http.StatusBadRequest},
		{"bad amount", "/api/expenses", ibrar, `{"title":"x","amount":"abc","type":"Office"}`, http.StatusUnprocessableEntity},
		{"bad type", "/api/expenses", ibrar, `{"title":"x","amount":"1","type":"Travel"}`, http.StatusUnprocessableEntity},
		{"empty title", "/api/expenses", ibrar, `{"title":" ","amount":"1","type":"Office"}`, http.StatusUnprocessableEntity},
		{"unknown receiver", "/api/transfers", admin, `{"receiver":"Zed","amount":"1"}`, http.StatusUnprocessableEntity},
		{"ok expense", "/api/expenses", ibrar, `{"title":"Lunch","amount":"250","type":"Personal","date":"2024-03-14"}`, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, tt.path, tt.email, tt.body)
			if rr.Code != tt.want {
				t.Errorf("status=%d, want %d (body %s)", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestDailyParams(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodGet, "/api/dashboard/daily?year=2024&month=2", ibrar, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if got := decode[core.DailySeries](t, rr); len(got.Days) != 29 {
		t.Errorf("February 2024 has %d days, want 29", len(got.Days))
	}

	if rr := env.do(t, http.MethodGet, "/api/dashboard/daily?month=13", ibrar, ""); rr.Code != http.StatusBadRequest {
		t.Errorf("month=13 status=%d, want 400", rr.Code)
	}

	rr = env.do(t, http.MethodGet, "/api/dashboard", ibrar, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("board status=%d", rr.Code)
	}
	if snap := decode[dashboard.Snapshot](t, rr); snap.Month != time.March || len(snap.Daily.Days) != 31 {
		t.Errorf("board snapshot = %d-%d with %d days", snap.Year, snap.Month, len(snap.Daily.Days))
	}
}

func TestHistoryPaging(t *testing.T) {
	env := newTestEnv(t, nil)
	for i := 0; i < 12; i++ {
		rr := env.do(t, http.MethodPost, "/api/expenses", ibrar, `{"title":"Tea","amount":"10","type":"Office"}`)
		if rr.Code != http.StatusCreated {
			t.Fatalf("seed %d status=%d", i, rr.Code)
		}
	}

	page := decode[services.Page[core.ExpenseRecord]](t, env.do(t, http.MethodGet, "/api/expenses/history/Ibrar?page=2", ibrar, ""))
	if page.Total != 12 || page.TotalPages != 2 || len(page.Items) != 2 || page.Page != 2 {
		t.Errorf("page = %+v", page)
	}

	rr := env.do(t, http.MethodGet, "/api/expenses/history/Ibrar?page=1000000000000000000", ibrar, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("far page status=%d", rr.Code)
	}
	if far := decode[services.Page[core.ExpenseRecord]](t, rr); len(far.Items) != 0 || far.Total != 12 {
		t.Errorf("far page = %+v", far)
	}

	empty := decode[services.Page[core.TransferRecord]](t, env.do(t, http.MethodGet, "/api/transfers/history/admin", ibrar, ""))
	if empty.Total != 0 || empty.Items == nil {
		t.Errorf("admin transfer history = %+v, want empty list", empty)
	}
}

func TestPurgeToday(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/transfers", admin, `{"receiver":"Ahmad","amount":"100"}`)
	env.do(t, http.MethodPost, "/api/expenses", ibrar, `{"title":"Fuel","amount":"40","type":"Office"}`)
	old := map[string]any{"title": "Old", "amount": 40, "type": "Office", "date": "2024-03-01", "createdAt": "2024-03-01"}
	if _, err := env.store.Insert(context.Background(), "expenses", old); err != nil {
		t.Fatal(err)
	}

	rr := env.do(t, http.MethodPost, "/api/purge", admin, `{"preset":"today"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("purge status=%d body=%s", rr.Code, rr.Body.String())
	}
	got := decode[purgeResponse](t, rr)
	if got.Message != "Removed 2 record(s)." || got.Transfers != 1 || got.Expenses != 1 {
		t.Errorf("purge = %+v", got)
	}

	totals := decode[core.TotalsView](t, env.do(t, http.MethodGet, "/api/dashboard/totals", admin, ""))
	if !totals.Total.IsZero() {
		t.Errorf("total after purge = %s, want 0", totals.Total)
	}
}

func TestPurgeInvalidSelection(t *testing.T) {
	env := newTestEnv(t, nil)
	tests := []string{
		`{"preset":"yesterday"}`,
		`{"scope":"everything","mode":"day","day":"2024-03-01"}`,
		`{"scope":"all","mode":"range","start":"2024-03-05","end":"2024-03-01"}`,
		`{"scope":"all","mode":"day","day":"March"}`,
	}
	for _, body := range tests {
		if rr := env.do(t, http.MethodPost, "/api/purge", admin, body); rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status=%d, want 400", body, rr.Code)
		}
	}
}

func TestExport(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/expenses", ibrar, `{"title":"Paper","amount":"99","type":"Office","date":"2024-03-02"}`)

	rr := env.do(t, http.MethodPost, "/api/expenses/export", admin, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("export status=%d body=%s", rr.Code, rr.Body.String())
	}
	res := decode[services.ExportResult](t, rr)
	if res.Rows != 1 || res.Ref == "" {
		t.Errorf("export result = %+v", res)
	}
	if rows := env.sheets.Rows("Expenses"); len(rows) != 1 || rows[0].Date != "02-03-2024" {
		t.Errorf("exported rows = %+v", rows)
	}
}

func TestActivityFilter(t *testing.T) {
	items := []core.Activity{
		{Kind: core.ActivityExpense, ID: "e1", Name: "Ibrar", Amount: decimal.NewFromInt(5)},
		{Kind: core.ActivityTransfer, ID: "t1", Name: "Ahmad", Amount: decimal.NewFromInt(9)},
	}
	env := newTestEnv(t, fakeActivity{items: items, ready: true})

	tests := []struct {
		filter string
		want   int
		code   int
	}{
		{"", 2, http.StatusOK},
		{"Transfers", 1, http.StatusOK},
		{"expenses", 1, http.StatusOK},
		{"Income", 0, http.StatusBadRequest},
	}
	for _, tt := range tests {
		rr := env.do(t, http.MethodGet, "/api/activity?filter="+tt.filter, ibrar, "")
		if rr.Code != tt.code {
			t.Errorf("filter %q: status=%d, want %d", tt.filter, rr.Code, tt.code)
			continue
		}
		if tt.code == http.StatusOK {
			if got := decode[activityResponse](t, rr); len(got.Items) != tt.want || got.Loading {
				t.Errorf("filter %q: %d items (loading %v), want %d", tt.filter, len(got.Items), got.Loading, tt.want)
			}
		}
	}
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, nil)
	if rr := env.do(t, http.MethodGet, "/nope", "", ""); rr.Code != http.StatusNotFound {
		t.Errorf("unknown path status=%d", rr.Code)
	}
	if rr := env.do(t, http.MethodDelete, "/api/expenses", ibrar, ""); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE status=%d", rr.Code)
	}
}
