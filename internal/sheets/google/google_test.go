package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"cashbook/internal/config"
	"cashbook/internal/sheets"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
)

type recordedCall struct {
	method string
	path   string
	body   []byte
}

func fakeSheetsServer(t *testing.T, status int) (*httptest.Server, func() []recordedCall) {
	t.Helper()
	var mu sync.Mutex
	var calls []recordedCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, recordedCall{method: r.Method, path: r.URL.Path, body: body})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status >= 400 {
			io.WriteString(w, `{"error":{"code":403,"message":"denied"}}`)
			return
		}
		io.WriteString(w, `{}`)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedCall {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedCall(nil), calls...)
	}
}

func testExporter(t *testing.T, srv *httptest.Server) *Exporter {
	t.Helper()
	cfg := &config.Config{GoogleSpreadsheetID: "sheet-123"}
	e, err := NewFromConfig(context.Background(), cfg, nil,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	return e
}

func TestExporter_ClearsThenWrites(t *testing.T) {
	srv, calls := fakeSheetsServer(t, http.StatusOK)
	e := testExporter(t, srv)

	rows := []sheets.ExportRow{
		{Date: "05-01-2024", Title: "Paper", Amount: decimal.RequireFromString("12.5"), Type: "Office", Remarks: "N/A", Name: "Ibrar"},
	}
	ref, err := e.Export(context.Background(), "Expenses", rows)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if ref != "'Expenses'!A1:F2" {
		t.Errorf("ref = %q", ref)
	}

	got := calls()
	if len(got) != 2 {
		t.Fatalf("calls = %d, want clear and update", len(got))
	}
	if got[0].method != http.MethodPost || !strings.HasSuffix(got[0].path, ":clear") {
		t.Errorf("first call = %s %s, want clear", got[0].method, got[0].path)
	}
	if !strings.Contains(got[0].path, "sheet-123") {
		t.Errorf("clear path %q lacks spreadsheet id", got[0].path)
	}
	if got[1].method != http.MethodPut {
		t.Errorf("second call = %s, want PUT", got[1].method)
	}

	var body struct {
		Values [][]any `json:"values"`
	}
	if err := json.Unmarshal(got[1].body, &body); err != nil {
		t.Fatalf("decode update body: %v", err)
	}
	if len(body.Values) != 2 || body.Values[0][0] != "Date" || body.Values[1][1] != "Paper" || body.Values[1][2] != 12.5 {
		t.Errorf("values = %v", body.Values)
	}
}

func TestExporter_PropagatesAPIErrors(t *testing.T) {
	srv, _ := fakeSheetsServer(t, http.StatusForbidden)
	e := testExporter(t, srv)

	if _, err := e.Export(context.Background(), "Expenses", nil); err == nil || !strings.Contains(err.Error(), "clear") {
		t.Fatalf("err = %v, want clear failure", err)
	}
}

func TestExporter_Validation(t *testing.T) {
	if _, err := (&Exporter{}).Export(context.Background(), "Expenses", nil); err == nil {
		t.Error("expected error without a service")
	}
	if _, err := NewFromConfig(context.Background(), &config.Config{}, nil); err == nil {
		t.Error("expected error for missing spreadsheet id")
	}
}

func TestCredentialsJSON(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "sa.json")
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		inline  string
		file    string
		want    string
		wantErr bool
	}{
		{"inline wins", `{"inline":true}`, path, `{"inline":true}`, false},
		{"file", "", path, `{"type":"service_account"}`, false},
		{"missing file", "", filepath.Join(dir, "nope.json"), "", true},
		{"nothing configured", "", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := credentialsJSON(tt.inline, tt.file)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQuoteSheet(t *testing.T) {
	if got := quoteSheet("Ibrar's Expenses"); got != "'Ibrar''s Expenses'" {
		t.Errorf("quoteSheet = %q", got)
	}
}
