package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"budgetbook/internal/sheets"
)

const oauthClient = `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{ServiceAccountJSON: "{}"}, nil)
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("err = %v", err)
	}
}

func TestCredentialOptions(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
		wantN   int
	}{
		{"nothing configured", Config{}, "missing Google credentials", 0},
		{"service account inline", Config{ServiceAccountJSON: `{"type":"service_account"}`}, "", 2},
		{"service account file missing", Config{ServiceAccountFile: filepath.Join(t.TempDir(), "nope.json")}, "read service account file", 0},
		{"invalid oauth client", Config{OAuthClientJSON: "invalid-json", OAuthTokenJSON: `{"access_token":"x"}`}, "oauth config", 0},
		{"oauth client without token", Config{OAuthClientJSON: oauthClient}, "missing OAuth token", 0},
		{"empty oauth token", Config{OAuthClientJSON: oauthClient, OAuthTokenJSON: `{}`}, "no access or refresh token", 0},
		{"oauth client and token", Config{OAuthClientJSON: oauthClient, OAuthTokenJSON: `{"access_token":"x","refresh_token":"y"}`}, "", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := credentialOptions(context.Background(), tt.cfg)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(opts) != tt.wantN {
				t.Errorf("got %d options, want %d", len(opts), tt.wantN)
			}
		})
	}
}

func TestParseToken(t *testing.T) {
	tok, err := ParseToken([]byte(`{"access_token":"test","token_type":"Bearer"}`))
	if err != nil || tok.AccessToken != "test" {
		t.Fatalf("token = %+v, %v", tok, err)
	}
	if _, err := ParseToken([]byte(`{invalid json}`)); err == nil {
		t.Fatal("expected error with invalid JSON")
	}
}

type fakeSheets struct {
	mu       sync.Mutex
	tabs     []string
	requests []string
	written  *gsheet.ValueRange
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, _ := io.ReadAll(r.Body)
	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet:
		f.requests = append(f.requests, "get")
		var ss gsheet.Spreadsheet
		for _, name := range f.tabs {
			ss.Sheets = append(ss.Sheets, &gsheet.Sheet{Properties: &gsheet.SheetProperties{Title: name}})
		}
		json.NewEncoder(w).Encode(ss)
		return
	case strings.HasSuffix(path, ":batchUpdate"):
		f.requests = append(f.requests, "addSheet")
		var req gsheet.BatchUpdateSpreadsheetRequest
		json.Unmarshal(body, &req)
		f.tabs = append(f.tabs, req.Requests[0].AddSheet.Properties.Title)
	case strings.HasSuffix(path, ":clear"):
		f.requests = append(f.requests, "clear")
	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		f.requests = append(f.requests, "update:"+r.URL.Query().Get("valueInputOption"))
		f.written = &gsheet.ValueRange{}
		json.Unmarshal(body, f.written)
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
		return
	}
	io.WriteString(w, "{}")
}

func newTestClient(t *testing.T, f *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}
	return NewWithService(svc, "sheet-id", nil)
}

func TestWriteTable(t *testing.T) {
	table := sheets.Table{
		Name:   "Expenses ABCDEF",
		Header: []string{"Name", "Amount"},
		Rows:   [][]string{{"Tea", "₹12.50"}, {"Bus", "₹30.00"}},
	}

	t.Run("creates missing tab", func(t *testing.T) {
		f := &fakeSheets{tabs: []string{"Sheet1"}}
		ref, err := newTestClient(t, f).WriteTable(context.Background(), table)
		if err != nil {
			t.Fatal(err)
		}
		if ref != "'Expenses ABCDEF'!A1" {
			t.Errorf("ref = %q", ref)
		}
		want := []string{"get", "addSheet", "clear", "update:RAW"}
		if strings.Join(f.requests, ",") != strings.Join(want, ",") {
			t.Errorf("requests = %v, want %v", f.requests, want)
		}
		if len(f.written.Values) != 3 || f.written.Values[0][0] != "Name" || f.written.Values[2][1] != "₹30.00" {
			t.Errorf("written = %v", f.written.Values)
		}
	})

	t.Run("reuses existing tab", func(t *testing.T) {
		f := &fakeSheets{tabs: []string{"Expenses ABCDEF"}}
		if _, err := newTestClient(t, f).WriteTable(context.Background(), table); err != nil {
			t.Fatal(err)
		}
		for _, r := range f.requests {
			if r == "addSheet" {
				t.Fatal("existing tab was added again")
			}
		}
	})

	t.Run("uninitialized client", func(t *testing.T) {
		if _, err := (&Client{}).WriteTable(context.Background(), table); err == nil {
			t.Fatal("expected error")
		}
	})
}
