package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budgetbook/internal/cache"
	"budgetbook/internal/core"
	"budgetbook/internal/gateway"
)

type call struct {
	method, path string
	body         []byte
	header       http.Header
	skip         bool
}

// fakeSender answers from a "METHOD path" table and records calls.
type fakeSender struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	calls     []call
}

func newFake() *fakeSender {
	return &fakeSender{responses: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeSender) Send(_ context.Context, req *gateway.Request) (*gateway.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{req.Method, req.Path, req.Body, req.Header, req.SkipRecovery})
	key := req.Method + " " + req.Path
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	return &gateway.Response{StatusCode: http.StatusOK, Body: []byte(f.responses[key])}, nil
}

func (f *fakeSender) count(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.method == method && c.path == path {
			n++
		}
	}
	return n
}

func (f *fakeSender) last() call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func newClient(f *fakeSender) *Client {
	return New(f, cache.NewLRUCache[[]byte](32, time.Minute), nil)
}

func TestGetIsCachedAndMutationInvalidates(t *testing.T) {
	f := newFake()
	f.responses["GET /expense/solution-card/s1"] = `{"expenses":[{"_id":"e1","name":"Tea","amount":12.5}]}`
	f.responses["GET /dashboard/s1"] = `{"totalExpenses":12.5}`
	f.responses["GET /expense/solution-card/s2"] = `{"expenses":[]}`
	c := newClient(f)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := c.ListExpenses(ctx, "s1")
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || !got[0].Amount.Equal(decimal.RequireFromString("12.5")) {
			t.Fatalf("expenses = %+v", got)
		}
	}
	c.Dashboard(ctx, "s1")
	c.ListExpenses(ctx, "s2")
	if n := f.count(http.MethodGet, "/expense/solution-card/s1"); n != 1 {
		t.Fatalf("backend hit %d times, want 1", n)
	}

	if err := c.DeleteExpense(ctx, "s1", "e1"); err != nil {
		t.Fatal(err)
	}
	c.ListExpenses(ctx, "s1")
	c.Dashboard(ctx, "s1")
	c.ListExpenses(ctx, "s2")
	if n := f.count(http.MethodGet, "/expense/solution-card/s1"); n != 2 {
		t.Fatalf("list not refetched after delete: %d", n)
	}
	if n := f.count(http.MethodGet, "/dashboard/s1"); n != 2 {
		t.Fatalf("dashboard not refetched after delete: %d", n)
	}
	if n := f.count(http.MethodGet, "/expense/solution-card/s2"); n != 1 {
		t.Fatalf("other solution should stay cached: %d", n)
	}
}

func TestFailedMutationKeepsCache(t *testing.T) {
	f := newFake()
	f.responses["GET /solution"] = `[{"_id":"s1","name":"Goa","year":2024}]`
	f.errs["DELETE /solution/s1"] = &gateway.StatusError{StatusCode: 500}
	c := newClient(f)
	ctx := context.Background()

	c.ListSolutions(ctx)
	if err := c.DeleteSolution(ctx, "s1"); err == nil {
		t.Fatal("expected error")
	}
	c.ListSolutions(ctx)
	if n := f.count(http.MethodGet, "/solution"); n != 1 {
		t.Fatalf("cache dropped on failed mutation: %d fetches", n)
	}
}

func TestValidationHappensBeforeDispatch(t *testing.T) {
	f := newFake()
	c := newClient(f)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"login bad email", func() error {
			_, err := c.Login(ctx, core.Credentials{Email: "nope", Password: "x"})
			return err
		}, core.ErrInvalidEmail},
		{"weak registration", func() error {
			return c.Register(ctx, core.Registration{Name: "A", Email: "a@b.co", Password: "short"})
		}, core.ErrPasswordTooShort},
		{"solution without name", func() error {
			_, err := c.CreateSolution(ctx, core.Solution{Year: 2024})
			return err
		}, core.ErrEmptyName},
		{"upi without screenshot", func() error {
			d := core.ExpenseDraft{Name: "Bus", Category: "Travel", Amount: decimal.NewFromInt(10), PaymentMethod: core.PaymentUPI}
			return c.CreateExpense(ctx, "s1", d, nil)
		}, core.ErrMissingScreenshot},
		{"cash amount zero", func() error {
			_, err := c.CreateCollectedCash(ctx, "s1", "Asha", decimal.Zero)
			return err
		}, core.ErrInvalidAmount},
		{"bad otp", func() error { return c.VerifyOTP(ctx, "a@b.co", "12ab") }, core.ErrInvalidOTP},
		{"password mismatch", func() error { return c.ResetPassword(ctx, "a@b.co", "Secret1!", "Secret2!") }, core.ErrPasswordMismatch},
		{"bad role", func() error { return c.ChangeUserRole(ctx, "u1", "root") }, core.ErrInvalidRole},
		{"bad share role", func() error {
			return c.ShareSolution(ctx, "s1", []core.Share{{User: "u", Role: "boss"}}, false)
		}, core.ErrInvalidRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if len(f.calls) != 0 {
		t.Fatalf("invalid input reached the backend: %+v", f.calls)
	}
}

func TestUnauthenticatedCallsSkipRecovery(t *testing.T) {
	f := newFake()
	f.responses["POST /login"] = `{"user":{"_id":"u1","name":"Asha","role":"admin"},"token":"t","refreshToken":"r"}`
	c := newClient(f)
	ctx := context.Background()

	res, err := c.Login(ctx, core.Credentials{Email: "a@b.co", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	if res.User.Role != core.RoleAdmin || res.RefreshToken != "r" {
		t.Fatalf("login result = %+v", res)
	}
	if !f.last().skip {
		t.Fatal("login must skip recovery")
	}
	c.SendOTP(ctx, "a@b.co")
	if !f.last().skip {
		t.Fatal("send-otp must skip recovery")
	}
	c.ChangePassword(ctx, "a@b.co", "old", "Secret1!", "Secret1!")
	if f.last().skip {
		t.Fatal("change-password is an authenticated call")
	}
}

func TestLoginWithoutTokenFails(t *testing.T) {
	f := newFake()
	f.responses["POST /login"] = `{"user":{}}`
	if _, err := newClient(f).Login(context.Background(), core.Credentials{Email: "a@b.co", Password: "pw"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSolutionCalls(t *testing.T) {
	f := newFake()
	f.responses["POST /solution"] = `{"solutionCard":{"_id":"s9","name":"Goa","year":2025}}`
	f.responses["GET /solution/s9"] = `{"_id":"s9","name":"Goa","year":2025,"sharedWith":[{"user":"u2","role":"viewer"}]}`
	f.responses["GET /users/available-to-share?solutionCardId=s9"] = `[{"_id":"u3","name":"Ravi"}]`
	c := newClient(f)
	ctx := context.Background()

	created, err := c.CreateSolution(ctx, core.Solution{Name: "Goa", Year: 2025})
	if err != nil || created.ID != "s9" {
		t.Fatalf("created = %+v, %v", created, err)
	}
	got, err := c.GetSolution(ctx, "s9")
	if err != nil || len(got.SharedWith) != 1 {
		t.Fatalf("solution = %+v, %v", got, err)
	}
	users, err := c.AvailableToShare(ctx, "s9")
	if err != nil || len(users) != 1 || users[0].Name != "Ravi" {
		t.Fatalf("users = %+v, %v", users, err)
	}

	shares := core.MergeShares(got.SharedWith, []core.Share{{User: "u3", Role: core.ShareEditor}})
	if err := c.ShareSolution(ctx, "s9", shares, true); err != nil {
		t.Fatal(err)
	}
	var body struct {
		SharedWith  []core.Share `json:"sharedWith"`
		NotifyUsers bool         `json:"notifyUsers"`
	}
	json.Unmarshal(f.last().body, &body)
	if f.last().path != "/solution/s9/share" || len(body.SharedWith) != 2 || !body.NotifyUsers {
		t.Fatalf("share request = %s %s", f.last().path, f.last().body)
	}
}

func TestCollectedCashBodyUsesNumbers(t *testing.T) {
	f := newFake()
	f.responses["POST /collected-cash"] = `{"collectedCash":{"_id":"c1","name":"Asha","amount":500}}`
	c := newClient(f)

	got, err := c.CreateCollectedCash(context.Background(), "s1", "Asha", decimal.RequireFromString("500"))
	if err != nil || got.ID != "c1" {
		t.Fatalf("created = %+v, %v", got, err)
	}
	if !strings.Contains(string(f.last().body), `"amount":500`) {
		t.Fatalf("amount should be a JSON number: %s", f.last().body)
	}
}

// The multipart body has to survive a refresh-and-replay through the real
// gateway.
func TestCreateExpenseMultipartThroughGateway(t *testing.T) {
	var (
		mu       sync.Mutex
		attempts int
		form     map[string][]string
		files    []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/refresh-token":
			io.WriteString(w, `{"token":"fresh"}`)
		case "/expense":
			mu.Lock()
			defer mu.Unlock()
			attempts++
			if r.Header.Get("Authorization") != "Bearer fresh" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parse multipart: %v", err)
				return
			}
			form = r.MultipartForm.Value
			for _, fh := range r.MultipartForm.File["upiScreenshots"] {
				files = append(files, fh.Filename)
			}
			w.WriteHeader(http.StatusCreated)
		}
	}))
	defer srv.Close()

	creds := &tokenStore{token: "stale"}
	gw, err := gateway.New(gateway.Config{BaseURL: srv.URL}, creds, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	c := New(gw, nil, nil)

	d := core.ExpenseDraft{
		Name: "Hotel", Category: "Stay",
		Amount: decimal.RequireFromString("1500"), PaidAmount: decimal.RequireFromString("500"),
		PaymentMethod: core.PaymentUPI,
	}
	err = c.CreateExpense(context.Background(), "s1", d, []Upload{{Filename: "pay.png", Data: []byte("\x89PNG\r\n\x1a\n")}})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
	if form["solutionCard"][0] != "s1" || form["paymentMethod"][0] != "upi" || form["amount"][0] != "1500" {
		t.Fatalf("form = %v", form)
	}
	if !strings.Contains(form["payments"][0], `"paidAmount":500`) {
		t.Fatalf("payments = %s", form["payments"][0])
	}
	if len(files) != 1 || files[0] != "pay.png" {
		t.Fatalf("files = %v", files)
	}
}

type tokenStore struct {
	mu    sync.Mutex
	token string
}

func (s *tokenStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *tokenStore) Store(token, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *tokenStore) Clear() error { return s.Store("", "") }

func TestFileDispositionEscapesQuotes(t *testing.T) {
	tests := []string{"pay.png", `pay "final".png`, `C:\upi\pay.png`}
	for _, name := range tests {
		_, params, err := mime.ParseMediaType(fileDisposition("upiScreenshots", name))
		if err != nil {
			t.Fatalf("%q: %v", name, err)
		}
		if params["name"] != "upiScreenshots" || params["filename"] != name {
			t.Errorf("%q: params = %v", name, params)
		}
	}
}
