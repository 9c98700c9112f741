// Package google writes exported tables into tabs of one Google
// spreadsheet.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"budgetbook/internal/log"
	"budgetbook/internal/sheets"
)

// Config selects the spreadsheet and its credentials. A service account
// wins over an OAuth client plus token; inline JSON wins over a file.
type Config struct {
	SpreadsheetID      string
	ServiceAccountJSON string
	ServiceAccountFile string
	OAuthClientJSON    string
	OAuthClientFile    string
	OAuthTokenJSON     string
	OAuthTokenFile     string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        *log.Logger
}

var _ sheets.TableWriter = (*Client)(nil)

// New builds a client from cfg.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	opts, err := credentialOptions(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, logger), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *gsheet.Service, spreadsheetID string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, logger: logger.WithComponent(log.ComponentSheets)}
}

func credentialOptions(ctx context.Context, cfg Config) ([]goption.ClientOption, error) {
	sa, err := inlineOrFile(cfg.ServiceAccountJSON, cfg.ServiceAccountFile, "service account")
	if err != nil {
		return nil, err
	}
	if sa != nil {
		return []goption.ClientOption{
			goption.WithCredentialsJSON(sa),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}, nil
	}

	clientJSON, err := inlineOrFile(cfg.OAuthClientJSON, cfg.OAuthClientFile, "OAuth client")
	if err != nil {
		return nil, err
	}
	if clientJSON == nil {
		return nil, errors.New("missing Google credentials (set a service account or an OAuth client and token)")
	}
	oc, err := goauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	tokenJSON, err := inlineOrFile(cfg.OAuthTokenJSON, cfg.OAuthTokenFile, "OAuth token")
	if err != nil {
		return nil, err
	}
	if tokenJSON == nil {
		return nil, errors.New("missing OAuth token (run oauth-init first)")
	}
	tok, err := ParseToken(tokenJSON)
	if err != nil {
		return nil, err
	}
	return []goption.ClientOption{goption.WithTokenSource(oc.TokenSource(ctx, tok))}, nil
}

func inlineOrFile(inline, path, label string) ([]byte, error) {
	if s := strings.TrimSpace(inline); s != "" {
		return []byte(s), nil
	}
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s file: %w", label, err)
	}
	return b, nil
}

// WriteTable makes sure the tab exists, clears it and writes the header
// followed by the rows starting at A1.
func (c *Client) WriteTable(ctx context.Context, t sheets.Table) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if t.Name == "" {
		return "", errors.New("table has no name")
	}
	if err := c.ensureTab(ctx, t.Name); err != nil {
		return "", err
	}

	rng := quoteTab(t.Name)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear tab %s: %w", t.Name, err)
	}
	vr := &gsheet.ValueRange{Values: toValues(t)}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng+"!A1", vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("write tab %s: %w", t.Name, err)
	}

	c.logger.InfoContext(ctx, "Wrote table to spreadsheet", "tab", t.Name, log.FieldRows, len(t.Rows))
	return fmt.Sprintf("%s!A1", rng), nil
}

func (c *Client) ensureTab(ctx context.Context, name string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == name {
			return nil
		}
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: name}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add tab %s: %w", name, err)
	}
	c.logger.DebugContext(ctx, "Created spreadsheet tab", "tab", name)
	return nil
}

func toValues(t sheets.Table) [][]any {
	out := make([][]any, 0, len(t.Rows)+1)
	out = append(out, toRow(t.Header))
	for _, r := range t.Rows {
		out = append(out, toRow(r))
	}
	return out
}

func toRow(cells []string) []any {
	row := make([]any, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}

// quoteTab quotes a tab title for A1 notation.
func quoteTab(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// ParseToken decodes a token saved by oauth-init.
func ParseToken(b []byte) (*oauth2.Token, error) {
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, errors.New("parse oauth token: no access or refresh token")
	}
	return &tok, nil
}
