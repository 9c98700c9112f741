package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"budgetbook/internal/core"
	"budgetbook/internal/gateway"
	"budgetbook/internal/log"
)

const (
	expensesPrefix  = "/expense/solution-card/"
	dashboardPrefix = "/dashboard/"
)

// Upload is one screenshot file attached to an expense.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (c *Client) ListExpenses(ctx context.Context, solutionID string) ([]core.Expense, error) {
	var out struct {
		Expenses []core.Expense `json:"expenses"`
	}
	if err := c.get(ctx, expensesPrefix+seg(solutionID), &out); err != nil {
		return nil, err
	}
	return out.Expenses, nil
}

// CreateExpense posts the draft as multipart form data with the new
// screenshots under "upiScreenshots".
func (c *Client) CreateExpense(ctx context.Context, solutionID string, d core.ExpenseDraft, files []Upload) error {
	req, err := expenseRequest(http.MethodPost, "/expense", solutionID, "", d, files)
	if err != nil {
		return err
	}
	if err := c.do(ctx, req, nil, expensesPrefix+seg(solutionID), dashboardPrefix+seg(solutionID)); err != nil {
		return err
	}
	c.events.Mutation(ctx, log.OpCreate, solutionID, "")
	return nil
}

// UpdateExpense replaces an expense; d.ExistingScreenshots lists the URLs
// to keep.
func (c *Client) UpdateExpense(ctx context.Context, solutionID, expenseID string, d core.ExpenseDraft, files []Upload) error {
	req, err := expenseRequest(http.MethodPut, "/expense/"+seg(expenseID), solutionID, expenseID, d, files)
	if err != nil {
		return err
	}
	if err := c.do(ctx, req, nil, expensesPrefix+seg(solutionID), dashboardPrefix+seg(solutionID)); err != nil {
		return err
	}
	c.events.Mutation(ctx, log.OpUpdate, solutionID, expenseID)
	return nil
}

func (c *Client) DeleteExpense(ctx context.Context, solutionID, expenseID string) error {
	err := c.send(ctx, http.MethodDelete, "/expense/"+seg(expenseID), nil, nil, false,
		expensesPrefix+seg(solutionID), dashboardPrefix+seg(solutionID))
	if err != nil {
		return err
	}
	c.events.Mutation(ctx, log.OpDelete, solutionID, expenseID)
	return nil
}

func expenseRequest(method, path, solutionID, expenseID string, d core.ExpenseDraft, files []Upload) (*gateway.Request, error) {
	d.NewScreenshots = len(files)
	if d.PaymentMethod != core.PaymentUPI {
		d.NewScreenshots = 0
		d.ExistingScreenshots = nil
		files = nil
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	payments, err := json.Marshal(d.Payments())
	if err != nil {
		return nil, fmt.Errorf("encode payments: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"name", d.Name},
		{"category", d.Category},
		{"amount", d.Amount.String()},
		{"paymentMethod", string(d.PaymentMethod)},
		{"paidAmount", d.PaidAmount.String()},
		{"solutionCard", solutionID},
		{"payments", string(payments)},
	}
	if expenseID != "" {
		existing, err := json.Marshal(nonNil(d.ExistingScreenshots))
		if err != nil {
			return nil, fmt.Errorf("encode screenshots: %w", err)
		}
		fields = append(fields, [2]string{"expenseId", expenseID}, [2]string{"existingScreenshots", string(existing)})
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("write field %s: %w", f[0], err)
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fileDisposition("upiScreenshots", f.Filename))
		ct := f.ContentType
		if ct == "" {
			ct = http.DetectContentType(f.Data)
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("attach %s: %w", f.Filename, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, fmt.Errorf("attach %s: %w", f.Filename, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req := &gateway.Request{Method: method, Path: path, Body: buf.Bytes(), Header: http.Header{}}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// fileDisposition matches the header multipart.Writer.CreateFormFile writes.
func fileDisposition(field, filename string) string {
	return fmt.Sprintf(`form-data; name="%s"; filename="%s"`, quoteEscaper.Replace(field), quoteEscaper.Replace(filename))
}
