package http

import (
	"context"
	"net/url"

	"budgetbook/internal/core"
	"budgetbook/internal/nav"
	"budgetbook/internal/table"
)

const pendingAccent = "#e67e22"

// actionOutcome is filled by a table action handler: where to send the
// user next and what to tell them.
type actionOutcome struct {
	redirect string
	flash    string
}

func solutionPath(id string) string {
	return "/solution/" + url.PathEscape(id)
}

func expensesPath(solutionID string) string {
	return solutionPath(solutionID) + "/expense-data"
}

func cashPath(solutionID string) string {
	return solutionPath(solutionID) + "/collected-cash"
}

// expenseTable configures the expense list. Edit and delete are offered
// only when canEdit is set; out receives the result of an activated action.
func (s *Server) expenseTable(solutionID string, canEdit bool, out *actionOutcome) (*table.Table, error) {
	base := expensesPath(solutionID)
	editable := func(table.Record) bool { return canEdit }
	return table.New(table.Config{
		Name: "Expense Data",
		Columns: []table.Column{
			{Label: "Name", Field: "name"},
			{Label: "Category", Field: "category"},
			{Label: "Amount", Field: "amount", Format: table.FormatCurrency},
			{Label: "Paid", Field: "paid", Format: table.FormatCurrency},
			{Label: "Pending", Field: "pending", Format: table.FormatCurrency},
			{Label: "Payment Status", Field: "paymentStatus"},
			{Label: "Paid By", Field: "paidBy"},
			{Label: "Screenshot", Field: "hasScreenshots", Format: table.FormatBoolean},
			{Label: "Date", Field: "createdAt", Format: table.FormatDate},
		},
		Filters: []table.Filter{
			{Field: "category", Label: "Category"},
			{Field: "paymentStatus", Label: "Payment Status"},
		},
		SearchFields: []string{"name", "category"},
		Actions: []table.Action{
			{ID: "view", Label: "View", Icon: nav.IconView, Handler: func(_ context.Context, row table.Record) error {
				out.redirect = base + "/" + url.PathEscape(table.RowKey(row))
				return nil
			}},
			{ID: "edit", Label: "Edit", Icon: nav.IconEdit, Visible: editable, Handler: func(_ context.Context, row table.Record) error {
				out.redirect = base + "/" + url.PathEscape(table.RowKey(row)) + "/edit"
				return nil
			}},
			{
				ID: "delete", Label: "Delete", Icon: nav.IconDelete, Variant: "btn-outline-danger",
				Confirm: "Delete this expense?", Visible: editable,
				Handler: func(ctx context.Context, row table.Record) error {
					if err := s.client.DeleteExpense(ctx, solutionID, table.RowKey(row)); err != nil {
						return err
					}
					out.flash = "Expense deleted."
					return nil
				},
			},
		},
		PageSize:   s.cfg.RowsPerPage,
		Breakpoint: s.cfg.CardBreakpointPx,
		Formatter:  s.format,
		BasePath:   base,
		Accent: func(row table.Record) string {
			if row["paymentStatus"] != statusPaid {
				return pendingAccent
			}
			return ""
		},
	})
}

const (
	statusPaid    = "Paid"
	statusPartial = "Partially Paid"
	statusPending = "Pending"
)

// paymentStatus prefers the backend's label and derives one otherwise.
func paymentStatus(e core.Expense) string {
	if e.PaymentStatus != "" {
		return e.PaymentStatus
	}
	switch paid := e.TotalPaid(); {
	case !e.Pending().IsPositive():
		return statusPaid
	case paid.IsPositive():
		return statusPartial
	}
	return statusPending
}

// expenseRecords flattens expenses into table records with native values,
// so sorting compares amounts and dates rather than their text.
func expenseRecords(expenses []core.Expense) []table.Record {
	out := make([]table.Record, len(expenses))
	for i, e := range expenses {
		paidBy := ""
		if e.PaidBy != nil {
			paidBy = e.PaidBy.Name
		}
		out[i] = table.Record{
			"_id":            e.ID,
			"name":           e.Name,
			"category":       e.Category,
			"amount":         e.Amount,
			"paid":           e.TotalPaid(),
			"pending":        e.Pending(),
			"paymentStatus":  paymentStatus(e),
			"paidBy":         paidBy,
			"hasScreenshots": e.HasScreenshots(),
			"createdAt":      e.CreatedAt,
		}
	}
	return out
}

func (s *Server) cashTable(solutionID string, canEdit bool, out *actionOutcome) (*table.Table, error) {
	base := cashPath(solutionID)
	var actions []table.Action
	if canEdit {
		actions = []table.Action{
			{ID: "edit", Label: "Edit", Icon: nav.IconEdit, Handler: func(_ context.Context, row table.Record) error {
				out.redirect = base + "/" + url.PathEscape(table.RowKey(row)) + "/edit"
				return nil
			}},
			{
				ID: "delete", Label: "Delete", Icon: nav.IconDelete, Variant: "btn-outline-danger",
				Confirm: "Delete this entry?",
				Handler: func(ctx context.Context, row table.Record) error {
					if err := s.client.DeleteCollectedCash(ctx, solutionID, table.RowKey(row)); err != nil {
						return err
					}
					out.flash = "Entry deleted."
					return nil
				},
			},
		}
	}
	return table.New(table.Config{
		Name: "Collected Cash",
		Columns: []table.Column{
			{Label: "Name", Field: "name"},
			{Label: "Amount", Field: "amount", Format: table.FormatCurrency},
			{Label: "Collected", Field: "collectedDate", Format: table.FormatDate},
			{Label: "Updated", Field: "updatedDate", Format: table.FormatDate},
		},
		SearchFields: []string{"name"},
		Actions:      actions,
		PageSize:     s.cfg.RowsPerPage,
		Breakpoint:   s.cfg.CardBreakpointPx,
		Formatter:    s.format,
		BasePath:     base,
	})
}

func cashRecords(entries []core.CollectedCash) []table.Record {
	out := make([]table.Record, len(entries))
	for i, c := range entries {
		out[i] = table.Record{
			"_id":           c.ID,
			"name":          c.Name,
			"amount":        c.Amount,
			"collectedDate": c.CollectedDate,
			"updatedDate":   c.UpdatedDate,
		}
	}
	return out
}
