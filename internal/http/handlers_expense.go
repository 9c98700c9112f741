package http

import (
	"context"
	"net/http"
	"slices"

	"budgetbook/internal/core"
	"budgetbook/internal/table"
)

// expenseTableFor loads the solution and its expenses and builds the
// table over them.
func (s *Server) expenseTableFor(r *http.Request, out *actionOutcome) (*table.Table, core.Solution, error) {
	sol, expenses, err := s.loadExpenses(r)
	if err != nil {
		return nil, sol, err
	}
	t, err := s.expenseTable(r.PathValue("id"), canEdit(sol, s.session.Snapshot()), out)
	if err != nil {
		return nil, sol, err
	}
	t.SetData(expenseRecords(expenses))
	return t, sol, nil
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	t, sol, err := s.expenseTableFor(r, &actionOutcome{})
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	editable := canEdit(sol, s.session.Snapshot())
	data := tablePageData{TotalLabel: "Total expenses", CanEdit: editable}
	if editable {
		data.NewHref, data.NewLabel = expensesPath(sol.ID)+"/new", "Add Expense"
	}
	s.renderTable(w, r, t, sol, data, "amount")
}

func (s *Server) handleExpenseAction(w http.ResponseWriter, r *http.Request) {
	var out actionOutcome
	t, _, err := s.expenseTableFor(r, &out)
	if err != nil {
		s.actionError(w, r, err, expensesPath(r.PathValue("id")))
		return
	}
	s.runAction(w, r, t, &out)
}

func (s *Server) handleExpenseExport(w http.ResponseWriter, r *http.Request) {
	t, sol, err := s.expenseTableFor(r, &actionOutcome{})
	if err != nil {
		s.actionError(w, r, err, expensesPath(r.PathValue("id")))
		return
	}
	s.exportView(w, r, t, sol.Name+" Expenses")
}

// expenseFields are the form inputs as text, from a stored expense or
// from a rejected submission.
type expenseFields struct {
	Name          string
	Category      string
	Amount        string
	PaidAmount    string
	PaymentMethod core.PaymentMethod
	Screenshots   []string
}

func fieldsFromExpense(e core.Expense) expenseFields {
	f := expenseFields{
		Name:          e.Name,
		Category:      e.Category,
		Amount:        e.Amount.StringFixed(2),
		PaidAmount:    e.TotalPaid().StringFixed(2),
		PaymentMethod: core.PaymentCash,
		Screenshots:   e.Screenshots(),
	}
	if n := len(e.Payments); n > 0 && e.Payments[n-1].PaymentMethod != "" {
		f.PaymentMethod = e.Payments[n-1].PaymentMethod
	}
	return f
}

func fieldsFromDraft(r *http.Request, d core.ExpenseDraft) expenseFields {
	return expenseFields{
		Name:          d.Name,
		Category:      d.Category,
		Amount:        formValue(r.PostForm, "amount"),
		PaidAmount:    formValue(r.PostForm, "paidAmount"),
		PaymentMethod: d.PaymentMethod,
		Screenshots:   d.ExistingScreenshots,
	}
}

type expenseFormData struct {
	Solution   core.Solution
	Fields     expenseFields
	Action     string
	Editing    bool
	Methods    []core.PaymentMethod
	Categories []string
}

func (s *Server) expenseForm(sol core.Solution, f expenseFields, action string, editing bool, categories []string) expenseFormData {
	return expenseFormData{
		Solution:   sol,
		Fields:     f,
		Action:     action,
		Editing:    editing,
		Methods:    []core.PaymentMethod{core.PaymentCash, core.PaymentUPI},
		Categories: categories,
	}
}

func categoriesOf(expenses []core.Expense) []string {
	var out []string
	for _, e := range expenses {
		if e.Category != "" && !slices.Contains(out, e.Category) {
			out = append(out, e.Category)
		}
	}
	slices.Sort(out)
	return out
}

// loadExpenses fetches the solution and its expenses together.
func (s *Server) loadExpenses(r *http.Request) (core.Solution, []core.Expense, error) {
	id := r.PathValue("id")
	var expenses []core.Expense
	sol, err := s.withSolution(r, id, func(ctx context.Context) error {
		var err error
		expenses, err = s.client.ListExpenses(ctx, id)
		return err
	})
	return sol, expenses, err
}

func findExpense(expenses []core.Expense, id string) (core.Expense, bool) {
	i := slices.IndexFunc(expenses, func(e core.Expense) bool { return e.ID == id })
	if i < 0 {
		return core.Expense{}, false
	}
	return expenses[i], true
}

type expenseViewData struct {
	Solution core.Solution
	Expense  core.Expense
	Status   string
	CanEdit  bool
}

func (s *Server) handleExpenseView(w http.ResponseWriter, r *http.Request) {
	sol, expenses, err := s.loadExpenses(r)
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	e, ok := findExpense(expenses, r.PathValue("expenseID"))
	if !ok {
		s.renderError(w, r, http.StatusNotFound, "Expense not found.")
		return
	}
	pc := s.solutionPage(w, r, e.Name, sol)
	pc.Data = expenseViewData{Solution: sol, Expense: e, Status: paymentStatus(e), CanEdit: canEdit(sol, pc.Session)}
	s.render(w, r, http.StatusOK, "expense_view", pc)
}

func (s *Server) handleExpenseNew(w http.ResponseWriter, r *http.Request) {
	sol, expenses, err := s.loadExpenses(r)
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	pc := s.solutionPage(w, r, "Add Expense", sol)
	pc.Data = s.expenseForm(sol, expenseFields{PaymentMethod: core.PaymentCash}, expensesPath(sol.ID), false, categoriesOf(expenses))
	s.render(w, r, http.StatusOK, "expense_form", pc)
}

func (s *Server) handleExpenseEdit(w http.ResponseWriter, r *http.Request) {
	sol, expenses, err := s.loadExpenses(r)
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	e, ok := findExpense(expenses, r.PathValue("expenseID"))
	if !ok {
		s.renderError(w, r, http.StatusNotFound, "Expense not found.")
		return
	}
	pc := s.solutionPage(w, r, "Edit Expense", sol)
	action := expensesPath(sol.ID) + "/" + e.ID
	pc.Data = s.expenseForm(sol, fieldsFromExpense(e), action, true, categoriesOf(expenses))
	s.render(w, r, http.StatusOK, "expense_form", pc)
}

func (s *Server) handleExpenseCreate(w http.ResponseWriter, r *http.Request) {
	s.saveExpense(w, r, "")
}

func (s *Server) handleExpenseUpdate(w http.ResponseWriter, r *http.Request) {
	s.saveExpense(w, r, r.PathValue("expenseID"))
}

// saveExpense creates the expense when expenseID is empty and updates it
// otherwise. Rejected submissions re-render the form with what was typed.
func (s *Server) saveExpense(w http.ResponseWriter, r *http.Request, expenseID string) {
	id := r.PathValue("id")
	d, files, errs, err := parseExpenseForm(r)
	if err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	if !errs.Any() {
		if expenseID == "" {
			err = s.client.CreateExpense(ctx, id, d, files)
		} else {
			err = s.client.UpdateExpense(ctx, id, expenseID, d, files)
		}
		if err == nil {
			msg := "Expense added."
			if expenseID != "" {
				msg = "Expense updated."
			}
			setFlash(w, flashSuccess, msg)
			s.redirect(w, r, expensesPath(id))
			return
		}
	}

	sol, solErr := s.client.GetSolution(ctx, id)
	if solErr != nil {
		s.pageError(w, r, solErr)
		return
	}
	title, action := "Add Expense", expensesPath(id)
	if expenseID != "" {
		title, action = "Edit Expense", action+"/"+expenseID
	}
	pc := s.solutionPage(w, r, title, sol)
	pc.Form = r.PostForm
	pc.Data = s.expenseForm(sol, fieldsFromDraft(r, d), action, expenseID != "", nil)
	if errs.Any() {
		s.invalid(w, r, errs, "expense_form", pc)
		return
	}
	s.formError(w, r, err, "expense_form", pc)
}
