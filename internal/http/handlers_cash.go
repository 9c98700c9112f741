package http

import (
	"context"
	"net/http"
	"slices"

	"budgetbook/internal/core"
	"budgetbook/internal/table"
)

func (s *Server) loadCash(r *http.Request) (core.Solution, []core.CollectedCash, error) {
	id := r.PathValue("id")
	var entries []core.CollectedCash
	sol, err := s.withSolution(r, id, func(ctx context.Context) error {
		var err error
		entries, err = s.client.ListCollectedCash(ctx, id)
		return err
	})
	return sol, entries, err
}

func (s *Server) cashTableFor(r *http.Request, out *actionOutcome) (*table.Table, core.Solution, error) {
	sol, entries, err := s.loadCash(r)
	if err != nil {
		return nil, sol, err
	}
	t, err := s.cashTable(r.PathValue("id"), canEdit(sol, s.session.Snapshot()), out)
	if err != nil {
		return nil, sol, err
	}
	t.SetData(cashRecords(entries))
	return t, sol, nil
}

func (s *Server) handleCash(w http.ResponseWriter, r *http.Request) {
	t, sol, err := s.cashTableFor(r, &actionOutcome{})
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	editable := canEdit(sol, s.session.Snapshot())
	data := tablePageData{TotalLabel: "Total collected", CanEdit: editable}
	if editable {
		data.NewHref, data.NewLabel = cashPath(sol.ID)+"/new", "Add Entry"
	}
	s.renderTable(w, r, t, sol, data, "amount")
}

func (s *Server) handleCashAction(w http.ResponseWriter, r *http.Request) {
	var out actionOutcome
	t, _, err := s.cashTableFor(r, &out)
	if err != nil {
		s.actionError(w, r, err, cashPath(r.PathValue("id")))
		return
	}
	s.runAction(w, r, t, &out)
}

func (s *Server) handleCashExport(w http.ResponseWriter, r *http.Request) {
	t, sol, err := s.cashTableFor(r, &actionOutcome{})
	if err != nil {
		s.actionError(w, r, err, cashPath(r.PathValue("id")))
		return
	}
	s.exportView(w, r, t, sol.Name+" Collected Cash")
}

type cashFormData struct {
	Solution core.Solution
	Name     string
	Amount   string
	Action   string
	Editing  bool
}

func (s *Server) handleCashNew(w http.ResponseWriter, r *http.Request) {
	sol, err := s.client.GetSolution(r.Context(), r.PathValue("id"))
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	pc := s.solutionPage(w, r, "Add Collected Cash", sol)
	pc.Data = cashFormData{Solution: sol, Action: cashPath(sol.ID)}
	s.render(w, r, http.StatusOK, "cash_form", pc)
}

func (s *Server) handleCashEdit(w http.ResponseWriter, r *http.Request) {
	sol, entries, err := s.loadCash(r)
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	cashID := r.PathValue("cashID")
	i := slices.IndexFunc(entries, func(c core.CollectedCash) bool { return c.ID == cashID })
	if i < 0 {
		s.renderError(w, r, http.StatusNotFound, "Entry not found.")
		return
	}
	c := entries[i]
	pc := s.solutionPage(w, r, "Edit Collected Cash", sol)
	pc.Data = cashFormData{
		Solution: sol,
		Name:     c.Name,
		Amount:   c.Amount.StringFixed(2),
		Action:   cashPath(sol.ID) + "/" + c.ID,
		Editing:  true,
	}
	s.render(w, r, http.StatusOK, "cash_form", pc)
}

func (s *Server) handleCashCreate(w http.ResponseWriter, r *http.Request) {
	s.saveCash(w, r, "")
}

func (s *Server) handleCashUpdate(w http.ResponseWriter, r *http.Request) {
	s.saveCash(w, r, r.PathValue("cashID"))
}

func (s *Server) saveCash(w http.ResponseWriter, r *http.Request, cashID string) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	id := r.PathValue("id")
	ctx := r.Context()
	c, errs := parseCashForm(r.PostForm)
	var err error
	if !errs.Any() {
		if cashID == "" {
			_, err = s.client.CreateCollectedCash(ctx, id, c.Name, c.Amount)
		} else {
			err = s.client.UpdateCollectedCash(ctx, id, cashID, c.Name, c.Amount)
		}
		if err == nil {
			msg := "Entry added."
			if cashID != "" {
				msg = "Entry updated."
			}
			setFlash(w, flashSuccess, msg)
			s.redirect(w, r, cashPath(id))
			return
		}
	}

	sol, solErr := s.client.GetSolution(ctx, id)
	if solErr != nil {
		s.pageError(w, r, solErr)
		return
	}
	title, action := "Add Collected Cash", cashPath(id)
	if cashID != "" {
		title, action = "Edit Collected Cash", action+"/"+cashID
	}
	pc := s.solutionPage(w, r, title, sol)
	pc.Form = r.PostForm
	pc.Data = cashFormData{
		Solution: sol,
		Name:     c.Name,
		Amount:   formValue(r.PostForm, "amount"),
		Action:   action,
		Editing:  cashID != "",
	}
	if errs.Any() {
		s.invalid(w, r, errs, "cash_form", pc)
		return
	}
	s.formError(w, r, err, "cash_form", pc)
}
