package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"budgetbook/internal/core"
	"budgetbook/internal/log"
	"budgetbook/internal/session"
	"budgetbook/internal/table"
)

// tablePageData backs the records page shared by expenses and collected
// cash.
type tablePageData struct {
	Solution   core.Solution
	Table      template.HTML
	Total      decimal.Decimal
	TotalLabel string
	NewHref    string
	NewLabel   string
	ExportHref string
	CanEdit    bool
}

// withSolution fetches solution id while load runs next to it.
func (s *Server) withSolution(r *http.Request, id string, load func(ctx context.Context) error) (core.Solution, error) {
	var sol core.Solution
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		sol, err = s.client.GetSolution(ctx, id)
		return err
	})
	if load != nil {
		g.Go(func() error { return load(ctx) })
	}
	return sol, g.Wait()
}

// canEdit decides whether edit controls are shown. Without ownership data
// the backend is left to enforce access.
func canEdit(sol core.Solution, snap session.Snapshot) bool {
	if sol.Owner == nil && len(sol.SharedWith) == 0 {
		return true
	}
	return snap.HasRole(core.RoleSuperAdmin) || sol.Editable(snap.User.ID)
}

// renderTable builds the view for the request's state and viewport and
// renders it on the records page.
func (s *Server) renderTable(w http.ResponseWriter, r *http.Request, t *table.Table, sol core.Solution, data tablePageData, totalField string) {
	state := table.ParseState(r.URL.Query())
	view := t.Build(state, viewportWidth(r))
	html, err := table.HTML(view)
	if err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentTable).ErrorContext(r.Context(), "Table render failed",
			log.FieldError, err)
		s.renderError(w, r, http.StatusInternalServerError, "The table could not be shown.")
		return
	}
	data.Solution = sol
	data.Table = html
	if totalField != "" {
		data.Total = sumField(t.Refine(state), totalField)
	}
	if s.exportEnabled() {
		data.ExportHref = t.Config().BasePath + "/export"
		if q := state.Query(); q != "" {
			data.ExportHref += "?" + q
		}
	}
	pc := s.solutionPage(w, r, t.Config().Name, sol)
	pc.Data = data
	s.render(w, r, http.StatusOK, "records", pc)
}

func sumField(rows []table.Record, field string) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		if d, ok := row[field].(decimal.Decimal); ok {
			total = total.Add(d)
		}
	}
	return total
}

// runAction dispatches a row action posted to .../actions/{action}/{row}.
func (s *Server) runAction(w http.ResponseWriter, r *http.Request, t *table.Table, out *actionOutcome) {
	back := backTo(r, t.Config().BasePath)
	action, row := r.PathValue("action"), r.PathValue("row")
	err := t.Activate(r.Context(), action, row)
	switch {
	case errors.Is(err, table.ErrUnknownAction), errors.Is(err, table.ErrRowNotFound):
		s.renderError(w, r, http.StatusNotFound, "That row or action does not exist.")
		return
	case errors.Is(err, table.ErrActionHidden):
		s.renderError(w, r, http.StatusForbidden, "That action is not available for this row.")
		return
	case err != nil:
		s.actionError(w, r, err, back)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Table action",
		log.FieldAction, action, log.FieldRecordID, row)
	if out.flash != "" {
		setFlash(w, flashSuccess, out.flash)
	}
	if out.redirect != "" {
		back = out.redirect
	}
	s.redirect(w, r, back)
}

// exportView queues the refined rows of t, every page of them, for
// export under title.
func (s *Server) exportView(w http.ResponseWriter, r *http.Request, t *table.Table, title string) {
	state := table.ParseState(r.URL.Query())
	back := t.Config().BasePath
	if q := state.Query(); q != "" {
		back += "?" + q
	}
	if !s.exportEnabled() {
		setFlash(w, flashError, "Export is not configured.")
		s.redirect(w, r, back)
		return
	}
	header, rows := t.Export(state)
	job, err := s.exports.Export(r.Context(), title, header, rows)
	if err != nil {
		s.actionError(w, r, err, back)
		return
	}
	setFlash(w, flashSuccess, fmt.Sprintf("Export queued: %d rows (job %s).", job.Rows, job.ID))
	s.redirect(w, r, back)
}
