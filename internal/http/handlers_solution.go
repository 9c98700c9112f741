package http

import (
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetbook/internal/core"
	"budgetbook/internal/log"
)

const recentExportsOnHome = 5

type homeData struct {
	Solutions     []core.Solution
	Exports       []core.ExportJob
	ExportEnabled bool
}

// handleHome loads the solution cards and the export history side by side.
// A broken export history only costs its panel.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	data := homeData{ExportEnabled: s.exportEnabled()}
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		sols, err := s.client.ListSolutions(ctx)
		data.Solutions = sols
		return err
	})
	if s.exports != nil {
		g.Go(func() error {
			jobs, err := s.exports.Recent(ctx, recentExportsOnHome)
			if err != nil {
				log.FromContext(ctx).WarnContext(ctx, "Export history unavailable", log.FieldError, err)
				return nil
			}
			data.Exports = jobs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.pageError(w, r, err)
		return
	}
	pc := s.page(w, r, "Home")
	pc.Data = data
	s.render(w, r, http.StatusOK, "home", pc)
}

type solutionsData struct {
	Solutions []core.Solution
	UserID    string
}

func (s *Server) handleSolutions(w http.ResponseWriter, r *http.Request) {
	sols, err := s.client.ListSolutions(r.Context())
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	pc := s.page(w, r, "Solutions")
	pc.Data = solutionsData{Solutions: sols, UserID: pc.Session.User.ID}
	s.render(w, r, http.StatusOK, "solutions", pc)
}

type solutionFormData struct {
	Solution core.Solution
	Action   string
	Editing  bool
}

func (s *Server) handleSolutionNew(w http.ResponseWriter, r *http.Request) {
	pc := s.page(w, r, "New Solution")
	pc.Data = solutionFormData{Solution: core.Solution{Year: time.Now().Year()}, Action: "/solution"}
	s.render(w, r, http.StatusOK, "solution_form", pc)
}

func (s *Server) handleSolutionCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	sol, errs := parseSolutionForm(r.PostForm)
	pc := s.page(w, r, "New Solution")
	pc.Form = r.PostForm
	pc.Data = solutionFormData{Solution: sol, Action: "/solution"}
	if errs.Any() {
		s.invalid(w, r, errs, "solution_form", pc)
		return
	}
	created, err := s.client.CreateSolution(r.Context(), sol)
	if err != nil {
		s.formError(w, r, err, "solution_form", pc)
		return
	}
	setFlash(w, flashSuccess, "Solution "+created.Name+" created.")
	if created.ID == "" {
		s.redirect(w, r, "/solution")
		return
	}
	s.redirect(w, r, solutionPath(created.ID)+"/dashboard")
}

func (s *Server) handleSolutionRoot(w http.ResponseWriter, r *http.Request) {
	s.redirect(w, r, solutionPath(r.PathValue("id"))+"/dashboard")
}

func (s *Server) handleSolutionEdit(w http.ResponseWriter, r *http.Request) {
	sol, err := s.client.GetSolution(r.Context(), r.PathValue("id"))
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	pc := s.solutionPage(w, r, "Edit Solution", sol)
	pc.Data = solutionFormData{Solution: sol, Action: solutionPath(sol.ID), Editing: true}
	s.render(w, r, http.StatusOK, "solution_form", pc)
}

func (s *Server) handleSolutionUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	id := r.PathValue("id")
	sol, errs := parseSolutionForm(r.PostForm)
	sol.ID = id
	pc := s.solutionPage(w, r, "Edit Solution", sol)
	pc.Form = r.PostForm
	pc.Data = solutionFormData{Solution: sol, Action: solutionPath(id), Editing: true}
	if errs.Any() {
		s.invalid(w, r, errs, "solution_form", pc)
		return
	}
	if _, err := s.client.UpdateSolution(r.Context(), sol); err != nil {
		s.formError(w, r, err, "solution_form", pc)
		return
	}
	setFlash(w, flashSuccess, "Solution updated.")
	s.redirect(w, r, "/solution")
}

func (s *Server) handleSolutionDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.client.DeleteSolution(r.Context(), r.PathValue("id")); err != nil {
		s.actionError(w, r, err, "/solution")
		return
	}
	setFlash(w, flashSuccess, "Solution deleted.")
	s.redirect(w, r, "/solution")
}

type shareData struct {
	Solution core.Solution
	Users    []core.User
	Roles    []core.ShareRole
}

// loadShare fetches the solution and the users it can be shared with.
func (s *Server) loadShare(r *http.Request, id string) (shareData, error) {
	data := shareData{Roles: []core.ShareRole{core.ShareEditor, core.ShareViewer}}
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		sol, err := s.client.GetSolution(ctx, id)
		data.Solution = sol
		return err
	})
	g.Go(func() error {
		users, err := s.client.AvailableToShare(ctx, id)
		data.Users = users
		return err
	})
	return data, g.Wait()
}

func (s *Server) handleSharePage(w http.ResponseWriter, r *http.Request) {
	data, err := s.loadShare(r, r.PathValue("id"))
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	pc := s.solutionPage(w, r, "Share Solution", data.Solution)
	pc.Data = data
	s.render(w, r, http.StatusOK, "share", pc)
}

// handleShare merges the ticked users into the existing shares; owners
// stay first and cannot be re-roled.
func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	id := r.PathValue("id")
	back := solutionPath(id) + "/share"
	selected, err := parseShares(r.PostForm)
	if err != nil {
		setFlash(w, flashError, err.Error())
		s.redirect(w, r, back)
		return
	}
	sol, err := s.client.GetSolution(r.Context(), id)
	if err != nil {
		s.actionError(w, r, err, back)
		return
	}
	merged := core.MergeShares(sol.SharedWith, selected)
	if err := s.client.ShareSolution(r.Context(), id, merged, r.PostForm.Get("notify") == "on"); err != nil {
		s.actionError(w, r, err, back)
		return
	}
	setFlash(w, flashSuccess, "Sharing saved.")
	s.redirect(w, r, "/solution")
}

type dashboardData struct {
	Solution  core.Solution
	Dashboard core.Dashboard
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var data dashboardData
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		sol, err := s.client.GetSolution(ctx, id)
		data.Solution = sol
		return err
	})
	g.Go(func() error {
		d, err := s.client.Dashboard(ctx, id)
		data.Dashboard = d
		return err
	})
	if err := g.Wait(); err != nil {
		s.pageError(w, r, err)
		return
	}
	pc := s.solutionPage(w, r, data.Solution.Name+" Dashboard", data.Solution)
	pc.Data = data
	s.render(w, r, http.StatusOK, "dashboard", pc)
}
