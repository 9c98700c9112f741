package http

import (
	"net/http"
	"slices"

	"budgetbook/internal/api"
	"budgetbook/internal/core"
)

type createUserData struct {
	Users     []core.User
	Roles     []core.Role
	CanReRole bool
	NewUser   api.NewUser
}

// assignableRoles lists the roles the current user may hand out; only a
// super admin creates admins and super admins.
func assignableRoles(role core.Role) []core.Role {
	if role == core.RoleSuperAdmin {
		return core.Roles()
	}
	return []core.Role{core.RoleUser}
}

func (s *Server) createUserPage(w http.ResponseWriter, r *http.Request) (*PageContext, bool) {
	users, err := s.client.MyCreatedUsers(r.Context())
	if err != nil {
		s.pageError(w, r, err)
		return nil, false
	}
	pc := s.page(w, r, "Create User")
	role := pc.Session.User.Role
	pc.Data = createUserData{
		Users:     users,
		Roles:     assignableRoles(role),
		CanReRole: role == core.RoleSuperAdmin,
		NewUser:   api.NewUser{Role: core.RoleUser},
	}
	return pc, true
}

func (s *Server) handleCreateUserPage(w http.ResponseWriter, r *http.Request) {
	if pc, ok := s.createUserPage(w, r); ok {
		s.render(w, r, http.StatusOK, "create_user", pc)
	}
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	u := api.NewUser{
		Name:  formValue(r.PostForm, "name"),
		Email: formValue(r.PostForm, "email"),
		Role:  core.Role(formValue(r.PostForm, "role")),
	}
	allowed := assignableRoles(s.session.Snapshot().User.Role)
	err := u.Validate()
	if err == nil && !slices.Contains(allowed, u.Role) {
		err = core.ErrInvalidRole
	}
	if err == nil {
		err = s.client.CreateUserBySuperAdmin(r.Context(), u)
	}
	if err == nil {
		setFlash(w, flashSuccess, "User "+u.Email+" created. A temporary password was sent by email.")
		s.redirect(w, r, "/create-user")
		return
	}

	pc, ok := s.createUserPage(w, r)
	if !ok {
		return
	}
	data := pc.Data.(createUserData)
	data.NewUser = u
	pc.Data = data
	pc.Form = r.PostForm
	s.formError(w, r, err, "create_user", pc)
}

func (s *Server) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	role := core.Role(formValue(r.PostForm, "role"))
	if err := s.client.ChangeUserRole(r.Context(), r.PathValue("userID"), role); err != nil {
		s.actionError(w, r, err, "/create-user")
		return
	}
	setFlash(w, flashSuccess, "Role updated.")
	s.redirect(w, r, "/create-user")
}
