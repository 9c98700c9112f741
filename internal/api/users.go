package api

import (
	"context"
	"net/http"
	"strings"

	"budgetbook/internal/core"
	"budgetbook/internal/log"
)

const createdUsersPath = "/my-created-users"

// NewUser is the payload of an admin-created account; the backend mails a
// temporary password.
type NewUser struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  core.Role `json:"role"`
}

func (u NewUser) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return core.ErrEmptyName
	}
	if err := core.ValidateEmail(u.Email); err != nil {
		return err
	}
	if !u.Role.Valid() {
		return core.ErrInvalidRole
	}
	return nil
}

func (c *Client) MyCreatedUsers(ctx context.Context) ([]core.User, error) {
	var out []core.User
	if err := c.get(ctx, createdUsersPath, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateUserBySuperAdmin(ctx context.Context, u NewUser) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if err := c.send(ctx, http.MethodPost, "/create-by-super-admin", u, nil, false, createdUsersPath); err != nil {
		return err
	}
	c.events.Mutation(ctx, log.OpCreate, "", u.Email)
	return nil
}

func (c *Client) ChangeUserRole(ctx context.Context, userID string, role core.Role) error {
	if !role.Valid() {
		return core.ErrInvalidRole
	}
	body := map[string]any{"userId": userID, "newRole": role}
	if err := c.send(ctx, http.MethodPut, "/change-user-role", body, nil, false, createdUsersPath); err != nil {
		return err
	}
	c.events.Mutation(ctx, log.OpUpdate, "", userID)
	return nil
}
