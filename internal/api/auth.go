package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"budgetbook/internal/core"
	"budgetbook/internal/log"
)

// LoginResult is the backend's answer to POST /login.
type LoginResult struct {
	User         core.User `json:"user"`
	Token        string    `json:"token"`
	RefreshToken string    `json:"refreshToken"`
}

// Login exchanges credentials for a session. A 401 here means wrong
// credentials, so recovery is skipped.
func (c *Client) Login(ctx context.Context, cred core.Credentials) (LoginResult, error) {
	if err := cred.Validate(); err != nil {
		return LoginResult{}, err
	}
	var res LoginResult
	if err := c.send(ctx, http.MethodPost, "/login", cred, &res, true); err != nil {
		return LoginResult{}, err
	}
	if res.Token == "" {
		return LoginResult{}, errors.New("login response carried no token")
	}
	return res, nil
}

func (c *Client) Register(ctx context.Context, reg core.Registration) error {
	if err := reg.Validate(); err != nil {
		return err
	}
	return c.send(ctx, http.MethodPost, "/create", reg, nil, true)
}

func (c *Client) ChangePassword(ctx context.Context, email, oldPassword, newPassword, confirm string) error {
	if err := core.ValidateEmail(email); err != nil {
		return err
	}
	if oldPassword == "" {
		return core.ErrEmptyPassword
	}
	if err := core.ValidateNewPassword(newPassword, confirm); err != nil {
		return err
	}
	body := map[string]string{"email": email, "oldPassword": oldPassword, "newPassword": newPassword}
	return c.send(ctx, http.MethodPost, "/change-password", body, nil, false)
}

// SendOTP starts the forgot-password flow.
func (c *Client) SendOTP(ctx context.Context, email string) error {
	if err := core.ValidateEmail(email); err != nil {
		return err
	}
	return c.send(ctx, http.MethodPost, "/forgot-password/send-otp", map[string]string{"email": email}, nil, true)
}

func (c *Client) VerifyOTP(ctx context.Context, email, otp string) error {
	if err := core.ValidateOTP(otp); err != nil {
		return err
	}
	body := map[string]string{"email": email, "otp": otp}
	return c.send(ctx, http.MethodPost, "/forgot-password/verify-otp", body, nil, true)
}

func (c *Client) ResetPassword(ctx context.Context, email, newPassword, confirm string) error {
	if err := core.ValidateNewPassword(newPassword, confirm); err != nil {
		return err
	}
	body := map[string]string{"email": email, "newPassword": newPassword}
	return c.send(ctx, http.MethodPost, "/forgot-password/reset", body, nil, true)
}

// SessionStore is what Auth needs from the session manager.
type SessionStore interface {
	Begin(ctx context.Context, user core.User, token, refreshToken string) error
	Clear() error
}

// CookieJar is what Auth needs from the gateway's refresh cookie handling.
type CookieJar interface {
	RefreshCookie() string
	SeedRefreshCookie(value string)
	ForgetRefreshCookie()
}

// Auth ties login and logout to the session and the refresh cookie.
type Auth struct {
	client  *Client
	session SessionStore
	jar     CookieJar
}

func NewAuth(client *Client, session SessionStore, jar CookieJar) *Auth {
	return &Auth{client: client, session: session, jar: jar}
}

// Login authenticates and starts the session. When the backend sent the
// refresh token in the body rather than as a cookie, it is put in the jar.
func (a *Auth) Login(ctx context.Context, cred core.Credentials) (core.User, error) {
	res, err := a.client.Login(ctx, cred)
	if err != nil {
		return core.User{}, err
	}
	refresh := res.RefreshToken
	if jarred := a.jar.RefreshCookie(); jarred != "" {
		refresh = jarred
	} else {
		a.jar.SeedRefreshCookie(refresh)
	}
	a.client.Forget()
	if err := a.session.Begin(ctx, res.User, res.Token, refresh); err != nil {
		return core.User{}, fmt.Errorf("start session: %w", err)
	}
	a.client.logger.InfoContext(ctx, "Logged in", log.FieldOperation, log.OpLogin, "role", res.User.Role)
	return res.User, nil
}

// Logout is local: the backend keeps no logout endpoint.
func (a *Auth) Logout(ctx context.Context) error {
	a.jar.ForgetRefreshCookie()
	a.client.Forget()
	if err := a.session.Clear(); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	a.client.logger.InfoContext(ctx, "Logged out", log.FieldOperation, log.OpLogout)
	return nil
}
