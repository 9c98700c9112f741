package api

import (
	"context"
	"errors"
	"testing"

	"budgetbook/internal/core"
)

type fakeSession struct {
	user           core.User
	token, refresh string
	cleared        bool
	err            error
}

func (s *fakeSession) Begin(_ context.Context, u core.User, token, refresh string) error {
	s.user, s.token, s.refresh = u, token, refresh
	return s.err
}

func (s *fakeSession) Clear() error {
	s.cleared = true
	return s.err
}

type fakeJar struct {
	value     string
	forgotten bool
}

func (j *fakeJar) RefreshCookie() string      { return j.value }
func (j *fakeJar) SeedRefreshCookie(v string) { j.value = v }
func (j *fakeJar) ForgetRefreshCookie()       { j.value, j.forgotten = "", true }

func TestAuthLogin(t *testing.T) {
	tests := []struct {
		name        string
		jar         string
		wantRefresh string
	}{
		{"body refresh token seeds the jar", "", "body-rt"},
		{"cookie from backend wins", "cookie-rt", "cookie-rt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFake()
			f.responses["POST /login"] = `{"user":{"_id":"u1","name":"Asha","role":"user"},"token":"tok","refreshToken":"body-rt"}`
			c := newClient(f)
			c.cache.Set("/solution", []byte("[]"))
			sess, jar := &fakeSession{}, &fakeJar{value: tt.jar}

			user, err := NewAuth(c, sess, jar).Login(context.Background(), core.Credentials{Email: "a@b.co", Password: "pw"})
			if err != nil {
				t.Fatal(err)
			}
			if user.Name != "Asha" || sess.token != "tok" || sess.refresh != tt.wantRefresh || jar.value != tt.wantRefresh {
				t.Fatalf("user=%+v session=%+v jar=%q", user, sess, jar.value)
			}
			if c.cache.Size() != 0 {
				t.Fatal("previous user's cache survived login")
			}
		})
	}
}

func TestAuthLogout(t *testing.T) {
	f := newFake()
	c := newClient(f)
	c.cache.Set("/solution", []byte("[]"))
	sess, jar := &fakeSession{}, &fakeJar{value: "rt"}

	if err := NewAuth(c, sess, jar).Logout(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !sess.cleared || !jar.forgotten || c.cache.Size() != 0 {
		t.Fatalf("logout incomplete: cleared=%v forgotten=%v cache=%d", sess.cleared, jar.forgotten, c.cache.Size())
	}
	if len(f.calls) != 0 {
		t.Fatal("logout should not call the backend")
	}

	boom := errors.New("disk full")
	if err := NewAuth(c, &fakeSession{err: boom}, jar).Logout(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
