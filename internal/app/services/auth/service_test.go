package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quickswap/internal/app/services/auth"
	"quickswap/internal/app/syncer"
	domainauth "quickswap/internal/domain/auth"
	domainuser "quickswap/internal/domain/user"
	"quickswap/internal/infra/security"
	"quickswap/internal/infra/store"
	"quickswap/internal/infra/store/memory"
)

func newService(t *testing.T) (*auth.Service, syncer.Store) {
	t.Helper()
	st := memory.NewStore()
	return &auth.Service{
		Users:      store.Users{Store: st},
		Sessions:   memory.NewSessionStore(),
		Passwords:  security.BcryptHasher{},
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: time.Hour,
	}, st
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, auth.RegisterParams{
		Email:    "Ada@Example.com",
		Name:     "Ada",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.Token == "" {
		t.Fatal("expected session token")
	}
	if reg.User.Email != "ada@example.com" {
		t.Errorf("email not normalized: %q", reg.User.Email)
	}
	if reg.User.Role != domainuser.RoleUser {
		t.Errorf("unexpected role %q", reg.User.Role)
	}

	login, err := svc.Login(ctx, auth.LoginParams{Email: "ada@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.User.ID != reg.User.ID {
		t.Error("login resolved a different user")
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	params := auth.RegisterParams{Email: "a@b.co", Name: "A", Password: "longenough"}
	if _, err := svc.Register(ctx, params); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, params); !errors.Is(err, auth.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Register(context.Background(), auth.RegisterParams{Email: "a@b.co", Name: "A", Password: "short"})
	if !errors.Is(err, auth.ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, auth.RegisterParams{Email: "a@b.co", Name: "A", Password: "longenough"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Login(ctx, auth.LoginParams{Email: "a@b.co", Password: "nope nope"}); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestResolveTokenAndLogout(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	reg, err := svc.Register(ctx, auth.RegisterParams{Email: "a@b.co", Name: "A", Password: "longenough"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	res, err := svc.ResolveToken(ctx, reg.Token)
	if err != nil {
		t.Fatalf("ResolveToken: %v", err)
	}
	if res.User.ID != reg.User.ID {
		t.Error("token resolved to wrong user")
	}

	if err := svc.Logout(ctx, reg.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.ResolveToken(ctx, reg.Token); !errors.Is(err, domainauth.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after logout, got %v", err)
	}
}

func TestSessionBindingAnnouncesChanges(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	binding := auth.NewSessionBinding(svc)

	var seen []syncer.Session
	unsub := binding.OnSessionChange(func(s syncer.Session) {
		seen = append(seen, s)
	})
	defer unsub()

	reg, err := binding.Register(ctx, auth.RegisterParams{Email: "a@b.co", Name: "A", Password: "longenough"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	current, _ := binding.Session(ctx)
	if current.UserID != string(reg.User.ID) || current.Token != reg.Token {
		t.Errorf("binding holds wrong session: %+v", current)
	}

	if err := binding.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	current, _ = binding.Session(ctx)
	if current != (syncer.Session{}) {
		t.Errorf("expected zero session after sign out, got %+v", current)
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 session change callbacks, got %d", len(seen))
	}
	if seen[1] != (syncer.Session{}) {
		t.Error("final callback was not the signed out session")
	}

	// the server-side session must be gone too
	if _, err := svc.ResolveToken(ctx, reg.Token); !errors.Is(err, domainauth.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
