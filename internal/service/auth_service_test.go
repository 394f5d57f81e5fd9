package service

import (
	"context"
	"testing"

	"github.com/yourorg/propertylease/internal/domain"
	"github.com/yourorg/propertylease/internal/security/auth"
)

func newAuth(s *memStore) *AuthService {
	return NewAuthService(s, auth.NewTokenManager("test-secret", "test"), nil)
}

func TestRegisterOwner(t *testing.T) {
	s := newMemStore()
	svc := newAuth(s)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{
		Email:     "owner@example.com",
		Password:  "password123",
		FirstName: "Grace",
		LastName:  "Hopper",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if res.Role != string(domain.RoleOwner) {
		t.Fatalf("role = %q, want owner", res.Role)
	}
	if res.Token == "" || res.TokenType != "Bearer" {
		t.Fatalf("token missing or wrong type: %+v", res)
	}

	user := s.users[res.UserID]
	if user == nil {
		t.Fatalf("user was not stored")
	}
	if user.PasswordHash == "password123" {
		t.Fatalf("password stored in the clear")
	}

	// Same email again is a conflict.
	_, err = svc.Register(ctx, RegisterInput{Email: "owner@example.com", Password: "password123"})
	if !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("duplicate email: %v, want conflict", err)
	}
}

func TestRegisterRejectsNonOwnerRoles(t *testing.T) {
	svc := newAuth(newMemStore())
	ctx := context.Background()

	for _, role := range []string{"tenant", "admin"} {
		_, err := svc.Register(ctx, RegisterInput{
			Email: role + "@example.com", Password: "password123", Role: role,
		})
		if !domain.IsKind(err, domain.KindValidation) {
			t.Fatalf("role %s: error = %v, want validation", role, err)
		}
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newAuth(newMemStore())
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Password: "password123"}); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("missing email: %v, want validation", err)
	}
	if _, err := svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "short"}); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("short password: %v, want validation", err)
	}
}

func TestLogin(t *testing.T) {
	s := newMemStore()
	svc := newAuth(s)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Email: "owner@example.com", Password: "password123"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	res, err := svc.Login(ctx, "owner@example.com", "password123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	caller, err := svc.VerifyToken(res.Token)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if caller.ID != res.UserID || caller.Role != domain.RoleOwner {
		t.Fatalf("caller = %+v, want user %s with owner role", caller, res.UserID)
	}

	// Wrong password and unknown email both come back as the same
	// credentials error.
	if _, err := svc.Login(ctx, "owner@example.com", "wrong-password"); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("wrong password: %v, want forbidden", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "password123"); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("unknown email: %v, want forbidden", err)
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	s := newMemStore()
	svc := newAuth(s)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Email: "owner@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	s.users[res.UserID].IsActive = false

	if _, err := svc.Login(ctx, "owner@example.com", "password123"); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("disabled account: %v, want forbidden", err)
	}
}

func TestChangePassword(t *testing.T) {
	s := newMemStore()
	svc := newAuth(s)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Email: "owner@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := svc.ChangePassword(ctx, res.UserID, "wrong", "newpassword1"); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("wrong current password: %v, want forbidden", err)
	}
	if err := svc.ChangePassword(ctx, res.UserID, "password123", "short"); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("short new password: %v, want validation", err)
	}
	if err := svc.ChangePassword(ctx, res.UserID, "password123", "newpassword1"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	if _, err := svc.Login(ctx, "owner@example.com", "newpassword1"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
	if _, err := svc.Login(ctx, "owner@example.com", "password123"); err == nil {
		t.Fatalf("old password still works")
	}
}
