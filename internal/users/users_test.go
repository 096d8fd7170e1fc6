package users

import (
	"context"
	"errors"
	"testing"
)

func newTestService() *Service {
	return NewService(NewMemoryStore(), "test-jwt-secret")
}

func register(t *testing.T, svc *Service, email, role string) *User {
	t.Helper()
	user, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "Asha",
		LastName:  "Rao",
		Email:     email,
		Password:  "correct-horse",
		Role:      role,
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return user
}

func TestRegister(t *testing.T) {
	svc := newTestService()
	user := register(t, svc, "Asha@Example.com", RoleAuthor)

	if user.ID == "" {
		t.Error("user ID not assigned")
	}
	if user.Email != "asha@example.com" {
		t.Errorf("email = %q, want lowercased", user.Email)
	}
	if user.Role != RoleAuthor {
		t.Errorf("role = %q, want author", user.Role)
	}
	if user.PasswordHash == "" || user.PasswordHash == "correct-horse" {
		t.Error("password not hashed")
	}
	if user.Name() != "Asha Rao" {
		t.Errorf("Name() = %q", user.Name())
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := newTestService()
	register(t, svc, "asha@example.com", RoleReader)

	_, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "Other", LastName: "Person",
		Email: "ASHA@example.com", Password: "something-else",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("err = %v, want ErrEmailTaken", err)
	}
}

func TestRegister_AdminNotSelfAssignable(t *testing.T) {
	svc := newTestService()
	user := register(t, svc, "asha@example.com", RoleAdmin)

	if user.Role != RoleReader {
		t.Errorf("role = %q, want reader (admin must not be self-assignable)", user.Role)
	}
}

func TestLogin(t *testing.T) {
	svc := newTestService()
	register(t, svc, "asha@example.com", RoleReader)

	token, user, err := svc.Login(context.Background(), LoginRequest{
		Email: "asha@example.com", Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != RoleReader {
		t.Errorf("claims = %+v", claims)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc := newTestService()
	register(t, svc, "asha@example.com", RoleReader)

	_, _, err := svc.Login(context.Background(), LoginRequest{
		Email: "asha@example.com", Password: "wrong",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc := newTestService()

	_, _, err := svc.Login(context.Background(), LoginRequest{
		Email: "nobody@example.com", Password: "whatever",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	svc := newTestService()
	user := register(t, svc, "asha@example.com", RoleReader)

	token, err := svc.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	other := NewService(NewMemoryStore(), "different-secret")
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("token validated under a different secret")
	}
}

func TestAddAuthorSales(t *testing.T) {
	svc := newTestService()
	author := register(t, svc, "author@example.com", RoleAuthor)

	ctx := context.Background()
	if err := svc.AddAuthorSales(ctx, author.ID, 2, 2998); err != nil {
		t.Fatalf("AddAuthorSales failed: %v", err)
	}
	if err := svc.AddAuthorSales(ctx, author.ID, 1, 1499); err != nil {
		t.Fatalf("AddAuthorSales failed: %v", err)
	}

	got, _ := svc.Get(ctx, author.ID)
	if got.TotalSales != 3 || got.TotalRevenue != 4497 {
		t.Errorf("totals = %d/%v, want 3/4497", got.TotalSales, got.TotalRevenue)
	}

	// Books without a linked author are a no-op, not an error.
	if err := svc.AddAuthorSales(ctx, "", 1, 100); err != nil {
		t.Errorf("empty author id returned error: %v", err)
	}
}
