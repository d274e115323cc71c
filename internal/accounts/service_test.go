package accounts

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"shoplink/api/internal/store"
)

type fakeUserStore struct {
	createUserFn     func(context.Context, store.User) (store.User, error)
	getUserByEmailFn func(context.Context, string) (store.User, error)
	getUserByIDFn    func(context.Context, string) (store.User, error)
}

func (f *fakeUserStore) CreateUser(ctx context.Context, user store.User) (store.User, error) {
	if f.createUserFn != nil {
		return f.createUserFn(ctx, user)
	}
	return user, nil
}

func (f *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if f.getUserByEmailFn != nil {
		return f.getUserByEmailFn(ctx, email)
	}
	return store.User{}, sql.ErrNoRows
}

func (f *fakeUserStore) GetUserByID(ctx context.Context, userID string) (store.User, error) {
	if f.getUserByIDFn != nil {
		return f.getUserByIDFn(ctx, userID)
	}
	return store.User{}, sql.ErrNoRows
}

func TestRegisterHashesPassword(t *testing.T) {
	var created store.User
	fs := &fakeUserStore{
		createUserFn: func(_ context.Context, user store.User) (store.User, error) {
			created = user
			return user, nil
		},
	}
	svc := NewService(fs)

	user, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "  Owner@Example.com ",
		Password: "correct horse",
		Name:     "Avery",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.Email != "owner@example.com" {
		t.Errorf("expected normalized email, got %q", user.Email)
	}
	if user.ID == "" {
		t.Error("expected generated id")
	}
	if created.PasswordHash == "correct horse" {
		t.Fatal("password stored in plain text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("correct horse")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc := NewService(&fakeUserStore{})
	_, err := svc.Register(context.Background(), RegisterRequest{Email: "a@b.c", Password: "short"})
	if err == nil {
		t.Fatal("expected error for short password")
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	fs := &fakeUserStore{
		getUserByEmailFn: func(context.Context, string) (store.User, error) {
			return store.User{ID: "user-1"}, nil
		},
	}
	svc := NewService(fs)
	_, err := svc.Register(context.Background(), RegisterRequest{Email: "a@b.c", Password: "long enough"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("open sesame"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	fs := &fakeUserStore{
		getUserByEmailFn: func(_ context.Context, email string) (store.User, error) {
			if email != "owner@example.com" {
				return store.User{}, sql.ErrNoRows
			}
			return store.User{ID: "user-1", Email: email, PasswordHash: string(hash)}, nil
		},
	}
	svc := NewService(fs)

	user, err := svc.Authenticate(context.Background(), "Owner@Example.com", "open sesame")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("expected user-1, got %q", user.ID)
	}

	if _, err := svc.Authenticate(context.Background(), "owner@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "nobody@example.com", "open sesame"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}
