package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/josh-kwaku/toko-backend/internal/domain"
)

type fakeUsers struct {
	byEmail map[string]*domain.User
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) Create(_ context.Context, u *domain.User) error {
	if f.byEmail == nil {
		f.byEmail = make(map[string]*domain.User)
	}
	f.byEmail[u.Email] = u
	return nil
}

func newTestUserService() (*UserService, *fakeUsers) {
	users := &fakeUsers{}
	svc := NewUserService(users)
	svc.cost = bcrypt.MinCost
	return svc, users
}

func TestUserService_CreateAndAuthenticate(t *testing.T) {
	svc, users := newTestUserService()
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, CreateUserRequest{
		Email:    "  Kasir@Toko.test ",
		Name:     "Kasir",
		Password: "rahasia",
		Role:     domain.RoleCashier,
	})
	require.NoError(t, err)
	assert.Equal(t, "kasir@toko.test", created.Email)
	assert.NotEqual(t, "rahasia", users.byEmail["kasir@toko.test"].PasswordHash)

	got, err := svc.Authenticate(ctx, "KASIR@toko.test", "rahasia")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, domain.RoleCashier, got.Role)
}

func TestUserService_AuthenticateRejects(t *testing.T) {
	svc, _ := newTestUserService()
	ctx := context.Background()
	_, err := svc.CreateUser(ctx, CreateUserRequest{
		Email: "admin@toko.test", Name: "Admin", Password: "benar", Role: domain.RoleAdmin,
	})
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "admin@toko.test", "salah"},
		{"unknown email", "nobody@toko.test", "benar"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Authenticate(ctx, tt.email, tt.password)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestUserService_CreateUserValidation(t *testing.T) {
	svc, _ := newTestUserService()

	tests := []struct {
		name string
		req  CreateUserRequest
	}{
		{"invalid role", CreateUserRequest{Email: "a@b.c", Password: "x", Role: "OWNER"}},
		{"missing email", CreateUserRequest{Password: "x", Role: domain.RoleAdmin}},
		{"missing password", CreateUserRequest{Email: "a@b.c", Role: domain.RoleAdmin}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateUser(context.Background(), tt.req)
			assert.ErrorIs(t, err, domain.ErrInvalidRequest)
		})
	}
}
