package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memoryAuthRepo struct {
	users map[string]*User
}

func (r *memoryAuthRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	user, ok := r.users[email]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func newRepoWithUser(t *testing.T, email, password string, active bool) *memoryAuthRepo {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &memoryAuthRepo{users: map[string]*User{
		email: {ID: 1, Email: email, Name: "Pat", PasswordHash: string(hash), IsActive: active},
	}}
}

func TestAuthenticate(t *testing.T) {
	repo := newRepoWithUser(t, "pat@example.com", "s3cret-pass", true)
	svc := NewService(repo)

	user, err := svc.Authenticate(context.Background(), "pat@example.com", "s3cret-pass")
	require.NoError(t, err)
	require.Equal(t, int64(1), user.ID)

	_, err = svc.Authenticate(context.Background(), "pat@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "nobody@example.com", "s3cret-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateInactiveUser(t *testing.T) {
	repo := newRepoWithUser(t, "pat@example.com", "s3cret-pass", false)
	svc := NewService(repo)
	_, err := svc.Authenticate(context.Background(), "pat@example.com", "s3cret-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}
