package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusdesk/api/internal/models"
)

func TestBootstrapSeedsCanonicalAccounts(t *testing.T) {
	f := newFixture(t)
	f.cfg.Bootstrap.TPOPassword = "tpo-initial-pass"
	f.cfg.Bootstrap.AdminPassword = "admin-initial-pass"

	require.NoError(t, f.svc.Bootstrap(context.Background()))

	tpo, err := f.svc.VerifyCredentials(context.Background(), "tpo", "tpo-initial-pass")
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleTPO, tpo.Role)

	admin, err := f.svc.VerifyCredentials(context.Background(), "admin", "admin-initial-pass")
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleAdmin, admin.Role)
}

func TestBootstrapIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.cfg.Bootstrap.TPOPassword = "first-tpo-pass-1"
	f.cfg.Bootstrap.AdminPassword = "first-admin-pass"

	require.NoError(t, f.svc.Bootstrap(context.Background()))

	// A changed configured password must not touch the existing account.
	f.cfg.Bootstrap.TPOPassword = "second-tpo-pass"
	require.NoError(t, f.svc.Bootstrap(context.Background()))

	users, err := f.svc.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = f.svc.VerifyCredentials(context.Background(), "tpo", "first-tpo-pass-1")
	assert.NoError(t, err)
	_, err = f.svc.VerifyCredentials(context.Background(), "tpo", "second-tpo-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestBootstrapDisabled(t *testing.T) {
	f := newFixture(t)
	f.cfg.Bootstrap.Enabled = false

	require.NoError(t, f.svc.Bootstrap(context.Background()))

	users, err := f.svc.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestBootstrapGeneratesRandomPasswordWhenUnset(t *testing.T) {
	f := newFixture(t)
	// No passwords configured: accounts still appear, but no well-known
	// default credential must work.
	require.NoError(t, f.svc.Bootstrap(context.Background()))

	users, err := f.svc.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2)

	for _, guess := range []string{"", "admin", "password", "changeme"} {
		_, err := f.svc.VerifyCredentials(context.Background(), "admin", guess)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
}
