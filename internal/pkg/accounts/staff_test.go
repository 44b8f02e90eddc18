package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samduuf/elibrary/app/models"
)

func TestEnsureStaffUser(t *testing.T) {
	svc, store := newTestService(&stubBroker{})

	user, created, err := svc.EnsureStaffUser(StaffUser{
		Username: " librarian ",
		Email:    "lib@samduuf.uz",
		Password: "kitoblar2024",
		Admin:    true,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "librarian", user.Username)
	assert.Equal(t, models.ROLE_ADMIN, user.Role)
	assert.Equal(t, models.USER_TYPE_EMPLOYEE, user.UserType)

	_, err = svc.LoginWithPassword(context.Background(), "librarian", "kitoblar2024")
	require.NoError(t, err)

	user, created, err = svc.EnsureStaffUser(StaffUser{Username: "librarian", Password: "yangiparol1"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, models.ROLE_USER, user.Role)
	assert.Equal(t, "lib@samduuf.uz", user.Email)
	assert.Equal(t, 1, store.UserCount())

	_, err = svc.LoginWithPassword(context.Background(), "librarian", "kitoblar2024")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.LoginWithPassword(context.Background(), "librarian", "yangiparol1")
	assert.NoError(t, err)
}

func TestEnsureStaffUser_WeakPassword(t *testing.T) {
	svc, store := newTestService(&stubBroker{})

	_, _, err := svc.EnsureStaffUser(StaffUser{Username: "x", Password: "short"})
	assert.ErrorIs(t, err, ErrWeakPassword)
	assert.Equal(t, 0, store.UserCount())
}
