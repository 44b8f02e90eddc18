package accounts

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samduuf/elibrary/app/models"
	"github.com/samduuf/elibrary/app/repository/repotest"
	"github.com/samduuf/elibrary/internal/pkg/hemis"
)

type stubBroker struct {
	domain     string
	profile    hemis.Profile
	exchangeFn func(code string) error
	profileErr error
	exchanges  int
}

func (b *stubBroker) Exchange(_ context.Context, code string) (*hemis.TokenResponse, error) {
	b.exchanges++
	if b.exchangeFn != nil {
		if err := b.exchangeFn(code); err != nil {
			return nil, err
		}
	}
	return &hemis.TokenResponse{AccessToken: "access-" + code, Domain: b.domain}, nil
}

func (b *stubBroker) FetchProfile(_ context.Context, _ string, _ string) (hemis.Profile, error) {
	if b.profileErr != nil {
		return nil, b.profileErr
	}
	return b.profile, nil
}

func newTestService(broker *stubBroker) (*Service, *repotest.Store) {
	store := repotest.NewStore()
	repos := store.Repositories()
	return NewService(repos.User, repos.Token, broker, hemis.DefaultConfig()), store
}

func TestLoginWithCode_CreatesAccountAndCredential(t *testing.T) {
	broker := &stubBroker{
		domain: "hemis.samduuf.uz",
		profile: hemis.Profile{
			"student_id_number": "S123",
			"firstname":         "Ali",
			"lastname":          "Valiyev",
			"email":             "ali@samduuf.uz",
			"picture":           "/static/ali.png",
		},
	}
	svc, store := newTestService(broker)

	res, err := svc.LoginWithCode(context.Background(), "code-1", hemis.RoleStudent)
	require.NoError(t, err)

	assert.Equal(t, "S123", res.User.Username)
	assert.Equal(t, "Ali", res.User.FirstName)
	assert.Equal(t, "Valiyev", res.User.LastName)
	assert.Equal(t, models.USER_TYPE_STUDENT, res.User.UserType)
	assert.Equal(t, models.ROLE_USER, res.User.Role)
	assert.Equal(t, "https://hemis.samduuf.uz/static/ali.png", res.User.AvatarURL)
	assert.Len(t, res.Token.Key, 40)
	assert.Equal(t, 1, store.UserCount())
	assert.False(t, res.User.CheckPassword(""), "delegated accounts have no usable password")
}

func TestLoginWithCode_RepeatLoginUpdatesWithoutClearing(t *testing.T) {
	broker := &stubBroker{
		domain: "student.samduuf.uz",
		profile: hemis.Profile{
			"student_id_number": "S123",
			"firstname":         "Ali",
			"picture":           "https://cdn.samduuf.uz/a.png",
		},
	}
	svc, store := newTestService(broker)

	first, err := svc.LoginWithCode(context.Background(), "c1", hemis.RoleStudent)
	require.NoError(t, err)

	broker.profile = hemis.Profile{
		"student_id_number": "S123",
		"firstname":         "Ali2",
	}
	second, err := svc.LoginWithCode(context.Background(), "c2", hemis.RoleStudent)
	require.NoError(t, err)

	assert.Equal(t, 1, store.UserCount())
	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Equal(t, "Ali2", second.User.FirstName)
	assert.Equal(t, "https://cdn.samduuf.uz/a.png", second.User.AvatarURL)
	assert.Equal(t, first.Token.Key, second.Token.Key)
}

func TestLoginWithCode_NoIdentifierCreatesNothing(t *testing.T) {
	broker := &stubBroker{profile: hemis.Profile{"firstname": "Ali"}}
	svc, store := newTestService(broker)

	_, err := svc.LoginWithCode(context.Background(), "c1", hemis.RoleStudent)
	assert.ErrorIs(t, err, hemis.ErrIdentityUnresolved)
	assert.Equal(t, 0, store.UserCount())
}

func TestLoginWithCode_Errors(t *testing.T) {
	t.Run("missing code", func(t *testing.T) {
		broker := &stubBroker{}
		svc, _ := newTestService(broker)
		_, err := svc.LoginWithCode(context.Background(), "", hemis.RoleStudent)
		assert.ErrorIs(t, err, hemis.ErrMissingCode)
		assert.Equal(t, 0, broker.exchanges)
	})

	t.Run("exchange rejected", func(t *testing.T) {
		broker := &stubBroker{exchangeFn: func(string) error {
			return &hemis.ExchangeError{}
		}}
		svc, store := newTestService(broker)
		_, err := svc.LoginWithCode(context.Background(), "c", hemis.RoleStudent)
		assert.ErrorIs(t, err, hemis.ErrTokenRejected)
		assert.Equal(t, 0, store.UserCount())
	})

	t.Run("profile unavailable", func(t *testing.T) {
		broker := &stubBroker{profileErr: hemis.ErrProfileUnavailable}
		svc, store := newTestService(broker)
		_, err := svc.LoginWithCode(context.Background(), "c", hemis.RoleStudent)
		assert.ErrorIs(t, err, hemis.ErrProfileUnavailable)
		assert.Equal(t, 0, store.UserCount())
	})
}

func TestLoginWithCode_EmployeeFromProfile(t *testing.T) {
	broker := &stubBroker{profile: hemis.Profile{
		"employee_id_number": "E5",
		"login":              "teacher",
		"image":              "photo.jpg",
	}}
	svc, _ := newTestService(broker)

	res, err := svc.LoginWithCode(context.Background(), "c", hemis.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, "E5", res.User.Username)
	assert.Equal(t, models.USER_TYPE_EMPLOYEE, res.User.UserType)
	assert.Equal(t, "https://hemis.samduuf.uz/photo.jpg", res.User.AvatarURL)
}

func TestLoginWithPassword(t *testing.T) {
	svc, store := newTestService(&stubBroker{})
	repos := store.Repositories()

	user, err := models.CreateUser("librarian", "lib@samduuf.uz", "s3cret-pass")
	require.NoError(t, err)
	require.NoError(t, repos.User.Create(user))

	res, err := svc.LoginWithPassword(context.Background(), "librarian", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, res.User.ID)
	assert.NotEmpty(t, res.Token.Key)

	_, err = svc.LoginWithPassword(context.Background(), "librarian", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.LoginWithPassword(context.Background(), "nobody", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	authed, err := svc.Authenticate(context.Background(), res.Token.Key)
	require.NoError(t, err)
	assert.Equal(t, "librarian", authed.Username)

	_, err = svc.Authenticate(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestChangePassword(t *testing.T) {
	svc, store := newTestService(&stubBroker{})
	repos := store.Repositories()

	user, err := models.CreateUser("reader", "", "old-password")
	require.NoError(t, err)
	require.NoError(t, repos.User.Create(user))

	err = svc.ChangePassword(context.Background(), user.ID, "bad", "new-password")
	assert.True(t, errors.Is(err, ErrWrongPassword))

	err = svc.ChangePassword(context.Background(), user.ID, "old-password", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	require.NoError(t, svc.ChangePassword(context.Background(), user.ID, "old-password", "new-password"))
	_, err = svc.LoginWithPassword(context.Background(), "reader", "new-password")
	assert.NoError(t, err)
}

func loginCount(t *testing.T, reg *prometheus.Registry, outcome string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "elibrary_hemis_logins_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "outcome" && lp.GetValue() == outcome {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestLoginWithCode_CancelledContextStopsStorage(t *testing.T) {
	broker := &stubBroker{profile: hemis.Profile{"student_id_number": "S9"}}
	svc, store := newTestService(broker)
	reg := prometheus.NewRegistry()
	svc.WithMetrics(hemis.NewMetrics(reg))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.LoginWithCode(ctx, "c", hemis.RoleStudent)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, hemis.ErrIdentityUnresolved)
	assert.Equal(t, 0, store.UserCount())

	assert.Equal(t, 1.0, loginCount(t, reg, "storage_error"))
	assert.Zero(t, loginCount(t, reg, "identity_unresolved"))
}

func TestLoginWithCode_UnresolvedIdentityMetric(t *testing.T) {
	svc, _ := newTestService(&stubBroker{profile: hemis.Profile{"firstname": "Ali"}})
	reg := prometheus.NewRegistry()
	svc.WithMetrics(hemis.NewMetrics(reg))

	_, err := svc.LoginWithCode(context.Background(), "c", hemis.RoleStudent)
	assert.ErrorIs(t, err, hemis.ErrIdentityUnresolved)
	assert.Equal(t, 1.0, loginCount(t, reg, "identity_unresolved"))
	assert.Zero(t, loginCount(t, reg, "storage_error"))
}

func TestAuthenticate_UsesRequestContext(t *testing.T) {
	svc, store := newTestService(&stubBroker{})
	repos := store.Repositories()

	user, err := models.CreateUser("reader", "", "reader-pass")
	require.NoError(t, err)
	require.NoError(t, repos.User.Create(user))
	token, err := repos.Token.GetOrCreate(user.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = svc.Authenticate(ctx, token.Key)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = svc.LoginWithPassword(ctx, "reader", "reader-pass")
	assert.ErrorIs(t, err, context.Canceled)
}
