package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/samduuf/elibrary/app/models"
	"github.com/samduuf/elibrary/app/repository"
	"github.com/samduuf/elibrary/internal/pkg/hemis"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrWrongPassword      = errors.New("old password is incorrect")
	ErrWeakPassword       = errors.New("new password must be at least 8 characters")
	ErrInvalidToken       = errors.New("invalid token")
)

const minPasswordLength = 8

// Broker is the part of the identity provider client used for login.
type Broker interface {
	Exchange(ctx context.Context, code string) (*hemis.TokenResponse, error)
	FetchProfile(ctx context.Context, accessToken, domain string) (hemis.Profile, error)
}

// IdentityResolver turns a profile into the fields stored on the account.
type IdentityResolver interface {
	ResolveIdentity(p hemis.Profile, role hemis.Role, domain string) (*hemis.Identity, error)
}

// Result is an authenticated account and its session credential.
type Result struct {
	User  *models.User
	Token *models.AuthToken
}

// Service provisions accounts and issues session credentials.
type Service struct {
	users    repository.UserRepository
	tokens   repository.TokenRepository
	broker   Broker
	resolver IdentityResolver
	metrics  *hemis.Metrics
	now      func() time.Time
}

func NewService(users repository.UserRepository, tokens repository.TokenRepository, broker Broker, resolver IdentityResolver) *Service {
	return &Service{
		users:    users,
		tokens:   tokens,
		broker:   broker,
		resolver: resolver,
		now:      time.Now,
	}
}

// WithMetrics records login outcomes on m.
func (s *Service) WithMetrics(m *hemis.Metrics) *Service {
	s.metrics = m
	return s
}

// LoginWithCode runs the delegated login: exchange, profile, provision.
func (s *Service) LoginWithCode(ctx context.Context, code string, hint hemis.Role) (*Result, error) {
	if strings.TrimSpace(code) == "" {
		s.metrics.RecordLogin("missing_code")
		return nil, hemis.ErrMissingCode
	}

	tok, err := s.broker.Exchange(ctx, code)
	if err != nil {
		s.metrics.RecordLogin("token_rejected")
		return nil, err
	}

	profile, err := s.broker.FetchProfile(ctx, tok.AccessToken, tok.Domain)
	if err != nil {
		s.metrics.RecordLogin("profile_unavailable")
		return nil, err
	}

	res, err := s.Provision(ctx, profile, hemis.InferRole(profile, hint), tok.Domain)
	if err != nil {
		if errors.Is(err, hemis.ErrIdentityUnresolved) {
			s.metrics.RecordLogin("identity_unresolved")
		} else {
			s.metrics.RecordLogin("storage_error")
		}
		return nil, err
	}
	s.metrics.RecordLogin("ok")
	return res, nil
}

// Provision creates or refreshes the account for profile and returns it with
// its credential. Blank profile values never overwrite stored ones.
func (s *Service) Provision(ctx context.Context, profile hemis.Profile, role hemis.Role, domain string) (*Result, error) {
	identity, err := s.resolver.ResolveIdentity(profile, role, domain)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username: identity.Username,
		Role:     models.ROLE_USER,
		UserType: string(identity.Role),
	}
	updates := map[string]interface{}{
		"user_type": string(identity.Role),
	}
	setIfPresent(updates, "first_name", identity.FirstName, &user.FirstName)
	setIfPresent(updates, "last_name", identity.LastName, &user.LastName)
	setIfPresent(updates, "email", identity.Email, &user.Email)
	setIfPresent(updates, "avatar_url", identity.AvatarURL, &user.AvatarURL)
	setIfPresent(updates, "hemis_id", identity.ProviderID, &user.HemisID)

	users := s.users.WithContext(ctx)
	if _, err := users.GetByUsername(user.Username); errors.Is(err, gorm.ErrRecordNotFound) {
		pw, err := models.UnusablePassword()
		if err != nil {
			return nil, err
		}
		user.Password = pw
	} else if err != nil {
		return nil, fmt.Errorf("lookup account %q: %w", user.Username, err)
	}

	stored, err := users.UpsertByUsername(user, updates)
	if err != nil {
		return nil, fmt.Errorf("save account %q: %w", user.Username, err)
	}

	return s.issue(ctx, stored)
}

// LoginWithPassword authenticates a local account.
func (s *Service) LoginWithPassword(ctx context.Context, username, password string) (*Result, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.WithContext(ctx).GetByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	return s.issue(ctx, user)
}

// ChangePassword replaces the password after checking the old one.
func (s *Service) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	users := s.users.WithContext(ctx)
	user, err := users.GetByID(userID)
	if err != nil {
		return err
	}
	if !user.CheckPassword(oldPassword) {
		return ErrWrongPassword
	}
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}
	if err := user.SetPassword(newPassword); err != nil {
		return err
	}
	return users.Update(user)
}

// Authenticate resolves a credential key to its user.
func (s *Service) Authenticate(ctx context.Context, key string) (*models.User, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrInvalidToken
	}
	user, err := s.tokens.WithContext(ctx).GetUserByKey(key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) issue(ctx context.Context, user *models.User) (*Result, error) {
	if err := s.users.WithContext(ctx).UpdateLastLogin(user.ID, s.now()); err != nil {
		log.Warnf("[Accounts] could not stamp last login for user %d: %v", user.ID, err)
	}

	token, err := s.tokens.WithContext(ctx).GetOrCreate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue credential for user %d: %w", user.ID, err)
	}
	return &Result{User: user, Token: token}, nil
}

func setIfPresent(updates map[string]interface{}, column, value string, field *string) {
	if value == "" {
		return
	}
	updates[column] = value
	*field = value
}
