package accounts

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/samduuf/elibrary/app/models"
)

// StaffUser describes a local account created from the command line.
type StaffUser struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Admin     bool
}

// EnsureStaffUser creates the local employee account or, if the username
// exists, resets its password and role. created reports which happened.
func (s *Service) EnsureStaffUser(in StaffUser) (user *models.User, created bool, err error) {
	in.Username = strings.TrimSpace(in.Username)
	if len(in.Password) < minPasswordLength {
		return nil, false, ErrWeakPassword
	}

	role := models.ROLE_USER
	if in.Admin {
		role = models.ROLE_ADMIN
	}

	existing, err := s.users.GetByUsername(in.Username)
	switch {
	case err == nil:
		if err := existing.SetPassword(in.Password); err != nil {
			return nil, false, err
		}
		existing.Role = role
		existing.UserType = models.USER_TYPE_EMPLOYEE
		if in.Email != "" {
			existing.Email = in.Email
		}
		if in.FirstName != "" {
			existing.FirstName = in.FirstName
		}
		if in.LastName != "" {
			existing.LastName = in.LastName
		}
		if err := existing.Validate(); err != nil {
			return nil, false, err
		}
		if err := s.users.Update(existing); err != nil {
			return nil, false, fmt.Errorf("update %q: %w", in.Username, err)
		}
		return existing, false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, false, err
	}

	user, err = models.CreateUser(in.Username, in.Email, in.Password)
	if err != nil {
		return nil, false, err
	}
	user.Role = role
	user.UserType = models.USER_TYPE_EMPLOYEE
	user.FirstName = in.FirstName
	user.LastName = in.LastName
	if err := s.users.Create(user); err != nil {
		return nil, false, fmt.Errorf("create %q: %w", in.Username, err)
	}
	return user, true, nil
}
