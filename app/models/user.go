package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_USER  = "user"
	ROLE_ADMIN = "admin"

	USER_TYPE_STUDENT  = "student"
	USER_TYPE_EMPLOYEE = "employee"
)

// User is the local account. Username is the provider-derived identifier for
// delegated logins and the login name for local accounts.
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Username    string         `gorm:"uniqueIndex;type:varchar(150)" json:"username" validate:"required,min=1,max=150"`
	FirstName   string         `gorm:"type:varchar(150);default:''" json:"first_name" validate:"max=150"`
	LastName    string         `gorm:"type:varchar(150);default:''" json:"last_name" validate:"max=150"`
	Email       string         `gorm:"type:varchar(200);default:''" json:"email" validate:"omitempty,email,max=200"`
	Password    string         `gorm:"type:text" json:"-"`
	Role        string         `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	UserType    string         `gorm:"type:varchar(50);default:'student'" json:"user_type" validate:"omitempty,oneof=student employee"`
	AvatarURL   string         `gorm:"type:varchar(500);default:''" json:"avatar" validate:"max=500"`
	HemisID     string         `gorm:"type:varchar(100);default:''" json:"hemis_id" validate:"max=100"`
	Favourites  []Book         `gorm:"many2many:user_favourites;" json:"-"`
	LastLoginAt *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"date_joined"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"-"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// IsAdmin reports whether the user may use the admin endpoints.
func (u *User) IsAdmin() bool {
	return u.Role == ROLE_ADMIN
}

// CreateUser builds a validated local account with a hashed password.
func CreateUser(username, email, password string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Username: username,
		Email:    email,
		Password: pw,
		Role:     ROLE_USER,
		UserType: USER_TYPE_STUDENT,
	}

	if err := u.Validate(); err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	if hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}

// UnusablePassword returns a bcrypt hash of random bytes, for accounts that only
// log in through the identity provider.
func UnusablePassword() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return HashPassword("!" + hex.EncodeToString(b))
}
