package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/samduuf/elibrary/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository creates a new credential repository instance
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) WithContext(ctx context.Context) TokenRepository {
	return &tokenRepository{db: r.db.WithContext(ctx)}
}

// GetOrCreate returns the user's credential, creating one on first use. The
// unique user_id index keeps it 1:1 when two logins race.
func (r *tokenRepository) GetOrCreate(userID uint) (*models.AuthToken, error) {
	var token models.AuthToken
	err := r.db.Where("user_id = ?", userID).First(&token).Error
	if err == nil {
		return &token, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	key, err := models.NewAuthTokenKey()
	if err != nil {
		return nil, err
	}
	token = models.AuthToken{Key: key, UserID: userID}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&token).Error; err != nil {
		return nil, err
	}

	var stored models.AuthToken
	if err := r.db.Where("user_id = ?", userID).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// GetUserByKey resolves a credential key to its user
func (r *tokenRepository) GetUserByKey(key string) (*models.User, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var token models.AuthToken
	if err := r.db.Preload("User").Where("`key` = ?", trimmed).First(&token).Error; err != nil {
		return nil, err
	}
	if token.User.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &token.User, nil
}
