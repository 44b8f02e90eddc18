package repository

import (
	"context"
	"time"

	"github.com/samduuf/elibrary/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// WithContext returns a repository whose queries run with ctx
func (r *userRepository) WithContext(ctx context.Context) UserRepository {
	return &userRepository{db: r.db.WithContext(ctx)}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername retrieves a user by the unique username
func (r *userRepository) GetByUsername(username string) (*models.User, error) {
	var user models.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetWithFavourites loads a user together with the favourite books
func (r *userRepository) GetWithFavourites(id uint) (*models.User, error) {
	var user models.User
	err := r.db.Preload("Favourites").First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpsertByUsername relies on the unique username index, so concurrent logins for
// the same identifier end in one row with the last write applied.
func (r *userRepository) UpsertByUsername(user *models.User, updates map[string]interface{}) (*models.User, error) {
	onConflict := clause.OnConflict{
		Columns: []clause.Column{{Name: "username"}},
	}
	if len(updates) == 0 {
		onConflict.DoNothing = true
	} else {
		assignments := make(map[string]interface{}, len(updates)+1)
		for column, value := range updates {
			assignments[column] = value
		}
		assignments["updated_at"] = time.Now()
		onConflict.DoUpdates = clause.Assignments(assignments)
	}

	if err := r.db.Clauses(onConflict).Create(user).Error; err != nil {
		return nil, err
	}
	return r.GetByUsername(user.Username)
}

// Update updates an existing user in the database
func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// UpdateLastLogin stamps the last successful login
func (r *userRepository) UpdateLastLogin(id uint, at time.Time) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).UpdateColumn("last_login_at", at).Error
}

// List retrieves a paginated list of users
func (r *userRepository) List(offset, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.Preload("Favourites").Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error
	return users, err
}

// Count returns the total number of users
func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}

// CountJoinedSince counts users created at or after since
func (r *userRepository) CountJoinedSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("created_at >= ?", since).Count(&count).Error
	return count, err
}

// ToggleFavourite adds the book to the user's favourites or removes it when present
func (r *userRepository) ToggleFavourite(userID, bookID uint) (bool, error) {
	var count int64
	err := r.db.Table("user_favourites").
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	user := models.User{ID: userID}
	book := models.Book{ID: bookID}
	if count > 0 {
		return false, r.db.Model(&user).Association("Favourites").Delete(&book)
	}
	return true, r.db.Model(&user).Association("Favourites").Append(&book)
}
