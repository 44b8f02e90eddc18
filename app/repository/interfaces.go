package repository

import (
	"context"
	"time"

	"github.com/samduuf/elibrary/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	// WithContext binds subsequent queries to ctx.
	WithContext(ctx context.Context) UserRepository
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	GetWithFavourites(id uint) (*models.User, error)
	// UpsertByUsername inserts user or, when the username exists, overwrites only
	// the columns named in updates. The stored row is returned.
	UpsertByUsername(user *models.User, updates map[string]interface{}) (*models.User, error)
	Update(user *models.User) error
	UpdateLastLogin(id uint, at time.Time) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	CountJoinedSince(since time.Time) (int64, error)
	ToggleFavourite(userID, bookID uint) (added bool, err error)
}

// TokenRepository stores the session credential of each user.
type TokenRepository interface {
	WithContext(ctx context.Context) TokenRepository
	GetOrCreate(userID uint) (*models.AuthToken, error)
	GetUserByKey(key string) (*models.User, error)
}

// BookFilter narrows List results.
type BookFilter struct {
	Category string
	Search   string
}

// BookRepository defines the interface for catalog operations
type BookRepository interface {
	Create(book *models.Book) error
	GetByID(id uint) (*models.Book, error)
	Update(book *models.Book) error
	Delete(id uint) error
	List(filter BookFilter, offset, limit int) ([]models.Book, error)
	CountFiltered(filter BookFilter) (int64, error)
	Search(query string, limit int) ([]models.Book, error)
	Count() (int64, error)
	CountCategories() (int64, error)
	CountCreatedSince(since time.Time) (int64, error)
	CategoryStats() ([]models.CategoryCount, error)
	Popular(limit int) ([]models.Book, error)
}

// NewsRepository defines the interface for news-related operations
type NewsRepository interface {
	Create(news *models.News) error
	GetByID(id uint) (*models.News, error)
	GetAll(offset, limit int) ([]models.News, error)
	Update(news *models.News) error
	Delete(id uint) error
	Count() (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User  UserRepository
	Token TokenRepository
	Book  BookRepository
	News  NewsRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:  NewUserRepository(db),
		Token: NewTokenRepository(db),
		Book:  NewBookRepository(db),
		News:  NewNewsRepository(db),
	}
}
