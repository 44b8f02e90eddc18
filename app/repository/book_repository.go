package repository

import (
	"strings"
	"time"

	"github.com/samduuf/elibrary/app/models"
	"gorm.io/gorm"
)

// bookRepository implements the BookRepository interface
type bookRepository struct {
	db *gorm.DB
}

// NewBookRepository creates a new book repository instance
func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

// Create creates a new book in the database
func (r *bookRepository) Create(book *models.Book) error {
	return r.db.Create(book).Error
}

// GetByID retrieves a book by its ID
func (r *bookRepository) GetByID(id uint) (*models.Book, error) {
	var book models.Book
	err := r.db.First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// Update updates an existing book in the database
func (r *bookRepository) Update(book *models.Book) error {
	return r.db.Save(book).Error
}

// Delete removes a book together with its favourite links
func (r *bookRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM user_favourites WHERE book_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Book{}, id).Error
	})
}

func (r *bookRepository) filtered(filter BookFilter) *gorm.DB {
	q := r.db.Model(&models.Book{})
	if c := strings.TrimSpace(filter.Category); c != "" {
		q = q.Where("LOWER(category) = LOWER(?)", c)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + s + "%"
		q = q.Where("title LIKE ? OR author LIKE ? OR description LIKE ?", pattern, pattern, pattern)
	}
	return q
}

// List retrieves books newest first, optionally filtered
func (r *bookRepository) List(filter BookFilter, offset, limit int) ([]models.Book, error) {
	var books []models.Book
	err := r.filtered(filter).Order("created_at DESC").Offset(offset).Limit(limit).Find(&books).Error
	return books, err
}

// CountFiltered counts books matching filter
func (r *bookRepository) CountFiltered(filter BookFilter) (int64, error) {
	var count int64
	err := r.filtered(filter).Count(&count).Error
	return count, err
}

// Search matches title, author, description and subjects, newest first
func (r *bookRepository) Search(query string, limit int) ([]models.Book, error) {
	var books []models.Book
	pattern := "%" + strings.TrimSpace(query) + "%"
	err := r.db.Where("title LIKE ? OR author LIKE ? OR description LIKE ? OR subjects LIKE ?",
		pattern, pattern, pattern, pattern).
		Order("created_at DESC").
		Limit(limit).
		Find(&books).Error
	return books, err
}

// Count returns the total number of books
func (r *bookRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Book{}).Count(&count).Error
	return count, err
}

// CountCategories counts distinct categories in use
func (r *bookRepository) CountCategories() (int64, error) {
	var count int64
	err := r.db.Model(&models.Book{}).Where("category <> ''").Distinct("category").Count(&count).Error
	return count, err
}

// CountCreatedSince counts books added at or after since
func (r *bookRepository) CountCreatedSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Book{}).Where("created_at >= ?", since).Count(&count).Error
	return count, err
}

// CategoryStats returns the book count per category, largest first
func (r *bookRepository) CategoryStats() ([]models.CategoryCount, error) {
	var stats []models.CategoryCount
	err := r.db.Model(&models.Book{}).
		Select("category, COUNT(id) AS count").
		Group("category").
		Order("count DESC").
		Scan(&stats).Error
	return stats, err
}

// Popular returns the books with the most favourites
func (r *bookRepository) Popular(limit int) ([]models.Book, error) {
	var books []models.Book
	err := r.db.Model(&models.Book{}).
		Select("books.*, COUNT(user_favourites.user_id) AS like_count").
		Joins("LEFT JOIN user_favourites ON user_favourites.book_id = books.id").
		Group("books.id").
		Order("like_count DESC").
		Order("books.created_at DESC").
		Limit(limit).
		Find(&books).Error
	return books, err
}
