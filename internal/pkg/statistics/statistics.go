package statistics

import (
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/samduuf/elibrary/app/models"
	"github.com/samduuf/elibrary/app/repository"
)

const (
	CacheKeyLibrary = "statistics:library"
	CacheExpiration = 5 * time.Minute
	NewBooksWindow  = 30 * 24 * time.Hour
)

// Cache is the subset of the Redis cache used here.
type Cache interface {
	GetJSON(key string, out interface{}) error
	SetJSON(key string, value interface{}, expiration time.Duration) error
	Delete(key string) error
}

// Service computes catalog statistics; the public summary is cached.
type Service struct {
	books repository.BookRepository
	users repository.UserRepository
	cache Cache
	now   func() time.Time
}

// NewService creates the statistics service. cache may be nil.
func NewService(books repository.BookRepository, users repository.UserRepository, cache Cache) *Service {
	return &Service{books: books, users: users, cache: cache, now: time.Now}
}

// Library returns the public summary, from cache when fresh.
func (s *Service) Library() (*models.LibraryStats, error) {
	if s.cache != nil {
		var cached models.LibraryStats
		if err := s.cache.GetJSON(CacheKeyLibrary, &cached); err == nil {
			return &cached, nil
		}
	}

	stats, err := s.computeLibrary()
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(CacheKeyLibrary, stats, CacheExpiration); err != nil {
			log.Warnf("[Statistics] could not cache library stats: %v", err)
		}
	}
	return stats, nil
}

func (s *Service) computeLibrary() (*models.LibraryStats, error) {
	total, err := s.books.Count()
	if err != nil {
		return nil, err
	}
	categories, err := s.books.CountCategories()
	if err != nil {
		return nil, err
	}
	// Books without a category still belong to the default one.
	if total > 0 && categories == 0 {
		categories = 1
	}
	users, err := s.users.Count()
	if err != nil {
		return nil, err
	}
	newBooks, err := s.books.CountCreatedSince(s.now().Add(-NewBooksWindow))
	if err != nil {
		return nil, err
	}

	return &models.LibraryStats{
		TotalBooks: total,
		Categories: categories,
		Users:      users,
		NewBooks:   newBooks,
	}, nil
}

// Admin returns the dashboard numbers; never cached.
func (s *Service) Admin() (*models.AdminStats, error) {
	total, err := s.books.Count()
	if err != nil {
		return nil, err
	}
	users, err := s.users.Count()
	if err != nil {
		return nil, err
	}
	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today, err := s.users.CountJoinedSince(startOfDay)
	if err != nil {
		return nil, err
	}
	categories, err := s.books.CategoryStats()
	if err != nil {
		return nil, err
	}

	return &models.AdminStats{
		TotalBooks:    total,
		TotalUsers:    users,
		NewUsersToday: today,
		CategoryStats: categories,
	}, nil
}

// Invalidate drops the cached summary after catalog changes.
func (s *Service) Invalidate() {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(CacheKeyLibrary); err != nil {
		log.Warnf("[Statistics] could not invalidate cache: %v", err)
	}
}
