package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/samduuf/elibrary/app/models"
	"github.com/samduuf/elibrary/internal/pkg/env"
)

// openTestDB connects to the MySQL instance described by the TEST_DB_* variables
// and skips when none is reachable.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		env.GetEnv("TEST_DB_USER", "elibrary"),
		env.GetEnv("TEST_DB_PASSWORD", "elibrary"),
		env.GetEnv("TEST_DB_HOST", "127.0.0.1"),
		env.GetEnv("TEST_DB_PORT", "3306"),
		env.GetEnv("TEST_DB_NAME", "elibrary_test"),
	)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Skipf("Skipping MySQL-dependent test: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil || sqlDB.Ping() != nil {
		t.Skip("Skipping MySQL-dependent test: database not reachable")
	}

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.AuthToken{}, &models.Book{}, &models.News{}))
	resetTables(t, db)
	t.Cleanup(func() { resetTables(t, db) })
	return db
}

func resetTables(t *testing.T, db *gorm.DB) {
	t.Helper()
	for _, table := range []string{"user_favourites", "auth_tokens", "books", "news", "users"} {
		require.NoError(t, db.Exec("DELETE FROM "+table).Error)
	}
}

func TestUserRepository_UpsertByUsernameNeverDuplicates(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db)

	first, err := repo.UpsertByUsername(&models.User{Username: "S123", FirstName: "Ali", Role: models.ROLE_USER},
		map[string]interface{}{"first_name": "Ali"})
	require.NoError(t, err)

	second, err := repo.UpsertByUsername(&models.User{Username: "S123", FirstName: "Ali2", Role: models.ROLE_USER},
		map[string]interface{}{"first_name": "Ali2"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Ali2", second.FirstName)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestTokenRepository_GetOrCreateIsStable(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepository(db)
	tokens := NewTokenRepository(db)

	u := &models.User{Username: "reader", Role: models.ROLE_USER}
	require.NoError(t, users.Create(u))

	a, err := tokens.GetOrCreate(u.ID)
	require.NoError(t, err)
	b, err := tokens.GetOrCreate(u.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Key, b.Key)

	resolved, err := tokens.GetUserByKey(a.Key)
	require.NoError(t, err)
	assert.Equal(t, u.ID, resolved.ID)

	_, err = tokens.GetUserByKey("missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_ToggleFavourite(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepository(db)
	books := NewBookRepository(db)

	u := &models.User{Username: "fan", Role: models.ROLE_USER}
	require.NoError(t, users.Create(u))
	b := &models.Book{Title: "Xamsa", Author: "Navoiy", Category: models.BookCategoryLiterature, ResourceType: "Kitob"}
	require.NoError(t, books.Create(b))

	added, err := users.ToggleFavourite(u.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, added)

	popular, err := books.Popular(6)
	require.NoError(t, err)
	require.Len(t, popular, 1)
	assert.Equal(t, b.ID, popular[0].ID)

	added, err = users.ToggleFavourite(u.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, added)
}

func TestBookRepository_FiltersAndStats(t *testing.T) {
	db := openTestDB(t)
	books := NewBookRepository(db)

	for _, b := range []models.Book{
		{Title: "Algebra", Author: "Karimov", Category: models.BookCategoryTextbook, ResourceType: "Kitob"},
		{Title: "Fizika", Author: "Rasulov", Category: models.BookCategoryTextbook, ResourceType: "Kitob"},
		{Title: "Boburnoma", Author: "Bobur", Category: models.BookCategoryLiterature, ResourceType: "Kitob"},
	} {
		b := b
		require.NoError(t, books.Create(&b))
	}

	list, err := books.List(BookFilter{Category: "darslik"}, 0, 10)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	found, err := books.Search("bobur", 5)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	categories, err := books.CountCategories()
	require.NoError(t, err)
	assert.Equal(t, int64(2), categories)

	stats, err := books.CategoryStats()
	require.NoError(t, err)
	require.NotEmpty(t, stats)
	assert.Equal(t, models.BookCategoryTextbook, stats[0].Category)
	assert.Equal(t, int64(2), stats[0].Count)

	recent, err := books.CountCreatedSince(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), recent)
}
