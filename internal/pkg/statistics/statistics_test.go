package statistics

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samduuf/elibrary/app/models"
	"github.com/samduuf/elibrary/app/repository/repotest"
)

type mapCache struct {
	data map[string][]byte
}

func (m *mapCache) GetJSON(key string, out interface{}) error {
	raw, ok := m.data[key]
	if !ok {
		return errors.New("miss")
	}
	return json.Unmarshal(raw, out)
}

func (m *mapCache) SetJSON(key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *mapCache) Delete(key string) error {
	delete(m.data, key)
	return nil
}

func TestLibraryStats(t *testing.T) {
	store := repotest.NewStore()
	repos := store.Repositories()
	c := &mapCache{data: map[string][]byte{}}
	svc := NewService(repos.Book, repos.User, c)

	require.NoError(t, repos.Book.Create(&models.Book{Title: "A", Author: "X", Category: "Darslik"}))
	require.NoError(t, repos.Book.Create(&models.Book{Title: "B", Author: "Y", Category: "Ilmiy"}))
	require.NoError(t, repos.Book.Create(&models.Book{Title: "Old", Author: "Z", Category: "Ilmiy", CreatedAt: time.Now().Add(-60 * 24 * time.Hour)}))
	require.NoError(t, repos.User.Create(&models.User{Username: "u1"}))

	stats, err := svc.Library()
	require.NoError(t, err)
	assert.Equal(t, models.LibraryStats{TotalBooks: 3, Categories: 2, Users: 1, NewBooks: 2}, *stats)

	require.NoError(t, repos.Book.Create(&models.Book{Title: "C", Author: "W", Category: "Adabiyotlar"}))
	cached, err := svc.Library()
	require.NoError(t, err)
	assert.Equal(t, int64(3), cached.TotalBooks, "served from cache")

	svc.Invalidate()
	fresh, err := svc.Library()
	require.NoError(t, err)
	assert.Equal(t, int64(4), fresh.TotalBooks)
	assert.Equal(t, int64(3), fresh.Categories)
}

func TestLibraryStats_UncategorizedCountsAsOne(t *testing.T) {
	store := repotest.NewStore()
	repos := store.Repositories()
	svc := NewService(repos.Book, repos.User, nil)

	require.NoError(t, repos.Book.Create(&models.Book{Title: "A", Author: "X"}))
	stats, err := svc.Library()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Categories)

	empty := NewService(repotest.NewStore().Repositories().Book, repos.User, nil)
	stats, err = empty.Library()
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Categories)
}

func TestAdminStats(t *testing.T) {
	store := repotest.NewStore()
	repos := store.Repositories()
	svc := NewService(repos.Book, repos.User, nil)

	require.NoError(t, repos.User.Create(&models.User{Username: "new"}))
	require.NoError(t, repos.User.Create(&models.User{Username: "old", CreatedAt: time.Now().Add(-72 * time.Hour)}))
	require.NoError(t, repos.Book.Create(&models.Book{Title: "A", Author: "X", Category: "Ilmiy"}))
	require.NoError(t, repos.Book.Create(&models.Book{Title: "B", Author: "X", Category: "Ilmiy"}))
	require.NoError(t, repos.Book.Create(&models.Book{Title: "C", Author: "X", Category: "Darslik"}))

	stats, err := svc.Admin()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalBooks)
	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, int64(1), stats.NewUsersToday)
	require.Len(t, stats.CategoryStats, 2)
	assert.Equal(t, models.CategoryCount{Category: "Ilmiy", Count: 2}, stats.CategoryStats[0])
}
