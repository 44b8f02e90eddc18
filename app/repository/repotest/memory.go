// Package repotest provides in-memory repositories for tests.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/samduuf/elibrary/app/models"
	"github.com/samduuf/elibrary/app/repository"
)

// Store backs all in-memory repositories so favourites and tokens can see users and books.
type Store struct {
	mu         sync.Mutex
	users      map[uint]*models.User
	books      map[uint]*models.Book
	news       map[uint]*models.News
	tokens     map[string]uint
	favourites map[uint]map[uint]bool
	nextID     uint
}

func NewStore() *Store {
	return &Store{
		users:      map[uint]*models.User{},
		books:      map[uint]*models.Book{},
		news:       map[uint]*models.News{},
		tokens:     map[string]uint{},
		favourites: map[uint]map[uint]bool{},
	}
}

// Repositories wires every in-memory repository to s.
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		User:  &UserRepo{s: s},
		Token: &TokenRepo{s: s},
		Book:  &BookRepo{s: s},
		News:  &NewsRepo{s: s},
	}
}

func (s *Store) id() uint {
	s.nextID++
	return s.nextID
}

// UserCount returns the number of stored users.
func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// UserRepo fails every lookup with the context error once its context is done,
// like a gorm session bound with WithContext.
type UserRepo struct {
	s   *Store
	ctx context.Context
}

func (r *UserRepo) WithContext(ctx context.Context) repository.UserRepository {
	return &UserRepo{s: r.s, ctx: ctx}
}

func (r *UserRepo) ctxErr() error {
	if r.ctx == nil {
		return nil
	}
	return r.ctx.Err()
}

func (r *UserRepo) Create(user *models.User) error {
	if err := r.ctxErr(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == user.Username {
			return gorm.ErrDuplicatedKey
		}
	}
	user.ID = r.s.id()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r *UserRepo) GetByID(id uint) (*models.User, error) {
	if err := r.ctxErr(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) GetByUsername(username string) (*models.User, error) {
	if err := r.ctxErr(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *UserRepo) GetWithFavourites(id uint) (*models.User, error) {
	u, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := make([]uint, 0)
	for bookID := range r.s.favourites[id] {
		ids = append(ids, bookID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, bookID := range ids {
		if b, ok := r.s.books[bookID]; ok {
			u.Favourites = append(u.Favourites, *b)
		}
	}
	return u, nil
}

func (r *UserRepo) UpsertByUsername(user *models.User, updates map[string]interface{}) (*models.User, error) {
	if err := r.ctxErr(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	var existing *models.User
	for _, u := range r.s.users {
		if u.Username == user.Username {
			existing = u
			break
		}
	}
	if existing == nil {
		r.s.mu.Unlock()
		if err := r.Create(user); err != nil {
			return nil, err
		}
		return r.GetByUsername(user.Username)
	}
	for column, value := range updates {
		s, _ := value.(string)
		switch column {
		case "first_name":
			existing.FirstName = s
		case "last_name":
			existing.LastName = s
		case "email":
			existing.Email = s
		case "avatar_url":
			existing.AvatarURL = s
		case "hemis_id":
			existing.HemisID = s
		case "user_type":
			existing.UserType = s
		}
	}
	existing.UpdatedAt = time.Now()
	r.s.mu.Unlock()
	return r.GetByUsername(user.Username)
}

func (r *UserRepo) Update(user *models.User) error {
	if err := r.ctxErr(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *user
	cp.Favourites = nil
	r.s.users[user.ID] = &cp
	return nil
}

func (r *UserRepo) UpdateLastLogin(id uint, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		u.LastLoginAt = &at
	}
	return nil
}

func (r *UserRepo) List(offset, limit int) ([]models.User, error) {
	r.s.mu.Lock()
	all := make([]models.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		all = append(all, *u)
	}
	r.s.mu.Unlock()
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return page(all, offset, limit), nil
}

func (r *UserRepo) Count() (int64, error) {
	return int64(r.s.UserCount()), nil
}

func (r *UserRepo) CountJoinedSince(since time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, u := range r.s.users {
		if !u.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *UserRepo) ToggleFavourite(userID, bookID uint) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.books[bookID]; !ok {
		return false, gorm.ErrRecordNotFound
	}
	set := r.s.favourites[userID]
	if set == nil {
		set = map[uint]bool{}
		r.s.favourites[userID] = set
	}
	if set[bookID] {
		delete(set, bookID)
		return false, nil
	}
	set[bookID] = true
	return true, nil
}

type TokenRepo struct {
	s   *Store
	ctx context.Context
}

func (r *TokenRepo) WithContext(ctx context.Context) repository.TokenRepository {
	return &TokenRepo{s: r.s, ctx: ctx}
}

func (r *TokenRepo) GetOrCreate(userID uint) (*models.AuthToken, error) {
	if r.ctx != nil && r.ctx.Err() != nil {
		return nil, r.ctx.Err()
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for key, uid := range r.s.tokens {
		if uid == userID {
			return &models.AuthToken{Key: key, UserID: userID}, nil
		}
	}
	key, err := models.NewAuthTokenKey()
	if err != nil {
		return nil, err
	}
	r.s.tokens[key] = userID
	return &models.AuthToken{Key: key, UserID: userID, CreatedAt: time.Now()}, nil
}

func (r *TokenRepo) GetUserByKey(key string) (*models.User, error) {
	r.s.mu.Lock()
	uid, ok := r.s.tokens[key]
	r.s.mu.Unlock()
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return (&UserRepo{s: r.s, ctx: r.ctx}).GetByID(uid)
}

type BookRepo struct{ s *Store }

func (r *BookRepo) Create(book *models.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	book.ID = r.s.id()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = time.Now()
	}
	cp := *book
	r.s.books[book.ID] = &cp
	return nil
}

func (r *BookRepo) GetByID(id uint) (*models.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.books[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *BookRepo) Update(book *models.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.books[book.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *book
	r.s.books[book.ID] = &cp
	return nil
}

func (r *BookRepo) Delete(id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.books[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.s.books, id)
	for _, set := range r.s.favourites {
		delete(set, id)
	}
	return nil
}

func (r *BookRepo) filtered(filter repository.BookFilter) []models.Book {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.Book, 0, len(r.s.books))
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	for _, b := range r.s.books {
		if filter.Category != "" && !strings.EqualFold(b.Category, filter.Category) {
			continue
		}
		if search != "" && !matches(search, b.Title, b.Author, b.Description) {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *BookRepo) List(filter repository.BookFilter, offset, limit int) ([]models.Book, error) {
	return page(r.filtered(filter), offset, limit), nil
}

func (r *BookRepo) CountFiltered(filter repository.BookFilter) (int64, error) {
	return int64(len(r.filtered(filter))), nil
}

func (r *BookRepo) Search(query string, limit int) ([]models.Book, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	r.s.mu.Lock()
	out := make([]models.Book, 0)
	for _, b := range r.s.books {
		if matches(q, b.Title, b.Author, b.Description, b.Subjects) {
			out = append(out, *b)
		}
	}
	r.s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, 0, limit), nil
}

func matches(search string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

func (r *BookRepo) Count() (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.books)), nil
}

func (r *BookRepo) CountCategories() (int64, error) {
	stats, _ := r.CategoryStats()
	return int64(len(stats)), nil
}

func (r *BookRepo) CountCreatedSince(since time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, b := range r.s.books {
		if !b.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *BookRepo) CategoryStats() ([]models.CategoryCount, error) {
	r.s.mu.Lock()
	counts := map[string]int64{}
	for _, b := range r.s.books {
		if b.Category != "" {
			counts[b.Category]++
		}
	}
	r.s.mu.Unlock()
	out := make([]models.CategoryCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, models.CategoryCount{Category: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Category < out[j].Category
		}
		return out[i].Count > out[j].Count
	})
	return out, nil
}

func (r *BookRepo) Popular(limit int) ([]models.Book, error) {
	all := r.filtered(repository.BookFilter{})
	r.s.mu.Lock()
	likes := map[uint]int{}
	for _, set := range r.s.favourites {
		for id := range set {
			likes[id]++
		}
	}
	r.s.mu.Unlock()
	sort.SliceStable(all, func(i, j int) bool { return likes[all[i].ID] > likes[all[j].ID] })
	return page(all, 0, limit), nil
}

type NewsRepo struct{ s *Store }

func (r *NewsRepo) Create(news *models.News) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	news.ID = r.s.id()
	cp := *news
	r.s.news[news.ID] = &cp
	return nil
}

func (r *NewsRepo) GetByID(id uint) (*models.News, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.news[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *n
	return &cp, nil
}

func (r *NewsRepo) GetAll(offset, limit int) ([]models.News, error) {
	r.s.mu.Lock()
	all := make([]models.News, 0, len(r.s.news))
	for _, n := range r.s.news {
		all = append(all, *n)
	}
	r.s.mu.Unlock()
	sort.Slice(all, func(i, j int) bool {
		if all[i].Date.Equal(all[j].Date) {
			return all[i].ID > all[j].ID
		}
		return all[i].Date.After(all[j].Date)
	})
	return page(all, offset, limit), nil
}

func (r *NewsRepo) Update(news *models.News) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.news[news.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *news
	r.s.news[news.ID] = &cp
	return nil
}

func (r *NewsRepo) Delete(id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.news[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.s.news, id)
	return nil
}

func (r *NewsRepo) Count() (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.news)), nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

var (
	_ repository.UserRepository  = (*UserRepo)(nil)
	_ repository.TokenRepository = (*TokenRepo)(nil)
	_ repository.BookRepository  = (*BookRepo)(nil)
	_ repository.NewsRepository  = (*NewsRepo)(nil)
)
