package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samduuf/elibrary/app/models"
)

// URLResolver turns stored media keys into public URLs.
type URLResolver interface {
	URL(key string) string
}

type favouriteResponse struct {
	ID       uint    `json:"id"`
	Title    string  `json:"title"`
	CoverURL *string `json:"coverUrl"`
	Author   string  `json:"author"`
}

func userResponse(u *models.User, media URLResolver) fiber.Map {
	favourites := make([]favouriteResponse, 0, len(u.Favourites))
	for _, b := range u.Favourites {
		favourites = append(favourites, favouriteResponse{
			ID:       b.ID,
			Title:    b.Title,
			CoverURL: optionalURL(media, b.CoverImage),
			Author:   b.Author,
		})
	}

	userType := u.UserType
	if userType == "" {
		userType = models.USER_TYPE_STUDENT
	}
	var avatar *string
	if u.AvatarURL != "" {
		a := u.AvatarURL
		avatar = &a
	}

	return fiber.Map{
		"id":           u.ID,
		"username":     u.Username,
		"email":        u.Email,
		"first_name":   u.FirstName,
		"last_name":    u.LastName,
		"user_type":    userType,
		"avatar":       avatar,
		"favourites":   favourites,
		"date_joined":  u.CreatedAt.UTC().Format(time.RFC3339),
		"is_staff":     u.IsAdmin(),
		"is_superuser": u.IsAdmin(),
	}
}

func bookResponse(b models.Book, media URLResolver) models.Book {
	b.CoverImage = resolveURL(media, b.CoverImage)
	b.File = resolveURL(media, b.File)
	return b
}

func booksResponse(books []models.Book, media URLResolver) []models.Book {
	out := make([]models.Book, 0, len(books))
	for _, b := range books {
		out = append(out, bookResponse(b, media))
	}
	return out
}

type newsResponse struct {
	models.News
	Date string `json:"date"`
}

func newsItemResponse(n models.News, media URLResolver) newsResponse {
	img := resolveURL(media, n.Image)
	if strings.HasPrefix(img, "http:") {
		img = "https:" + strings.TrimPrefix(img, "http:")
	}
	n.Image = img
	return newsResponse{News: n, Date: n.Date.Format("2006-01-02")}
}

func newsListResponse(items []models.News, media URLResolver) []newsResponse {
	out := make([]newsResponse, 0, len(items))
	for _, n := range items {
		out = append(out, newsItemResponse(n, media))
	}
	return out
}

func resolveURL(media URLResolver, key string) string {
	if key == "" || media == nil {
		return key
	}
	return media.URL(key)
}

func optionalURL(media URLResolver, key string) *string {
	if key == "" {
		return nil
	}
	u := resolveURL(media, key)
	return &u
}
