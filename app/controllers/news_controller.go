package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samduuf/elibrary/app/models"
	"github.com/samduuf/elibrary/app/repository"
)

// NewsController handles news-related HTTP requests using repository pattern
type NewsController struct {
	newsRepo repository.NewsRepository
	media    MediaUploader
	now      func() time.Time
}

// NewNewsController creates a new news controller with repository
func NewNewsController(newsRepo repository.NewsRepository, media MediaUploader) *NewsController {
	return &NewsController{newsRepo: newsRepo, media: media, now: time.Now}
}

func (nc *NewsController) HandleList(c *fiber.Ctx) error {
	offset, limit := pagination(c, 0)
	items, err := nc.newsRepo.GetAll(offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load news")
	}
	if total, err := nc.newsRepo.Count(); err == nil {
		c.Set("X-Total-Count", itoa(total))
	}
	return c.JSON(newsListResponse(items, nc.media))
}

func (nc *NewsController) HandleGet(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}
	item, err := nc.newsRepo.GetByID(id)
	if err != nil {
		return storageError(c, err, "News")
	}
	return c.JSON(newsItemResponse(*item, nc.media))
}

func (nc *NewsController) HandleCreate(c *fiber.Ctx) error {
	now := nc.now()
	item := &models.News{
		Category: models.NewsCategories[0],
		Author:   "Admin",
		Date:     time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
	}
	if err := nc.bind(c, item); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", err.Error())
	}
	if err := item.Validate(); err != nil {
		removeMedia(c, nc.media, item.Image)
		return jsonError(c, fiber.StatusBadRequest, "validation_error", err.Error())
	}
	if err := nc.newsRepo.Create(item); err != nil {
		removeMedia(c, nc.media, item.Image)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create news")
	}
	return c.Status(fiber.StatusCreated).JSON(newsItemResponse(*item, nc.media))
}

func (nc *NewsController) HandleUpdate(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}
	item, err := nc.newsRepo.GetByID(id)
	if err != nil {
		return storageError(c, err, "News")
	}
	previousImage := item.Image

	if err := nc.bind(c, item); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", err.Error())
	}
	if err := item.Validate(); err != nil {
		if item.Image != previousImage {
			removeMedia(c, nc.media, item.Image)
		}
		return jsonError(c, fiber.StatusBadRequest, "validation_error", err.Error())
	}
	if err := nc.newsRepo.Update(item); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update news")
	}
	if item.Image != previousImage {
		removeMedia(c, nc.media, previousImage)
	}
	return c.JSON(newsItemResponse(*item, nc.media))
}

func (nc *NewsController) HandleDelete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}
	item, err := nc.newsRepo.GetByID(id)
	if err != nil {
		return storageError(c, err, "News")
	}
	if err := nc.newsRepo.Delete(id); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete news")
	}
	removeMedia(c, nc.media, item.Image)
	return c.SendStatus(fiber.StatusNoContent)
}

func (nc *NewsController) bind(c *fiber.Ctx, item *models.News) error {
	fields, err := formFields(c)
	if err != nil {
		return err
	}
	if v, ok := fields["title"]; ok {
		item.Title = strings.TrimSpace(v)
	}
	if v, ok := fields["description"]; ok {
		item.Description = v
	}
	if v, ok := fields["category"]; ok && v != "" {
		item.Category = v
	}
	if v, ok := fields["author"]; ok && v != "" {
		item.Author = strings.TrimSpace(v)
	}
	if v, ok := fields["date"]; ok && v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return fiberError("date must be YYYY-MM-DD")
		}
		item.Date = d
	}
	if v, ok := fields["image"]; ok && strings.HasPrefix(v, "http") {
		item.Image = v
	}
	if fh, err := c.FormFile("image"); err == nil {
		key, err := nc.media.SaveCover(c.UserContext(), fh)
		if err != nil {
			return err
		}
		item.Image = key
	}
	return nil
}
