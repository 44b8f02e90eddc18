package controllers

import (
	"context"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/samduuf/elibrary/app/models"
	"github.com/samduuf/elibrary/app/repository"
	"github.com/samduuf/elibrary/internal/pkg/statistics"
)

const popularBooksLimit = 6

// MediaUploader stores uploaded covers and book files.
type MediaUploader interface {
	URLResolver
	SaveCover(ctx context.Context, fh *multipart.FileHeader) (string, error)
	SaveBookFile(ctx context.Context, fh *multipart.FileHeader) (string, error)
	Remove(ctx context.Context, key string) error
}

// BookController serves the catalog.
type BookController struct {
	books repository.BookRepository
	stats *statistics.Service
	media MediaUploader
}

func NewBookController(books repository.BookRepository, stats *statistics.Service, media MediaUploader) *BookController {
	return &BookController{books: books, stats: stats, media: media}
}

// HandleList lists books, newest first. ?category is case-insensitive, ?search
// matches title, author and description.
func (bc *BookController) HandleList(c *fiber.Ctx) error {
	filter := repository.BookFilter{
		Category: strings.TrimSpace(c.Query("category")),
		Search:   strings.TrimSpace(c.Query("search")),
	}
	if strings.EqualFold(filter.Category, models.BookCategoryAll) {
		filter.Category = ""
	}
	offset, limit := pagination(c, 0)

	books, err := bc.books.List(filter, offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load books")
	}
	if total, err := bc.books.CountFiltered(filter); err == nil {
		c.Set("X-Total-Count", itoa(total))
	}
	return c.JSON(booksResponse(books, bc.media))
}

func (bc *BookController) HandleGet(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}
	book, err := bc.books.GetByID(id)
	if err != nil {
		return storageError(c, err, "Book")
	}
	return c.JSON(bookResponse(*book, bc.media))
}

func (bc *BookController) HandleCreate(c *fiber.Ctx) error {
	book := &models.Book{
		Category:     models.BookCategoryLiterature,
		ResourceType: models.ResourceTypes[0],
	}
	if err := bc.bind(c, book); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", err.Error())
	}
	if err := book.Validate(); err != nil {
		bc.discardUploads(c, book, nil)
		return jsonError(c, fiber.StatusBadRequest, "validation_error", err.Error())
	}
	if err := bc.books.Create(book); err != nil {
		bc.discardUploads(c, book, nil)
		log.Errorf("[Books] create failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create book")
	}
	bc.stats.Invalidate()
	return c.Status(fiber.StatusCreated).JSON(bookResponse(*book, bc.media))
}

// HandleUpdate applies the fields present in the request (PUT and PATCH).
func (bc *BookController) HandleUpdate(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}
	book, err := bc.books.GetByID(id)
	if err != nil {
		return storageError(c, err, "Book")
	}
	previous := *book

	if err := bc.bind(c, book); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", err.Error())
	}
	if err := book.Validate(); err != nil {
		bc.discardUploads(c, book, &previous)
		return jsonError(c, fiber.StatusBadRequest, "validation_error", err.Error())
	}
	if err := bc.books.Update(book); err != nil {
		bc.discardUploads(c, book, &previous)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update book")
	}

	if previous.CoverImage != book.CoverImage {
		removeMedia(c, bc.media, previous.CoverImage)
	}
	if previous.File != book.File {
		removeMedia(c, bc.media, previous.File)
	}
	bc.stats.Invalidate()
	return c.JSON(bookResponse(*book, bc.media))
}

func (bc *BookController) HandleDelete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}
	book, err := bc.books.GetByID(id)
	if err != nil {
		return storageError(c, err, "Book")
	}
	if err := bc.books.Delete(id); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete book")
	}
	removeMedia(c, bc.media, book.CoverImage)
	removeMedia(c, bc.media, book.File)
	bc.stats.Invalidate()
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleStats returns the public library summary.
func (bc *BookController) HandleStats(c *fiber.Ctx) error {
	stats, err := bc.stats.Library()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load statistics")
	}
	return c.JSON(stats)
}

// HandleAdminStats returns the dashboard numbers.
func (bc *BookController) HandleAdminStats(c *fiber.Ctx) error {
	stats, err := bc.stats.Admin()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load statistics")
	}
	return c.JSON(stats)
}

// HandlePopular returns the most favourited books.
func (bc *BookController) HandlePopular(c *fiber.Ctx) error {
	books, err := bc.books.Popular(popularBooksLimit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load books")
	}
	return c.JSON(booksResponse(books, bc.media))
}

// bind copies request fields and uploaded files onto book.
func (bc *BookController) bind(c *fiber.Ctx, book *models.Book) error {
	fields, err := formFields(c)
	if err != nil {
		return err
	}

	if v, ok := fields["title"]; ok {
		book.Title = strings.TrimSpace(v)
	}
	if v, ok := fields["author"]; ok {
		book.Author = strings.TrimSpace(v)
	}
	if v, ok := fields["description"]; ok {
		book.Description = v
	}
	if v, ok := fields["category"]; ok && v != "" {
		book.Category = v
	}
	if v, ok := fields["resource_type"]; ok && v != "" {
		book.ResourceType = v
	}
	if v, ok := fields["subjects"]; ok {
		book.Subjects = v
	}
	if v, ok := fields["page_count"]; ok {
		n := 0
		if v != "" {
			if n, err = strconv.Atoi(v); err != nil {
				return fiberError("page_count must be a number")
			}
		}
		book.PageCount = n
	}
	if v, ok := fields["published_date"]; ok {
		if v == "" {
			book.PublishedDate = nil
		} else {
			d, err := time.Parse("2006-01-02", v)
			if err != nil {
				return fiberError("published_date must be YYYY-MM-DD")
			}
			book.PublishedDate = &d
		}
	}

	if fh, err := c.FormFile("cover_image"); err == nil {
		key, err := bc.media.SaveCover(c.UserContext(), fh)
		if err != nil {
			return err
		}
		book.CoverImage = key
	}
	if fh, err := c.FormFile("file"); err == nil {
		key, err := bc.media.SaveBookFile(c.UserContext(), fh)
		if err != nil {
			return err
		}
		book.File = key
	}
	return nil
}

// discardUploads removes files stored for a request that did not persist.
func (bc *BookController) discardUploads(c *fiber.Ctx, book *models.Book, previous *models.Book) {
	if previous == nil || previous.CoverImage != book.CoverImage {
		removeMedia(c, bc.media, book.CoverImage)
	}
	if previous == nil || previous.File != book.File {
		removeMedia(c, bc.media, book.File)
	}
}

func fiberError(msg string) error {
	return fiber.NewError(fiber.StatusBadRequest, msg)
}

func removeMedia(c *fiber.Ctx, media MediaUploader, key string) {
	if key == "" {
		return
	}
	if err := media.Remove(c.UserContext(), key); err != nil {
		log.Warnf("[Media] could not remove %s: %v", key, err)
	}
}
