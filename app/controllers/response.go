package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// storageError maps repository errors to JSON responses.
func storageError(c *fiber.Ctx, err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return jsonError(c, fiber.StatusNotFound, "not_found", what+" not found")
	}
	return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load "+strings.ToLower(what))
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return uint(id), nil
}

// pagination reads ?offset and ?limit; a missing limit means no limit.
func pagination(c *fiber.Ctx, maxLimit int) (int, int) {
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	limit := c.QueryInt("limit", -1)
	if limit <= 0 {
		limit = -1
	}
	if maxLimit > 0 && (limit < 0 || limit > maxLimit) {
		limit = maxLimit
	}
	return offset, limit
}

// formFields flattens a JSON, urlencoded or multipart body into strings.
// Only keys present in the request are returned.
func formFields(c *fiber.Ctx) (map[string]string, error) {
	out := map[string]string{}
	ct := strings.ToLower(c.Get(fiber.HeaderContentType))

	switch {
	case strings.HasPrefix(ct, fiber.MIMEApplicationJSON):
		var raw map[string]interface{}
		if len(c.Body()) == 0 {
			return out, nil
		}
		dec := json.NewDecoder(bytes.NewReader(c.Body()))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		for k, v := range raw {
			switch t := v.(type) {
			case nil:
				out[k] = ""
			case string:
				out[k] = t
			case json.Number:
				out[k] = t.String()
			default:
				out[k] = fmt.Sprint(t)
			}
		}
	case strings.HasPrefix(ct, fiber.MIMEMultipartForm):
		form, err := c.MultipartForm()
		if err != nil {
			return nil, err
		}
		for k, v := range form.Value {
			if len(v) > 0 {
				out[k] = v[0]
			}
		}
	default:
		c.Request().PostArgs().VisitAll(func(k, v []byte) {
			out[string(k)] = string(v)
		})
	}
	return out, nil
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
