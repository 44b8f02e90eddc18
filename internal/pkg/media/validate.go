package media

import (
	"bytes"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportedImage    = errors.New("only JPG, JPEG, PNG and GIF covers are supported")
	ErrUnsupportedDocument = errors.New("only PDF and EPUB files are supported")
	ErrScriptableContent   = errors.New("HTML, XML and SVG content is not allowed")
)

var allowedImageExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

var allowedImageMime = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// ValidateImageBySniff checks the filename extension and the first bytes
// against the cover whitelist. Returns the detected mime.
func ValidateImageBySniff(filename string, head []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedImageExt[ext] {
		return "", ErrUnsupportedImage
	}

	detected := http.DetectContentType(head)
	if isScriptable(detected) {
		return "", ErrScriptableContent
	}
	if allowedImageMime[detected] {
		return detected, nil
	}
	return "", ErrUnsupportedImage
}

var epubMimetype = []byte("mimetypeapplication/epub+zip")

// ValidateDocument accepts PDF and EPUB by extension and magic bytes.
func ValidateDocument(filename string, head []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		if bytes.HasPrefix(head, []byte("%PDF-")) {
			return "application/pdf", nil
		}
	case ".epub":
		// The first zip entry of an EPUB is the uncompressed "mimetype" file.
		if bytes.HasPrefix(head, []byte("PK\x03\x04")) && len(head) >= 58 && bytes.Equal(head[30:58], epubMimetype) {
			return "application/epub+zip", nil
		}
	}
	if isScriptable(http.DetectContentType(head)) {
		return "", ErrScriptableContent
	}
	return "", ErrUnsupportedDocument
}

func isScriptable(detected string) bool {
	return strings.HasPrefix(detected, "text/html") ||
		strings.HasPrefix(detected, "application/xhtml") ||
		strings.HasPrefix(detected, "text/xml") ||
		strings.HasPrefix(detected, "application/xml") ||
		detected == "image/svg+xml"
}
