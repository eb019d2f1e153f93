package core

import (
	"encoding/base64"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"
)

var (
	NowFunc = time.Now // mockable

	ugcPolicy = bluemonday.UGCPolicy()
	strict    = bluemonday.StrictPolicy()

	errInvalidDataURL = errors.New("invalid data URL")
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// NewID returns a new unique document ID with the given prefix, e.g. "mag-<uuid>".
func NewID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// NowMillis returns the current Unix time in milliseconds.
func NowMillis() int64 {
	return NowFunc().UnixNano() / int64(time.Millisecond)
}

// Today returns the current calendar date as YYYY-MM-DD (UTC).
func Today() string {
	return NowFunc().UTC().Format("2006-01-02")
}

// SanitizeText strips every HTML tag from user supplied plain text.
// It returns an empty string when nothing is left.
func SanitizeText(s string) string {
	return CleanString(html.UnescapeString(strict.Sanitize(s)))
}

// SanitizeHTML keeps the safe subset of user supplied HTML.
func SanitizeHTML(s string) string {
	return CleanString(ugcPolicy.Sanitize(s))
}

// EncodeDataURL encodes data into a `data:<contentType>;base64,...` URL.
func EncodeDataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL decodes a base64 `data:` URL.
func DecodeDataURL(s string) (contentType string, data []byte, err error) {
	if !strings.HasPrefix(s, "data:") {
		return "", nil, errInvalidDataURL
	}
	parts := strings.SplitN(s[len("data:"):], ",", 2)
	if len(parts) != 2 || !strings.HasSuffix(parts[0], ";base64") {
		return "", nil, errInvalidDataURL
	}
	data, err = base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", nil, errors.Wrap(errInvalidDataURL, err.Error())
	}
	return strings.TrimSuffix(parts[0], ";base64"), data, nil
}

// IsImageDataURL reports whether s is a base64 encoded image data URL.
func IsImageDataURL(s string) bool {
	return strings.HasPrefix(s, "data:image/") && strings.Contains(s, ";base64,")
}

// IsDate reports whether s is a calendar date formatted as YYYY-MM-DD.
func IsDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
