package util

import (
	"errors"
	"path"
	"strings"
	"unicode"
)

// MaxFileNameLen bounds sanitized upload names. The extension is kept when
// a longer name is truncated.
const MaxFileNameLen = 128

var errInvalidFileName = errors.New("invalid file name")

// SanitizeFileName makes an uploaded file name safe to use as a single key
// segment. Traversal patterns are rejected; separators become underscores
// and control characters are dropped.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errInvalidFileName
	}
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	if s == "" {
		return "", errInvalidFileName
	}
	if len(s) > MaxFileNameLen {
		ext := path.Ext(s)
		if len(ext) >= MaxFileNameLen {
			ext = ""
		}
		s = strings.ToValidUTF8(s[:MaxFileNameLen-len(ext)], "") + ext
	}
	return s, nil
}
