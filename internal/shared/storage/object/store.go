package object

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"time"

	"linkedin-optimizer/internal/shared/util"
)

// ErrNotFound is returned by Open when the key does not exist.
var ErrNotFound = errors.New("object not found")

const (
	uploadsRoot   = "uploads"
	textSuffix    = ".extracted.txt"
	sniffLen      = 512
	namespaceSize = 24

	// TextContentType is used for derived plain text artifacts.
	TextContentType = "text/plain; charset=utf-8"
)

// Object describes a stored upload.
type Object struct {
	Key      string
	Size     int64
	MimeType string
}

// ObjectStore defines the contract for archiving uploaded profile documents
// and their derived artifacts.
type ObjectStore interface {
	// Save stores an upload under the optimization's namespace with a random
	// prefix so repeated uploads never collide.
	Save(ctx context.Context, optimizationID string, fileName string, r io.Reader) (Object, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	Delete(ctx context.Context, storageKey string) error
}

// Upload is a sniffed, keyed upload ready to be written by a backend.
type Upload struct {
	Key         string
	ContentType string
	Body        io.Reader
}

// PrepareUpload derives the storage key for a new upload and detects its
// content type from the leading bytes. Body replays the sniffed prefix.
func PrepareUpload(optimizationID, fileName string, r io.Reader) (Upload, error) {
	key, err := UploadKey(optimizationID, randomID(), fileName)
	if err != nil {
		return Upload{}, err
	}
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	switch {
	case err == nil, errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
	default:
		return Upload{}, fmt.Errorf("read upload head: %w", err)
	}
	head = head[:n]
	return Upload{
		Key:         key,
		ContentType: http.DetectContentType(head),
		Body:        io.MultiReader(bytes.NewReader(head), r),
	}, nil
}

// UploadKey builds the storage key for an upload. The optimization ID is
// caller supplied, so it is hashed rather than used as a path segment.
func UploadKey(optimizationID, randomPrefix, fileName string) (string, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	ns := util.HashPrefix(optimizationID, namespaceSize)
	return path.Join(uploadsRoot, ns, randomPrefix+"_"+name), nil
}

// TextKey is where the extracted text of a stored document is kept.
func TextKey(documentKey string) string {
	return documentKey + textSuffix
}

func randomID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(b[:])
}
