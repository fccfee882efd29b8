package upload

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"boutique/internal/apperror"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// FieldName is the multipart field carrying the profile picture.
	FieldName = "profilPic"
	// MaxSize is the largest accepted upload in bytes.
	MaxSize = 2 << 20
)

var (
	allowedExtensions   = []string{".jpeg", ".jpg", ".png", ".webp"}
	allowedContentTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/webp"}
	allowedSniffed      = []string{"image/jpeg", "image/png", "image/webp"}
)

// Store persists validated images and returns the path they are served under.
type Store interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
	Remove(path string) error
}

// Uploader validates profile pictures and hands them to a Store.
type Uploader struct {
	store Store
}

// NewUploader creates a new Uploader.
func NewUploader(store Store) *Uploader {
	return &Uploader{store: store}
}

// Save validates fh and stores it under a unique name.
func (u *Uploader) Save(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	data, ext, contentType, err := Validate(fh)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), uuid.NewString(), ext)
	path, err := u.store.Put(ctx, name, contentType, data)
	if err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	log.Info().Str("path", path).Int("bytes", len(data)).Msg("Profile picture stored")
	return path, nil
}

// Remove deletes a previously stored upload.
func (u *Uploader) Remove(path string) error {
	return u.store.Remove(path)
}

func invalid(message string) error {
	return &apperror.ValidationError{Field: FieldName, Message: message}
}

// Validate reads fh and checks its size, extension, declared type and sniffed
// content. It returns the content, the normalized extension and the sniffed type.
func Validate(fh *multipart.FileHeader) ([]byte, string, string, error) {
	if fh.Size > MaxSize {
		return nil, "", "", invalid("file is too large, the limit is 2 MiB")
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !slices.Contains(allowedExtensions, ext) {
		return nil, "", "", invalid("only .jpeg, .jpg, .png and .webp images are allowed")
	}

	declared := strings.ToLower(strings.TrimSpace(fh.Header.Get("Content-Type")))
	if !slices.Contains(allowedContentTypes, declared) {
		return nil, "", "", invalid(fmt.Sprintf("content type %q is not an accepted image type", declared))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxSize+1))
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) > MaxSize {
		return nil, "", "", invalid("file is too large, the limit is 2 MiB")
	}

	sniffed := mimetype.Detect(data)
	for _, allowed := range allowedSniffed {
		if sniffed.Is(allowed) {
			return data, ext, allowed, nil
		}
	}
	return nil, "", "", invalid(fmt.Sprintf("file content is %s, not an accepted image", sniffed.String()))
}
