package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/morerecipes/apiserver/internal/store"
)

// MaxImageSize is the largest accepted upload.
const MaxImageSize = 5 << 20

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageStore writes objects and reports where they can be fetched.
// *storage.Storage satisfies it.
type ImageStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

// UploadedImage describes a stored recipe image.
type UploadedImage struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// ImageService stores images that recipes reference by URL.
type ImageService struct {
	images ImageStore
	users  UserLookup
	newID  func() string
}

func NewImageService(images ImageStore, users UserLookup) *ImageService {
	return &ImageService{images: images, users: users, newID: uuid.NewString}
}

// Upload stores an image for userID under recipes/<userID>/<uuid><ext>.
// filename is only used to pick an extension when the content type has no
// known one.
func (s *ImageService) Upload(ctx context.Context, userID int, filename, contentType string, size int64, r io.Reader) (UploadedImage, error) {
	contentType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	fields := map[string][]string{}
	if !strings.HasPrefix(contentType, "image/") {
		fields["image"] = append(fields["image"], "The image must be an image file.")
	}
	if size <= 0 {
		fields["image"] = append(fields["image"], "The image field is required.")
	} else if size > MaxImageSize {
		fields["image"] = append(fields["image"], fmt.Sprintf("The image may not be greater than %d kilobytes.", MaxImageSize>>10))
	}
	if len(fields) > 0 {
		return UploadedImage{}, newError(ErrValidation, fields, nil)
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return UploadedImage{}, ErrUserNotFound
		}
		return UploadedImage{}, fmt.Errorf("load user %d: %w", userID, err)
	}

	ext, ok := imageExtensions[contentType]
	if !ok {
		ext = strings.ToLower(path.Ext(filename))
	}
	key := fmt.Sprintf("recipes/%d/%s%s", userID, s.newID(), ext)

	url, err := s.images.Put(ctx, key, io.LimitReader(r, size), size, contentType)
	if err != nil {
		return UploadedImage{}, fmt.Errorf("store image: %w", err)
	}
	return UploadedImage{Key: key, URL: url, ContentType: contentType, Size: size}, nil
}
