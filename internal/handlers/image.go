package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/morerecipes/apiserver/internal/services"
)

const formFieldImage = "image"

// ImageHandler accepts recipe image uploads.
type ImageHandler struct {
	images *services.ImageService
	logger *slog.Logger
}

func NewImageHandler(images *services.ImageService, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{images: images, logger: logger}
}

type imageResponse struct {
	ImageURL string `json:"image_url"`
	Key      string `json:"key"`
}

// Upload stores the multipart "image" file and returns its public URL.
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())

	// Leave room for the multipart envelope around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxImageSize+(1<<20))
	if err := r.ParseMultipartForm(services.MaxImageSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "image is too large", Kind: services.KindValidation})
			return
		}
		writeBadRequest(w, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(formFieldImage)
	if err != nil {
		writeBadRequest(w, "image file is required")
		return
	}
	defer file.Close()

	img, err := h.images.Upload(r.Context(), claims.UserID, header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, imageResponse{ImageURL: img.URL, Key: img.Key})
}
