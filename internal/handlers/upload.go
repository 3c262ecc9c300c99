package handlers

import (
	"errors"
	"net/http"

	"thought-stream-go/internal/images"

	"go.uber.org/zap"
)

// UploadImageHandler accepts a pasted image in the multipart field "file",
// shrinks it and answers with the URL to put in a thought.
func (h *Handler) UploadImageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Images == nil {
		writeError(w, http.StatusServiceUnavailable, "Image uploads are not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, images.MaxUploadSize)
	if err := r.ParseMultipartForm(images.MaxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Image too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid upload")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file part")
		return
	}
	defer file.Close()

	data, err := images.Resize(file, h.imageMaxWidth)
	if err != nil {
		h.log.Info("rejected upload", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Unsupported image")
		return
	}

	url, err := h.Images.Put(r.Context(), images.NewName(), images.ContentType, data)
	if err != nil {
		h.log.Error("failed to store image", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to store image")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
