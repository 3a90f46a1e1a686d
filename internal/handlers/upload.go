// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
)

// maxUploadBytes caps a thumbnail upload.
const maxUploadBytes = 5 << 20

// imageTypes maps sniffed content types to stored file extensions.
var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ObjectStore persists uploaded files and reports their public URL.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	FileURL(key string) string
}

// Uploads handles thumbnail image uploads for the admin.
type Uploads struct {
	store ObjectStore
}

// NewUploads creates an Uploads handler group. A nil store disables
// uploads with 503.
func NewUploads(store ObjectStore) *Uploads {
	return &Uploads{store: store}
}

// Thumbnail accepts a multipart "file" field holding a JPEG, PNG, GIF or
// WebP image and returns the URL to put in a post's thumbnail.
func (u *Uploads) Thumbnail(w http.ResponseWriter, r *http.Request) {
	if u.store == nil {
		respondError(w, http.StatusServiceUnavailable, "Uploads are not configured.", nil)
		return
	}

	// Leave room for the multipart framing around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+64<<10)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fileInvalid(w, fmt.Sprintf("The file field must not be greater than %d kilobytes.", maxUploadBytes>>10))
			return
		}
		fileInvalid(w, "The file field is required.")
		return
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		fileInvalid(w, fmt.Sprintf("The file field must not be greater than %d kilobytes.", maxUploadBytes>>10))
		return
	}

	sniff := make([]byte, 512)
	n, err := io.ReadFull(file, sniff)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		serverError(w, r, "read upload failed", err)
		return
	}
	contentType := http.DetectContentType(sniff[:n])
	ext, ok := imageTypes[contentType]
	if !ok {
		fileInvalid(w, "The file field must be an image.")
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		serverError(w, r, "rewind upload failed", err)
		return
	}

	key := "thumbnails/" + uuid.NewString() + ext
	if err := u.store.Upload(r.Context(), key, contentType, file, header.Size); err != nil {
		serverError(w, r, "store upload failed", err)
		return
	}

	respond(w, r, http.StatusCreated, "File uploaded successfully.", map[string]string{
		"key": key,
		"url": u.store.FileURL(key),
	})
}

func fileInvalid(w http.ResponseWriter, msg string) {
	errs := validationErrors{}
	errs.add("file", msg)
	respondError(w, http.StatusUnprocessableEntity, "Validation Error", errs)
}
