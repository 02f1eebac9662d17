package uploads

import (
	"io"
	"strings"

	uploadsvc "ngoconnect-backend/internal/application/uploads"
	"ngoconnect-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const maxUploadBytes = 5 << 20

// Handlers bundles upload handlers with the service.
type Handlers struct {
	Service *uploadsvc.Service
}

// UploadDonationImage POST /api/v1/uploads/donation-image — single multipart
// file, returns the stored path and public URL. Used for adding images to an
// existing donation draft.
func (h *Handlers) UploadDonationImage(c *fiber.Ctx) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return response.Error(c, "image file is required", 400, nil)
	}
	if fh.Size > maxUploadBytes {
		return response.Error(c, "Image must be 5MB or smaller", 400, nil)
	}
	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return response.Error(c, "Only image uploads are allowed", 400, nil)
	}

	f, err := fh.Open()
	if err != nil {
		return response.Error(c, "Failed to read uploaded file", 400, nil)
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return response.Error(c, "Failed to read uploaded file", 400, nil)
	}

	paths, err := h.Service.UploadFiles(c.Context(), []uploadsvc.File{{
		Name:        fh.Filename,
		ContentType: contentType,
		Content:     content,
	}})
	if err != nil {
		log.Error().Err(err).Str("file", fh.Filename).Msg("upload: failed to store donation image")
		return response.Error(c, "Failed to upload image", 500, nil)
	}

	return response.SuccessCreated(c, "Image uploaded successfully", fiber.Map{
		"path": paths[0],
		"url":  h.Service.PublicURL(paths[0]),
	}, nil)
}

// DeleteDonationImage DELETE /api/v1/uploads/donation-image — removes a
// previously uploaded blob by path.
func (h *Handlers) DeleteDonationImage(c *fiber.Ctx) error {
	var req struct {
		Path string `json:"path"`
	}
	if err := c.BodyParser(&req); err != nil || req.Path == "" {
		return response.Error(c, "path is required", 400, nil)
	}
	if err := h.Service.DeleteFile(c.Context(), req.Path); err != nil {
		log.Error().Err(err).Str("path", req.Path).Msg("upload: failed to delete donation image")
		return response.Error(c, "Failed to delete image", 500, nil)
	}
	return response.Success(c, "Image deleted successfully", nil, nil)
}
