package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/chulseok-go-api/internal/dto"
	"github.com/noah-isme/chulseok-go-api/internal/service"
	"github.com/noah-isme/chulseok-go-api/internal/utils"
)

// UploadHandler handles roster sheet uploads.
type UploadHandler struct {
	service  service.RosterService
	logger   zerolog.Logger
	maxBytes int64
}

// NewUploadHandler constructs an upload handler.
func NewUploadHandler(service service.RosterService, maxSizeMB int, logger zerolog.Logger) *UploadHandler {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &UploadHandler{
		service:  service,
		logger:   logger.With().Str("component", "upload_handler").Logger(),
		maxBytes: int64(maxSizeMB) * 1024 * 1024,
	}
}

// Register wires upload routes.
func (h *UploadHandler) Register(router fiber.Router) {
	router.Post("", h.upload)
}

func (h *UploadHandler) upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	sheetType := c.FormValue("type")

	if file.Size > h.maxBytes {
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, "file exceeds maximum allowed size")
	}

	payload, err := h.spoolAndRead(file)
	if err != nil {
		h.logger.Error().Err(err).Str("filename", file.Filename).Msg("failed to read upload")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to read uploaded file")
	}

	if _, err := h.service.Import(c.Context(), sheetType, file.Filename, payload); err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownSheetType):
			return utils.SendError(c, fiber.StatusBadRequest, "invalid upload type")
		case errors.Is(err, service.ErrMissingColumns):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Str("filename", file.Filename).Msg("roster import failed")
			return utils.SendError(c, fiber.StatusInternalServerError, fmt.Sprintf("error processing file: %v", err))
		}
	}

	return utils.SendSuccess(c, "roster imported", dto.UploadResponse{
		Filename: file.Filename,
		Status:   "success",
	})
}

// spoolAndRead copies the multipart part to a temporary file and reads it
// back. The temporary file is removed on every exit path; cleanup failures
// are logged and otherwise ignored.
func (h *UploadHandler) spoolAndRead(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "roster-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		if err := os.Remove(tmp.Name()); err != nil {
			h.logger.Warn().Err(err).Str("path", tmp.Name()).Msg("failed to remove temp upload")
		}
	}()

	if _, err := io.Copy(tmp, io.LimitReader(src, h.maxBytes+1)); err != nil {
		return nil, fmt.Errorf("failed to spool upload: %w", err)
	}

	payload, err := os.ReadFile(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to read temp file: %w", err)
	}
	if int64(len(payload)) > h.maxBytes {
		return nil, fmt.Errorf("file exceeds maximum allowed size")
	}

	return payload, nil
}
