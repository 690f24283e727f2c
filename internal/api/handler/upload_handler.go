package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pinsync/pinsync-server/internal/core/ports"
)

// UploadHandler handles HTTP requests for uploads: creation, listing,
// deletion, and the engagement counters.
type UploadHandler struct {
	uploads    ports.UploadService
	engagement ports.EngagementService
}

func NewUploadHandler(uploads ports.UploadService, engagement ports.EngagementService) *UploadHandler {
	return &UploadHandler{uploads: uploads, engagement: engagement}
}

// Create stores a new upload. The multipart "file" field is required; the
// bytes land in the blob store before the record exists.
//
// @Summary      Create an upload
// @Tags         uploads
// @Accept       mpfd
// @Produce      json
// @Success      201  {object}  uploadResponse
// @Failure      400  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /uploads [post]
func (h *UploadHandler) Create(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing required fields")
	}

	name := c.FormValue("name")
	category := c.FormValue("category")
	uploader := c.FormValue("uploader")
	if name == "" || category == "" || uploader == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing required fields")
	}

	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	upload, err := h.uploads.CreateUpload(c.Request().Context(), ports.CreateUploadInput{
		Name:        name,
		Category:    category,
		Description: c.FormValue("description"),
		Website:     c.FormValue("website"),
		Uploader:    uploader,
		Filename:    fh.Filename,
		Content:     f,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, uploadResponse{Message: "Upload successful", Upload: upload})
}

// List returns all uploads.
//
// @Summary      List all uploads
// @Tags         uploads
// @Produce      json
// @Success      200  {array}  domain.Upload
// @Failure      500  {object}  errorResponse
// @Router       /uploads [get]
func (h *UploadHandler) List(c echo.Context) error {
	uploads, err := h.uploads.ListUploads(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, uploads)
}

// ToggleLike flips the calling user's like on an upload. The response carries
// the authoritative post-mutation counters; clients mirror them, never the
// other way round.
//
// @Summary      Toggle a like on an upload
// @Tags         uploads
// @Accept       json
// @Produce      json
// @Param        id    path      string       true  "Upload id"
// @Param        body  body      likeRequest  true  "Liking user"
// @Success      200   {object}  uploadResponse
// @Failure      404   {object}  errorResponse
// @Router       /uploads/{id}/like [put]
func (h *UploadHandler) ToggleLike(c echo.Context) error {
	var req likeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	upload, err := h.engagement.ToggleLike(c.Request().Context(), c.Param("id"), req.UserName)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, uploadResponse{Message: "Like updated", Upload: upload})
}

// RecordDownload increments an upload's download counter.
//
// @Summary      Record a download
// @Tags         uploads
// @Produce      json
// @Param        id  path      string  true  "Upload id"
// @Success      200  {object}  uploadResponse
// @Failure      404  {object}  errorResponse
// @Router       /uploads/{id}/download [put]
func (h *UploadHandler) RecordDownload(c echo.Context) error {
	upload, err := h.engagement.RecordDownload(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, uploadResponse{Message: "Download updated", Upload: upload})
}

// Delete removes an upload record.
//
// @Summary      Delete an upload
// @Tags         uploads
// @Produce      json
// @Param        id  path      string  true  "Upload id"
// @Success      200  {object}  messageResponse
// @Failure      404  {object}  errorResponse
// @Router       /uploads/{id} [delete]
func (h *UploadHandler) Delete(c echo.Context) error {
	if _, err := h.uploads.DeleteUpload(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Upload deleted successfully"})
}
