package server

import (
	"net/url"

	"cmsadmin/internal/models"
	"cmsadmin/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Upload handles POST /upload
// @Summary Upload a media file
// @Description Stores an image or video and records it in the media collection
// @Tags media
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Image or video"
// @Success 200 {object} models.Media
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /upload [post]
func (s *Server) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return models.NewValidationError(service.MsgNoFile)
	}

	file, err := fh.Open()
	if err != nil {
		return models.NewInternalError(err)
	}
	defer file.Close()

	rec, err := s.mediaService.Upload(c.UserContext(), service.UploadInput{
		UploadedBy:  sessionUserID(c),
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Content:     file,
	})
	if err != nil {
		return err
	}
	return c.JSON(rec)
}

// ServeUpload handles GET /uploads/*
// @Summary Serve an uploaded file
// @Tags media
// @Produce octet-stream
// @Param name path string true "Stored file name"
// @Success 200 {file} file
// @Failure 404 {object} models.ErrorResponse
// @Router /uploads/{name} [get]
func (s *Server) ServeUpload(c *fiber.Ctx) error {
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")

	name, err := url.PathUnescape(c.Params("*"))
	if err != nil {
		return models.NewNotFoundMessage(service.MsgFileNotFound)
	}

	body, size, contentType, err := s.mediaService.Open(c.UserContext(), name)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, contentType)
	return c.SendStream(body, int(size))
}
