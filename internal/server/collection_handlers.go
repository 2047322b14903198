package server

import (
	"context"
	"strconv"

	"cmsadmin/internal/models"
	"cmsadmin/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListRecords handles GET /{collection}
// @Summary List records
// @Description Lists a collection with json-server style filters, sorting and paging
// @Tags records
// @Produce json
// @Param collection path string true "posts, categories, users, media or settings"
// @Param _sort query string false "Comma separated sort fields"
// @Param _order query string false "asc or desc per sort field"
// @Param _page query int false "Page number"
// @Param _limit query int false "Page size"
// @Param q query string false "Full text search"
// @Success 200 {array} object
// @Header 200 {string} X-Total-Count "Matches before paging"
// @Router /{collection} [get]
func (s *Server) ListRecords(collection string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := s.collectionService.List(c.UserContext(), collection, queryParams(c), sessionUserID(c))
		if err != nil {
			return err
		}
		if res.Sliced {
			c.Set("X-Total-Count", strconv.Itoa(res.Total))
		}
		return c.JSON(res.Items)
	}
}

// GetRecord handles GET /{collection}/{id}
// @Summary Get a record
// @Tags records
// @Produce json
// @Param collection path string true "Collection"
// @Param id path int true "Record ID"
// @Success 200 {object} object
// @Header 200 {string} ETag "Record version"
// @Failure 404 {object} models.ErrorResponse
// @Router /{collection}/{id} [get]
func (s *Server) GetRecord(collection string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, collection)
		if err != nil {
			return err
		}
		rec, etag, err := s.collectionService.Get(c.UserContext(), collection, id, sessionUserID(c))
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderETag, etag)
		return c.JSON(rec)
	}
}

// CreateRecord handles POST /{collection}
// @Summary Create a record
// @Tags records
// @Accept json
// @Produce json
// @Param collection path string true "Collection"
// @Param request body object true "Record fields"
// @Success 201 {object} object
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /{collection} [post]
func (s *Server) CreateRecord(collection string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload, err := decodeBody(c)
		if err != nil {
			return err
		}
		rec, etag, err := s.collectionService.Create(c.UserContext(), service.WriteInput{
			Collection:    collection,
			Payload:       payload,
			SessionUserID: sessionUserID(c),
		})
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderETag, etag)
		return c.Status(fiber.StatusCreated).JSON(rec)
	}
}

// PatchRecord handles PATCH /{collection}/{id}
// @Summary Update a record
// @Description Shallow-merges the payload into the record
// @Tags records
// @Accept json
// @Produce json
// @Param collection path string true "Collection"
// @Param id path int true "Record ID"
// @Param If-Match header string false "Expected ETag"
// @Param request body object true "Fields to change"
// @Success 200 {object} object
// @Failure 404 {object} models.ErrorResponse
// @Failure 412 {object} models.ErrorResponse
// @Failure 428 {object} models.ErrorResponse
// @Router /{collection}/{id} [patch]
func (s *Server) PatchRecord(collection string) fiber.Handler {
	return s.updateRecord(collection, (*service.CollectionService).Patch)
}

// ReplaceRecord handles PUT /{collection}/{id}
// @Summary Replace a record
// @Description Replaces the record keeping its id
// @Tags records
// @Accept json
// @Produce json
// @Param collection path string true "Collection"
// @Param id path int true "Record ID"
// @Param If-Match header string false "Expected ETag"
// @Param request body object true "New record"
// @Success 200 {object} object
// @Failure 404 {object} models.ErrorResponse
// @Failure 412 {object} models.ErrorResponse
// @Router /{collection}/{id} [put]
func (s *Server) ReplaceRecord(collection string) fiber.Handler {
	return s.updateRecord(collection, (*service.CollectionService).Replace)
}

type updateMethod func(*service.CollectionService, context.Context, service.WriteInput) (models.Record, string, error)

func (s *Server) updateRecord(collection string, method updateMethod) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, collection)
		if err != nil {
			return err
		}
		payload, err := decodeBody(c)
		if err != nil {
			return err
		}
		rec, etag, err := method(s.collectionService, c.UserContext(), service.WriteInput{
			Collection:    collection,
			ID:            id,
			Payload:       payload,
			SessionUserID: sessionUserID(c),
			IfMatch:       c.Get(fiber.HeaderIfMatch),
		})
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderETag, etag)
		return c.JSON(rec)
	}
}

// DeleteRecord handles DELETE /{collection}/{id}
// @Summary Delete a record
// @Tags records
// @Produce json
// @Param collection path string true "Collection"
// @Param id path int true "Record ID"
// @Success 200 {object} object
// @Failure 404 {object} models.ErrorResponse
// @Router /{collection}/{id} [delete]
func (s *Server) DeleteRecord(collection string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, collection)
		if err != nil {
			return err
		}
		if err := s.collectionService.Delete(c.UserContext(), collection, id); err != nil {
			return err
		}
		return c.JSON(fiber.Map{})
	}
}
