package service

import (
	"errors"

	"cmsadmin/internal/models"
	"cmsadmin/internal/repository"
)

// translateError maps repository sentinels onto API errors. AppErrors pass through.
func translateError(err error, collection string, id int64) error {
	if err == nil {
		return nil
	}

	var appErr *models.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, repository.ErrNotFound):
		return models.NewNotFoundError(collection, id)
	case errors.Is(err, repository.ErrDuplicateID):
		return models.NewConflictError("Já existe um registro com este id")
	case errors.Is(err, repository.ErrVersionMismatch):
		return models.NewPreconditionFailedError("O registro foi alterado por outra requisição")
	case errors.Is(err, repository.ErrUnknownCollection):
		return models.NewNotFoundMessage("Coleção não encontrada")
	}
	return models.NewInternalError(err)
}
