package services

import (
	"errors"

	"github.com/huangang/ideaforge/backend/pkg/response"
	"gorm.io/gorm"
)

// Denial reasons that do not come from the access evaluator.
const (
	ReasonInvalidCredential = "InvalidCredential"
	ReasonExpired           = "Expired"
	ReasonUserNotFound      = "UserNotFound"
	ReasonInvalidInvite     = "InvalidInvite"
	ReasonAlreadyOwner      = "AlreadyOwner"
	ReasonRateLimited       = "RateLimited"
)

// dbError maps gorm sentinel errors onto typed application errors. Anything
// else is returned unchanged and surfaces as Internal.
func dbError(err error, notFound *response.AppError) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound) && notFound != nil:
		return notFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return response.NewConflict("resource already exists")
	}
	return err
}
