package services

import (
	"context"
	"errors"
	"time"

	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/internal/utils"
	"github.com/huangang/ideaforge/backend/pkg/response"
	"gorm.io/gorm"
)

// Identity is a verified caller.
type Identity struct {
	User      *models.User
	TokenID   string
	ExpiresAt time.Time
}

// IdentityVerifier resolves bearer tokens to users. It never writes.
type IdentityVerifier struct {
	db      *gorm.DB
	jwt     *utils.JWT
	revoker TokenRevoker
}

func NewIdentityVerifier(db *gorm.DB, jwt *utils.JWT, revoker TokenRevoker) *IdentityVerifier {
	if revoker == nil {
		revoker = NewMemoryTokenRevoker()
	}
	return &IdentityVerifier{db: db, jwt: jwt, revoker: revoker}
}

// Verify checks the credential and loads its user. Expired tokens fail with
// reason Expired, unknown users with UserNotFound, everything else with
// InvalidCredential.
func (v *IdentityVerifier) Verify(ctx context.Context, credential string) (*Identity, error) {
	claims, err := v.jwt.ParseToken(credential)
	switch {
	case errors.Is(err, utils.ErrTokenExpired):
		return nil, response.NewUnauthorized("token expired").WithReason(ReasonExpired)
	case err != nil:
		return nil, response.NewUnauthorized("invalid token").WithReason(ReasonInvalidCredential)
	}

	revoked, err := v.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, response.NewUnauthorized("token has been revoked").WithReason(ReasonInvalidCredential)
	}

	var user models.User
	err = v.db.WithContext(ctx).First(&user, claims.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, response.NewUnauthorized("user not found").WithReason(ReasonUserNotFound)
	}
	if err != nil {
		return nil, err
	}

	identity := &Identity{User: &user, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}
