package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/pkg/response"
	"gorm.io/gorm"
)

// InviteIssuer hands out and redeems project invite tokens.
type InviteIssuer struct {
	db     *gorm.DB
	ledger *MembershipLedger
}

func NewInviteIssuer(db *gorm.DB, ledger *MembershipLedger) *InviteIssuer {
	return &InviteIssuer{db: db, ledger: ledger}
}

// RedeemResult is the project behind a token and what redeeming it did.
type RedeemResult struct {
	Project *models.Project         `json:"project"`
	Joined  bool                    `json:"joined"`
	Status  models.MembershipStatus `json:"status"`
}

// Issue returns a new random invite token. Tokens are set once at project
// creation and never regenerated.
func (i *InviteIssuer) Issue() string {
	return uuid.NewString()
}

// Redeem resolves token and files a membership request for userID.
// Redeeming twice never creates a second membership.
func (i *InviteIssuer) Redeem(ctx context.Context, token string, userID uint) (*RedeemResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, response.NewNotFound("invalid invite link").WithReason(ReasonInvalidInvite)
	}

	var project models.Project
	err := i.db.WithContext(ctx).Where("invite_token = ?", token).Take(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, response.NewNotFound("invalid invite link").WithReason(ReasonInvalidInvite)
	}
	if err != nil {
		return nil, err
	}

	if project.IsOwner(userID) {
		return nil, response.NewBadRequest("you already own this project").WithReason(ReasonAlreadyOwner)
	}

	outcome, err := i.ledger.Request(ctx, userID, project.ID)
	if err != nil {
		return nil, err
	}
	return &RedeemResult{Project: &project, Joined: outcome.Created, Status: outcome.Status}, nil
}
