package services

import (
	"context"
	"errors"

	"github.com/huangang/ideaforge/backend/internal/access"
	"github.com/huangang/ideaforge/backend/internal/models"
	"gorm.io/gorm"
)

// AccessGuard loads the facts a decision needs and asks access.Evaluate.
type AccessGuard struct {
	db     *gorm.DB
	ledger *MembershipLedger
}

func NewAccessGuard(db *gorm.DB, ledger *MembershipLedger) *AccessGuard {
	return &AccessGuard{db: db, ledger: ledger}
}

// Grant is what an allowed decision was based on.
type Grant struct {
	Project    *models.Project
	Membership *models.ProjectMembership
	Card       *models.Card
	Comment    *models.Comment
	Decision   access.Decision
}

// Project authorizes action on a project addressed by id.
func (g *AccessGuard) Project(ctx context.Context, userID, projectID uint, action access.Action) (*Grant, error) {
	return g.project(ctx, userID, projectID, action, nil)
}

// CreateCard authorizes adding a card to projectID and validates its input.
// The normalised card type is in Grant.Decision.CardType.
func (g *AccessGuard) CreateCard(ctx context.Context, userID, projectID uint, input access.CardInput) (*Grant, error) {
	return g.project(ctx, userID, projectID, access.ActionCreateCard, &input)
}

func (g *AccessGuard) project(ctx context.Context, userID, projectID uint, action access.Action, input *access.CardInput) (*Grant, error) {
	grant := &Grant{}
	if err := g.loadProject(ctx, userID, projectID, grant); err != nil {
		return nil, err
	}

	d := access.Evaluate(userID, access.Target{
		Project:    grant.Project,
		Membership: grant.Membership,
		Card:       input,
	}, action)
	if !d.Allowed {
		return nil, d.Err()
	}
	grant.Decision = d
	return grant, nil
}

// Card authorizes action on a card addressed by its own id.
func (g *AccessGuard) Card(ctx context.Context, userID, cardID uint, action access.Action) (*Grant, error) {
	grant := &Grant{}
	target := access.Target{ViaResource: true}

	var card models.Card
	err := g.db.WithContext(ctx).First(&card, cardID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return nil, err
	default:
		grant.Card = &card
		target.Resource = &access.Resource{Kind: "card", AuthorID: card.AuthorID}
		if err := g.loadProject(ctx, userID, card.ProjectID, grant); err != nil {
			return nil, err
		}
	}

	return g.decide(userID, target, action, grant)
}

// Comment authorizes action on a comment. The comment's card decides the project.
func (g *AccessGuard) Comment(ctx context.Context, userID, commentID uint, action access.Action) (*Grant, error) {
	grant := &Grant{}
	target := access.Target{ViaResource: true}

	var comment models.Comment
	err := g.db.WithContext(ctx).First(&comment, commentID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return g.decide(userID, target, action, grant)
	case err != nil:
		return nil, err
	}
	grant.Comment = &comment

	var card models.Card
	err = g.db.WithContext(ctx).First(&card, comment.CardID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return g.decide(userID, target, action, grant)
	case err != nil:
		return nil, err
	}
	grant.Card = &card
	target.Resource = &access.Resource{Kind: "comment", AuthorID: comment.AuthorID}

	if err := g.loadProject(ctx, userID, card.ProjectID, grant); err != nil {
		return nil, err
	}
	return g.decide(userID, target, action, grant)
}

func (g *AccessGuard) decide(userID uint, target access.Target, action access.Action, grant *Grant) (*Grant, error) {
	target.Project = grant.Project
	target.Membership = grant.Membership
	d := access.Evaluate(userID, target, action)
	if !d.Allowed {
		return nil, d.Err()
	}
	grant.Decision = d
	return grant, nil
}

// loadProject fills grant.Project and, for non-owners, grant.Membership.
// A missing project leaves both nil.
func (g *AccessGuard) loadProject(ctx context.Context, userID, projectID uint, grant *Grant) error {
	var project models.Project
	err := g.db.WithContext(ctx).First(&project, projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	grant.Project = &project

	if project.IsOwner(userID) {
		return nil
	}
	m, err := g.ledger.Get(ctx, userID, projectID)
	if err != nil {
		return err
	}
	grant.Membership = m
	return nil
}
