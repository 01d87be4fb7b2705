package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangang/ideaforge/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MembershipLedger is the store of who belongs to which project. It applies
// no policy; callers authorize through the access evaluator first.
type MembershipLedger struct {
	db *gorm.DB
}

func NewMembershipLedger(db *gorm.DB) *MembershipLedger {
	return &MembershipLedger{db: db}
}

// RequestOutcome reports what a join request did.
type RequestOutcome struct {
	Created    bool                      `json:"created"`
	Status     models.MembershipStatus   `json:"status"`
	Membership *models.ProjectMembership `json:"-"`
}

// Get returns the membership of userID in projectID, or nil when none exists.
func (l *MembershipLedger) Get(ctx context.Context, userID, projectID uint) (*models.ProjectMembership, error) {
	var m models.ProjectMembership
	err := l.db.WithContext(ctx).
		Where("user_id = ? AND project_id = ?", userID, projectID).
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateOwner writes the owner row for a freshly created project. tx must be
// the transaction that created the project so both writes commit together.
func (l *MembershipLedger) CreateOwner(ctx context.Context, tx *gorm.DB, userID, projectID uint) error {
	if tx == nil {
		tx = l.db
	}
	m := models.ProjectMembership{
		ProjectID: projectID,
		UserID:    userID,
		Role:      models.RoleOwner,
		Status:    models.StatusPtr(models.StatusApproved),
	}
	return tx.WithContext(ctx).Create(&m).Error
}

// Request creates a PENDING membership unless one already exists. The unique
// (project_id, user_id) index decides races: the losing insert is a no-op and
// the caller sees the winner's row with Created=false.
func (l *MembershipLedger) Request(ctx context.Context, userID, projectID uint) (*RequestOutcome, error) {
	m := models.ProjectMembership{
		ProjectID: projectID,
		UserID:    userID,
		Role:      models.RoleMember,
		Status:    models.StatusPtr(models.StatusPending),
	}

	result := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&m)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected > 0 {
		return &RequestOutcome{Created: true, Status: models.StatusPending, Membership: &m}, nil
	}

	existing, err := l.Get(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("membership for user %d in project %d neither inserted nor found", userID, projectID)
	}
	return &RequestOutcome{Created: false, Status: existing.EffectiveStatus(), Membership: existing}, nil
}

// SetStatus changes the approval status of m.
func (l *MembershipLedger) SetStatus(ctx context.Context, m *models.ProjectMembership, status models.MembershipStatus) error {
	if err := l.db.WithContext(ctx).Model(m).Update("status", status).Error; err != nil {
		return err
	}
	m.Status = models.StatusPtr(status)
	return nil
}

// Remove deletes m.
func (l *MembershipLedger) Remove(ctx context.Context, m *models.ProjectMembership) error {
	return l.db.WithContext(ctx).Delete(m).Error
}

// ListMembers returns the MEMBER rows of a project, oldest first, with users loaded.
func (l *MembershipLedger) ListMembers(ctx context.Context, projectID uint) ([]models.ProjectMembership, error) {
	var members []models.ProjectMembership
	err := l.db.WithContext(ctx).
		Preload("User").
		Where("project_id = ? AND role = ?", projectID, models.RoleMember).
		Order("created_at ASC, id ASC").
		Find(&members).Error
	return members, err
}

// ListJoined returns projects where userID is an approved (or legacy NULL) member.
func (l *MembershipLedger) ListJoined(ctx context.Context, userID uint) ([]models.Project, error) {
	return l.listProjects(ctx, userID,
		"project_memberships.status = ? OR project_memberships.status IS NULL", models.StatusApproved)
}

// ListPending returns projects where userID is waiting for approval.
func (l *MembershipLedger) ListPending(ctx context.Context, userID uint) ([]models.Project, error) {
	return l.listProjects(ctx, userID, "project_memberships.status = ?", models.StatusPending)
}

func (l *MembershipLedger) listProjects(ctx context.Context, userID uint, statusCond string, args ...interface{}) ([]models.Project, error) {
	var projects []models.Project
	err := l.db.WithContext(ctx).
		Joins("JOIN project_memberships ON project_memberships.project_id = projects.id").
		Where("project_memberships.user_id = ? AND project_memberships.role = ?", userID, models.RoleMember).
		Where(statusCond, args...).
		Order("project_memberships.created_at DESC").
		Find(&projects).Error
	return projects, err
}
