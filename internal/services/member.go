package services

import (
	"context"
	"time"

	"github.com/huangang/ideaforge/backend/internal/access"
	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/pkg/logger"
	"github.com/huangang/ideaforge/backend/pkg/response"
)

// MemberService is the owner-facing view of a project's memberships.
type MemberService struct {
	ledger *MembershipLedger
	guard  *AccessGuard
}

func NewMemberService(ledger *MembershipLedger, guard *AccessGuard) *MemberService {
	return &MemberService{ledger: ledger, guard: guard}
}

type MemberInfo struct {
	UserID    uint                    `json:"userId"`
	Name      string                  `json:"name"`
	Email     string                  `json:"email"`
	Role      models.MembershipRole   `json:"role"`
	Status    models.MembershipStatus `json:"status"`
	CreatedAt time.Time               `json:"createdAt"`
}

// List returns the non-owner members of a project, oldest first.
func (s *MemberService) List(ctx context.Context, userID, projectID uint) ([]MemberInfo, error) {
	if _, err := s.guard.Project(ctx, userID, projectID, access.ActionManageMembers); err != nil {
		return nil, err
	}

	rows, err := s.ledger.ListMembers(ctx, projectID)
	if err != nil {
		return nil, err
	}

	members := make([]MemberInfo, 0, len(rows))
	for i := range rows {
		m := &rows[i]
		info := MemberInfo{
			UserID:    m.UserID,
			Name:      "Unknown",
			Role:      m.Role,
			Status:    m.EffectiveStatus(),
			CreatedAt: m.CreatedAt,
		}
		if m.User != nil {
			info.Name = m.User.Name
			info.Email = m.User.Email
		}
		members = append(members, info)
	}
	return members, nil
}

// SetStatus approves a member or moves them back to pending.
func (s *MemberService) SetStatus(ctx context.Context, userID, projectID, targetUserID uint, status string) (*models.ProjectMembership, error) {
	newStatus := models.MembershipStatus(status)
	if newStatus != models.StatusApproved && newStatus != models.StatusPending {
		return nil, response.NewBadRequest("invalid status").WithReason(string(access.ReasonInvalidInput))
	}

	m, err := s.target(ctx, userID, projectID, targetUserID)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.SetStatus(ctx, m, newStatus); err != nil {
		return nil, err
	}

	logger.Info().Uint("project_id", projectID).Uint("member_id", targetUserID).Str("status", status).Msg("membership status changed")
	return m, nil
}

// Remove deletes a member from the project.
func (s *MemberService) Remove(ctx context.Context, userID, projectID, targetUserID uint) error {
	m, err := s.target(ctx, userID, projectID, targetUserID)
	if err != nil {
		return err
	}
	if err := s.ledger.Remove(ctx, m); err != nil {
		return err
	}

	logger.Info().Uint("project_id", projectID).Uint("member_id", targetUserID).Msg("member removed")
	return nil
}

// target authorizes the caller as owner and loads the membership being
// managed. The owner row is never editable here.
func (s *MemberService) target(ctx context.Context, userID, projectID, targetUserID uint) (*models.ProjectMembership, error) {
	grant, err := s.guard.Project(ctx, userID, projectID, access.ActionManageMembers)
	if err != nil {
		return nil, err
	}
	if grant.Project.IsOwner(targetUserID) {
		return nil, response.NewBadRequest("the project owner cannot be changed").WithReason(string(access.ReasonInvalidInput))
	}

	m, err := s.ledger.Get(ctx, targetUserID, projectID)
	if err != nil {
		return nil, err
	}
	if m == nil || m.Role == models.RoleOwner {
		return nil, response.NewNotFound("membership not found").WithReason(string(access.ReasonNotFound))
	}
	return m, nil
}
