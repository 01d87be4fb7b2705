package services

import (
	"context"
	"strings"

	"github.com/huangang/ideaforge/backend/internal/access"
	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/internal/storage"
	"github.com/huangang/ideaforge/backend/pkg/logger"
	"github.com/huangang/ideaforge/backend/pkg/response"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProjectService struct {
	db      *gorm.DB
	ledger  *MembershipLedger
	invites *InviteIssuer
	guard   *AccessGuard
	store   storage.ObjectStore
}

func NewProjectService(db *gorm.DB, ledger *MembershipLedger, invites *InviteIssuer, guard *AccessGuard, store storage.ObjectStore) *ProjectService {
	return &ProjectService{db: db, ledger: ledger, invites: invites, guard: guard, store: store}
}

type CreateProjectRequest struct {
	Name            string   `json:"name"`
	ShortSummary    string   `json:"shortSummary"`
	FullDescription string   `json:"fullDescription"`
	Tags            []string `json:"tags"`
}

type UpdateProjectRequest struct {
	Name            *string   `json:"name"`
	ShortSummary    *string   `json:"shortSummary"`
	FullDescription *string   `json:"fullDescription"`
	Tags            *[]string `json:"tags"`
}

// ProjectView is a project together with the caller's standing in it.
type ProjectView struct {
	*models.Project
	IsOwner          bool                     `json:"isOwner"`
	MembershipStatus *models.MembershipStatus `json:"membershipStatus,omitempty"`
}

// Create stores a project and its owner membership in one transaction.
func (s *ProjectService) Create(ctx context.Context, userID uint, req *CreateProjectRequest) (*models.Project, error) {
	name := strings.TrimSpace(req.Name)
	summary := strings.TrimSpace(req.ShortSummary)
	if name == "" || summary == "" {
		return nil, response.NewBadRequest("name and short summary are required").WithReason(string(access.ReasonInvalidInput))
	}

	project := models.Project{
		Name:            name,
		ShortSummary:    summary,
		FullDescription: req.FullDescription,
		Tags:            datatypes.JSONSlice[string](cleanTags(req.Tags)),
		InviteToken:     s.invites.Issue(),
		OwnerID:         userID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		return s.ledger.CreateOwner(ctx, tx, userID, project.ID)
	})
	if err != nil {
		return nil, dbError(err, nil)
	}

	logger.Info().Uint("project_id", project.ID).Uint("owner_id", userID).Msg("project created")
	return &project, nil
}

// ListMine returns projects owned by userID, newest first.
func (s *ProjectService) ListMine(ctx context.Context, userID uint) ([]models.Project, error) {
	var projects []models.Project
	err := s.db.WithContext(ctx).Where("owner_id = ?", userID).Order("created_at DESC").Find(&projects).Error
	return projects, err
}

func (s *ProjectService) ListJoined(ctx context.Context, userID uint) ([]models.Project, error) {
	return s.ledger.ListJoined(ctx, userID)
}

func (s *ProjectService) ListPending(ctx context.Context, userID uint) ([]models.Project, error) {
	return s.ledger.ListPending(ctx, userID)
}

// Get returns a project the caller may view.
func (s *ProjectService) Get(ctx context.Context, userID, projectID uint) (*ProjectView, error) {
	grant, err := s.guard.Project(ctx, userID, projectID, access.ActionView)
	if err != nil {
		return nil, err
	}
	view := &ProjectView{Project: grant.Project, IsOwner: grant.Project.IsOwner(userID)}
	if grant.Membership != nil {
		status := grant.Membership.EffectiveStatus()
		view.MembershipStatus = &status
	}
	return view, nil
}

// Update changes project fields. Owner only; the owner itself never changes.
func (s *ProjectService) Update(ctx context.Context, userID, projectID uint, req *UpdateProjectRequest) (*models.Project, error) {
	grant, err := s.guard.Project(ctx, userID, projectID, access.ActionEditProject)
	if err != nil {
		return nil, err
	}
	project := grant.Project

	updates := make(map[string]interface{})
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, response.NewBadRequest("name cannot be empty").WithReason(string(access.ReasonInvalidInput))
		}
		updates["name"] = name
	}
	if req.ShortSummary != nil {
		summary := strings.TrimSpace(*req.ShortSummary)
		if summary == "" {
			return nil, response.NewBadRequest("short summary cannot be empty").WithReason(string(access.ReasonInvalidInput))
		}
		updates["short_summary"] = summary
	}
	if req.FullDescription != nil {
		updates["full_description"] = *req.FullDescription
	}
	if req.Tags != nil {
		updates["tags"] = datatypes.JSONSlice[string](cleanTags(*req.Tags))
	}
	if len(updates) == 0 {
		return project, nil
	}

	if err := s.db.WithContext(ctx).Model(project).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).First(project, project.ID).Error; err != nil {
		return nil, err
	}
	return project, nil
}

// Delete removes a project with its memberships, cards, comments, likes and
// chat history in one transaction. Card images are removed afterwards on a
// best-effort basis.
func (s *ProjectService) Delete(ctx context.Context, userID, projectID uint) error {
	if _, err := s.guard.Project(ctx, userID, projectID, access.ActionDeleteProject); err != nil {
		return err
	}

	var imageRefs []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Card{}).
			Where("project_id = ? AND image_ref IS NOT NULL", projectID).
			Pluck("image_ref", &imageRefs).Error; err != nil {
			return err
		}

		cardIDs := tx.Model(&models.Card{}).Select("id").Where("project_id = ?", projectID)
		if err := tx.Where("card_id IN (?)", cardIDs).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("card_id IN (?)", cardIDs).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&models.Card{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&models.ProjectMembership{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Project{}, projectID).Error
	})
	if err != nil {
		return err
	}

	s.removeImages(ctx, imageRefs)
	logger.Info().Uint("project_id", projectID).Int("images", len(imageRefs)).Msg("project deleted")
	return nil
}

// Join redeems an invite for userID. joinLink is the invite token; a pasted
// URL is reduced to its last path segment.
func (s *ProjectService) Join(ctx context.Context, userID uint, joinLink string) (*RedeemResult, error) {
	token := strings.TrimRight(strings.TrimSpace(joinLink), "/")
	if i := strings.LastIndex(token, "/"); i >= 0 {
		token = token[i+1:]
	}
	return s.invites.Redeem(ctx, token, userID)
}

func (s *ProjectService) removeImages(ctx context.Context, keys []string) {
	if s.store == nil {
		return
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("failed to delete card image")
		}
	}
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
