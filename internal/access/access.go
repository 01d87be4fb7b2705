// Package access decides who may do what inside a project. Evaluate is a pure
// function of the facts it is given; loading those facts is the caller's job.
package access

import (
	"net/http"
	"strings"

	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/pkg/response"
)

type Action string

const (
	ActionView          Action = "view"
	ActionChat          Action = "chat"
	ActionReadCards     Action = "read-cards"
	ActionEditProject   Action = "edit-project"
	ActionDeleteProject Action = "delete-project"
	ActionManageMembers Action = "manage-members"
	ActionCreateCard    Action = "create-card"
	ActionEdit          Action = "edit"
	ActionDelete        Action = "delete"
)

type Reason string

const (
	ReasonProjectNotFound   Reason = "ProjectNotFound"
	ReasonNotAMember        Reason = "NotAMember"
	ReasonOwnerOnly         Reason = "OwnerOnly"
	ReasonInvalidInput      Reason = "InvalidInput"
	ReasonNotAuthorOrOwner  Reason = "NotAuthorOrOwner"
	ReasonNotFound          Reason = "NotFound"
	ReasonUnsupportedAction Reason = "UnsupportedAction"
)

// Resource is a card or comment reached by its own id rather than a project id.
type Resource struct {
	Kind     string // "card" or "comment", used in messages
	AuthorID uint
}

// CardInput is the part of a card-create request that authorization checks.
type CardInput struct {
	Type  string
	Title string
}

// Target is everything a decision depends on.
type Target struct {
	// Project is nil when it does not exist.
	Project *models.Project
	// Membership is the acting user's row in Project, nil when there is none.
	Membership *models.ProjectMembership

	// ViaResource marks a request addressed by card or comment id. Resource is
	// nil when that card or comment does not exist.
	ViaResource bool
	Resource    *Resource

	// Card carries the create payload for ActionCreateCard.
	Card *CardInput
}

// Decision is the outcome of Evaluate.
type Decision struct {
	Allowed bool
	Reason  Reason
	Status  int
	Message string

	// CardType is the normalised type for an allowed ActionCreateCard.
	CardType models.CardType
}

func allow() Decision {
	return Decision{Allowed: true, Status: http.StatusOK}
}

func deny(reason Reason, status int, msg string) Decision {
	return Decision{Reason: reason, Status: status, Message: msg}
}

// Err converts a denial into a typed application error. It returns nil when
// the decision allows the action.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	var appErr *response.AppError
	switch d.Status {
	case http.StatusNotFound:
		appErr = response.NewNotFound(d.Message)
	case http.StatusBadRequest:
		appErr = response.NewBadRequest(d.Message)
	default:
		appErr = response.NewForbidden(d.Message)
	}
	return appErr.WithReason(string(d.Reason))
}

// Evaluate applies the project access rules in priority order. The same
// inputs always produce the same decision. Ownership dominates membership.
func Evaluate(userID uint, t Target, action Action) Decision {
	if t.ViaResource && t.Resource == nil {
		return deny(ReasonNotFound, http.StatusNotFound, "resource not found")
	}
	if t.Project == nil {
		if t.ViaResource {
			return deny(ReasonNotFound, http.StatusNotFound, "project not found")
		}
		return deny(ReasonProjectNotFound, http.StatusNotFound, "project not found")
	}

	switch action {
	case ActionView, ActionChat, ActionReadCards:
		return canRead(userID, t)

	case ActionEditProject, ActionDeleteProject, ActionManageMembers:
		if t.Project.IsOwner(userID) {
			return allow()
		}
		return deny(ReasonOwnerOnly, http.StatusForbidden, "only the project owner can do this")

	case ActionCreateCard:
		if d := canRead(userID, t); !d.Allowed {
			return d
		}
		if t.Card == nil {
			return deny(ReasonInvalidInput, http.StatusBadRequest, "card payload is required")
		}
		cardType, err := ValidateCardInput(t.Card.Type, t.Card.Title)
		if err != "" {
			return deny(ReasonInvalidInput, http.StatusBadRequest, err)
		}
		d := allow()
		d.CardType = cardType
		return d

	case ActionEdit, ActionDelete:
		if t.Resource == nil {
			return deny(ReasonNotFound, http.StatusNotFound, "resource not found")
		}
		if t.Project.IsOwner(userID) {
			return allow()
		}
		if d := canRead(userID, t); !d.Allowed {
			return d
		}
		if userID != 0 && t.Resource.AuthorID == userID {
			return allow()
		}
		return deny(ReasonNotAuthorOrOwner, http.StatusForbidden,
			"only the author or the project owner can change this "+resourceKind(t.Resource))
	}

	return deny(ReasonUnsupportedAction, http.StatusForbidden, "action not permitted")
}

func canRead(userID uint, t Target) Decision {
	if t.Project.IsOwner(userID) {
		return allow()
	}
	m := t.Membership
	if m != nil && m.UserID == userID && m.ProjectID == t.Project.ID && m.IsApproved() {
		return allow()
	}
	return deny(ReasonNotAMember, http.StatusForbidden, "not a project member")
}

// ValidateCardInput checks the fields a new card must carry and returns the
// normalised type. A non-empty message means the input is rejected.
func ValidateCardInput(cardType, title string) (models.CardType, string) {
	t, ok := models.ParseCardType(cardType)
	if !ok {
		return "", "invalid or missing card type"
	}
	if strings.TrimSpace(title) == "" {
		return "", "title is required"
	}
	return t, ""
}

func resourceKind(r *Resource) string {
	if r.Kind == "" {
		return "resource"
	}
	return r.Kind
}
