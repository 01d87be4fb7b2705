package models

import (
	"time"
)

type MembershipRole string

const (
	RoleOwner  MembershipRole = "OWNER"
	RoleMember MembershipRole = "MEMBER"
)

type MembershipStatus string

const (
	StatusPending  MembershipStatus = "PENDING"
	StatusApproved MembershipStatus = "APPROVED"
)

// ProjectMembership grants a user standing within a project. There is at most
// one row per (project, user); the unique index is what keeps concurrent join
// requests from creating duplicates.
//
// Status is nullable: rows written before approval existed carry NULL and are
// treated exactly like APPROVED.
type ProjectMembership struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	ProjectID uint              `gorm:"uniqueIndex:idx_membership_project_user;not null" json:"projectId"`
	Project   *Project          `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"project,omitempty"`
	UserID    uint              `gorm:"uniqueIndex:idx_membership_project_user;not null" json:"userId"`
	User      *User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role      MembershipRole    `gorm:"size:20;not null;default:MEMBER" json:"role"`
	Status    *MembershipStatus `gorm:"size:20" json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

func (ProjectMembership) TableName() string { return "project_memberships" }

// IsApproved reports whether the membership grants access: APPROVED or NULL.
func (m *ProjectMembership) IsApproved() bool {
	if m == nil {
		return false
	}
	return m.Status == nil || *m.Status == StatusApproved
}

// EffectiveStatus returns the status callers should display, mapping NULL to APPROVED.
func (m *ProjectMembership) EffectiveStatus() MembershipStatus {
	if m.Status == nil {
		return StatusApproved
	}
	return *m.Status
}

// StatusPtr returns a pointer to s, for assigning to ProjectMembership.Status.
func StatusPtr(s MembershipStatus) *MembershipStatus {
	return &s
}
