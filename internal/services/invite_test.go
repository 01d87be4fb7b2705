package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/huangang/ideaforge/backend/internal/models"
)

func TestInviteIssuer_IssueIsUnique(t *testing.T) {
	f := newFixture(t)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok := f.invites.Issue()
		if tok == "" || seen[tok] {
			t.Fatalf("Issue() returned empty or duplicate token %q", tok)
		}
		seen[tok] = true
	}
}

func TestInviteIssuer_RedeemUnknownToken(t *testing.T) {
	f := newFixture(t)
	c := f.user(t, "c")

	_, err := f.invites.Redeem(context.Background(), "does-not-exist", c.ID)
	expectAppError(t, err, http.StatusNotFound, ReasonInvalidInvite)

	var rows int64
	f.db.Model(&models.ProjectMembership{}).Where("user_id = ?", c.ID).Count(&rows)
	if rows != 0 {
		t.Errorf("memberships for C = %d, expected none", rows)
	}
}

func TestInviteIssuer_RedeemEmptyToken(t *testing.T) {
	f := newFixture(t)
	c := f.user(t, "c")
	_, err := f.invites.Redeem(context.Background(), "  ", c.ID)
	expectAppError(t, err, http.StatusNotFound, ReasonInvalidInvite)
}

func TestInviteIssuer_OwnerCannotRedeem(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner")
	p := f.project(t, owner, "Sprint")

	_, err := f.invites.Redeem(context.Background(), p.InviteToken, owner.ID)
	expectAppError(t, err, http.StatusBadRequest, ReasonAlreadyOwner)
}

func TestInviteIssuer_RedeemTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner")
	b := f.user(t, "b")
	p := f.project(t, owner, "Sprint")

	first, err := f.invites.Redeem(ctx, p.InviteToken, b.ID)
	if err != nil {
		t.Fatalf("first Redeem() error = %v", err)
	}
	if !first.Joined || first.Status != models.StatusPending || first.Project.ID != p.ID {
		t.Errorf("first = %+v, expected joined PENDING for project %d", first, p.ID)
	}

	second, err := f.invites.Redeem(ctx, p.InviteToken, b.ID)
	if err != nil {
		t.Fatalf("second Redeem() error = %v", err)
	}
	if second.Joined || second.Status != models.StatusPending {
		t.Errorf("second = %+v, expected existing PENDING", second)
	}

	var rows int64
	f.db.Model(&models.ProjectMembership{}).Where("project_id = ? AND user_id = ?", p.ID, b.ID).Count(&rows)
	if rows != 1 {
		t.Errorf("rows = %d, expected 1", rows)
	}
}
