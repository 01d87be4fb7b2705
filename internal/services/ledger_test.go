package services

import (
	"context"
	"sync"
	"testing"

	"github.com/huangang/ideaforge/backend/internal/models"
)

func TestLedger_GetMissingReturnsNil(t *testing.T) {
	f := newFixture(t)
	m, err := f.ledger.Get(context.Background(), 99, 99)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if m != nil {
		t.Errorf("Get() = %+v, expected nil", m)
	}
}

func TestLedger_CreateProjectWritesOwnerMembership(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner")
	p := f.project(t, owner, "Sprint")

	m, err := f.ledger.Get(context.Background(), owner.ID, p.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if m == nil {
		t.Fatal("owner membership missing")
	}
	if m.Role != models.RoleOwner || m.EffectiveStatus() != models.StatusApproved {
		t.Errorf("owner membership = %s/%s, expected OWNER/APPROVED", m.Role, m.EffectiveStatus())
	}
}

func TestLedger_RequestIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner")
	joiner := f.user(t, "joiner")
	p := f.project(t, owner, "Sprint")

	first, err := f.ledger.Request(ctx, joiner.ID, p.ID)
	if err != nil {
		t.Fatalf("first Request() error = %v", err)
	}
	if !first.Created || first.Status != models.StatusPending {
		t.Errorf("first outcome = %+v, expected created PENDING", first)
	}

	second, err := f.ledger.Request(ctx, joiner.ID, p.ID)
	if err != nil {
		t.Fatalf("second Request() error = %v", err)
	}
	if second.Created {
		t.Error("second Request() should not create")
	}
	if second.Status != models.StatusPending {
		t.Errorf("second Status = %s, expected PENDING", second.Status)
	}
}

func TestLedger_RequestReportsExistingApprovedStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner")
	joiner := f.user(t, "joiner")
	p := f.project(t, owner, "Sprint")
	f.approvedMember(t, p, joiner)

	out, err := f.ledger.Request(ctx, joiner.ID, p.ID)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if out.Created || out.Status != models.StatusApproved {
		t.Errorf("outcome = %+v, expected existing APPROVED", out)
	}
}

func TestLedger_ConcurrentRequestsCreateOneRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner")
	joiner := f.user(t, "joiner")
	p := f.project(t, owner, "Sprint")

	const n = 8
	var wg sync.WaitGroup
	outcomes := make([]*RequestOutcome, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = f.ledger.Request(ctx, joiner.ID, p.ID)
		}(i)
	}
	wg.Wait()

	created := 0
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("request %d error = %v", i, errs[i])
		}
		if outcomes[i].Created {
			created++
		}
		if outcomes[i].Status != models.StatusPending {
			t.Errorf("request %d status = %s", i, outcomes[i].Status)
		}
	}
	if created != 1 {
		t.Errorf("%d requests reported Created, expected exactly 1", created)
	}

	var rows int64
	f.db.Model(&models.ProjectMembership{}).Where("project_id = ? AND user_id = ?", p.ID, joiner.ID).Count(&rows)
	if rows != 1 {
		t.Errorf("membership rows = %d, expected 1", rows)
	}
}

func TestLedger_ListJoinedAndPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner")
	u := f.user(t, "u")
	approved := f.project(t, owner, "Approved")
	pending := f.project(t, owner, "Pending")
	legacy := f.project(t, owner, "Legacy")

	f.approvedMember(t, approved, u)
	if _, err := f.ledger.Request(ctx, u.ID, pending.ID); err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	legacyRow := models.ProjectMembership{ProjectID: legacy.ID, UserID: u.ID, Role: models.RoleMember}
	if err := f.db.Create(&legacyRow).Error; err != nil {
		t.Fatalf("create legacy membership: %v", err)
	}

	joined, err := f.ledger.ListJoined(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListJoined() error = %v", err)
	}
	if names := projectNames(joined); !names["Approved"] || !names["Legacy"] || names["Pending"] || len(joined) != 2 {
		t.Errorf("joined = %v, expected Approved and Legacy", names)
	}

	waiting, err := f.ledger.ListPending(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListPending() error = %v", err)
	}
	if len(waiting) != 1 || waiting[0].Name != "Pending" {
		t.Errorf("pending = %v, expected [Pending]", projectNames(waiting))
	}

	ownerJoined, _ := f.ledger.ListJoined(ctx, owner.ID)
	if len(ownerJoined) != 0 {
		t.Errorf("owner rows must not show up as joined, got %v", projectNames(ownerJoined))
	}
}

func projectNames(ps []models.Project) map[string]bool {
	out := make(map[string]bool, len(ps))
	for _, p := range ps {
		out[p.Name] = true
	}
	return out
}
