package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangang/ideaforge/backend/internal/config"
	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/internal/storage"
	"github.com/huangang/ideaforge/backend/internal/utils"
	"github.com/huangang/ideaforge/backend/pkg/response"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"
	db, err := models.Open(&config.DatabaseConfig{Driver: "sqlite", DSN: dsn}, gormlogger.Silent)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	// One connection keeps the PRAGMA in force and serialises writers.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fixture struct {
	db       *gorm.DB
	jwt      *utils.JWT
	revoker  *MemoryTokenRevoker
	store    *storage.LocalStore
	ledger   *MembershipLedger
	invites  *InviteIssuer
	guard    *AccessGuard
	verifier *IdentityVerifier
	auth     *AuthService
	users    *UserService
	projects *ProjectService
	members  *MemberService
	cards    *CardService
	comments *CommentService
	likes    *LikeService
	chat     *ChatService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newTestDB(t)
	store, err := storage.NewLocalStore(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("local store: %v", err)
	}

	f := &fixture{
		db:      db,
		jwt:     utils.NewJWT("test-secret", time.Hour),
		revoker: NewMemoryTokenRevoker(),
		store:   store,
	}
	f.ledger = NewMembershipLedger(db)
	f.invites = NewInviteIssuer(db, f.ledger)
	f.guard = NewAccessGuard(db, f.ledger)
	f.verifier = NewIdentityVerifier(db, f.jwt, f.revoker)
	f.auth = NewAuthService(db, f.jwt, f.revoker)
	f.users = NewUserService(db)
	f.projects = NewProjectService(db, f.ledger, f.invites, f.guard, store)
	f.members = NewMemberService(f.ledger, f.guard)
	f.cards = NewCardService(db, f.guard, store, 1<<20)
	f.comments = NewCommentService(db, f.guard)
	f.likes = NewLikeService(db, f.guard)
	f.chat = NewChatService(db, f.guard, config.DefaultConfig().Chat)
	return f
}

var userSeq int

func (f *fixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	userSeq++
	hash, err := utils.HashPassword("password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := models.User{Email: fmt.Sprintf("%s-%d@example.com", name, userSeq), PasswordHash: hash, Name: name}
	if err := f.db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &u
}

func (f *fixture) project(t *testing.T, owner *models.User, name string) *models.Project {
	t.Helper()
	p, err := f.projects.Create(context.Background(), owner.ID, &CreateProjectRequest{Name: name, ShortSummary: name + " summary"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

// approvedMember joins u to p through the invite and has the owner approve it.
func (f *fixture) approvedMember(t *testing.T, p *models.Project, u *models.User) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.invites.Redeem(ctx, p.InviteToken, u.ID); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if _, err := f.members.SetStatus(ctx, p.OwnerID, p.ID, u.ID, string(models.StatusApproved)); err != nil {
		t.Fatalf("approve: %v", err)
	}
}

func expectAppError(t *testing.T, err error, status int, reason string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %d/%s, got nil error", status, reason)
	}
	appErr, ok := err.(*response.AppError)
	if !ok {
		t.Fatalf("expected *response.AppError, got %T: %v", err, err)
	}
	if appErr.HTTPStatus != status {
		t.Errorf("HTTPStatus = %d, expected %d (%s)", appErr.HTTPStatus, status, appErr.Message)
	}
	if reason != "" && appErr.Reason != reason {
		t.Errorf("Reason = %q, expected %q", appErr.Reason, reason)
	}
}
