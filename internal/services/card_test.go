package services

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/huangang/ideaforge/backend/internal/access"
	"github.com/huangang/ideaforge/backend/internal/models"
)

// Author X creates a BUG card; approved member Y cannot edit it; the owner can.
func TestCardService_EditAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner")
	x := f.user(t, "x")
	y := f.user(t, "y")
	p := f.project(t, owner, "Sprint")
	f.approvedMember(t, p, x)
	f.approvedMember(t, p, y)

	card, err := f.cards.Create(ctx, x.ID, p.ID, &CreateCardRequest{Type: "BUG", Title: "Crash on load"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if card.Completed {
		t.Error("Completed should default to false")
	}
	if card.Type != models.CardBug || card.AuthorID != x.ID {
		t.Errorf("card = %+v", card.Card)
	}

	title := "Crash on startup"
	_, err = f.cards.Update(ctx, y.ID, card.ID, &UpdateCardRequest{Title: &title})
	expectAppError(t, err, http.StatusForbidden, string(access.ReasonNotAuthorOrOwner))

	updated, err := f.cards.Update(ctx, owner.ID, card.ID, &UpdateCardRequest{Title: &title})
	if err != nil {
		t.Fatalf("owner Update() error = %v", err)
	}
	if updated.Title != title {
		t.Errorf("Title = %q, expected %q", updated.Title, title)
	}

	done := true
	updated, err = f.cards.Update(ctx, x.ID, card.ID, &UpdateCardRequest{Completed: &done})
	if err != nil {
		t.Fatalf("author Update() error = %v", err)
	}
	if !updated.Completed || updated.Title != title {
		t.Errorf("after author update = %+v", updated.Card)
	}
}

func TestCardService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner")
	outsider := f.user(t, "outsider")
	p := f.project(t, owner, "Sprint")

	_, err := f.cards.Create(ctx, owner.ID, p.ID, &CreateCardRequest{Type: "EPIC", Title: "x"})
	expectAppError(t, err, http.StatusBadRequest, string(access.ReasonInvalidInput))

	_, err = f.cards.Create(ctx, owner.ID, p.ID, &CreateCardRequest{Type: "IDEA"})
	expectAppError(t, err, http.StatusBadRequest, string(access.ReasonInvalidInput))

	_, err = f.cards.Create(ctx, outsider.ID, p.ID, &CreateCardRequest{Type: "IDEA", Title: "x"})
	expectAppError(t, err, http.StatusForbidden, string(access.ReasonNotAMember))

	_, err = f.cards.Create(ctx, owner.ID, 4242, &CreateCardRequest{Type: "IDEA", Title: "x"})
	expectAppError(t, err, http.StatusNotFound, string(access.ReasonProjectNotFound))

	card, err := f.cards.Create(ctx, owner.ID, p.ID, &CreateCardRequest{Type: "Feature", Title: " Dark mode "})
	if err != nil {
		t.Fatalf("legacy type Create() error = %v", err)
	}
	if card.Type != models.CardFeature || card.Title != "Dark mode" {
		t.Errorf("card = %s/%q, expected FEATURE/Dark mode", card.Type, card.Title)
	}
}

func TestCardService_UpdateAndDeleteMissingCard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "u")
	title := "t"

	_, err := f.cards.Update(ctx, u.ID, 777, &UpdateCardRequest{Title: &title})
	expectAppError(t, err, http.StatusNotFound, string(access.ReasonNotFound))

	err = f.cards.Delete(ctx, u.ID, 777)
	expectAppError(t, err, http.StatusNotFound, string(access.ReasonNotFound))
}

func TestCardService_UpdateRejectsBadFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner")
	p := f.project(t, owner, "Sprint")
	card, _ := f.cards.Create(ctx, owner.ID, p.ID, &CreateCardRequest{Type: "IDEA", Title: "x"})

	bad := "nope"
	_, err := f.cards.Update(ctx, owner.ID, card.ID, &UpdateCardRequest{Type: &bad})
	expectAppError(t, err, http.StatusBadRequest, string(access.ReasonInvalidInput))

	empty := "  "
	_, err = f.cards.Update(ctx, owner.ID, card.ID, &UpdateCardRequest{Title: &empty})
	expectAppError(t, err, http.StatusBadRequest, string(access.ReasonInvalidInput))
}

func TestCardService_DeleteRemovesCommentsAndLikes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner")
	x := f.user(t, "x")
	y := f.user(t, "y")
	p := f.project(t, owner, "Sprint")
	f.approvedMember(t, p, x)
	f.approvedMember(t, p, y)

	card, _ := f.cards.Create(ctx, x.ID, p.ID, &CreateCardRequest{Type: "IDEA", Title: "x"})
	f.comments.Create(ctx, y.ID, card.ID, "nice")
	f.likes.Toggle(ctx, y.ID, card.ID)

	err := f.cards.Delete(ctx, y.ID, card.ID)
	expectAppError(t, err, http.StatusForbidden, string(access.ReasonNotAuthorOrOwner))

	if err := f.cards.Delete(ctx, x.ID, card.ID); err != nil {
		t.Fatalf("author Delete() error = %v", err)
	}

	var comments, likes int64
	f.db.Model(&models.Comment{}).Count(&comments)
	f.db.Model(&models.Like{}).Count(&likes)
	if comments != 0 || likes != 0 {
		t.Errorf("comments=%d likes=%d after card delete, expected 0", comments, likes)
	}
}

func TestCardService_AttachImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner")
	member := f.user(t, "member")
	p := f.project(t, owner, "Sprint")
	f.approvedMember(t, p, member)
	card, _ := f.cards.Create(ctx, owner.ID, p.ID, &CreateCardRequest{Type: "SKETCH", Title: "wireframe"})

	upload := func(contentType, body string) *ImageUpload {
		return &ImageUpload{Reader: strings.NewReader(body), Size: int64(len(body)), ContentType: contentType, Filename: "s.png"}
	}

	_, err := f.cards.AttachImage(ctx, member.ID, card.ID, upload("image/png", "png"))
	expectAppError(t, err, http.StatusForbidden, string(access.ReasonNotAuthorOrOwner))

	_, err = f.cards.AttachImage(ctx, owner.ID, card.ID, upload("text/plain", "hello"))
	expectAppError(t, err, http.StatusBadRequest, string(access.ReasonInvalidInput))

	big := &ImageUpload{Reader: strings.NewReader(""), Size: 2 << 20, ContentType: "image/png", Filename: "big.png"}
	_, err = f.cards.AttachImage(ctx, owner.ID, card.ID, big)
	expectAppError(t, err, http.StatusBadRequest, string(access.ReasonInvalidInput))

	first, err := f.cards.AttachImage(ctx, owner.ID, card.ID, upload("image/png", "first"))
	if err != nil {
		t.Fatalf("AttachImage() error = %v", err)
	}
	if first.ImageRef == nil || first.ImageURL == nil {
		t.Fatal("image ref and url should be set")
	}
	if !strings.HasPrefix(*first.ImageURL, "/uploads/cards/") {
		t.Errorf("ImageURL = %q", *first.ImageURL)
	}
	firstPath := filepath.Join(f.store.Dir(), filepath.FromSlash(*first.ImageRef))
	if _, err := os.Stat(firstPath); err != nil {
		t.Fatalf("stored image missing: %v", err)
	}

	second, err := f.cards.AttachImage(ctx, owner.ID, card.ID, upload("image/png", "second"))
	if err != nil {
		t.Fatalf("second AttachImage() error = %v", err)
	}
	if *second.ImageRef == *first.ImageRef {
		t.Error("replacement should get a new key")
	}
	if _, err := os.Stat(firstPath); !os.IsNotExist(err) {
		t.Errorf("previous image should be deleted, stat err = %v", err)
	}
}
