package deck_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/flashdeck-backend/internal/adapter/postgres/deck"
	"github.com/heartmarshall/flashdeck-backend/internal/adapter/postgres/testhelper"
	"github.com/heartmarshall/flashdeck-backend/internal/domain"
)

func TestRepo_CreateUpdateDelete(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	repo := deck.New(pool)
	ctx := context.Background()

	user := testhelper.SeedUser(t, pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	d := &domain.Deck{
		ID:          uuid.New(),
		OwnerID:     user.ID,
		Title:       "German A1",
		Description: "Basics",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := repo.Create(ctx, d)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Title != "German A1" {
		t.Errorf("title = %q", created.Title)
	}

	newTitle := "German A2"
	isPublic := true
	updated, err := repo.Update(ctx, d.ID, &newTitle, nil, &isPublic)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "German A2" || updated.Description != "Basics" || !updated.IsPublic {
		t.Errorf("updated = %+v, want title changed, description kept, public", updated)
	}

	if err := repo.Delete(ctx, d.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, d.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRepo_ListSummaries(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	repo := deck.New(pool)
	ctx := context.Background()

	user := testhelper.SeedUser(t, pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	// Deck A: two due cards (never reviewed).
	deckA := testhelper.SeedDeck(t, pool, user.ID)
	testhelper.SeedCard(t, pool, deckA.ID, 0)
	testhelper.SeedCard(t, pool, deckA.ID, 1)

	// Deck B: one card scheduled into the future, so nothing due.
	deckB := testhelper.SeedDeck(t, pool, user.ID)
	cb := testhelper.SeedCard(t, pool, deckB.ID, 0)
	testhelper.SeedScheduling(t, pool, cb.ID, now.AddDate(0, 0, 3))

	// Empty deck.
	deckC := testhelper.SeedDeck(t, pool, user.ID)

	summaries, total, err := repo.ListSummaries(ctx, user.ID, domain.DeckFilter{}, now)
	if err != nil {
		t.Fatalf("ListSummaries: %v", err)
	}
	if total != 3 || len(summaries) != 3 {
		t.Fatalf("total/len = %d/%d, want 3/3", total, len(summaries))
	}

	byID := map[uuid.UUID]domain.DeckSummary{}
	for _, s := range summaries {
		byID[s.ID] = s
	}

	if s := byID[deckA.ID]; s.CardCount != 2 || s.DueCount != 2 || s.Status != domain.DeckStatusDueSoon {
		t.Errorf("deck A summary = %+v, want 2 cards, 2 due, DUE_SOON", s)
	}
	if s := byID[deckB.ID]; s.CardCount != 1 || s.DueCount != 0 || s.Status != domain.DeckStatusLearned {
		t.Errorf("deck B summary = %+v, want 1 card, 0 due, LEARNED", s)
	}
	if s := byID[deckC.ID]; s.CardCount != 0 || s.Status != domain.DeckStatusLearned {
		t.Errorf("deck C summary = %+v, want empty, LEARNED", s)
	}
}

func TestRepo_ListSummaries_Filters(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	repo := deck.New(pool)
	ctx := context.Background()

	user := testhelper.SeedUser(t, pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	d := testhelper.SeedDeck(t, pool, user.ID)
	testhelper.SeedCard(t, pool, d.ID, 0)
	testhelper.SeedDeck(t, pool, user.ID)

	// Search matches the seeded title prefix "Deck".
	got, total, err := repo.ListSummaries(ctx, user.ID, domain.DeckFilter{Search: "deck"}, now)
	if err != nil {
		t.Fatalf("ListSummaries search: %v", err)
	}
	if total != 2 || len(got) != 2 {
		t.Fatalf("search total/len = %d/%d, want 2/2", total, len(got))
	}

	got, total, err = repo.ListSummaries(ctx, user.ID, domain.DeckFilter{Search: "nomatch-xyz"}, now)
	if err != nil {
		t.Fatalf("ListSummaries no match: %v", err)
	}
	if total != 0 || len(got) != 0 {
		t.Fatalf("no-match total/len = %d/%d, want 0/0", total, len(got))
	}

	// Status filter: only the deck with the due card is DUE_SOON.
	status := domain.DeckStatusDueSoon
	got, total, err = repo.ListSummaries(ctx, user.ID, domain.DeckFilter{Status: &status}, now)
	if err != nil {
		t.Fatalf("ListSummaries status: %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].ID != d.ID {
		t.Fatalf("status filter = %d results, want the deck with a due card", len(got))
	}

	// Pagination.
	got, total, err = repo.ListSummaries(ctx, user.ID, domain.DeckFilter{Limit: 1}, now)
	if err != nil {
		t.Fatalf("ListSummaries paged: %v", err)
	}
	if total != 2 || len(got) != 1 {
		t.Fatalf("paged total/len = %d/%d, want 2/1", total, len(got))
	}
}

func TestRepo_Stats(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	repo := deck.New(pool)
	ctx := context.Background()

	user := testhelper.SeedUser(t, pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	d := testhelper.SeedDeck(t, pool, user.ID)
	c1 := testhelper.SeedCard(t, pool, d.ID, 0) // never reviewed -> default ease
	c2 := testhelper.SeedCard(t, pool, d.ID, 1)
	testhelper.SeedScheduling(t, pool, c2.ID, now.AddDate(0, 0, 2))

	session := testhelper.SeedSession(t, pool, user.ID, d.ID, []uuid.UUID{c1.ID, c2.ID})
	for i, correct := range []bool{true, true, false, true} {
		_, err := pool.Exec(ctx,
			`INSERT INTO review_records (id, session_id, card_id, is_correct, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			uuid.New(), session.ID, c1.ID, correct, now.Add(time.Duration(i)*time.Minute),
		)
		if err != nil {
			t.Fatalf("insert review_record[%d]: %v", i, err)
		}
	}

	stats, err := repo.Stats(ctx, d.ID, now, 2.5)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	if stats.CardCount != 2 {
		t.Errorf("card count = %d, want 2", stats.CardCount)
	}
	if stats.DueCount != 1 {
		t.Errorf("due count = %d, want 1 (only the never-reviewed card)", stats.DueCount)
	}
	if stats.AverageEase != 2.5 {
		t.Errorf("average ease = %v, want 2.5 (both cards at default)", stats.AverageEase)
	}
	if stats.TotalReviews != 4 {
		t.Errorf("total reviews = %d, want 4", stats.TotalReviews)
	}
	if stats.AccuracyPercent != 75 {
		t.Errorf("accuracy = %d, want 75", stats.AccuracyPercent)
	}
	if stats.Difficulty.Medium != 2 || stats.Difficulty.Easy != 0 || stats.Difficulty.Hard != 0 {
		t.Errorf("difficulty counts = %+v, want 2 medium", stats.Difficulty)
	}
}

func TestRepo_CountByOwner(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	repo := deck.New(pool)
	ctx := context.Background()

	user := testhelper.SeedUser(t, pool)
	stranger := testhelper.SeedUser(t, pool)

	count, err := repo.CountByOwner(ctx, user.ID)
	if err != nil {
		t.Fatalf("CountByOwner: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0 before any decks", count)
	}

	testhelper.SeedDeck(t, pool, user.ID)
	testhelper.SeedDeck(t, pool, user.ID)
	testhelper.SeedDeck(t, pool, stranger.ID)

	count, err = repo.CountByOwner(ctx, user.ID)
	if err != nil {
		t.Fatalf("CountByOwner: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2 (other owners excluded)", count)
	}
}

func TestRepo_ListSummaries_IncludePublic(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	repo := deck.New(pool)
	ctx := context.Background()

	user := testhelper.SeedUser(t, pool)
	stranger := testhelper.SeedUser(t, pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	own := testhelper.SeedDeck(t, pool, user.ID)
	shared := testhelper.SeedDeck(t, pool, stranger.ID)
	if _, err := pool.Exec(ctx, `UPDATE decks SET is_public = true WHERE id = $1`, shared.ID); err != nil {
		t.Fatalf("publish deck: %v", err)
	}
	private := testhelper.SeedDeck(t, pool, stranger.ID)

	summaries, total, err := repo.ListSummaries(ctx, user.ID, domain.DeckFilter{}, now)
	if err != nil {
		t.Fatalf("ListSummaries: %v", err)
	}
	if total != 1 || len(summaries) != 1 || summaries[0].ID != own.ID {
		t.Fatalf("default listing = %d decks, want only the caller's own deck", len(summaries))
	}

	// Other fixtures may publish decks into the shared database, so the
	// public listing is checked by membership rather than by total.
	summaries, _, err = repo.ListSummaries(ctx, user.ID, domain.DeckFilter{IncludePublic: true}, now)
	if err != nil {
		t.Fatalf("ListSummaries public: %v", err)
	}

	byID := map[uuid.UUID]domain.DeckSummary{}
	for _, s := range summaries {
		byID[s.ID] = s
	}
	if _, ok := byID[own.ID]; !ok {
		t.Error("own deck missing from public listing")
	}
	if s, ok := byID[shared.ID]; !ok || !s.IsPublic {
		t.Error("stranger's public deck missing from public listing")
	}
	if _, ok := byID[private.ID]; ok {
		t.Error("stranger's private deck leaked into public listing")
	}
}
