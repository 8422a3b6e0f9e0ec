package card_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/flashdeck-backend/internal/adapter/postgres/card"
	"github.com/heartmarshall/flashdeck-backend/internal/adapter/postgres/testhelper"
	"github.com/heartmarshall/flashdeck-backend/internal/domain"
)

func TestRepo_CreateAndGet(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	repo := card.New(pool)
	ctx := context.Background()

	user := testhelper.SeedUser(t, pool)
	deck := testhelper.SeedDeck(t, pool, user.ID)

	now := time.Now().UTC().Truncate(time.Microsecond)
	c := &domain.Card{
		ID:        uuid.New(),
		DeckID:    deck.ID,
		Front:     "# Question",
		Back:      "Answer",
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := repo.Create(ctx, c)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Position != 0 {
		t.Errorf("first card position = %d, want 0", created.Position)
	}

	second, err := repo.Create(ctx, &domain.Card{
		ID: uuid.New(), DeckID: deck.ID, Front: "F2", Back: "B2", CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("Create second: %v", err)
	}
	if second.Position != 1 {
		t.Errorf("second card position = %d, want 1", second.Position)
	}

	got, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Front != "# Question" || got.Back != "Answer" {
		t.Errorf("got front/back %q/%q", got.Front, got.Back)
	}
}

func TestRepo_GetByID_NotFound(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	repo := card.New(pool)

	_, err := repo.GetByID(context.Background(), uuid.New())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRepo_SchedulingLifecycle(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	repo := card.New(pool)
	ctx := context.Background()

	user := testhelper.SeedUser(t, pool)
	deck := testhelper.SeedDeck(t, pool, user.ID)
	c := testhelper.SeedCard(t, pool, deck.ID, 0)

	// Never-reviewed card has no scheduling row.
	if _, err := repo.GetScheduling(ctx, c.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for fresh card, got %v", err)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	reviewed := now
	s := &domain.CardScheduling{
		CardID:         c.ID,
		EaseFactor:     2.6,
		IntervalDays:   1,
		Repetitions:    1,
		Due:            now.AddDate(0, 0, 1),
		LastReviewedAt: &reviewed,
	}
	if err := repo.UpsertScheduling(ctx, s); err != nil {
		t.Fatalf("UpsertScheduling insert: %v", err)
	}

	got, err := repo.GetScheduling(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetScheduling: %v", err)
	}
	if got.EaseFactor != 2.6 || got.Repetitions != 1 {
		t.Errorf("scheduling = ease %v reps %d, want 2.6/1", got.EaseFactor, got.Repetitions)
	}

	// Upsert again overwrites.
	s.EaseFactor = 2.7
	s.Repetitions = 2
	s.IntervalDays = 6
	if err := repo.UpsertScheduling(ctx, s); err != nil {
		t.Fatalf("UpsertScheduling update: %v", err)
	}

	got, err = repo.GetScheduling(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetScheduling after update: %v", err)
	}
	if got.EaseFactor != 2.7 || got.IntervalDays != 6 {
		t.Errorf("scheduling after update = ease %v interval %d, want 2.7/6", got.EaseFactor, got.IntervalDays)
	}
}

func TestRepo_DueCounts(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	repo := card.New(pool)
	ctx := context.Background()

	user := testhelper.SeedUser(t, pool)
	deck := testhelper.SeedDeck(t, pool, user.ID)

	now := time.Now().UTC().Truncate(time.Microsecond)

	// Card 1: never reviewed, counts as due.
	c1 := testhelper.SeedCard(t, pool, deck.ID, 0)
	// Card 2: due yesterday.
	c2 := testhelper.SeedCard(t, pool, deck.ID, 1)
	testhelper.SeedScheduling(t, pool, c2.ID, now.AddDate(0, 0, -1))
	// Card 3: due tomorrow, not due now.
	c3 := testhelper.SeedCard(t, pool, deck.ID, 2)
	testhelper.SeedScheduling(t, pool, c3.ID, now.AddDate(0, 0, 1))

	count, err := repo.DueCountByDeck(ctx, deck.ID, now)
	if err != nil {
		t.Fatalf("DueCountByDeck: %v", err)
	}
	if count != 2 {
		t.Errorf("due count = %d, want 2", count)
	}

	ids, err := repo.ListDueIDs(ctx, deck.ID, now, 10)
	if err != nil {
		t.Fatalf("ListDueIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("due ids = %d, want 2", len(ids))
	}
	// c2's due (yesterday) sorts before c1's creation time (now).
	if ids[0] != c2.ID || ids[1] != c1.ID {
		t.Errorf("due order = %v, want [%s %s]", ids, c2.ID, c1.ID)
	}

	ownerCount, err := repo.DueCountByOwner(ctx, user.ID, now)
	if err != nil {
		t.Fatalf("DueCountByOwner: %v", err)
	}
	if ownerCount != 2 {
		t.Errorf("owner due count = %d, want 2", ownerCount)
	}

	total, err := repo.CountByOwner(ctx, user.ID)
	if err != nil {
		t.Fatalf("CountByOwner: %v", err)
	}
	if total != 3 {
		t.Errorf("owner card count = %d, want 3", total)
	}
}

func TestRepo_DeleteCascadesScheduling(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	repo := card.New(pool)
	ctx := context.Background()

	user := testhelper.SeedUser(t, pool)
	deck := testhelper.SeedDeck(t, pool, user.ID)
	c := testhelper.SeedCard(t, pool, deck.ID, 0)
	testhelper.SeedScheduling(t, pool, c.ID, time.Now().UTC())

	if err := repo.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := repo.GetScheduling(ctx, c.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected scheduling cascade-deleted, got %v", err)
	}

	if err := repo.Delete(ctx, c.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}
