package memory

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestBuyNowRepository_PutGetDelete(t *testing.T) {
	repo := NewBuyNowRepository()
	now := time.Now().UTC()
	item := domain.BuyNowItem{
		ID:        "bn-1",
		UserID:    "user-1",
		ProductID: "prod-1",
		Qty:       1,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}

	if err := repo.Put(item); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := repo.Get("user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "bn-1" {
		t.Fatalf("unexpected slot: %+v", got)
	}

	if err := repo.Delete("user-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get("user-1"); !errors.Is(err, domain.ErrBuyNowNotFound) {
		t.Fatalf("expected ErrBuyNowNotFound, got %v", err)
	}
	// Повторное удаление — no-op.
	if err := repo.Delete("user-1"); err != nil {
		t.Fatalf("repeated delete: %v", err)
	}
}

func TestBuyNowRepository_ExpiredSlot(t *testing.T) {
	repo := NewBuyNowRepository()
	now := time.Now().UTC()
	item := domain.BuyNowItem{
		ID:        "bn-1",
		UserID:    "user-1",
		ProductID: "prod-1",
		Qty:       1,
		CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}
	if err := repo.Put(item); err != nil {
		t.Fatalf("put: %v", err)
	}

	if _, err := repo.Get("user-1"); !errors.Is(err, domain.ErrBuyNowExpired) {
		t.Fatalf("expected ErrBuyNowExpired, got %v", err)
	}

	removed, err := repo.DeleteExpired(now, 0)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
}

func TestBuyNowRepository_PutReplacesSlot(t *testing.T) {
	repo := NewBuyNowRepository()
	now := time.Now().UTC()
	first := domain.BuyNowItem{ID: "bn-1", UserID: "user-1", ProductID: "prod-1", Qty: 1, ExpiresAt: now.Add(time.Hour)}
	second := domain.BuyNowItem{ID: "bn-2", UserID: "user-1", ProductID: "prod-2", Qty: 3, ExpiresAt: now.Add(time.Hour)}

	if err := repo.Put(first); err != nil {
		t.Fatalf("put first: %v", err)
	}
	if err := repo.Put(second); err != nil {
		t.Fatalf("put second: %v", err)
	}

	got, err := repo.Get("user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "bn-2" {
		t.Fatalf("second put must replace the slot, got %+v", got)
	}
}
