package app

import (
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestNewDependencies(t *testing.T) {
	logger := log.WithField("test", "dependencies")
	deps := NewDependencies(logger)

	if deps == nil {
		t.Fatal("NewDependencies should not return nil")
	}

	if deps.Repo == nil {
		t.Error("Repo should not be nil")
	}

	if deps.OutboxRepo == nil {
		t.Error("OutboxRepo should not be nil")
	}

	if deps.TimelineRepo == nil {
		t.Error("TimelineRepo should not be nil")
	}

	if deps.IdempotencyRepo == nil {
		t.Error("IdempotencyRepo should not be nil")
	}

	if deps.CartRepo == nil {
		t.Error("CartRepo should not be nil")
	}

	if deps.BuyNowRepo == nil {
		t.Error("BuyNowRepo should not be nil")
	}

	if deps.Catalog == nil {
		t.Error("Catalog should not be nil")
	}

	if deps.Gateway == nil {
		t.Error("Gateway should not be nil")
	}

	if deps.Logger == nil {
		t.Error("Logger should not be nil")
	}
}

func TestNewDependencies_WithNilLogger(t *testing.T) {
	deps := NewDependencies(nil)

	if deps == nil {
		t.Fatal("NewDependencies should not return nil")
	}

	if deps.Logger == nil {
		t.Error("Logger should be initialized even when nil is passed")
	}
}

func TestNewDependencies_AllFieldsInitialized(t *testing.T) {
	logger := log.WithField("test", "all-fields")
	deps := NewDependencies(logger)

	if deps.Repo == nil {
		t.Fatal("Repo not initialized")
	}

	// Проверяем что репозитории работают
	order := newTestOrder()
	if err := deps.Repo.Create(order); err != nil {
		t.Errorf("Repo.Create failed: %v", err)
	}

	got, err := deps.Repo.Get(order.ID)
	if err != nil {
		t.Fatalf("Repo.Get failed: %v", err)
	}
	if got.UserID != order.UserID {
		t.Errorf("expected UserID %s, got %s", order.UserID, got.UserID)
	}

	// Каталог должен отдавать товары после наполнения
	if _, err := deps.Catalog.Product("prod-missing"); err == nil {
		t.Error("expected error for missing product in empty catalog")
	}
}

func TestNewDependencies_LoggerField(t *testing.T) {
	customLogger := log.WithField("custom", "value")
	deps := NewDependencies(customLogger)

	if deps.Logger != customLogger {
		t.Error("Logger should be the same instance as passed")
	}
}

func TestNewDependencies_IndependentInstances(t *testing.T) {
	deps1 := NewDependencies(nil)
	deps2 := NewDependencies(nil)

	// Каждый вызов должен создавать новые экземпляры
	if deps1 == deps2 {
		t.Error("NewDependencies should create independent instances")
	}

	// Репозитории должны быть разными
	if deps1.Repo == deps2.Repo {
		t.Error("Repo instances should be independent")
	}
}
