package cart_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/pricing"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func newStore(t *testing.T, products ...domain.Product) (*cart.Store, *catalog.MockService) {
	t.Helper()

	mockCatalog := catalog.NewMockService()
	mockCatalog.Seed(products...)

	engine := pricing.NewEngine(pricing.DefaultPolicy())

	return cart.NewStore(memory.NewCartRepository(), mockCatalog, engine), mockCatalog
}

func shirt() domain.Product {
	return domain.Product{
		ID:          "prod-shirt",
		Name:        "Shirt",
		PriceMinor:  50000,
		Stock:       10,
		HasVariants: true,
		Colors:      []string{"red", "blue"},
		Sizes:       []string{"m", "l"},
	}
}

func TestStore_AddMergesByVariant(t *testing.T) {
	store, _ := newStore(t, shirt())

	first, err := store.Add("user-1", "prod-shirt", 1, domain.VariantSelection{Color: "red", Size: "m"})
	require.NoError(t, err)

	merged, err := store.Add("user-1", "prod-shirt", 2, domain.VariantSelection{Color: "red", Size: "m"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, merged.ID)
	assert.EqualValues(t, 3, merged.Qty)

	// Другой вариант того же товара — отдельная позиция.
	other, err := store.Add("user-1", "prod-shirt", 1, domain.VariantSelection{Color: "blue", Size: "m"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)

	got, err := store.Get("user-1")
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
}

func TestStore_AddUnknownProduct(t *testing.T) {
	store, _ := newStore(t)

	_, err := store.Add("user-1", "prod-missing", 1, domain.VariantSelection{})
	assert.True(t, errors.Is(err, domain.ErrProductNotFound))
}

func TestStore_AddInvalidQuantity(t *testing.T) {
	store, _ := newStore(t, shirt())

	_, err := store.Add("user-1", "prod-shirt", 0, domain.VariantSelection{})
	assert.True(t, errors.Is(err, domain.ErrInvalidQuantity))
}

func TestStore_UpdateQuantityIdempotent(t *testing.T) {
	store, _ := newStore(t, shirt())

	item, err := store.Add("user-1", "prod-shirt", 1, domain.VariantSelection{Color: "red", Size: "m"})
	require.NoError(t, err)

	// Установка количества абсолютна: два вызова подряд дают 3, а не 6.
	updated, clamped, err := store.UpdateQuantity("user-1", item.ID, 3)
	require.NoError(t, err)
	assert.False(t, clamped)
	assert.EqualValues(t, 3, updated.Qty)

	updated, _, err = store.UpdateQuantity("user-1", item.ID, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 3, updated.Qty)
}

func TestStore_UpdateQuantityClampsToStock(t *testing.T) {
	store, _ := newStore(t, shirt())

	item, err := store.Add("user-1", "prod-shirt", 1, domain.VariantSelection{})
	require.NoError(t, err)

	updated, clamped, err := store.UpdateQuantity("user-1", item.ID, 25)
	require.NoError(t, err)
	assert.True(t, clamped)
	assert.EqualValues(t, 10, updated.Qty)
}

func TestStore_UpdateQuantityBelowOne(t *testing.T) {
	store, _ := newStore(t, shirt())

	item, err := store.Add("user-1", "prod-shirt", 2, domain.VariantSelection{})
	require.NoError(t, err)

	_, _, err = store.UpdateQuantity("user-1", item.ID, 0)
	assert.True(t, errors.Is(err, domain.ErrInvalidQuantity))

	_, _, err = store.UpdateQuantity("user-1", "missing", 2)
	assert.True(t, errors.Is(err, domain.ErrLineItemNotFound))
}

func TestStore_UpdateVariantPartial(t *testing.T) {
	store, _ := newStore(t, shirt())

	item, err := store.Add("user-1", "prod-shirt", 1, domain.VariantSelection{Color: "red"})
	require.NoError(t, err)

	size := "l"
	updated, err := store.UpdateVariant("user-1", item.ID, cart.VariantPatch{Size: &size})
	require.NoError(t, err)

	assert.Equal(t, "red", updated.Color)
	assert.Equal(t, "l", updated.Size)
}

func TestStore_RemoveIdempotent(t *testing.T) {
	store, _ := newStore(t, shirt())

	item, err := store.Add("user-1", "prod-shirt", 1, domain.VariantSelection{})
	require.NoError(t, err)

	require.NoError(t, store.Remove("user-1", item.ID))
	require.NoError(t, store.Remove("user-1", item.ID))

	got, err := store.Get("user-1")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestStore_NotifiesObserversOnMutation(t *testing.T) {
	store, _ := newStore(t, shirt())

	var quotes []domain.PricingBreakdown
	unsubscribe := store.Subscribe(func(userID string, b domain.PricingBreakdown) {
		quotes = append(quotes, b)
	})

	item, err := store.Add("user-1", "prod-shirt", 2, domain.VariantSelection{})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.EqualValues(t, 100000, quotes[0].SubtotalMinor)

	_, _, err = store.UpdateQuantity("user-1", item.ID, 1)
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.EqualValues(t, 50000, quotes[1].SubtotalMinor)

	unsubscribe()
	require.NoError(t, store.Remove("user-1", item.ID))
	assert.Len(t, quotes, 2)
}

func TestStore_ClearEmptiesCart(t *testing.T) {
	store, _ := newStore(t, shirt())

	_, err := store.Add("user-1", "prod-shirt", 1, domain.VariantSelection{})
	require.NoError(t, err)

	require.NoError(t, store.Clear("user-1"))

	got, err := store.Get("user-1")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestBuyNowService_Lifecycle(t *testing.T) {
	mockCatalog := catalog.NewMockService()
	mockCatalog.Seed(shirt())

	svc := cart.NewBuyNowService(memory.NewBuyNowRepository(), mockCatalog, cart.WithBuyNowTTL(time.Hour))

	item, err := svc.Create("user-1", "prod-shirt", 1, domain.VariantSelection{Color: "red", Size: "m"})
	require.NoError(t, err)
	assert.False(t, item.Expired(time.Now().UTC()))

	got, err := svc.Get("user-1")
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ID)

	// Повторный клик вытесняет предыдущий слот.
	replacement, err := svc.Create("user-1", "prod-shirt", 2, domain.VariantSelection{})
	require.NoError(t, err)

	got, err = svc.Get("user-1")
	require.NoError(t, err)
	assert.Equal(t, replacement.ID, got.ID)

	require.NoError(t, svc.Consume("user-1"))
	require.NoError(t, svc.Consume("user-1"))

	_, err = svc.Get("user-1")
	assert.True(t, errors.Is(err, domain.ErrBuyNowNotFound))
}
