package idempotency_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/idempotency"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func TestGuard_ExecutesOnce(t *testing.T) {
	guard := idempotency.NewGuard(memory.NewIdempotencyRepository())

	calls := 0
	fn := func() ([]byte, int, error) {
		calls++
		return []byte(`{"orderId":"order-1"}`), 201, nil
	}

	body, status, err := guard.Execute("key-1", []byte(`{"total":500}`), fn)
	require.NoError(t, err)
	assert.Equal(t, 201, status)
	assert.JSONEq(t, `{"orderId":"order-1"}`, string(body))

	// Повтор того же запроса не исполняется второй раз, а получает сохранённый ответ.
	body, status, err = guard.Execute("key-1", []byte(`{"total":500}`), fn)
	require.NoError(t, err)
	assert.Equal(t, 201, status)
	assert.JSONEq(t, `{"orderId":"order-1"}`, string(body))
	assert.Equal(t, 1, calls)
}

func TestGuard_SameKeyDifferentBodyRejected(t *testing.T) {
	guard := idempotency.NewGuard(memory.NewIdempotencyRepository())

	_, _, err := guard.Execute("key-1", []byte(`{"total":500}`), func() ([]byte, int, error) {
		return []byte(`{}`), 201, nil
	})
	require.NoError(t, err)

	_, _, err = guard.Execute("key-1", []byte(`{"total":900}`), func() ([]byte, int, error) {
		t.Fatal("must not execute with mismatched body")
		return nil, 0, nil
	})
	assert.True(t, errors.Is(err, domain.ErrIdempotencyHashMismatch))
}

func TestGuard_FailedOutcomeNotReplayedAsSuccess(t *testing.T) {
	guard := idempotency.NewGuard(memory.NewIdempotencyRepository())

	_, status, err := guard.Execute("key-1", []byte(`{}`), func() ([]byte, int, error) {
		return []byte(`{"message":"out of stock"}`), 422, errors.New("validation blocked")
	})
	require.Error(t, err)
	assert.Equal(t, 422, status)

	// Повтор возвращает сохранённый failed-ответ без повторного исполнения.
	body, status, err := guard.Execute("key-1", []byte(`{}`), func() ([]byte, int, error) {
		t.Fatal("must not re-execute failed request")
		return nil, 0, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 422, status)
	assert.JSONEq(t, `{"message":"out of stock"}`, string(body))
}

func TestGuard_MissingKey(t *testing.T) {
	guard := idempotency.NewGuard(memory.NewIdempotencyRepository())

	_, _, err := guard.Execute("", []byte(`{}`), func() ([]byte, int, error) {
		return nil, 0, nil
	})
	assert.True(t, errors.Is(err, domain.ErrIdempotencyKeyRequired))
}
