package gateway_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/gateway"
)

func TestCallbackSession_Pay(t *testing.T) {
	session := gateway.NewCallbackSession(func(intent domain.PaymentIntent, prefill gateway.Prefill, done func(domain.GatewayResult)) {
		done(domain.GatewayResult{
			Status:         domain.GatewayStatusCompleted,
			PaymentID:      "pay_1",
			GatewayOrderID: intent.GatewayOrderID,
			Signature:      "sig_1",
		})
	}, nil)

	result, err := session.Pay(domain.PaymentIntent{GatewayOrderID: "rzp_order_1"}, gateway.Prefill{})
	require.NoError(t, err)

	assert.Equal(t, domain.GatewayStatusCompleted, result.Status)
	assert.Equal(t, "pay_1", result.PaymentID)
}

func TestCallbackSession_CancelledIsOutcomeNotError(t *testing.T) {
	session := gateway.NewCallbackSession(func(intent domain.PaymentIntent, prefill gateway.Prefill, done func(domain.GatewayResult)) {
		done(domain.GatewayResult{
			Status:         domain.GatewayStatusCancelled,
			GatewayOrderID: intent.GatewayOrderID,
		})
	}, nil)

	result, err := session.Pay(domain.PaymentIntent{GatewayOrderID: "rzp_order_1"}, gateway.Prefill{})
	require.NoError(t, err)
	assert.Equal(t, domain.GatewayStatusCancelled, result.Status)
}

func TestCallbackSession_IntentConsumedOnce(t *testing.T) {
	session := gateway.NewCallbackSession(func(intent domain.PaymentIntent, prefill gateway.Prefill, done func(domain.GatewayResult)) {
		done(domain.GatewayResult{Status: domain.GatewayStatusCompleted, GatewayOrderID: intent.GatewayOrderID})
	}, nil)

	intent := domain.PaymentIntent{GatewayOrderID: "rzp_order_1"}

	_, err := session.Pay(intent, gateway.Prefill{})
	require.NoError(t, err)

	_, err = session.Pay(intent, gateway.Prefill{})
	assert.True(t, errors.Is(err, domain.ErrIntentConsumed))

	// Свежий intent открывает новую сессию.
	_, err = session.Pay(domain.PaymentIntent{GatewayOrderID: "rzp_order_2"}, gateway.Prefill{})
	assert.NoError(t, err)
}

func TestCallbackSession_DuplicateDoneIgnored(t *testing.T) {
	session := gateway.NewCallbackSession(func(intent domain.PaymentIntent, prefill gateway.Prefill, done func(domain.GatewayResult)) {
		var wg sync.WaitGroup
		for i := 0; i < 3; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				done(domain.GatewayResult{Status: domain.GatewayStatusCompleted, GatewayOrderID: intent.GatewayOrderID})
			}()
		}
		wg.Wait()
	}, nil)

	result, err := session.Pay(domain.PaymentIntent{GatewayOrderID: "rzp_order_1"}, gateway.Prefill{})
	require.NoError(t, err)
	assert.Equal(t, domain.GatewayStatusCompleted, result.Status)
}

func TestCallbackSession_NoOpener(t *testing.T) {
	session := gateway.NewCallbackSession(nil, nil)

	_, err := session.Pay(domain.PaymentIntent{GatewayOrderID: "rzp_order_1"}, gateway.Prefill{})
	assert.True(t, errors.Is(err, domain.ErrGatewayUnavailable))
}
