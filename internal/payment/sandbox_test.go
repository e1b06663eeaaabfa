package payment

import (
	"context"
	"strings"
	"testing"

	carterrors "github.com/abgdnv/bathifarms/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSandbox_CreateOrder(t *testing.T) {
	sandbox := NewSandbox("")

	order, err := sandbox.CreateOrder(context.Background(), OrderRequest{Amount: 51300, Currency: "INR", Receipt: "BF-10001"})

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(order.ID, "order_"))
	assert.NotContains(t, order.ID, "-")
	assert.Equal(t, int64(51300), order.Amount)
	assert.Equal(t, "BF-10001", order.Receipt)
}

func TestSandbox_VerifyPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("without secret any payment is accepted", func(t *testing.T) {
		sandbox := NewSandbox("")
		assert.NoError(t, sandbox.VerifyPayment(ctx, Verification{OrderID: "order_1", PaymentID: "pay_1"}))
		assert.ErrorIs(t, sandbox.VerifyPayment(ctx, Verification{OrderID: "order_1"}), carterrors.ErrPaymentRejected)
	})

	t.Run("with secret the signature is checked", func(t *testing.T) {
		sandbox := NewSandbox("k")
		ok := Verification{OrderID: "order_1", PaymentID: "pay_1", Signature: Sign("order_1", "pay_1", "k")}
		assert.NoError(t, sandbox.VerifyPayment(ctx, ok))
		ok.Signature = "deadbeef"
		assert.ErrorIs(t, sandbox.VerifyPayment(ctx, ok), carterrors.ErrPaymentRejected)
	})
}
