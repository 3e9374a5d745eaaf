package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckoutError(t *testing.T) {
	cause := errors.New("boom")
	err := NewError(ErrPaymentFailed, "Payment failed", cause)

	assert.Equal(t, "PAYMENT_FAILED: Payment failed", err.Error())
	assert.Same(t, cause, errors.Unwrap(err))
}

func TestAsCheckoutError(t *testing.T) {
	cerr := NewError(ErrAmountInvalid, "Amount is required", nil)

	assert.Same(t, cerr, AsCheckoutError(cerr))
	assert.Same(t, cerr, AsCheckoutError(fmt.Errorf("wrapped: %w", cerr)))
	assert.Nil(t, AsCheckoutError(errors.New("plain")))
	assert.Nil(t, AsCheckoutError(nil))
}

func TestFormatCauseChain(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", base, "boom"},
		{
			"checkout error with cause",
			NewError(ErrPaymentFailed, "Payment failed", base),
			"PAYMENT_FAILED: Payment failed | cause: boom",
		},
		{
			// fmt.Errorf %w embeds the wrapped text in Error(); each
			// link must contribute only its own head.
			"wrapped without duplication",
			fmt.Errorf("prepare accounts: %w", base),
			"prepare accounts | cause: boom",
		},
		{
			"wrapper around checkout error",
			fmt.Errorf("submit: %w", NewError(ErrTransferBuildFailed, "Failed to build USDC transfer", nil)),
			"submit | cause: TRANSFER_BUILD_FAILED: Failed to build USDC transfer",
		},
		{
			"bare rewrap adds nothing",
			fmt.Errorf("%w", base),
			"boom",
		},
		{
			"two-level wrap",
			fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", base)),
			"outer | cause: inner | cause: boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCauseChain(tt.err))
		})
	}
}
