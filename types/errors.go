package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode identifies a class of checkout failure. The set is closed:
// callers can switch on it without a default surprise case.
type ErrorCode string

const (
	ErrConfigInvalid       ErrorCode = "CONFIG_INVALID"
	ErrWalletNotConnected  ErrorCode = "WALLET_NOT_CONNECTED"
	ErrAmountInvalid       ErrorCode = "AMOUNT_INVALID"
	ErrInsufficientFunds   ErrorCode = "INSUFFICIENT_FUNDS"
	ErrTransferBuildFailed ErrorCode = "TRANSFER_BUILD_FAILED"
	ErrPaymentFailed       ErrorCode = "PAYMENT_FAILED"
)

// CheckoutError is the only error type surfaced to callers of the
// checkout. Cause carries the underlying collaborator failure for
// diagnostics; it never participates in identity.
type CheckoutError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

func (e *CheckoutError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CheckoutError) Unwrap() error {
	return e.Cause
}

// NewError builds a CheckoutError with an optional underlying cause.
func NewError(code ErrorCode, message string, cause error) *CheckoutError {
	return &CheckoutError{Code: code, Message: message, Cause: cause}
}

// AsCheckoutError extracts a *CheckoutError from err's chain, or nil.
func AsCheckoutError(err error) *CheckoutError {
	var ce *CheckoutError
	if errors.As(err, &ce) {
		return ce
	}
	return nil
}

// FormatCauseChain renders err and its wrapped causes as
// "name: message | cause: ..." for inclusion in user-facing failure
// text. Returns "" for a nil error. Each link contributes only its own
// message: a wrapper whose Error() embeds the wrapped text (the
// fmt.Errorf %w convention) is trimmed to its head so the cause is not
// rendered twice.
func FormatCauseChain(err error) string {
	var parts []string
	for err != nil {
		next := errors.Unwrap(err)
		if next == err {
			next = nil
		}

		var head string
		if ce, ok := err.(*CheckoutError); ok {
			head = fmt.Sprintf("%s: %s", ce.Code, ce.Message)
		} else {
			head = strings.TrimSpace(err.Error())
			if next != nil {
				head = strings.TrimSuffix(head, next.Error())
				head = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(head), ":"))
			}
		}
		if head != "" {
			parts = append(parts, head)
		}
		if next == nil {
			break
		}
		err = next
	}
	return strings.Join(parts, " | cause: ")
}
