package wallet

import "strings"

// IsLikelyUninitializedWallet reports whether err matches the wallet
// provider bug where a freshly provisioned smart wallet has not
// finished initializing its internal nonce state. The provider gives
// no structural signal for this class, only message text, so the
// match is on its known symptoms. It is the sole failure class the
// checkout retries.
func IsLikelyUninitializedWallet(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "lastNonce") ||
		strings.Contains(msg, "reading 'toString'") ||
		strings.Contains(msg, "Cannot read properties of undefined")
}

// IsInvalidSession reports whether err matches the provider's
// malformed-argument signature for a corrupted wallet session. The
// remedy is re-authentication, not retry: the checkout disconnects and
// returns to idle on this class.
func IsInvalidSession(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Received type undefined") &&
		strings.Contains(msg, "first argument must be one of type")
}
