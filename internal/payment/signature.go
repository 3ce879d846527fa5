package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns hex(HMAC-SHA256(secret, orderID + "|" + paymentID)), the
// signature format the checkout provider uses for payment confirmations.
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the receipt signature and compares it in
// constant time.
func VerifySignature(secret string, r Receipt) bool {
	if secret == "" || r.OrderID == "" || r.PaymentID == "" || r.Signature == "" {
		return false
	}
	expected := Sign(secret, r.OrderID, r.PaymentID)
	return hmac.Equal([]byte(expected), []byte(r.Signature))
}
