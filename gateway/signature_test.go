package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(secret string, data []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyCheckoutSignature(t *testing.T) {
	sig := sign("key-secret", []byte("order_123|pay_456"))

	assert.True(t, VerifyCheckoutSignature("order_123", "pay_456", sig, "key-secret"))
	assert.False(t, VerifyCheckoutSignature("order_123", "pay_456", sig, "other-secret"))
	assert.False(t, VerifyCheckoutSignature("order_999", "pay_456", sig, "key-secret"))
	assert.False(t, VerifyCheckoutSignature("order_123", "pay_456", "deadbeef", "key-secret"))
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)
	sig := sign("webhook-secret", body)

	assert.True(t, VerifyWebhookSignature(body, sig, "webhook-secret"))
	assert.False(t, VerifyWebhookSignature([]byte(`{"event":"tampered"}`), sig, "webhook-secret"))
	assert.False(t, VerifyWebhookSignature(body, sig, "wrong-secret"))
	assert.False(t, VerifyWebhookSignature(body, "", "webhook-secret"))
}
