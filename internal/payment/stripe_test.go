package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "1999", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "true", r.PostForm.Get("automatic_payment_methods[enabled]"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"pi_1","client_secret":"pi_1_secret","status":"requires_payment_method","amount":1999,"currency":"usd"}`))
	}))
	defer srv.Close()

	client := NewClientWithBaseURL("sk_test_123", srv.URL)
	intent, err := client.CreateIntent(context.Background(), 1999, "")
	require.NoError(t, err)
	assert.Equal(t, "pi_1", intent.ID)
	assert.Equal(t, "pi_1_secret", intent.ClientSecret)
	assert.EqualValues(t, 1999, intent.Amount)
}

func TestCreateIntentGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"type":"card_error","message":"Your card was declined."}}`))
	}))
	defer srv.Close()

	client := NewClientWithBaseURL("sk_test_123", srv.URL)
	_, err := client.CreateIntent(context.Background(), 1000, "usd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Your card was declined.")
}

func TestCreateIntentRejectsNonPositiveAmount(t *testing.T) {
	client := NewClientWithBaseURL("sk_test_123", "http://unused.invalid")
	_, err := client.CreateIntent(context.Background(), 0, "usd")
	require.Error(t, err)
	_, err = client.CreateIntent(context.Background(), -500, "usd")
	require.Error(t, err)
}

func TestConfigured(t *testing.T) {
	assert.False(t, NewClient("").Configured())
	assert.False(t, (*Client)(nil).Configured())
	assert.True(t, NewClient("sk_test_123").Configured())
}
