package daraja

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Environment:    "sandbox",
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		Shortcode:      "174379",
		Passkey:        "passkey",
		CallbackURL:    "https://api.example.co.ke/api/payments/mpesa-callback/",
		InitiatorName:  "testapi",
	}
}

func tokenHandler(t *testing.T, calls *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": "oauth-token",
			"expires_in":   "3599",
		})
	}
}

func TestSTKPushBuildsDarajaRequest(t *testing.T) {
	var tokenCalls atomic.Int32
	var captured stkPushRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/oauth/"):
			tokenHandler(t, &tokenCalls)(w, r)
		case r.URL.Path == "/mpesa/stkpush/v1/processrequest":
			assert.Equal(t, "Bearer oauth-token", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			json.NewEncoder(w).Encode(STKPushResponse{
				MerchantRequestID: "mr-1",
				CheckoutRequestID: "ws_CO_123",
				ResponseCode:      "0",
				CustomerMessage:   "Success. Request accepted for processing",
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(testConfig(), srv.URL)

	resp, err := client.STKPush(context.Background(), "254712345678", 1250.40, "ORDER42", "Order 42")
	require.NoError(t, err)
	assert.Equal(t, "ws_CO_123", resp.CheckoutRequestID)

	assert.Equal(t, "174379", captured.BusinessShortCode)
	assert.Equal(t, "CustomerPayBillOnline", captured.TransactionType)
	assert.Equal(t, int64(1251), captured.Amount, "amount rounds up to whole shillings")
	assert.Equal(t, "254712345678", captured.PhoneNumber)
	assert.Equal(t, "ORDER42", captured.AccountReference)

	wantPassword := base64.StdEncoding.EncodeToString(
		[]byte("174379" + "passkey" + captured.Timestamp))
	assert.Equal(t, wantPassword, captured.Password)
}

func TestSTKPushRejectedResponseCode(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/oauth/") {
			tokenHandler(t, &tokenCalls)(w, r)
			return
		}
		json.NewEncoder(w).Encode(STKPushResponse{
			ResponseCode:        "1",
			ResponseDescription: "Invalid shortcode",
		})
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(testConfig(), srv.URL)

	_, err := client.STKPush(context.Background(), "254712345678", 100, "ORDER1", "Order 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid shortcode")
}

func TestTokenIsCachedAcrossRequests(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/oauth/") {
			tokenHandler(t, &tokenCalls)(w, r)
			return
		}
		json.NewEncoder(w).Encode(STKPushResponse{ResponseCode: "0", CheckoutRequestID: "ws_CO_1"})
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(testConfig(), srv.URL)

	for i := 0; i < 3; i++ {
		_, err := client.STKPush(context.Background(), "254712345678", 100, "ORDER1", "Order 1")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), tokenCalls.Load())
}

func TestSendB2CReturnsConversationID(t *testing.T) {
	var tokenCalls atomic.Int32
	var captured b2cRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/oauth/"):
			tokenHandler(t, &tokenCalls)(w, r)
		case r.URL.Path == "/mpesa/b2c/v1/paymentrequest":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			json.NewEncoder(w).Encode(B2CResponse{
				ConversationID: "AG_20260824_1234",
				ResponseCode:   "0",
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(testConfig(), srv.URL)

	conversationID, err := client.SendB2C(context.Background(), "254712345678", 5000, "PAYOUT-abc")
	require.NoError(t, err)

	assert.Equal(t, "AG_20260824_1234", conversationID)
	assert.Equal(t, "BusinessPayment", captured.CommandID)
	assert.Equal(t, "254712345678", captured.PartyB)
	assert.Equal(t, int64(5000), captured.Amount)
}

func TestSTKCallbackReceiptNumber(t *testing.T) {
	raw := `{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "mr-1",
				"CheckoutRequestID": "ws_CO_123",
				"ResultCode": 0,
				"ResultDesc": "The service request is processed successfully.",
				"CallbackMetadata": {
					"Item": [
						{"Name": "Amount", "Value": 1250},
						{"Name": "MpesaReceiptNumber", "Value": "RKT12XYZ99"},
						{"Name": "PhoneNumber", "Value": 254712345678}
					]
				}
			}
		}
	}`

	var cb STKCallback
	require.NoError(t, json.Unmarshal([]byte(raw), &cb))

	assert.Equal(t, "ws_CO_123", cb.Body.StkCallback.CheckoutRequestID)
	assert.Equal(t, 0, cb.Body.StkCallback.ResultCode)
	assert.Equal(t, "RKT12XYZ99", cb.ReceiptNumber())
}
