package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/payment/handler/dto"
	paymentmodel "github.com/Bobybuu/zeno-speedy-services-sub001/internal/payment/model"
)

// The poller decodes whatever the payment endpoints serialize, so the
// client struct must track the server's JSON tags, not its own naming.
func TestPaymentDecodesServerModel(t *testing.T) {
	body, err := json.Marshal(paymentmodel.Payment{
		ID:                 11,
		OrderID:            42,
		Amount:             2500,
		Currency:           "KES",
		Status:             paymentmodel.StatusFailed,
		PhoneNumber:        "254712345678",
		MpesaReceiptNumber: "QK12XYZ",
		GatewayResponse:    "Request cancelled by user",
	})
	require.NoError(t, err)

	var p Payment
	require.NoError(t, json.Unmarshal(body, &p))

	assert.Equal(t, int64(11), p.ID)
	assert.Equal(t, int64(42), p.OrderID)
	assert.Equal(t, 2500.0, p.Amount)
	assert.Equal(t, "failed", p.Status)
	assert.Equal(t, "QK12XYZ", p.ReceiptNumber)
	assert.Equal(t, "Request cancelled by user", p.FailureReason)
}

// Full declined flow against handlers that speak the server's own DTO
// and model types. The decline reason must reach the outcome message.
func TestInitiateAgainstServerPayloads(t *testing.T) {
	var initiateReq dto.InitiatePaymentRequest

	c, cart := newCoordinator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/payments/initiate-payment/":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&initiateReq))
			json.NewEncoder(w).Encode(dto.InitiatePaymentResponse{
				Payment: paymentmodel.Payment{
					ID: 11, OrderID: 42, Amount: 2500,
					Status: paymentmodel.StatusProcessing,
				},
				CustomerMessage: "Enter your M-Pesa PIN",
			})
		case "/api/payments/payment-status/11/":
			json.NewEncoder(w).Encode(paymentmodel.Payment{
				ID: 11, OrderID: 42, Amount: 2500,
				Status:          paymentmodel.StatusFailed,
				GatewayResponse: "The balance is insufficient for the transaction",
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	outcome, err := c.Initiate(context.Background(), 42, "0712345678")
	require.NoError(t, err)

	assert.Equal(t, int64(42), initiateReq.OrderID)
	assert.Equal(t, "254712345678", initiateReq.PhoneNumber)
	assert.Equal(t, paymentmodel.MethodMpesa, initiateReq.PaymentMethod)

	assert.Equal(t, StateFailed, outcome.State)
	assert.Equal(t, "The balance is insufficient for the transaction", outcome.Message)
	assert.False(t, cart.wasCleared())
}
