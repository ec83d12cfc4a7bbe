package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/logger"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/mq"
	ordermodel "github.com/Bobybuu/zeno-speedy-services-sub001/internal/order/model"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/payment/daraja"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/payment/handler/dto"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/payment/model"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/payment/repository"
	vendormodel "github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/model"
)

func init() {
	logger.SetOutput(io.Discard)
}

// fakeTx satisfies pgx.Tx for services that compose repository calls in
// a transaction; the fakes below ignore it.
type fakeTx struct{}

func (fakeTx) Begin(context.Context) (pgx.Tx, error) { return fakeTx{}, nil }
func (fakeTx) Commit(context.Context) error          { return nil }
func (fakeTx) Rollback(context.Context) error        { return nil }
func (fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { panic("not implemented") }
func (fakeTx) LargeObjects() pgx.LargeObjects                         { panic("not implemented") }
func (fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) { panic("not implemented") }
func (fakeTx) QueryRow(context.Context, string, ...any) pgx.Row        { panic("not implemented") }
func (fakeTx) Conn() *pgx.Conn                                         { return nil }

type fakePaymentRepo struct {
	nextID   int64
	payments map[int64]*model.Payment
	webhooks []string
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[int64]*model.Payment)}
}

func (f *fakePaymentRepo) BeginTx(context.Context) (pgx.Tx, error) { return fakeTx{}, nil }

func (f *fakePaymentRepo) Create(_ context.Context, p model.Payment) (model.Payment, error) {
	for _, existing := range f.payments {
		if existing.OrderID == p.OrderID {
			return model.Payment{}, repository.ErrAlreadyExists
		}
	}
	f.nextID++
	p.ID = f.nextID
	p.Status = model.StatusPending
	f.payments[p.ID] = &p
	return p, nil
}

func (f *fakePaymentRepo) GetByID(_ context.Context, id int64) (model.Payment, error) {
	if p, ok := f.payments[id]; ok {
		return *p, nil
	}
	return model.Payment{}, repository.ErrNotFound
}

func (f *fakePaymentRepo) GetByOrderID(_ context.Context, orderID int64) (model.Payment, error) {
	for _, p := range f.payments {
		if p.OrderID == orderID {
			return *p, nil
		}
	}
	return model.Payment{}, repository.ErrNotFound
}

func (f *fakePaymentRepo) GetByTransactionID(_ context.Context, transactionID string) (model.Payment, error) {
	for _, p := range f.payments {
		if p.TransactionID == transactionID {
			return *p, nil
		}
	}
	return model.Payment{}, repository.ErrNotFound
}

func (f *fakePaymentRepo) MarkProcessing(_ context.Context, id int64, transactionID, gatewayResponse string) (model.Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return model.Payment{}, repository.ErrNotFound
	}
	p.Status = model.StatusProcessing
	p.TransactionID = transactionID
	p.GatewayResponse = gatewayResponse
	return *p, nil
}

func (f *fakePaymentRepo) Complete(_ context.Context, _ pgx.Tx, id int64, receipt string, transactionDate time.Time) (model.Payment, error) {
	p, ok := f.payments[id]
	if !ok || p.Status != model.StatusProcessing {
		return model.Payment{}, repository.ErrNotFound
	}
	p.Status = model.StatusCompleted
	p.MpesaReceiptNumber = receipt
	p.TransactionDate = &transactionDate
	return *p, nil
}

func (f *fakePaymentRepo) Fail(_ context.Context, _ pgx.Tx, id int64, reason string) (model.Payment, error) {
	p, ok := f.payments[id]
	if !ok || p.Status.Terminal() {
		return model.Payment{}, repository.ErrNotFound
	}
	p.Status = model.StatusFailed
	p.GatewayResponse = reason
	return *p, nil
}

func (f *fakePaymentRepo) ResetForRetry(_ context.Context, id int64, phoneNumber string) (model.Payment, error) {
	p, ok := f.payments[id]
	if !ok || p.Status != model.StatusFailed {
		return model.Payment{}, repository.ErrNotFound
	}
	p.Status = model.StatusPending
	p.TransactionID = ""
	p.MpesaReceiptNumber = ""
	if phoneNumber != "" {
		p.PhoneNumber = phoneNumber
	}
	return *p, nil
}

func (f *fakePaymentRepo) ListByUser(_ context.Context, userID int64) ([]model.Payment, error) {
	var out []model.Payment
	for _, p := range f.payments {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePaymentRepo) ListAll(context.Context) ([]model.Payment, error) {
	var out []model.Payment
	for _, p := range f.payments {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakePaymentRepo) ListStuckProcessing(context.Context, time.Duration) ([]model.Payment, error) {
	var out []model.Payment
	for _, p := range f.payments {
		if p.Status == model.StatusProcessing {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePaymentRepo) LogWebhook(_ context.Context, source, body string) error {
	f.webhooks = append(f.webhooks, source)
	return nil
}

type fakeOrders struct {
	orders map[int64]*ordermodel.Order
}

func (f *fakeOrders) GetByID(_ context.Context, id int64) (ordermodel.Order, error) {
	if o, ok := f.orders[id]; ok {
		return *o, nil
	}
	return ordermodel.Order{}, errors.New("order not found")
}

func (f *fakeOrders) SetPaymentStatus(_ context.Context, _ pgx.Tx, id int64, status ordermodel.PaymentStatus) error {
	f.orders[id].PaymentStatus = status
	return nil
}

type fakeVendors struct {
	earnings []vendormodel.VendorEarning
}

func (f *fakeVendors) GetByID(_ context.Context, id int64) (vendormodel.Vendor, error) {
	return vendormodel.Vendor{ID: id, UserID: 100 + id}, nil
}

func (f *fakeVendors) GetByUserID(_ context.Context, userID int64) (vendormodel.Vendor, error) {
	return vendormodel.Vendor{ID: userID - 100, UserID: userID}, nil
}

func (f *fakeVendors) CreditEarning(_ context.Context, _ pgx.Tx, e vendormodel.VendorEarning) error {
	f.earnings = append(f.earnings, e)
	return nil
}

type fakeGateway struct {
	calls    int
	lastRef  string
	response daraja.STKPushResponse
	err      error
}

func (f *fakeGateway) STKPush(_ context.Context, phoneNumber string, amount float64, accountReference, description string) (daraja.STKPushResponse, error) {
	f.calls++
	f.lastRef = accountReference
	if f.err != nil {
		return daraja.STKPushResponse{}, f.err
	}
	return f.response, nil
}

type fakePayouts struct {
	conversationID string
	succeeded      bool
}

func (f *fakePayouts) CompleteFromResult(_ context.Context, conversationID, receipt string, succeeded bool, failureReason string) error {
	f.conversationID = conversationID
	f.succeeded = succeeded
	return nil
}

type fakeEvents struct {
	published []mq.PaymentEvent
}

func (f *fakeEvents) PublishPaymentEvent(_ context.Context, ev mq.PaymentEvent) error {
	f.published = append(f.published, ev)
	return nil
}

type paymentFixture struct {
	svc      *PaymentService
	payments *fakePaymentRepo
	orders   *fakeOrders
	vendors  *fakeVendors
	gateway  *fakeGateway
	payouts  *fakePayouts
	events   *fakeEvents
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		payments: newFakePaymentRepo(),
		orders: &fakeOrders{orders: map[int64]*ordermodel.Order{
			42: {ID: 42, CustomerID: 7, VendorID: 3, TotalAmount: 2500,
				Status: ordermodel.StatusPending, PaymentStatus: ordermodel.PaymentPending},
		}},
		vendors: &fakeVendors{},
		gateway: &fakeGateway{response: daraja.STKPushResponse{
			CheckoutRequestID: "ws_CO_123",
			ResponseCode:      "0",
			CustomerMessage:   "Enter your M-Pesa PIN",
		}},
		payouts: &fakePayouts{},
		events:  &fakeEvents{},
	}
	f.svc = NewPaymentService(f.payments, f.orders, f.vendors, f.gateway, f.payouts, f.events, 0.10)
	return f
}

func TestInitiateComputesCommissionSplit(t *testing.T) {
	f := newPaymentFixture()

	resp, err := f.svc.Initiate(context.Background(), 7, dto.InitiatePaymentRequest{
		OrderID:     42,
		PhoneNumber: "0712345678",
	})
	require.NoError(t, err)

	p := resp.Payment
	assert.Equal(t, model.StatusProcessing, p.Status)
	assert.Equal(t, "ws_CO_123", p.TransactionID)
	assert.Equal(t, "254712345678", p.PhoneNumber)
	assert.Equal(t, 2500.0, p.Amount)
	assert.Equal(t, 250.0, p.CommissionAmount)
	assert.Equal(t, 2250.0, p.VendorEarnings)
	assert.Equal(t, "ORDER42", f.gateway.lastRef)
	assert.Equal(t, "Enter your M-Pesa PIN", resp.CustomerMessage)
}

func TestInitiateRejectsSecondAttempt(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, 7, dto.InitiatePaymentRequest{OrderID: 42, PhoneNumber: "0712345678"})
	require.NoError(t, err)

	_, err = f.svc.Initiate(ctx, 7, dto.InitiatePaymentRequest{OrderID: 42, PhoneNumber: "0712345678"})
	assert.ErrorIs(t, err, ErrAlreadyInitiated)
	assert.Equal(t, 1, f.gateway.calls)
}

func TestInitiateRejectsForeignOrder(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.svc.Initiate(context.Background(), 99, dto.InitiatePaymentRequest{
		OrderID: 42, PhoneNumber: "0712345678",
	})
	assert.ErrorIs(t, err, ErrNotPaymentParty)
}

func TestInitiateFailsPaymentWhenGatewayRejects(t *testing.T) {
	f := newPaymentFixture()
	f.gateway.err = errors.New("daraja unavailable")

	_, err := f.svc.Initiate(context.Background(), 7, dto.InitiatePaymentRequest{
		OrderID: 42, PhoneNumber: "0712345678",
	})
	require.Error(t, err)

	p, err := f.payments.GetByOrderID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, p.Status)
}

func successCallback(checkoutID, receipt string) daraja.STKCallback {
	var cb daraja.STKCallback
	cb.Body.StkCallback.CheckoutRequestID = checkoutID
	cb.Body.StkCallback.ResultCode = 0
	cb.Body.StkCallback.CallbackMetadata.Item = []daraja.MetadataItem{
		{Name: "MpesaReceiptNumber", Value: receipt},
	}
	return cb
}

func TestSTKCallbackSuccessCompletesAndCredits(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, 7, dto.InitiatePaymentRequest{OrderID: 42, PhoneNumber: "0712345678"})
	require.NoError(t, err)

	require.NoError(t, f.svc.HandleSTKCallback(ctx, successCallback("ws_CO_123", "RKT12XYZ99")))

	p, _ := f.payments.GetByOrderID(ctx, 42)
	assert.Equal(t, model.StatusCompleted, p.Status)
	assert.Equal(t, "RKT12XYZ99", p.MpesaReceiptNumber)
	assert.Equal(t, ordermodel.PaymentPaid, f.orders.orders[42].PaymentStatus)

	require.Len(t, f.vendors.earnings, 1)
	earning := f.vendors.earnings[0]
	assert.Equal(t, int64(3), earning.VendorID)
	assert.Equal(t, 2500.0, earning.GrossAmount)
	assert.Equal(t, 250.0, earning.CommissionAmount)
	assert.Equal(t, 2250.0, earning.NetAmount)

	require.Len(t, f.events.published, 1)
	assert.Equal(t, "payment.completed", f.events.published[0].Type)
}

func TestSTKCallbackFailureMarksOrderUnpaid(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, 7, dto.InitiatePaymentRequest{OrderID: 42, PhoneNumber: "0712345678"})
	require.NoError(t, err)

	var cb daraja.STKCallback
	cb.Body.StkCallback.CheckoutRequestID = "ws_CO_123"
	cb.Body.StkCallback.ResultCode = 1032
	cb.Body.StkCallback.ResultDesc = "Request cancelled by user"

	require.NoError(t, f.svc.HandleSTKCallback(ctx, cb))

	p, _ := f.payments.GetByOrderID(ctx, 42)
	assert.Equal(t, model.StatusFailed, p.Status)
	assert.Equal(t, ordermodel.PaymentFailed, f.orders.orders[42].PaymentStatus)
	assert.Empty(t, f.vendors.earnings)

	require.Len(t, f.events.published, 1)
	assert.Equal(t, "payment.failed", f.events.published[0].Type)
}

func TestSTKCallbackIsIdempotent(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, 7, dto.InitiatePaymentRequest{OrderID: 42, PhoneNumber: "0712345678"})
	require.NoError(t, err)

	cb := successCallback("ws_CO_123", "RKT12XYZ99")
	require.NoError(t, f.svc.HandleSTKCallback(ctx, cb))
	require.NoError(t, f.svc.HandleSTKCallback(ctx, cb))

	assert.Len(t, f.vendors.earnings, 1, "duplicate callback must not credit twice")
	assert.Len(t, f.events.published, 1)
}

func TestRetryAfterFailure(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, 7, dto.InitiatePaymentRequest{OrderID: 42, PhoneNumber: "0712345678"})
	require.NoError(t, err)

	var cb daraja.STKCallback
	cb.Body.StkCallback.CheckoutRequestID = "ws_CO_123"
	cb.Body.StkCallback.ResultCode = 1032
	require.NoError(t, f.svc.HandleSTKCallback(ctx, cb))

	f.gateway.response.CheckoutRequestID = "ws_CO_456"
	p, _ := f.payments.GetByOrderID(ctx, 42)

	resp, err := f.svc.Retry(ctx, 7, p.ID, "0722000111")
	require.NoError(t, err)

	assert.Equal(t, model.StatusProcessing, resp.Payment.Status)
	assert.Equal(t, "ws_CO_456", resp.Payment.TransactionID)
	assert.Equal(t, "254722000111", resp.Payment.PhoneNumber)
	assert.Equal(t, 2, f.gateway.calls)
}

func TestRetryRejectsNonFailedPayment(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	resp, err := f.svc.Initiate(ctx, 7, dto.InitiatePaymentRequest{OrderID: 42, PhoneNumber: "0712345678"})
	require.NoError(t, err)

	_, err = f.svc.Retry(ctx, 7, resp.Payment.ID, "")
	assert.ErrorIs(t, err, ErrNotRetryable)
}

func TestTimeoutStaleFailsProcessingPayments(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, 7, dto.InitiatePaymentRequest{OrderID: 42, PhoneNumber: "0712345678"})
	require.NoError(t, err)

	timedOut, err := f.svc.TimeoutStale(ctx, 2*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, timedOut)

	p, _ := f.payments.GetByOrderID(ctx, 42)
	assert.Equal(t, model.StatusFailed, p.Status)
	assert.Equal(t, ordermodel.PaymentFailed, f.orders.orders[42].PaymentStatus)
}

func TestHandleB2CResultRoutesToPayouts(t *testing.T) {
	f := newPaymentFixture()

	var result daraja.B2CResult
	result.Result.ResultCode = 0
	result.Result.ConversationID = "AG_20260824_1234"
	result.Result.TransactionID = "RKT99"

	require.NoError(t, f.svc.HandleB2CResult(context.Background(), result))
	assert.Equal(t, "AG_20260824_1234", f.payouts.conversationID)
	assert.True(t, f.payouts.succeeded)
}
