package admission

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/formseva/formseva-backend/internal/models"
	"github.com/formseva/formseva-backend/internal/services"
)

const (
	testKeySecret = "rzp_test_secret"
	testOrderID   = "order_test123"
	testPaymentID = "pay_test456"
	// HMAC-SHA256("order_test123|pay_test456", "rzp_test_secret"), hex encoded.
	testSignature = "a7f0ea6bad2bec0c2604e63357c44ea1cb9171afe53455fc3121333135e1ca5d"
)

type fakeOrders struct {
	calls     int
	lastPaise int
}

func (f *fakeOrders) CreateOrder(amountPaise int, _ string) (string, error) {
	f.calls++
	f.lastPaise = amountPaise
	return fmt.Sprintf("order_%d", f.calls), nil
}

func newTestPayments(t *testing.T) (*PaymentService, *fakeOrders, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	orders := &fakeOrders{}
	svc := NewPaymentService(db, orders, services.NewNotificationService(db), "rzp_test_key", testKeySecret, 500)
	return svc, orders, db
}

func createDraftApplication(t *testing.T, db *gorm.DB, userID uuid.UUID) Application {
	t.Helper()
	app := Application{ID: uuid.New(), UserID: userID, Status: StatusDraft, CurrentStep: 1}
	require.NoError(t, db.Create(&app).Error)
	return app
}

func TestVerifySignature(t *testing.T) {
	assert.True(t, VerifySignature(testOrderID, testPaymentID, testSignature, testKeySecret))

	assert.False(t, VerifySignature(testOrderID, testPaymentID, testSignature, "other_secret"))
	assert.False(t, VerifySignature("order_other", testPaymentID, testSignature, testKeySecret))
	assert.False(t, VerifySignature(testOrderID, "pay_other", testSignature, testKeySecret))
	assert.False(t, VerifySignature(testOrderID, testPaymentID, "deadbeef", testKeySecret))
}

func TestCreateOrderRequiresApplication(t *testing.T) {
	svc, orders, _ := newTestPayments(t)

	_, err := svc.CreateOrder(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrApplicationNotFound)
	assert.Zero(t, orders.calls)
}

func TestCreateOrderReusesPendingRow(t *testing.T) {
	svc, orders, db := newTestPayments(t)
	ctx := context.Background()
	userID := uuid.New()
	app := createDraftApplication(t, db, userID)

	orderID, err := svc.CreateOrder(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "order_1", orderID)
	assert.Equal(t, 500*100, orders.lastPaise)

	// Retrying before paying overwrites the pending row instead of stacking
	// a second payment.
	orderID, err = svc.CreateOrder(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "order_2", orderID)

	var payments []Payment
	require.NoError(t, db.Where("application_id = ?", app.ID).Find(&payments).Error)
	require.Len(t, payments, 1)
	assert.Equal(t, "order_2", payments[0].OrderID)
	assert.Equal(t, PaymentPending, payments[0].Status)
	assert.Equal(t, 500, payments[0].Amount)
}

func TestVerifyRejectsBadInput(t *testing.T) {
	svc, _, db := newTestPayments(t)
	ctx := context.Background()
	userID := uuid.New()
	createDraftApplication(t, db, userID)

	_, err := svc.Verify(ctx, userID, "", testPaymentID, testSignature)
	assert.ErrorIs(t, err, ErrMissingDetails)

	_, err = svc.Verify(ctx, userID, testOrderID, testPaymentID, "deadbeef")
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyMarksPaymentSuccessful(t *testing.T) {
	svc, _, db := newTestPayments(t)
	ctx := context.Background()
	userID := uuid.New()
	app := createDraftApplication(t, db, userID)

	_, err := svc.CreateOrder(ctx, userID)
	require.NoError(t, err)

	payment, err := svc.Verify(ctx, userID, testOrderID, testPaymentID, testSignature)
	require.NoError(t, err)
	assert.Equal(t, PaymentSuccess, payment.Status)
	require.NotNil(t, payment.PaymentID)
	assert.Equal(t, testPaymentID, *payment.PaymentID)
	assert.NotNil(t, payment.PaidAt)

	var stored Payment
	require.NoError(t, db.Where("application_id = ?", app.ID).First(&stored).Error)
	assert.Equal(t, PaymentSuccess, stored.Status)

	var notifications []models.Notification
	require.NoError(t, db.Where("user_id = ?", userID).Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Equal(t, "Payment Successful", notifications[0].Title)

	// A completed payment blocks any further orders.
	_, err = svc.CreateOrder(ctx, userID)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestVerifyCreatesRowWhenOrderWasNeverRecorded(t *testing.T) {
	svc, _, db := newTestPayments(t)
	ctx := context.Background()
	userID := uuid.New()
	app := createDraftApplication(t, db, userID)

	payment, err := svc.Verify(ctx, userID, testOrderID, testPaymentID, testSignature)
	require.NoError(t, err)
	assert.Equal(t, PaymentSuccess, payment.Status)
	assert.Equal(t, testOrderID, payment.OrderID)
	assert.Equal(t, app.ID, payment.ApplicationID)
}

func TestPaymentStatus(t *testing.T) {
	svc, _, db := newTestPayments(t)
	ctx := context.Background()
	userID := uuid.New()

	_, _, err := svc.Status(ctx, userID)
	assert.ErrorIs(t, err, ErrApplicationNotFound)

	createDraftApplication(t, db, userID)

	payment, paid, err := svc.Status(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, payment)
	assert.False(t, paid)

	_, err = svc.Verify(ctx, userID, testOrderID, testPaymentID, testSignature)
	require.NoError(t, err)

	payment, paid, err = svc.Status(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.True(t, paid)
}
