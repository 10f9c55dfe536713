package admission

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	razorpay "github.com/razorpay/razorpay-go"
	"gorm.io/gorm"

	"github.com/formseva/formseva-backend/internal/models"
	"github.com/formseva/formseva-backend/internal/services"
)

var (
	ErrAlreadyPaid     = errors.New("payment already completed")
	ErrBadSignature    = errors.New("invalid payment signature")
	ErrMissingDetails  = errors.New("missing payment details")
	ErrOrderIncomplete = errors.New("gateway returned no order id")
)

// OrderCreator abstracts the payment gateway so tests can run without it.
type OrderCreator interface {
	// CreateOrder opens an order for the given amount in paise and returns
	// the gateway order id.
	CreateOrder(amountPaise int, receipt string) (string, error)
}

type razorpayOrders struct {
	client *razorpay.Client
}

func NewRazorpayOrders(keyID, keySecret string) OrderCreator {
	return &razorpayOrders{client: razorpay.NewClient(keyID, keySecret)}
}

func (r *razorpayOrders) CreateOrder(amountPaise int, receipt string) (string, error) {
	body, err := r.client.Order.Create(map[string]interface{}{
		"amount":   amountPaise,
		"currency": "INR",
		"receipt":  receipt,
	}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create razorpay order: %w", err)
	}
	id, ok := body["id"].(string)
	if !ok || id == "" {
		return "", ErrOrderIncomplete
	}
	return id, nil
}

// VerifySignature checks the Razorpay checkout signature: an HMAC-SHA256 of
// "orderId|paymentId" under the key secret, hex encoded.
func VerifySignature(orderID, paymentID, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// PaymentService handles the fixed application fee: one payment per
// application, retried by reusing the same row until it succeeds.
type PaymentService struct {
	db            *gorm.DB
	orders        OrderCreator
	notifications *services.NotificationService
	keyID         string
	keySecret     string
	amount        int // rupees
}

func NewPaymentService(db *gorm.DB, orders OrderCreator, notifications *services.NotificationService, keyID, keySecret string, amount int) *PaymentService {
	return &PaymentService{
		db:            db,
		orders:        orders,
		notifications: notifications,
		keyID:         keyID,
		keySecret:     keySecret,
		amount:        amount,
	}
}

// KeyID is exposed to clients so the checkout widget can be initialized.
func (p *PaymentService) KeyID() string {
	return p.keyID
}

// Amount returns the application fee in rupees.
func (p *PaymentService) Amount() int {
	return p.amount
}

// CreateOrder opens a gateway order for the user's application and records a
// PENDING payment. A previously failed attempt is overwritten; a successful
// one refuses a new order.
func (p *PaymentService) CreateOrder(ctx context.Context, userID uuid.UUID) (orderID string, err error) {
	var app Application
	dberr := p.db.WithContext(ctx).Where("user_id = ?", userID).First(&app).Error
	if errors.Is(dberr, gorm.ErrRecordNotFound) {
		return "", ErrApplicationNotFound
	}
	if dberr != nil {
		return "", fmt.Errorf("failed to load application: %w", dberr)
	}

	var existing Payment
	dberr = p.db.WithContext(ctx).Where("application_id = ?", app.ID).First(&existing).Error
	hasExisting := dberr == nil
	if dberr != nil && !errors.Is(dberr, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to load payment: %w", dberr)
	}
	if hasExisting && existing.Status == PaymentSuccess {
		return "", ErrAlreadyPaid
	}

	orderID, err = p.orders.CreateOrder(p.amount*100, app.ID.String())
	if err != nil {
		return "", err
	}

	if hasExisting {
		updates := map[string]interface{}{
			"order_id": orderID,
			"amount":   p.amount,
			"status":   PaymentPending,
		}
		if err := p.db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
			return "", fmt.Errorf("failed to update payment: %w", err)
		}
	} else {
		payment := Payment{
			ID:            uuid.New(),
			ApplicationID: app.ID,
			OrderID:       orderID,
			Amount:        p.amount,
			Status:        PaymentPending,
		}
		if err := p.db.WithContext(ctx).Create(&payment).Error; err != nil {
			return "", fmt.Errorf("failed to record payment: %w", err)
		}
	}

	return orderID, nil
}

// Verify validates the checkout signature and marks the payment successful.
func (p *PaymentService) Verify(ctx context.Context, userID uuid.UUID, orderID, paymentID, signature string) (*Payment, error) {
	if orderID == "" || paymentID == "" || signature == "" {
		return nil, ErrMissingDetails
	}
	if !VerifySignature(orderID, paymentID, signature, p.keySecret) {
		return nil, ErrBadSignature
	}

	var app Application
	err := p.db.WithContext(ctx).Where("user_id = ?", userID).First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load application: %w", err)
	}

	now := time.Now().UTC()
	var payment Payment
	err = p.db.WithContext(ctx).Where("application_id = ?", app.ID).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		payment = Payment{
			ID:            uuid.New(),
			ApplicationID: app.ID,
			OrderID:       orderID,
			PaymentID:     &paymentID,
			Signature:     &signature,
			Amount:        p.amount,
			Status:        PaymentSuccess,
			PaidAt:        &now,
		}
		if err := p.db.WithContext(ctx).Create(&payment).Error; err != nil {
			return nil, fmt.Errorf("failed to record payment: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	} else {
		updates := map[string]interface{}{
			"payment_id": paymentID,
			"signature":  signature,
			"status":     PaymentSuccess,
			"paid_at":    now,
		}
		if err := p.db.WithContext(ctx).Model(&payment).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update payment: %w", err)
		}
		payment.PaymentID = &paymentID
		payment.Signature = &signature
		payment.Status = PaymentSuccess
		payment.PaidAt = &now
	}

	p.notifications.Notify(ctx, userID,
		"Payment Successful",
		fmt.Sprintf("Your payment of ₹%d has been received successfully.", p.amount),
		models.NotificationGeneral)

	return &payment, nil
}

// Status reports the payment record (if any) and whether it succeeded.
func (p *PaymentService) Status(ctx context.Context, userID uuid.UUID) (*Payment, bool, error) {
	var app Application
	err := p.db.WithContext(ctx).Where("user_id = ?", userID).First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, ErrApplicationNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load application: %w", err)
	}

	var payment Payment
	err = p.db.WithContext(ctx).Where("application_id = ?", app.ID).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load payment: %w", err)
	}
	return &payment, payment.Status == PaymentSuccess, nil
}
