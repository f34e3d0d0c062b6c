package store

import (
	"context"

	"canteen-order-api/models"

	"gorm.io/gorm"
)

// PaymentStore is the gorm repository for payment-attempt records. The
// initiated→success transition is the system's distributed lock: it is a
// single conditional update and only one concurrent caller sees a match.
type PaymentStore struct {
	db *gorm.DB
}

func NewPaymentStore(db *gorm.DB) *PaymentStore {
	return &PaymentStore{db: db}
}

func (s *PaymentStore) Create(ctx context.Context, payment *models.Payment) error {
	return s.db.WithContext(ctx).Create(payment).Error
}

func (s *PaymentStore) Save(ctx context.Context, payment *models.Payment) error {
	return s.db.WithContext(ctx).Save(payment).Error
}

func (s *PaymentStore) GetByGatewayRef(ctx context.Context, gatewayOrderID string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).
		Where("gateway_order_id = ?", gatewayOrderID).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *PaymentStore) GetByOrderKey(ctx context.Context, orderKey uint) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderKey).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// MarkSuccessIfInitiated attempts the initiated→success transition while
// recording the gateway payment reference and method. Returns the updated
// record and true if this caller won the transition; (nil, false) when no
// row matched, leaving interpretation to the caller.
func (s *PaymentStore) MarkSuccessIfInitiated(ctx context.Context, gatewayOrderID, gatewayPaymentID, method string) (*models.Payment, bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("gateway_order_id = ? AND status = ?", gatewayOrderID, models.PayInitiated).
		Updates(map[string]interface{}{
			"status":             models.PaySuccess,
			"gateway_payment_id": gatewayPaymentID,
			"payment_method":     method,
		})
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, false, nil
	}
	payment, err := s.GetByGatewayRef(ctx, gatewayOrderID)
	if err != nil {
		return nil, false, err
	}
	return payment, true, nil
}

// MarkFailedIfInitiated records a gateway failure, but never overwrites a
// success that landed in the meantime.
func (s *PaymentStore) MarkFailedIfInitiated(ctx context.Context, gatewayOrderID string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("gateway_order_id = ? AND status = ?", gatewayOrderID, models.PayInitiated).
		Update("status", models.PayFailed)
	return res.RowsAffected > 0, res.Error
}
