package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meshbazaar/marketplace-backend/pkg/db"
	"github.com/meshbazaar/marketplace-backend/pkg/db/models"
	"github.com/meshbazaar/marketplace-backend/pkg/enums"
)

// Repository manages payment records and the payment-side view of orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindRecordByOrderID(ctx context.Context, orderID uuid.UUID) (*models.PaymentRecord, error)
	FindRecordByOrderIDForUpdate(ctx context.Context, orderID uuid.UUID) (*models.PaymentRecord, error)
	CreateRecord(ctx context.Context, record *models.PaymentRecord) error
	MarkRecordVerified(ctx context.Context, recordID uuid.UUID, gatewayPaymentID string, at time.Time) error
	SetOrderPaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := db.LockForUpdate(r.db.WithContext(ctx)).
		Where("id = ?", id).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindRecordByOrderID(ctx context.Context, orderID uuid.UUID) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) FindRecordByOrderIDForUpdate(ctx context.Context, orderID uuid.UUID) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	if err := db.LockForUpdate(r.db.WithContext(ctx)).
		Where("order_id = ?", orderID).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) CreateRecord(ctx context.Context, record *models.PaymentRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) MarkRecordVerified(ctx context.Context, recordID uuid.UUID, gatewayPaymentID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentRecord{}).
		Where("id = ?", recordID).
		Updates(map[string]any{
			"gateway_payment_id": gatewayPaymentID,
			"verified":           true,
			"verified_at":        at,
		}).Error
}

func (r *repository) SetOrderPaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("payment_status", status).Error
}
