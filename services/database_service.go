package services

import (
	"context"

	"wxpay/entity"
)

type Database interface {
	WriteLogMessage(ctx context.Context, data Data) error

	SavePaymentOrder(ctx context.Context, order *entity.PaymentOrder) error
	// GetPaymentOrder returns nil without error when the order is not stored.
	GetPaymentOrder(ctx context.Context, outTradeNo string) (*entity.PaymentOrder, error)
	SavePaymentResult(ctx context.Context, result *entity.PaymentResult) error
}

type Data interface {
	DataType() string
}
