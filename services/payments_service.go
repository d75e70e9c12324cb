package services

import (
	"context"

	"wxpay/entity"
)

type Payments interface {
	CreateOrder(ctx context.Context, order *entity.PaymentOrder) (*entity.PrepayConfig, error)
	QueryOrder(ctx context.Context, outTradeNo string) (*entity.PaymentOrder, error)
	CloseOrder(ctx context.Context, outTradeNo string) error
	Prepay(prepayId string) *entity.PrepayConfig
	Notify(ctx context.Context, data []byte) ([]byte, error)
}
