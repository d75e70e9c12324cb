package internal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"wxpay/config"
	"wxpay/entity"
	"wxpay/services"
)

// Payments creates orders on the gateway and processes its notifications.
// Operations on the same order are serialized with a per-order lock.
type Payments struct {
	conf     *config.Config
	app      *entity.App
	merchant *entity.Merchant
	client   *Client
	database services.Database
	deduper  services.Deduper
	logger   services.LogHandler
	locks    sync.Map // map[string]*sync.Mutex keyed by out_trade_no
}

var _ services.Payments = (*Payments)(nil)

func NewPayments(conf *config.Config, client *Client) *Payments {
	return &Payments{
		conf:     conf,
		app:      conf.AppConfig(),
		merchant: conf.MerchantConfig(),
		client:   client,
		deduper:  NewMemoryDeduper(dedupTTL),
		logger:   NewLogger("payments", conf.IsDebug, nil),
	}
}

func (p *Payments) SetDatabase(database services.Database) {
	p.database = database
}

func (p *Payments) SetDeduper(deduper services.Deduper) {
	p.deduper = deduper
}

func (p *Payments) SetLogger(logger services.LogHandler) {
	p.logger = logger
	if err := p.conf.Check(); err != nil {
		p.logger.Warn(err.Error())
	} else {
		p.logger.Info(fmt.Sprintf("merchant %s ready; gateway %s", p.merchant.Id, p.conf.BaseUrl()))
	}
}

func (p *Payments) lockOrder(id string) *sync.Mutex {
	value, _ := p.locks.LoadOrStore(id, &sync.Mutex{})
	mutex := value.(*sync.Mutex)
	mutex.Lock()
	return mutex
}

func (p *Payments) unlockOrder(_ string, mutex *sync.Mutex) {
	mutex.Unlock()
}

// CreateOrder submits order to the gateway and returns the parameters the
// client SDK needs to pay for it.
func (p *Payments) CreateOrder(ctx context.Context, order *entity.PaymentOrder) (*entity.PrepayConfig, error) {
	if err := p.conf.Check(); err != nil {
		return nil, err
	}
	if order.OutTradeNo == "" {
		return nil, &BusinessError{
			Code:   string(CodeInvalidRequest),
			Key:    "out_trade_no",
			Detail: "Key out_trade_no is NULL",
		}
	}
	mutex := p.lockOrder(order.OutTradeNo)
	defer p.unlockOrder(order.OutTradeNo, mutex)

	if order.TradeType == "" {
		order.TradeType = p.conf.Merchant.TradeType
	}

	result, err := p.client.UnifiedOrder(ctx, order.Fields(p.conf.Merchant.NotifyUrl))
	if err != nil {
		p.logger.Error(fmt.Sprintf("unified order %s", order.OutTradeNo), err)
		return nil, err
	}

	order.PrepayId = result.Get("prepay_id")
	order.CodeUrl = result.Get("code_url")
	order.TradeState = "NOTPAY"
	order.TimeOpened = time.Now()
	p.logger.Info(fmt.Sprintf("[%s] order %s: prepay id %s; amount %d", RequestID(ctx), order.OutTradeNo, secret(order.PrepayId), order.TotalFee))

	if p.database != nil {
		if err = p.database.SavePaymentOrder(ctx, order); err != nil {
			p.logger.Error("save payment order", err)
		}
	}

	return Prepay(p.app, p.merchant, order.PrepayId), nil
}

// Prepay derives client SDK parameters for an existing prepay id.
func (p *Payments) Prepay(prepayId string) *entity.PrepayConfig {
	return Prepay(p.app, p.merchant, prepayId)
}

// QueryOrder asks the gateway for the order state and stores it.
func (p *Payments) QueryOrder(ctx context.Context, outTradeNo string) (*entity.PaymentOrder, error) {
	mutex := p.lockOrder(outTradeNo)
	defer p.unlockOrder(outTradeNo, mutex)

	result, err := p.client.QueryOrder(ctx, entity.Parameters{"out_trade_no": outTradeNo})
	if err != nil {
		return nil, err
	}

	order, err := p.loadOrder(ctx, outTradeNo)
	if err != nil {
		return nil, err
	}
	order.TradeState = result.Get("trade_state")
	if transactionId := result.Get("transaction_id"); transactionId != "" {
		order.TransactionId = transactionId
		order.AddResult(transactionId)
	}
	switch order.TradeState {
	case "SUCCESS", "REFUND", "CLOSED", "REVOKED", "PAYERROR":
		order.Close(fmt.Sprintf("%s by query", order.TradeState))
	}
	_ = p.saveOrder(ctx, order)
	return order, nil
}

// CloseOrder closes an unpaid order on the gateway.
func (p *Payments) CloseOrder(ctx context.Context, outTradeNo string) error {
	mutex := p.lockOrder(outTradeNo)
	defer p.unlockOrder(outTradeNo, mutex)

	if _, err := p.client.CloseOrder(ctx, outTradeNo); err != nil {
		return err
	}

	order, err := p.loadOrder(ctx, outTradeNo)
	if err != nil {
		return err
	}
	order.TradeState = "CLOSED"
	order.Close("closed by merchant")
	_ = p.saveOrder(ctx, order)
	return nil
}

// Notify processes an asynchronous payment notification and returns the
// acknowledgment document for the gateway. The error, if any, explains why
// the notification was rejected.
func (p *Payments) Notify(ctx context.Context, data []byte) ([]byte, error) {
	payload, err := DecodeXML(data)
	if err != nil {
		p.logger.Warn(fmt.Sprintf("notification: %s", string(data)))
		return Acknowledge(err), err
	}

	if payload.Get(entity.FieldReturnCode) == entity.StatusSuccess {
		if err = Verify(p.merchant, payload); err != nil {
			return Acknowledge(err), err
		}
	}

	var ack []byte
	Handle(p.app, p.merchant, payload, NotifyRules.Receiving(), func(handleErr error, result, raw entity.Parameters) {
		ack, err = p.processNotification(ctx, handleErr, result, raw)
		if err != nil {
			ack = Acknowledge(err)
		}
	})
	return ack, err
}

func (p *Payments) processNotification(ctx context.Context, handleErr error, result, raw entity.Parameters) ([]byte, error) {
	outTradeNo := raw.Get("out_trade_no")

	var berr *BusinessError
	if errors.As(handleErr, &berr) && raw.Get(entity.FieldResultCode) == entity.StatusFail && outTradeNo != "" {
		return p.failOrder(ctx, outTradeNo, berr)
	}
	if handleErr != nil {
		return nil, handleErr
	}

	// a redelivery waits here until this payment is stored or released
	mutex := p.lockOrder(outTradeNo)
	defer p.unlockOrder(outTradeNo, mutex)

	transactionId := result.Get("transaction_id")
	seen, err := p.deduper.Seen(ctx, transactionId)
	if err != nil {
		p.logger.Error("notification dedup", err)
	}
	if seen {
		p.logger.Debug(fmt.Sprintf("duplicate notification %s", secret(transactionId)))
		return Acknowledge(nil), nil
	}

	paymentResult := entity.NewPaymentResult(result, raw)
	p.logger.Info(fmt.Sprintf("[%s] notification: order %s; transaction %s; amount %d", RequestID(ctx), paymentResult.OutTradeNo, secret(transactionId), paymentResult.TotalFee))

	if err = p.storePayment(ctx, paymentResult); err != nil {
		if ferr := p.deduper.Forget(ctx, transactionId); ferr != nil {
			p.logger.Error(fmt.Sprintf("release notification %s", secret(transactionId)), ferr)
		}
		return nil, err
	}
	return Acknowledge(nil), nil
}

// storePayment closes the order as paid and records the notification.
func (p *Payments) storePayment(ctx context.Context, paymentResult *entity.PaymentResult) error {
	order, err := p.loadOrder(ctx, paymentResult.OutTradeNo)
	if err != nil {
		return err
	}
	if order.TotalFee > 0 && order.TotalFee != paymentResult.TotalFee {
		p.logger.Warn(fmt.Sprintf("order %s: notified amount %d differs from order amount %d", order.OutTradeNo, paymentResult.TotalFee, order.TotalFee))
	}
	order.TransactionId = paymentResult.TransactionId
	order.TradeState = "SUCCESS"
	order.AddResult(paymentResult.TransactionId)
	order.Close("SUCCESS by notify")
	if err = p.saveOrder(ctx, order); err != nil {
		return err
	}

	if p.database == nil {
		return nil
	}
	if err = p.database.SavePaymentResult(ctx, paymentResult); err != nil {
		p.logger.Error("save payment result", err)
		return fmt.Errorf("save payment result: %w", err)
	}
	return nil
}

// failOrder records a payment the gateway reported as failed. Completed
// orders keep their state.
func (p *Payments) failOrder(ctx context.Context, outTradeNo string, berr *BusinessError) ([]byte, error) {
	mutex := p.lockOrder(outTradeNo)
	defer p.unlockOrder(outTradeNo, mutex)

	order, err := p.loadOrder(ctx, outTradeNo)
	if err != nil {
		return nil, err
	}
	if order.IsCompleted {
		p.logger.Warn(fmt.Sprintf("order %s already %s: ignoring failure %s", outTradeNo, order.TradeState, berr.Code))
		return Acknowledge(nil), nil
	}

	p.logger.Warn(fmt.Sprintf("order %s failed: %s %s", outTradeNo, berr.Code, berr.Detail))
	order.TradeState = "PAYERROR"
	order.Close(fmt.Sprintf("%s by notify", berr.Code))
	if err = p.saveOrder(ctx, order); err != nil {
		return nil, err
	}
	return Acknowledge(nil), nil
}

// loadOrder returns the stored order, or a new one when none is stored.
func (p *Payments) loadOrder(ctx context.Context, outTradeNo string) (*entity.PaymentOrder, error) {
	if p.database != nil {
		order, err := p.database.GetPaymentOrder(ctx, outTradeNo)
		if err != nil {
			p.logger.Error(fmt.Sprintf("load payment order %s", outTradeNo), err)
			return nil, fmt.Errorf("load payment order: %w", err)
		}
		if order != nil {
			return order, nil
		}
	}
	return &entity.PaymentOrder{OutTradeNo: outTradeNo}, nil
}

func (p *Payments) saveOrder(ctx context.Context, order *entity.PaymentOrder) error {
	if p.database == nil {
		return nil
	}
	if err := p.database.SavePaymentOrder(ctx, order); err != nil {
		p.logger.Error(fmt.Sprintf("save payment order %s", order.OutTradeNo), err)
		return fmt.Errorf("save payment order: %w", err)
	}
	return nil
}

func secret(some string) string {
	if len(some) > 5 {
		return fmt.Sprintf("%s***", some[0:5])
	}
	if some == "" {
		return "?"
	}
	return "***"
}
