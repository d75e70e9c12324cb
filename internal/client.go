package internal

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"wxpay/config"
	"wxpay/entity"
)

const (
	pathUnifiedOrder = "/pay/unifiedorder"
	pathOrderQuery   = "/pay/orderquery"
	pathCloseOrder   = "/pay/closeorder"
	pathRefund       = "/secapi/pay/refund"
	pathRefundQuery  = "/pay/refundquery"
	pathDownloadBill = "/pay/downloadbill"
	pathReport       = "/payitil/report"
)

// Client sends signed requests to the payment gateway and runs every
// response through signature verification and Check.
type Client struct {
	app      *entity.App
	merchant *entity.Merchant
	baseUrl  string
	r        *resty.Client
}

func NewClient(conf *config.Config) *Client {
	r := resty.New().
		SetTimeout(30*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("Content-Type", "text/xml; charset=utf-8")

	c := &Client{
		app:      conf.AppConfig(),
		merchant: conf.MerchantConfig(),
		baseUrl:  conf.BaseUrl(),
		r:        r,
	}
	if conf.Merchant.Timeout > 0 {
		c.WithTimeout(conf.Merchant.Timeout)
	}
	return c
}

// WithTimeout sets a custom request timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.r.SetTimeout(d)
	return c
}

// WithRetryCount sets how many times a failed request is retried.
func (c *Client) WithRetryCount(n int) *Client {
	c.r.SetRetryCount(n)
	return c
}

// UnifiedOrder creates an order; the result carries prepay_id and trade_type.
func (c *Client) UnifiedOrder(ctx context.Context, order entity.Parameters) (entity.Parameters, error) {
	request, err := UnifiedOrderRequest(c.app, c.merchant, order)
	if err != nil {
		return nil, err
	}
	return c.exchange(ctx, pathUnifiedOrder, request, UnifiedOrderRules.Receiving())
}

func (c *Client) QueryOrder(ctx context.Context, fields entity.Parameters) (entity.Parameters, error) {
	return c.call(ctx, pathOrderQuery, OrderQueryRules, fields)
}

func (c *Client) CloseOrder(ctx context.Context, outTradeNo string) (entity.Parameters, error) {
	return c.call(ctx, pathCloseOrder, OrderCloseRules, entity.Parameters{"out_trade_no": outTradeNo})
}

// Refund submits a refund request. The gateway requires a client certificate
// for this endpoint; the transport must be configured for it separately.
func (c *Client) Refund(ctx context.Context, fields entity.Parameters) (entity.Parameters, error) {
	return c.call(ctx, pathRefund, RefundRules, fields)
}

func (c *Client) QueryRefund(ctx context.Context, fields entity.Parameters) (entity.Parameters, error) {
	return c.call(ctx, pathRefundQuery, RefundQueryRules, fields)
}

// DownloadBill returns the statement text for a day. The gateway answers with
// plain text on success and an XML error document otherwise.
func (c *Client) DownloadBill(ctx context.Context, billDate, billType string) ([]byte, error) {
	fields := entity.Parameters{"bill_date": billDate, "bill_type": billType}
	body, err := c.post(ctx, pathDownloadBill, StatementsRules, fields)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(bytes.TrimSpace(body), []byte("<xml>")) {
		return body, nil
	}
	payload, err := DecodeXML(body)
	if err != nil {
		return nil, err
	}
	return nil, &TransportError{
		Code:    payload.Get(entity.FieldReturnCode),
		Message: payload.Get(entity.FieldReturnMsg),
	}
}

// Report sends interface call statistics. Its response carries no merchant
// identity, so only the transport check applies.
func (c *Client) Report(ctx context.Context, fields entity.Parameters) error {
	body, err := c.post(ctx, pathReport, ReportRules, fields)
	if err != nil {
		return err
	}
	payload, err := DecodeXML(body)
	if err != nil {
		return err
	}
	if code := payload.Get(entity.FieldReturnCode); code != entity.StatusSuccess {
		return &TransportError{Code: code, Message: payload.Get(entity.FieldReturnMsg)}
	}
	return nil
}

func (c *Client) call(ctx context.Context, path string, rules *Rules, fields entity.Parameters) (entity.Parameters, error) {
	request, err := BuildRequest(c.app, c.merchant, rules, fields)
	if err != nil {
		return nil, err
	}
	return c.exchange(ctx, path, request, rules.Receiving())
}

func (c *Client) exchange(ctx context.Context, path string, request entity.Parameters, business BusinessValidator) (entity.Parameters, error) {
	body, err := c.send(ctx, path, request)
	if err != nil {
		return nil, err
	}
	payload, err := DecodeXML(body)
	if err != nil {
		return nil, err
	}
	return c.Accept(payload, business)
}

// Accept verifies the signature of a successful payload and runs Check on it.
func (c *Client) Accept(payload entity.Parameters, business BusinessValidator) (entity.Parameters, error) {
	if payload.Get(entity.FieldReturnCode) == entity.StatusSuccess {
		if err := Verify(c.merchant, payload); err != nil {
			return nil, err
		}
	}
	return Check(c.app, c.merchant, payload, business)
}

func (c *Client) post(ctx context.Context, path string, rules *Rules, fields entity.Parameters) ([]byte, error) {
	request, err := BuildRequest(c.app, c.merchant, rules, fields)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, path, request)
}

func (c *Client) send(ctx context.Context, path string, request entity.Parameters) ([]byte, error) {
	resp, err := c.r.R().
		SetContext(ctx).
		SetBody(EncodeXML(request)).
		Post(c.baseUrl + path)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("post %s: status %d", path, resp.StatusCode())
	}
	return resp.Body(), nil
}
