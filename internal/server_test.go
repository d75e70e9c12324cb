package internal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wxpay/entity"
)

type stubPayments struct {
	created  *entity.PaymentOrder
	closed   string
	notified []byte
	err      error
}

func (s *stubPayments) CreateOrder(_ context.Context, order *entity.PaymentOrder) (*entity.PrepayConfig, error) {
	s.created = order
	if s.err != nil {
		return nil, s.err
	}
	return Prepay(testApp, testMerchant, "wx2014"), nil
}

func (s *stubPayments) QueryOrder(_ context.Context, outTradeNo string) (*entity.PaymentOrder, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &entity.PaymentOrder{OutTradeNo: outTradeNo, TradeState: "NOTPAY"}, nil
}

func (s *stubPayments) CloseOrder(_ context.Context, outTradeNo string) error {
	s.closed = outTradeNo
	return s.err
}

func (s *stubPayments) Prepay(prepayId string) *entity.PrepayConfig {
	return Prepay(testApp, testMerchant, prepayId)
}

func (s *stubPayments) Notify(_ context.Context, data []byte) ([]byte, error) {
	s.notified = data
	return Acknowledge(s.err), s.err
}

func newTestServer(payments *stubPayments) http.Handler {
	server := NewServer(testConfig(""))
	server.SetLogger(NewLoggerWithZap("server", zap.NewNop(), nil))
	server.SetPaymentsService(payments)
	return server.Handler()
}

func serve(handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_CreateOrder(t *testing.T) {
	payments := &stubPayments{}
	rec := serve(newTestServer(payments), http.MethodPost, "/order", `{"out_trade_no":"111","body":"测试支付","total_fee":100}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var prepay entity.PrepayConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prepay))
	assert.Equal(t, "prepay_id=wx2014", prepay.Package)
	assert.NotEmpty(t, prepay.PaySign)

	require.NotNil(t, payments.created)
	assert.Equal(t, 100, payments.created.TotalFee)
	assert.Equal(t, "192.0.2.1", payments.created.ClientIp)
}

func TestServer_CreateOrderBadBody(t *testing.T) {
	rec := serve(newTestServer(&stubPayments{}), http.MethodPost, "/order", `{"total_fee":"lots"`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_CreateOrderErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid request", &BusinessError{Code: string(CodeInvalidRequest), Key: "body"}, http.StatusBadRequest},
		{"gateway rejected", &BusinessError{Code: "ORDERPAID"}, http.StatusBadGateway},
		{"transport", &TransportError{Code: "FAIL", Message: "系统繁忙"}, http.StatusBadGateway},
		{"bad response", &ValidationError{Code: CodeSignError}, http.StatusBadGateway},
		{"other", errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newTestServer(&stubPayments{err: tt.err}), http.MethodPost, "/order", `{"out_trade_no":"111"}`)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestServer_QueryOrder(t *testing.T) {
	rec := serve(newTestServer(&stubPayments{}), http.MethodGet, "/order/111", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var order entity.PaymentOrder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	assert.Equal(t, "111", order.OutTradeNo)
	assert.Equal(t, "NOTPAY", order.TradeState)
}

func TestServer_CloseOrder(t *testing.T) {
	payments := &stubPayments{}
	rec := serve(newTestServer(payments), http.MethodPost, "/order/111/close", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "111", payments.closed)
}

func TestServer_Prepay(t *testing.T) {
	rec := serve(newTestServer(&stubPayments{}), http.MethodGet, "/prepay/wx2015", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var prepay entity.PrepayConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prepay))
	assert.Equal(t, "prepay_id=wx2015", prepay.Package)
}

func TestServer_Notify(t *testing.T) {
	payments := &stubPayments{}
	body := string(EncodeXML(paidNotification("111", "1004400740201409030005092168")))
	rec := serve(newTestServer(payments), http.MethodPost, "/notify", body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body, string(payments.notified))
	ack, err := DecodeXML(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", ack["return_code"])
}

func TestServer_NotifyRejected(t *testing.T) {
	rec := serve(newTestServer(&stubPayments{err: &ValidationError{Code: CodeSignError, Reason: "signature mismatch"}}), http.MethodPost, "/notify", "<xml></xml>")

	assert.Equal(t, http.StatusOK, rec.Code)
	ack, err := DecodeXML(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "FAIL", ack["return_code"])
	assert.Equal(t, "SIGN_ERROR: signature mismatch", ack["return_msg"])
}

func TestServer_UnknownRoute(t *testing.T) {
	rec := serve(newTestServer(&stubPayments{}), http.MethodGet, "/refund", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_RequestID(t *testing.T) {
	handler := newTestServer(&stubPayments{})

	rec := serve(handler, http.MethodGet, "/prepay/wx2015", "")
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/prepay/wx2015", nil)
	req.Header.Set(RequestIDHeader, "trace-42")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "trace-42", rec.Header().Get(RequestIDHeader))
}

func TestServer_OversizedBody(t *testing.T) {
	payments := &stubPayments{}
	handler := newTestServer(payments)
	body := "<xml><attach>" + strings.Repeat("a", maxBodySize) + "</attach></xml>"

	rec := serve(handler, http.MethodPost, "/notify", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Nil(t, payments.notified)

	rec = serve(handler, http.MethodPost, "/order", `{"body":"`+strings.Repeat("a", maxBodySize)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Nil(t, payments.created)
}
