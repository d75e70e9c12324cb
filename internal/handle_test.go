package internal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wxpay/entity"
)

type outcome struct {
	calls  int
	err    error
	result entity.Parameters
	raw    entity.Parameters
}

func handle(payload entity.Parameters, business BusinessValidator) *outcome {
	o := &outcome{}
	Handle(testApp, testMerchant, payload, business, func(err error, result, raw entity.Parameters) {
		o.calls++
		o.err = err
		o.result = result
		o.raw = raw
	})
	return o
}

func TestHandle_TransportFailure(t *testing.T) {
	payload := envelope(entity.Parameters{"return_code": "FAILED", "return_msg": "失败!"})
	o := handle(payload, UnifiedOrderRules.Receiving())

	require.Equal(t, 1, o.calls)
	var terr *TransportError
	require.ErrorAs(t, o.err, &terr)
	assert.Equal(t, "失败!", terr.Message)
	assert.Equal(t, "FAILED", terr.Code)
}

func TestHandle_TransportFailureShortCircuits(t *testing.T) {
	called := false
	business := func(*entity.App, *entity.Merchant, entity.Parameters) error {
		called = true
		return nil
	}
	o := handle(entity.Parameters{"return_code": "FAIL"}, business)

	var terr *TransportError
	assert.ErrorAs(t, o.err, &terr)
	assert.False(t, called)
}

func TestHandle_SuccessWithoutBusinessValidator(t *testing.T) {
	payload := envelope(nil)
	o := handle(payload, nil)

	require.Equal(t, 1, o.calls)
	assert.NoError(t, o.err)
	assert.Empty(t, o.result)
	assert.Equal(t, payload, o.raw)
}

func TestHandle_ProtocolFailure(t *testing.T) {
	payload := envelope(entity.Parameters{"mch_id": "other"})
	o := handle(payload, nil)

	require.Equal(t, 1, o.calls)
	var verr *ValidationError
	require.ErrorAs(t, o.err, &verr)
	assert.Equal(t, CodeMerchantIdMismatch, verr.Code)
}

func TestHandle_BusinessValidatorWithoutData(t *testing.T) {
	o := handle(envelope(nil), UnifiedOrderRules.Receiving())

	require.Equal(t, 1, o.calls)
	var berr *BusinessError
	require.ErrorAs(t, o.err, &berr)
	assert.Equal(t, "result_code", berr.Key)
}

func TestHandle_BusinessValidatorPartialData(t *testing.T) {
	o := handle(envelope(entity.Parameters{"result_code": "SUCCESS"}), UnifiedOrderRules.Receiving())

	var berr *BusinessError
	require.ErrorAs(t, o.err, &berr)
	assert.Equal(t, "trade_type", berr.Key)
}

func TestHandle_BusinessValidatorWithData(t *testing.T) {
	payload := envelope(entity.Parameters{
		"result_code": "SUCCESS",
		"trade_type":  "dodo",
		"prepay_id":   "18383",
	})
	o := handle(payload, UnifiedOrderRules.Receiving())

	require.Equal(t, 1, o.calls)
	require.NoError(t, o.err)
	assert.Equal(t, entity.Parameters{
		"result_code": "SUCCESS",
		"trade_type":  "dodo",
		"prepay_id":   "18383",
	}, o.result)
	assert.Equal(t, payload, o.raw)
}

func TestHandle_BusinessValidatorError(t *testing.T) {
	want := errors.New("refund not allowed")
	business := func(*entity.App, *entity.Merchant, entity.Parameters) error { return want }

	o := handle(envelope(nil), business)
	require.Equal(t, 1, o.calls)
	assert.ErrorIs(t, o.err, want)
}

func TestHandle_BusinessValidatorPanic(t *testing.T) {
	business := func(*entity.App, *entity.Merchant, entity.Parameters) error { panic("boom") }

	o := handle(envelope(nil), business)
	require.Equal(t, 1, o.calls)
	var perr *PanicError
	require.ErrorAs(t, o.err, &perr)
	assert.Equal(t, "boom", perr.Value)
	assert.Contains(t, o.err.Error(), "boom")
	var berr *BusinessError
	assert.False(t, errors.As(o.err, &berr))
}

func TestCheck(t *testing.T) {
	result, err := Check(testApp, testMerchant, envelope(entity.Parameters{"sign": "X", "result_code": "SUCCESS"}), nil)
	require.NoError(t, err)
	assert.Equal(t, entity.Parameters{"result_code": "SUCCESS"}, result)

	_, err = Check(testApp, testMerchant, entity.Parameters{}, nil)
	var terr *TransportError
	assert.ErrorAs(t, err, &terr)
}
