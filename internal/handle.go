package internal

import (
	"wxpay/entity"
)

// BusinessValidator enforces rules specific to one kind of gateway payload.
type BusinessValidator func(app *entity.App, merchant *entity.Merchant, payload entity.Parameters) error

// HandleFunc receives the outcome of Handle. On success err is nil, result
// holds the payload without its envelope fields and raw is the payload as received.
type HandleFunc func(err error, result entity.Parameters, raw entity.Parameters)

var envelopeFields = []string{
	entity.FieldReturnCode,
	entity.FieldReturnMsg,
	entity.FieldAppId,
	entity.FieldMerchantId,
	entity.FieldNonce,
	entity.FieldSign,
	entity.FieldSignType,
}

// Check runs the transport, protocol and business checks on payload and
// stops at the first failure. A nil business validator skips the business layer.
func Check(app *entity.App, merchant *entity.Merchant, payload entity.Parameters, business BusinessValidator) (entity.Parameters, error) {
	if code := payload.Get(entity.FieldReturnCode); code != entity.StatusSuccess {
		return nil, &TransportError{
			Code:    code,
			Message: payload.Get(entity.FieldReturnMsg),
		}
	}
	if err := Validate(app, merchant, payload); err != nil {
		return nil, err
	}
	if business != nil {
		if err := business(app, merchant, payload); err != nil {
			return nil, err
		}
	}
	return payload.Without(envelopeFields...), nil
}

// Handle runs Check and reports the outcome to done exactly once.
func Handle(app *entity.App, merchant *entity.Merchant, payload entity.Parameters, business BusinessValidator, done HandleFunc) {
	result, err := check(app, merchant, payload, business)
	if err != nil {
		done(err, nil, payload)
		return
	}
	done(nil, result, payload)
}

// check converts a panicking business validator into an error so that done
// is still called once.
func check(app *entity.App, merchant *entity.Merchant, payload entity.Parameters, business BusinessValidator) (result entity.Parameters, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &PanicError{Value: r}
		}
	}()
	return Check(app, merchant, payload, business)
}
