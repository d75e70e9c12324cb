package internal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"wxpay/entity"
)

var validate = validator.New()

// Field pairs a parameter name with validator tags applied to its value.
type Field struct {
	Name string
	Tag  string
}

// Condition requires extra fields when Field carries Value.
type Condition struct {
	Field   string
	Value   string
	Require []Field
}

// Rules lists required fields for one gateway API, for outbound requests and
// for the responses or notifications it produces.
type Rules struct {
	Name      string
	Send      []Field
	SendAnyOf []string
	When      []Condition
	Receive   []Field
}

// Sending checks request fields before they are signed.
func (r *Rules) Sending(params entity.Parameters) error {
	if len(r.SendAnyOf) > 0 && !hasAny(params, r.SendAnyOf) {
		return &BusinessError{
			Code:   string(CodeInvalidRequest),
			Key:    strings.Join(r.SendAnyOf, "|"),
			Detail: fmt.Sprintf("%s: one of %s is required", r.Name, strings.Join(r.SendAnyOf, ", ")),
		}
	}
	if err := checkFields(r.Name, CodeInvalidRequest, params, r.Send); err != nil {
		return err
	}
	for _, c := range r.When {
		if params.Get(c.Field) != c.Value {
			continue
		}
		if err := checkFields(r.Name, CodeInvalidRequest, params, c.Require); err != nil {
			return err
		}
	}
	return nil
}

// Receiving returns the business validator for payloads of this API. It
// requires result_code, turns a non-SUCCESS result into a *BusinessError
// carrying err_code and err_code_des, then checks the receive fields.
func (r *Rules) Receiving() BusinessValidator {
	return func(_ *entity.App, _ *entity.Merchant, payload entity.Parameters) error {
		code := payload.Get(entity.FieldResultCode)
		if code == "" {
			return &BusinessError{
				Code:   string(CodeFieldMissing),
				Key:    entity.FieldResultCode,
				Detail: fmt.Sprintf("Key %s is NULL", entity.FieldResultCode),
			}
		}
		if code != entity.StatusSuccess {
			return &BusinessError{
				Code:   payload.Get(entity.FieldErrCode),
				Detail: payload.Get(entity.FieldErrCodeDes),
			}
		}
		return checkFields(r.Name, CodeFieldMissing, payload, r.Receive)
	}
}

func checkFields(name string, code ErrorCode, params entity.Parameters, fields []Field) error {
	for _, f := range fields {
		if err := validate.Var(params.Get(f.Name), f.Tag); err != nil {
			return &BusinessError{
				Code:   string(code),
				Key:    f.Name,
				Detail: fmt.Sprintf("%s: %s", name, fieldErrorMessage(f.Name, err)),
			}
		}
	}
	return nil
}

func fieldErrorMessage(name string, err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return fmt.Sprintf("%s is invalid: %v", name, err)
	}
	fe := errs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Key %s is NULL", name)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", name, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters long", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", name, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s check", name, fe.Tag())
	}
}

func hasAny(params entity.Parameters, keys []string) bool {
	for _, k := range keys {
		if params.Has(k) {
			return true
		}
	}
	return false
}

var UnifiedOrderRules = &Rules{
	Name: "unified order",
	Send: []Field{
		{"body", "required,max=128"},
		{"out_trade_no", "required,max=32"},
		{"total_fee", "required,number"},
		{"spbill_create_ip", "required,ip"},
		{"notify_url", "required,url"},
		{"trade_type", "required,oneof=JSAPI NATIVE APP MWEB"},
	},
	When: []Condition{
		{Field: "trade_type", Value: "JSAPI", Require: []Field{{"openid", "required"}}},
		{Field: "trade_type", Value: "NATIVE", Require: []Field{{"product_id", "required"}}},
	},
	Receive: []Field{
		{"trade_type", "required"},
		{"prepay_id", "required"},
	},
}

var OrderQueryRules = &Rules{
	Name:      "order query",
	SendAnyOf: []string{"transaction_id", "out_trade_no"},
	Receive: []Field{
		{"trade_state", "required"},
	},
}

var OrderCloseRules = &Rules{
	Name: "order close",
	Send: []Field{
		{"out_trade_no", "required,max=32"},
	},
}

var RefundRules = &Rules{
	Name:      "refund",
	SendAnyOf: []string{"transaction_id", "out_trade_no"},
	Send: []Field{
		{"out_refund_no", "required,max=64"},
		{"total_fee", "required,number"},
		{"refund_fee", "required,number"},
	},
	Receive: []Field{
		{"out_refund_no", "required"},
		{"refund_id", "required"},
		{"refund_fee", "required"},
	},
}

var RefundQueryRules = &Rules{
	Name:      "refund query",
	SendAnyOf: []string{"transaction_id", "out_trade_no", "out_refund_no", "refund_id"},
	Receive: []Field{
		{"refund_count", "required,number"},
	},
}

var StatementsRules = &Rules{
	Name: "statements",
	Send: []Field{
		{"bill_date", "required,len=8,number"},
		{"bill_type", "required,oneof=ALL SUCCESS REFUND RECHARGE_REFUND"},
	},
}

var ReportRules = &Rules{
	Name: "report",
	Send: []Field{
		{"interface_url", "required,url"},
		{"execute_time_", "required,number"},
		{"return_code", "required"},
		{"result_code", "required"},
		{"user_ip", "required,ip"},
	},
}

var NotifyRules = &Rules{
	Name: "notify",
	Receive: []Field{
		{"openid", "required"},
		{"trade_type", "required"},
		{"bank_type", "required"},
		{"total_fee", "required,number"},
		{"transaction_id", "required"},
		{"out_trade_no", "required"},
		{"time_end", "required"},
	},
}
