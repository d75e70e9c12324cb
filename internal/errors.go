package internal

import "fmt"

// ErrorCode identifies which check rejected a payload.
type ErrorCode string

const (
	CodeFieldMissing       ErrorCode = "ERROR"
	CodeAppIdMismatch      ErrorCode = "APP_ID_ERROR"
	CodeMerchantIdMismatch ErrorCode = "MERCHANT_ID_ERROR"
	CodeSignError          ErrorCode = "SIGN_ERROR"
	CodeInvalidRequest     ErrorCode = "INVALID_REQUEST"
)

// ValidationError reports the first protocol field that failed a check.
type ValidationError struct {
	Code   ErrorCode
	Key    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

func fieldMissing(key string) *ValidationError {
	return &ValidationError{
		Code:   CodeFieldMissing,
		Key:    key,
		Reason: fmt.Sprintf("Key %s is NULL", key),
	}
}

// TransportError is returned when the gateway reports return_code other than SUCCESS.
type TransportError struct {
	Code    string
	Message string
}

func (e *TransportError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("transport failure: return_code %s", e.Code)
	}
	return fmt.Sprintf("transport failure: %s", e.Message)
}

// BusinessError is returned by business validators. Code carries the gateway
// err_code when the gateway rejected the operation, Key the offending field otherwise.
type BusinessError struct {
	Code   string
	Key    string
	Detail string
}

func (e *BusinessError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("business rule violation: %s: %s", e.Key, e.Detail)
	}
	return fmt.Sprintf("business rule violation: %s: %s", e.Code, e.Detail)
}

// PanicError is reported by Handle when a business validator panics.
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("business validator panic: %v", e.Value)
}
