package internal

import (
	"crypto/subtle"
	"strings"

	"gitee.com/golang-module/dongle"

	"wxpay/entity"
)

// canonicalize renders params as key1=value1&key2=value2&...&key=<signKey>,
// skipping empty values and the sign field, keys in byte order.
func canonicalize(signKey string, params entity.Parameters) string {
	var sb strings.Builder
	for _, k := range params.Keys() {
		v := params[k]
		if v == "" || k == entity.FieldSign {
			continue
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(v)
		sb.WriteByte('&')
	}
	sb.WriteString("key=")
	sb.WriteString(signKey)
	return sb.String()
}

// Sign computes the uppercase hex signature of params with the merchant key.
// MD5 is used unless params request HMAC-SHA256 through sign_type.
func Sign(merchant *entity.Merchant, params entity.Parameters) string {
	message := canonicalize(merchant.SignKey, params)

	var digest string
	if params.Get(entity.FieldSignType) == entity.SignTypeHmacSha256 {
		digest = dongle.Encrypt.FromString(message).ByHmacSha256(merchant.SignKey).ToHexString()
	} else {
		digest = dongle.Encrypt.FromString(message).ByMd5().ToHexString()
	}
	return strings.ToUpper(digest)
}

// SignParameters returns a copy of params with the sign field set.
func SignParameters(merchant *entity.Merchant, params entity.Parameters) entity.Parameters {
	signed := params.Clone()
	signed[entity.FieldSign] = Sign(merchant, params)
	return signed
}

// Verify recomputes the signature of an inbound payload and compares it with
// the sign field it carries.
func Verify(merchant *entity.Merchant, params entity.Parameters) error {
	received := params.Get(entity.FieldSign)
	if received == "" {
		return fieldMissing(entity.FieldSign)
	}
	expected := Sign(merchant, params)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToUpper(received))) != 1 {
		return &ValidationError{
			Code:   CodeSignError,
			Key:    entity.FieldSign,
			Reason: "signature mismatch",
		}
	}
	return nil
}
