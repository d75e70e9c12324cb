package entity

import "sort"

// Parameter names shared by every gateway request and response.
const (
	FieldAppId      = "appid"
	FieldMerchantId = "mch_id"
	FieldNonce      = "nonce_str"
	FieldSign       = "sign"
	FieldSignType   = "sign_type"
	FieldReturnCode = "return_code"
	FieldReturnMsg  = "return_msg"
	FieldResultCode = "result_code"
	FieldErrCode    = "err_code"
	FieldErrCodeDes = "err_code_des"
)

// Gateway status values.
const (
	StatusSuccess = "SUCCESS"
	StatusFail    = "FAIL"
)

// Signature algorithms accepted in sign_type.
const (
	SignTypeMD5        = "MD5"
	SignTypeHmacSha256 = "HMAC-SHA256"
)

// Parameters is a flat set of named gateway fields. Numeric values are carried
// in their decimal string form, the way they travel on the wire.
type Parameters map[string]string

// Get returns the value of key, or an empty string.
func (p Parameters) Get(key string) string {
	if p == nil {
		return ""
	}
	return p[key]
}

// Has reports whether key is present with a non-empty value.
func (p Parameters) Has(key string) bool {
	return p.Get(key) != ""
}

// Clone returns a shallow copy that can be modified independently.
func (p Parameters) Clone() Parameters {
	c := make(Parameters, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// Keys returns the parameter names in ascending byte order.
func (p Parameters) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Without returns a copy with the listed keys removed.
func (p Parameters) Without(keys ...string) Parameters {
	c := p.Clone()
	for _, k := range keys {
		delete(c, k)
	}
	return c
}
