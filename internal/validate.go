package internal

import "wxpay/entity"

var requiredFields = []string{
	entity.FieldAppId,
	entity.FieldMerchantId,
	entity.FieldNonce,
}

// Validate checks that a payload belongs to the configured application and
// merchant. Checks run in order and the first failure is returned as a
// *ValidationError: field presence (appid, mch_id, nonce_str), then appid,
// then mch_id.
func Validate(app *entity.App, merchant *entity.Merchant, payload entity.Parameters) error {
	for _, key := range requiredFields {
		if !payload.Has(key) {
			return fieldMissing(key)
		}
	}
	if payload[entity.FieldAppId] != app.Id {
		return &ValidationError{
			Code:   CodeAppIdMismatch,
			Key:    entity.FieldAppId,
			Reason: "appid does not match the configured application",
		}
	}
	if payload[entity.FieldMerchantId] != merchant.Id {
		return &ValidationError{
			Code:   CodeMerchantIdMismatch,
			Key:    entity.FieldMerchantId,
			Reason: "mch_id does not match the configured merchant",
		}
	}
	return nil
}
