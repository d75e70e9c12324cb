package internal

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"wxpay/entity"
)

// NonceStr returns a fresh 32 character alphanumeric nonce.
func NonceStr() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Prepare returns a copy of fields with appid, mch_id and a fresh nonce_str
// set, ready to be signed. The result always passes Validate.
func Prepare(app *entity.App, merchant *entity.Merchant, fields entity.Parameters) entity.Parameters {
	params := fields.Clone()
	params[entity.FieldAppId] = app.Id
	params[entity.FieldMerchantId] = merchant.Id
	params[entity.FieldNonce] = NonceStr()
	return params
}

// SignRequest prepares and signs fields for any gateway API.
func SignRequest(app *entity.App, merchant *entity.Merchant, fields entity.Parameters) entity.Parameters {
	return SignParameters(merchant, Prepare(app, merchant, fields))
}

// BuildRequest checks fields against the sending rules of an API, then
// prepares and signs them.
func BuildRequest(app *entity.App, merchant *entity.Merchant, rules *Rules, fields entity.Parameters) (entity.Parameters, error) {
	if err := rules.Sending(fields); err != nil {
		return nil, err
	}
	return SignRequest(app, merchant, fields), nil
}

// UnifiedOrderRequest builds the signed payload that creates an order on the gateway.
func UnifiedOrderRequest(app *entity.App, merchant *entity.Merchant, order entity.Parameters) (entity.Parameters, error) {
	return BuildRequest(app, merchant, UnifiedOrderRules, order)
}

// Prepay derives the parameters the client SDK needs to open the payment
// sheet for prepayId.
func Prepay(app *entity.App, merchant *entity.Merchant, prepayId string) *entity.PrepayConfig {
	conf := &entity.PrepayConfig{
		AppId:     app.Id,
		TimeStamp: strconv.FormatInt(time.Now().Unix(), 10),
		NonceStr:  NonceStr(),
		Package:   "prepay_id=" + prepayId,
		SignType:  entity.SignTypeMD5,
	}
	conf.PaySign = Sign(merchant, conf.Parameters())
	return conf
}
