package internal

import "wxpay/entity"

var (
	testApp      = &entity.App{Id: "wxd678efh567hg6787"}
	testMerchant = &entity.Merchant{Id: "1230000109", SignKey: "192006250b4c09247ec02edce69f6a2d"}
)

func orderFixture() entity.Parameters {
	return entity.Parameters{
		"openid":           "",
		"spbill_create_ip": "1.202.241.25",
		"notify_url":       "http://wx.domain.com/weixin/pay/main",
		"body":             "测试支付",
		"out_trade_no":     "111",
		"total_fee":        "1",
		"trade_type":       "JSAPI",
		"appid":            testApp.Id,
		"mch_id":           testMerchant.Id,
		"nonce_str":        "XjUw56N8MjeCUqHCwqgiKwr2CJVgYUpe",
	}
}

func envelope(extra entity.Parameters) entity.Parameters {
	p := entity.Parameters{
		"return_code": "SUCCESS",
		"return_msg":  "成功!",
		"appid":       testApp.Id,
		"mch_id":      testMerchant.Id,
		"nonce_str":   "sodsfd",
	}
	for k, v := range extra {
		p[k] = v
	}
	return p
}
