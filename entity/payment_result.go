package entity

import (
	"strconv"
	"time"
)

// PaymentResult is the stored form of an accepted payment notification.
type PaymentResult struct {
	TransactionId string     `json:"transaction_id" bson:"transaction_id"`
	OutTradeNo    string     `json:"out_trade_no" bson:"out_trade_no"`
	ResultCode    string     `json:"result_code" bson:"result_code"`
	OpenId        string     `json:"openid" bson:"openid"`
	TradeType     string     `json:"trade_type" bson:"trade_type"`
	BankType      string     `json:"bank_type" bson:"bank_type"`
	TotalFee      int        `json:"total_fee" bson:"total_fee"`
	CashFee       int        `json:"cash_fee" bson:"cash_fee"`
	FeeType       string     `json:"fee_type" bson:"fee_type"`
	TimeEnd       string     `json:"time_end" bson:"time_end"`
	Attach        string     `json:"attach,omitempty" bson:"attach"`
	Raw           Parameters `json:"raw" bson:"raw"`
	TimeReceived  time.Time  `json:"time_received" bson:"time_received"`
}

// NewPaymentResult maps accepted notification fields onto a PaymentResult.
func NewPaymentResult(result, raw Parameters) *PaymentResult {
	return &PaymentResult{
		TransactionId: result.Get("transaction_id"),
		OutTradeNo:    result.Get("out_trade_no"),
		ResultCode:    result.Get(FieldResultCode),
		OpenId:        result.Get("openid"),
		TradeType:     result.Get("trade_type"),
		BankType:      result.Get("bank_type"),
		TotalFee:      atoi(result.Get("total_fee")),
		CashFee:       atoi(result.Get("cash_fee")),
		FeeType:       result.Get("fee_type"),
		TimeEnd:       result.Get("time_end"),
		Attach:        result.Get("attach"),
		Raw:           raw.Without(FieldSign),
		TimeReceived:  time.Now(),
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func itoa(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}
