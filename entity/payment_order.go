package entity

import "time"

// PaymentOrder tracks a unified order from creation to its final notification.
type PaymentOrder struct {
	OutTradeNo    string    `json:"out_trade_no" bson:"out_trade_no"`
	Body          string    `json:"body" bson:"body"`
	TotalFee      int       `json:"total_fee" bson:"total_fee"`
	FeeType       string    `json:"fee_type,omitempty" bson:"fee_type"`
	TradeType     string    `json:"trade_type" bson:"trade_type"`
	OpenId        string    `json:"openid,omitempty" bson:"openid"`
	ProductId     string    `json:"product_id,omitempty" bson:"product_id"`
	ClientIp      string    `json:"spbill_create_ip" bson:"spbill_create_ip"`
	Attach        string    `json:"attach,omitempty" bson:"attach"`
	PrepayId      string    `json:"prepay_id,omitempty" bson:"prepay_id"`
	CodeUrl       string    `json:"code_url,omitempty" bson:"code_url"`
	TransactionId string    `json:"transaction_id,omitempty" bson:"transaction_id"`
	TradeState    string    `json:"trade_state,omitempty" bson:"trade_state"`
	IsCompleted   bool      `json:"is_completed" bson:"is_completed"`
	Result        string    `json:"result,omitempty" bson:"result"`
	TimeOpened    time.Time `json:"time_opened" bson:"time_opened"`
	TimeClosed    time.Time `json:"time_closed,omitempty" bson:"time_closed"`
	Results       []string  `json:"results,omitempty" bson:"results"`
}

// AddResult records a transaction id reported for this order once.
func (o *PaymentOrder) AddResult(transactionId string) {
	for _, id := range o.Results {
		if id == transactionId {
			return
		}
	}
	o.Results = append(o.Results, transactionId)
}

// Close marks the order completed with the given result text.
func (o *PaymentOrder) Close(result string) {
	if o.IsCompleted {
		return
	}
	o.IsCompleted = true
	o.Result = result
	o.TimeClosed = time.Now()
}

// Fields returns the order as unified-order request fields.
func (o *PaymentOrder) Fields(notifyUrl string) Parameters {
	p := Parameters{
		"body":             o.Body,
		"out_trade_no":     o.OutTradeNo,
		"total_fee":        itoa(o.TotalFee),
		"fee_type":         o.FeeType,
		"trade_type":       o.TradeType,
		"openid":           o.OpenId,
		"product_id":       o.ProductId,
		"spbill_create_ip": o.ClientIp,
		"attach":           o.Attach,
		"notify_url":       notifyUrl,
	}
	for k, v := range p {
		if v == "" {
			delete(p, k)
		}
	}
	return p
}
