// Package entity defines data models for the wxpay payment service.
package entity

// App identifies the calling application registered with the payment platform.
type App struct {
	Id string `json:"id"`
}

// Merchant identifies the merchant account and holds the shared secret used
// to sign every request exchanged with the gateway.
type Merchant struct {
	Id      string `json:"id"`
	SignKey string `json:"-"`
}
