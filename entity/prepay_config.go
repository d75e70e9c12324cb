package entity

// PrepayConfig is handed to the mobile client SDK to open the in-app payment
// sheet for an order the gateway already accepted.
type PrepayConfig struct {
	AppId     string `json:"appId"`
	TimeStamp string `json:"timeStamp"`
	NonceStr  string `json:"nonceStr"`
	Package   string `json:"package"`
	SignType  string `json:"signType"`
	PaySign   string `json:"paySign"`
}

// Parameters returns the signed field set in its wire naming.
func (c *PrepayConfig) Parameters() Parameters {
	return Parameters{
		"appId":     c.AppId,
		"timeStamp": c.TimeStamp,
		"nonceStr":  c.NonceStr,
		"package":   c.Package,
		"signType":  c.SignType,
	}
}
