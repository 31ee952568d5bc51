package qr

import (
	"net/url"
	"strconv"
)

// URLBuilder constructs VietQR image URLs for bank-transfer QR codes. The
// correlation token rides in addInfo so the payer's transfer description
// carries it back through verification lookups and webhooks.
type URLBuilder struct {
	bank    string
	account string
}

func NewURLBuilder(bank, account string) *URLBuilder {
	return &URLBuilder{bank: bank, account: account}
}

func (b *URLBuilder) Build(orderID string, amount int64) string {
	u := url.URL{
		Scheme: "https",
		Host:   "img.vietqr.io",
		Path:   "/image/" + b.bank + "-" + b.account + "-print.png",
	}
	q := url.Values{}
	q.Set("amount", strconv.FormatInt(amount, 10))
	q.Set("addInfo", orderID)
	u.RawQuery = q.Encode()
	return u.String()
}
