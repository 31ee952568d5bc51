package reconcile

import (
	"regexp"
	"strings"
)

// tokenPattern matches correlation tokens embedded in free-form transfer
// descriptions, e.g. "random text ORDER1700000000001 extra".
var tokenPattern = regexp.MustCompile(`ORDER\d+`)

const paidSentinel = "PAID"

// WebhookPayload tolerates both payload generations the payer has shipped:
// the transfer-notification shape carrying the token inside free text next
// to a transferAmount, and the structured shape naming the token directly
// with an explicit status string. Unknown extra fields are ignored.
type WebhookPayload struct {
	Content        string  `json:"content"`
	Description    string  `json:"description"`
	TransferAmount float64 `json:"transferAmount"`

	OrderID       string `json:"orderId"`
	ReferenceCode string `json:"referenceCode"`
	Status        string `json:"status"`
}

// Token extracts the correlation token: a structured field when present,
// otherwise a pattern match over the free-text fields.
func (p WebhookPayload) Token() (string, bool) {
	if p.OrderID != "" {
		return p.OrderID, true
	}
	if p.ReferenceCode != "" {
		return p.ReferenceCode, true
	}
	if m := tokenPattern.FindString(p.Content); m != "" {
		return m, true
	}
	if m := tokenPattern.FindString(p.Description); m != "" {
		return m, true
	}
	return "", false
}

// ConfirmsPayment reports whether the payload is a valid confirmation
// signal: a positive transferred amount or an explicit paid status. Either
// alone suffices; neither means the delivery is absorbed as a no-op.
func (p WebhookPayload) ConfirmsPayment() bool {
	if p.TransferAmount > 0 {
		return true
	}
	return strings.EqualFold(p.Status, paidSentinel)
}
