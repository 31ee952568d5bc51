package reconcile

import "testing"

func TestWebhookPayload_Token(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload WebhookPayload
		want    string
		ok      bool
	}{
		{
			name:    "structured orderId wins",
			payload: WebhookPayload{OrderID: "ORDER1", Content: "ORDER2"},
			want:    "ORDER1",
			ok:      true,
		},
		{
			name:    "referenceCode fallback",
			payload: WebhookPayload{ReferenceCode: "ORDER3"},
			want:    "ORDER3",
			ok:      true,
		},
		{
			name:    "token inside free-text content",
			payload: WebhookPayload{Content: "random text ORDER1700000000001 extra"},
			want:    "ORDER1700000000001",
			ok:      true,
		},
		{
			name:    "token inside description",
			payload: WebhookPayload{Description: "chuyen khoan ORDER42"},
			want:    "ORDER42",
			ok:      true,
		},
		{
			name:    "no token anywhere",
			payload: WebhookPayload{Content: "nothing to see", Description: "still nothing"},
			ok:      false,
		},
		{
			name:    "prefix without digits is not a token",
			payload: WebhookPayload{Content: "ORDER pending"},
			ok:      false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.payload.Token()
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, ok)
			}
			if ok && got != tc.want {
				t.Fatalf("expected token %q, got %q", tc.want, got)
			}
		})
	}
}

func TestWebhookPayload_ConfirmsPayment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload WebhookPayload
		want    bool
	}{
		{name: "positive amount", payload: WebhookPayload{TransferAmount: 50000}, want: true},
		{name: "explicit paid status", payload: WebhookPayload{Status: "PAID"}, want: true},
		{name: "paid status is case-insensitive", payload: WebhookPayload{Status: "paid"}, want: true},
		{name: "zero amount and no status", payload: WebhookPayload{}, want: false},
		{name: "negative amount", payload: WebhookPayload{TransferAmount: -1}, want: false},
		{name: "non-paid status", payload: WebhookPayload{Status: "PENDING"}, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.payload.ConfirmsPayment(); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
