package order

// IDGenerator issues fresh correlation tokens for new orders.
type IDGenerator interface {
	NewID() string
}

// QRURLBuilder renders the payment QR image URL for an order.
type QRURLBuilder interface {
	Build(orderID string, amount int64) string
}
