package domain

import "time"

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusRejected  OrderStatus = "rejected"
)

// Order is the record of a single Stars purchase request. The backend
// never verifies the payment itself; the operator does that from the
// screenshot before confirming.
type Order struct {
	OrderID       string      `json:"orderId"`
	Username      string      `json:"recipientHandle"`
	Stars         int         `json:"starsAmount"`
	Amount        float64     `json:"priceAmount"`
	PaymentMethod string      `json:"paymentMethodLabel"`
	Screenshot    string      `json:"paymentProofRef,omitempty"`
	Status        OrderStatus `json:"status"`
	RejectReason  string      `json:"rejectReason,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// RejectReasons maps reason codes from the operator keyboard to the
// text shown to the purchaser.
var RejectReasons = map[string]string{
	"invalid_screenshot": "Invalid or unreadable screenshot",
	"payment_not_found":  "Payment not found in the bank system",
	"amount_mismatch":    "Paid amount does not match the order",
	"duplicate_order":    "Duplicate order (already processed)",
	"fraud_suspected":    "Suspected fraud",
	"other":              "Rejected by the operator",
}

// ReasonText resolves a reason code to its label. Free-text reasons
// pass through unchanged.
func ReasonText(code string) string {
	if t, ok := RejectReasons[code]; ok {
		return t
	}
	return code
}
