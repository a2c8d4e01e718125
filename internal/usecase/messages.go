package usecase

import (
	"fmt"
	"strconv"
	"strings"

	"stars-shop-backend/internal/domain"
	"stars-shop-backend/internal/fragment"
	"stars-shop-backend/internal/telegram"
)

// Chat message rendering for every notification path. HTML parse mode
// throughout; amounts are in UZS.

func decisionKeyboard(orderID string) telegram.Keyboard {
	return telegram.Keyboard{
		{
			{Text: "✅ Confirm", Data: "confirm_" + orderID},
			{Text: "❌ Reject", Data: "reject_" + orderID},
		},
		{
			{Text: "📋 Details", Data: "details_" + orderID},
		},
	}
}

func renderOperatorNewOrder(o *domain.Order, mismatch *domain.Package) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>🆕 New order!</b>\n\n")
	fmt.Fprintf(&b, "📦 Order: <code>%s</code>\n", o.OrderID)
	fmt.Fprintf(&b, "👤 Recipient: @%s\n", o.Username)
	fmt.Fprintf(&b, "⭐ Stars: <b>%d</b>\n", o.Stars)
	fmt.Fprintf(&b, "💰 Amount: <b>%s UZS</b>\n", formatAmount(o.Amount))
	fmt.Fprintf(&b, "💳 Payment: %s\n", o.PaymentMethod)
	fmt.Fprintf(&b, "⏰ Time: %s\n", o.CreatedAt.UTC().Format("02.01.2006 15:04"))
	if mismatch != nil {
		fmt.Fprintf(&b, "\n⚠️ Amount differs from the %d Stars package price (%s UZS)\n", mismatch.Stars, formatAmount(mismatch.Price))
	}
	b.WriteString("\nCheck the payment screenshot and confirm the order.")
	return b.String()
}

func renderOperatorConfirmed(o *domain.Order) string {
	return fmt.Sprintf(`<b>✅ ORDER CONFIRMED</b>

📦 Order: <code>%s</code>
👤 @%s
⭐ %d Stars
💰 %s UZS

Stars sent to the user!`, o.OrderID, o.Username, o.Stars, formatAmount(o.Amount))
}

func renderOperatorRejected(o *domain.Order) string {
	return fmt.Sprintf(`<b>❌ ORDER REJECTED</b>

📦 Order: <code>%s</code>
👤 @%s
📝 Reason: %s`, o.OrderID, o.Username, o.RejectReason)
}

func renderUserPending(o *domain.Order) string {
	return fmt.Sprintf(`<b>⏳ Order received!</b>

Order number: <code>%s</code>
Stars: <b>%d</b>

We will verify the payment and credit the Stars within 5-15 minutes.

<b>Keep the order number!</b>
You will need it to check the status.`, o.OrderID, o.Stars)
}

func renderUserConfirmed(o *domain.Order, disb *fragment.Result) string {
	if disb != nil && disb.Delivered {
		return fmt.Sprintf(`<b>🎉 Order completed!</b>

Order number: <code>%s</code>
Credited: <b>%d Stars</b>
Transaction: <code>%s</code>

Thank you for your purchase! ⭐`, o.OrderID, o.Stars, disb.TransactionID)
	}
	// Delivery is pending or simulated: never claim the Stars landed.
	return fmt.Sprintf(`<b>✅ Order approved!</b>

Order number: <code>%s</code>
Stars: <b>%d</b>

The Stars will be credited shortly.
If anything goes wrong, reply with the order number.`, o.OrderID, o.Stars)
}

func renderUserRejected(o *domain.Order) string {
	return fmt.Sprintf(`<b>❌ Order rejected</b>

Order number: <code>%s</code>
Reason: %s

If you believe this is a mistake, contact support with the order number.`, o.OrderID, o.RejectReason)
}

func renderAuditEntry(o *domain.Order, disb *fragment.Result) string {
	delivery := "failed"
	if disb != nil {
		switch {
		case disb.Delivered:
			delivery = "fragment"
		case disb.Simulated:
			delivery = "simulated"
		}
	}
	return fmt.Sprintf(`<b>Order ID:</b> #%s
<b>Type:</b> stars ⭐
<b>Amount:</b> %d
<b>Price:</b> %s UZS
<b>Status:</b> ✅ Confirmed
<b>Delivery:</b> %s
<b>Time:</b> %s`, o.OrderID, o.Stars, formatAmount(o.Amount), delivery, o.UpdatedAt.UTC().Format("02.01.2006 15:04"))
}

// formatAmount groups the integer part by thousands with spaces, the
// way the storefront displays UZS prices.
func formatAmount(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")
	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)
	out := strings.Join(groups, " ") + frac
	if neg {
		out = "-" + out
	}
	return out
}
