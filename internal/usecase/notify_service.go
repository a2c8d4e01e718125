package usecase

import (
	"fmt"
	"strings"
)

// NotifyData carries the values a notification template interpolates.
type NotifyData struct {
	OrderID string  `json:"orderId"`
	Stars   int     `json:"stars"`
	Amount  float64 `json:"amount"`
	Reason  string  `json:"reason"`
	Message string  `json:"message"`
}

// NotifyService pushes template-keyed messages to a purchaser on the
// operator's behalf.
type NotifyService struct {
	Gateway Messenger
}

func (s *NotifyService) Send(username, templateID string, data NotifyData) error {
	name := strings.TrimPrefix(strings.TrimSpace(username), "@")
	if name == "" {
		return ErrBadRequest("recipientHandle required")
	}
	text, ok := renderNotification(templateID, data)
	if !ok {
		return ErrBadRequest("unknown notification template")
	}
	if err := s.Gateway.SendText("@"+name, text, nil); err != nil {
		return ErrBadRequest("failed to deliver notification")
	}
	return nil
}

func renderNotification(templateID string, d NotifyData) (string, bool) {
	switch templateID {
	case "order_received":
		return fmt.Sprintf(`<b>Order received!</b>

Order number: <code>%s</code>
Stars: <b>%d</b>
Amount: <b>%s UZS</b>

We will verify the payment and get back to you.`, d.OrderID, d.Stars, formatAmount(d.Amount)), true
	case "order_processing":
		return fmt.Sprintf(`<b>Order in progress</b>

Order number: <code>%s</code>

Your payment is verified. The Stars will be credited soon!`, d.OrderID), true
	case "order_completed":
		return fmt.Sprintf(`<b>Order completed!</b>

Order number: <code>%s</code>
Credited: <b>%d Stars</b>

Thank you for your purchase!`, d.OrderID, d.Stars), true
	case "order_rejected":
		return fmt.Sprintf(`<b>Order rejected</b>

Order number: <code>%s</code>
Reason: %s

Contact support for details.`, d.OrderID, d.Reason), true
	case "custom":
		if strings.TrimSpace(d.Message) == "" {
			return "", false
		}
		return d.Message, true
	default:
		return "", false
	}
}
