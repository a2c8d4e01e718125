// Package bot routes Telegram webhook updates: user commands, order
// status lookups, and the operator's decision buttons.
package bot

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"stars-shop-backend/internal/catalog"
	"stars-shop-backend/internal/domain"
	"stars-shop-backend/internal/telegram"
	"stars-shop-backend/internal/usecase"
)

type Messenger interface {
	SendText(target, text string, kb telegram.Keyboard) error
	EditText(chatID int64, messageID int, text string, kb telegram.Keyboard) error
	AnswerCallback(callbackID, text string, alert bool) error
}

type DecisionApplier interface {
	ApplyDecision(ctx context.Context, orderID string, d usecase.Decision, reason string, origin *usecase.CallbackOrigin) (*usecase.DecisionResult, error)
}

type Handler struct {
	Gateway     Messenger
	Decisions   DecisionApplier
	Repo        usecase.OrderRepo
	Query       *usecase.QueryService
	Catalog     *catalog.Catalog
	AdminChatID int64
	AdminSecret string
	Log         *logrus.Entry
}

var orderCodeRe = regexp.MustCompile(`(?i)ORD-[A-Z0-9]{6}`)

func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.Message != nil:
		h.handleMessage(upd.Message)
	case upd.CallbackQuery != nil:
		h.handleCallback(ctx, upd.CallbackQuery)
	}
}

func (h *Handler) isAdmin(chatID int64) bool {
	return chatID == h.AdminChatID
}

func (h *Handler) handleMessage(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	var username string
	if msg.From != nil {
		username = msg.From.UserName
	}

	switch {
	case strings.HasPrefix(text, "/start"):
		h.sendStart(chatID)
	case strings.HasPrefix(text, "/help"):
		h.sendHelp(chatID)
	case strings.HasPrefix(text, "/orders"), strings.HasPrefix(text, "/pending"):
		h.sendPendingOrders(chatID)
	case strings.HasPrefix(text, "/stats"):
		h.sendStats(chatID)
	case strings.HasPrefix(text, "/setprice"):
		h.setPrice(chatID, text)
	case strings.HasPrefix(text, "/getprices"):
		h.sendPrices(chatID)
	case h.AdminSecret != "" && text == h.AdminSecret:
		h.send(chatID, fmt.Sprintf("<b>🔐 Your chat ID:</b>\n<code>%d</code>\n\nSet it as TELEGRAM_ADMIN_CHAT_ID.", chatID))
	default:
		h.handleText(chatID, text, username)
	}
}

func (h *Handler) sendStart(chatID int64) {
	text := `<b>⭐ Welcome to the Telegram Stars Shop!</b>

Buy Telegram Stars at a fair price.

<b>Commands:</b>
/start - Main menu
/help - Help
Send an order number to check its status`
	if h.isAdmin(chatID) {
		text += `

<b>🔐 Admin commands:</b>
/orders - Pending orders
/stats - Statistics
/getprices - Current prices
/setprice [id] [price] - Update a price`
	}
	h.send(chatID, text)
}

func (h *Handler) sendHelp(chatID int64) {
	h.send(chatID, `<b>📖 Help</b>

<b>How to buy Stars:</b>
1. Open the shop site
2. Pick a Stars package
3. Enter your @username
4. Pay by card transfer
5. Upload the receipt screenshot
6. Wait for confirmation (5-15 min)

<b>Status check:</b>
Send your order number, e.g. <code>ORD-ABC123</code>

<b>Problems?</b>
Send the order number — we will help!`)
}

func (h *Handler) sendPendingOrders(chatID int64) {
	if !h.isAdmin(chatID) {
		h.send(chatID, "❌ You are not allowed to use this command")
		return
	}
	pending := h.Query.PendingOrders(10)
	if len(pending) == 0 {
		h.send(chatID, "📭 No pending orders")
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<b>⏳ Pending orders (%d):</b>\n", len(pending))
	for _, o := range pending {
		fmt.Fprintf(&b, "\n📦 <code>%s</code>\n👤 @%s\n⭐ %d Stars\n⏰ %s\n─────────────\n",
			o.OrderID, o.Username, o.Stars, o.CreatedAt.UTC().Format("02.01.2006 15:04"))
	}
	h.send(chatID, strings.TrimSpace(b.String()))
}

func (h *Handler) sendStats(chatID int64) {
	if !h.isAdmin(chatID) {
		h.send(chatID, "❌ You are not allowed to use this command")
		return
	}
	st := h.Query.Stats()
	h.send(chatID, fmt.Sprintf(`<b>📊 Statistics</b>

Orders: %d
⏳ Pending: %d
✅ Confirmed: %d
❌ Rejected: %d

⭐ Stars sold: %d
💰 Revenue: %.0f UZS`, st.Total, st.Pending, st.Confirmed, st.Rejected, st.TotalStars, st.TotalRevenue))
}

func (h *Handler) setPrice(chatID int64, text string) {
	if !h.isAdmin(chatID) {
		return
	}
	parts := strings.Fields(text)
	if len(parts) != 3 {
		h.send(chatID, "❌ Usage: /setprice [id] [price]\nExample: /setprice 1 15000")
		return
	}
	id, err := strconv.Atoi(parts[1])
	if err != nil {
		h.send(chatID, "❌ Package id must be a number")
		return
	}
	raw := strings.NewReplacer(".", "", ",", "").Replace(parts[2])
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || price <= 0 {
		h.send(chatID, "❌ Price must be a positive number")
		return
	}
	pkg, ok := h.Catalog.SetPrice(id, price)
	if !ok {
		h.send(chatID, "❌ No package with that id")
		return
	}
	h.send(chatID, fmt.Sprintf("✅ Price for <b>%d Stars</b> updated to <b>%.0f UZS</b>", pkg.Stars, pkg.Price))
}

func (h *Handler) sendPrices(chatID int64) {
	if !h.isAdmin(chatID) {
		return
	}
	var b strings.Builder
	b.WriteString("<b>💰 Current prices:</b>\n\n")
	for _, p := range h.Catalog.List() {
		fmt.Fprintf(&b, "🆔 <b>%d</b> | ⭐ %d = %.0f UZS\n", p.ID, p.Stars, p.Price)
	}
	h.send(chatID, b.String())
}

func (h *Handler) handleText(chatID int64, text, username string) {
	if code := orderCodeRe.FindString(text); code != "" {
		orderID := strings.ToUpper(code)
		o, ok := h.Repo.Get(orderID)
		if !ok {
			h.send(chatID, fmt.Sprintf("❌ Order <code>%s</code> not found.\n\nCheck the number and try again.", orderID))
			return
		}
		h.send(chatID, renderStatusReply(o))
		return
	}
	greeting := "Hi! 👋"
	if username != "" {
		greeting = fmt.Sprintf("Hi, @%s! 👋", username)
	}
	h.send(chatID, greeting+`

To check an order, send its number.
Example: <code>ORD-ABC123</code>

Use /help for details.`)
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID
	if !h.isAdmin(chatID) {
		h.answer(cb.ID, "❌ No access", true)
		return
	}
	action, rest, _ := strings.Cut(cb.Data, "_")
	origin := &usecase.CallbackOrigin{ChatID: chatID, MessageID: messageID}

	switch action {
	case "confirm":
		h.answer(cb.ID, "⏳ Confirming the order...", false)
		_, err := h.Decisions.ApplyDecision(ctx, rest, usecase.DecisionConfirm, "", origin)
		h.reportDecisionError(cb, rest, err)
	case "reject":
		h.answer(cb.ID, "", false)
		h.edit(chatID, messageID,
			fmt.Sprintf("<b>❌ Rejecting order %s</b>\n\nPick the reason:", rest),
			rejectReasonKeyboard(rest))
	case "rejectr":
		orderID, reason, ok := strings.Cut(rest, "_")
		if !ok {
			h.answer(cb.ID, "❌ Malformed reject payload", true)
			return
		}
		_, err := h.Decisions.ApplyDecision(ctx, orderID, usecase.DecisionReject, reason, origin)
		if err != nil {
			h.reportDecisionError(cb, orderID, err)
			return
		}
		h.answer(cb.ID, "✅ Order rejected", false)
	case "cancel":
		o, ok := h.Repo.Get(rest)
		if !ok {
			h.answer(cb.ID, "❌ Order not found", true)
			return
		}
		h.edit(chatID, messageID, renderCancelReply(o), confirmRejectKeyboard(rest))
		h.answer(cb.ID, "", false)
	case "details":
		o, ok := h.Repo.Get(rest)
		if !ok {
			h.answer(cb.ID, "❌ Order not found", true)
			return
		}
		h.answer(cb.ID, fmt.Sprintf("Order: %s\nUser: @%s\nStars: %d\nAmount: %.0f UZS\nDate: %s",
			o.OrderID, o.Username, o.Stars, o.Amount, o.CreatedAt.UTC().Format("02.01.2006 15:04")), true)
	default:
		h.answer(cb.ID, "", false)
	}
}

func (h *Handler) reportDecisionError(cb *tgbotapi.CallbackQuery, orderID string, err error) {
	if err == nil {
		return
	}
	switch err.(type) {
	case usecase.ErrNotFound:
		h.edit(cb.Message.Chat.ID, cb.Message.MessageID, fmt.Sprintf("❌ Order %s not found", orderID), nil)
	case usecase.ErrConflict:
		h.answer(cb.ID, "⚠️ "+err.Error(), true)
	default:
		h.Log.WithField("orderId", orderID).WithError(err).Error("decision failed")
		h.answer(cb.ID, "❌ Something went wrong", true)
	}
}

func (h *Handler) send(chatID int64, text string) {
	if err := h.Gateway.SendText(strconv.FormatInt(chatID, 10), text, nil); err != nil {
		h.Log.WithField("chatId", chatID).WithError(err).Warn("send failed")
	}
}

func (h *Handler) edit(chatID int64, messageID int, text string, kb telegram.Keyboard) {
	if err := h.Gateway.EditText(chatID, messageID, text, kb); err != nil {
		h.Log.WithField("chatId", chatID).WithError(err).Warn("edit failed")
	}
}

func (h *Handler) answer(callbackID, text string, alert bool) {
	if err := h.Gateway.AnswerCallback(callbackID, text, alert); err != nil {
		h.Log.WithError(err).Warn("answer callback failed")
	}
}

func confirmRejectKeyboard(orderID string) telegram.Keyboard {
	return telegram.Keyboard{
		{
			{Text: "✅ Confirm", Data: "confirm_" + orderID},
			{Text: "❌ Reject", Data: "reject_" + orderID},
		},
	}
}

func rejectReasonKeyboard(orderID string) telegram.Keyboard {
	return telegram.Keyboard{
		{{Text: "📸 Invalid screenshot", Data: "rejectr_" + orderID + "_invalid_screenshot"}},
		{{Text: "💳 Payment not found", Data: "rejectr_" + orderID + "_payment_not_found"}},
		{{Text: "💰 Amount mismatch", Data: "rejectr_" + orderID + "_amount_mismatch"}},
		{{Text: "🔙 Cancel", Data: "cancel_" + orderID}},
	}
}

func renderCancelReply(o *domain.Order) string {
	return fmt.Sprintf(`<b>📦 Order %s</b>

👤 @%s
⭐ %d Stars
💰 %.0f UZS

Pick an action:`, o.OrderID, o.Username, o.Stars, o.Amount)
}

func renderStatusReply(o *domain.Order) string {
	emoji := map[domain.OrderStatus]string{
		domain.StatusPending:   "⏳",
		domain.StatusConfirmed: "✅",
		domain.StatusRejected:  "❌",
	}
	label := map[domain.OrderStatus]string{
		domain.StatusPending:   "Waiting for confirmation",
		domain.StatusConfirmed: "Confirmed, Stars sent",
		domain.StatusRejected:  "Rejected",
	}
	reply := fmt.Sprintf(`<b>📦 Order status</b>

Order number: <code>%s</code>
Status: %s %s
Stars: %d
Date: %s`, o.OrderID, emoji[o.Status], label[o.Status], o.Stars, o.CreatedAt.UTC().Format("02.01.2006 15:04"))
	if o.Status == domain.StatusRejected && o.RejectReason != "" {
		reply += "\n\nReason: " + o.RejectReason
	}
	return reply
}
