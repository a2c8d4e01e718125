package bot

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"stars-shop-backend/internal/catalog"
	"stars-shop-backend/internal/domain"
	"stars-shop-backend/internal/fragment"
	"stars-shop-backend/internal/store"
	"stars-shop-backend/internal/telegram"
	"stars-shop-backend/internal/usecase"
)

type sentText struct {
	Target string
	Text   string
	Kb     telegram.Keyboard
}

type sentEdit struct {
	ChatID    int64
	MessageID int
	Text      string
	Kb        telegram.Keyboard
}

type sentAnswer struct {
	ID    string
	Text  string
	Alert bool
}

// fakeGateway serves both the webhook handler and the order service
// notifications behind it.
type fakeGateway struct {
	mu      sync.Mutex
	texts   []sentText
	edits   []sentEdit
	answers []sentAnswer
}

func (f *fakeGateway) SendText(target, text string, kb telegram.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, sentText{target, text, kb})
	return nil
}

func (f *fakeGateway) SendPhoto(target, photo, caption string, kb telegram.Keyboard) error {
	return nil
}

func (f *fakeGateway) EditText(chatID int64, messageID int, text string, kb telegram.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, sentEdit{chatID, messageID, text, kb})
	return nil
}

func (f *fakeGateway) AnswerCallback(callbackID, text string, alert bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, sentAnswer{callbackID, text, alert})
	return nil
}

func (f *fakeGateway) textsTo(target string) []sentText {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentText
	for _, m := range f.texts {
		if m.Target == target {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeGateway) lastAnswer(t *testing.T) sentAnswer {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.answers) == 0 {
		t.Fatal("no callback answer recorded")
	}
	return f.answers[len(f.answers)-1]
}

type stubDisburser struct{}

func (stubDisburser) SendStars(ctx context.Context, recipient string, stars int) (fragment.Result, error) {
	return fragment.Result{Simulated: true, TransactionID: "TXN-STUBSTUBSTUB"}, nil
}

const adminChat = int64(99)

func newTestHandler() (*Handler, *store.Memory, *fakeGateway, *usecase.OrderService) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	entry := log.WithField("test", true)

	repo := store.NewMemory()
	gw := &fakeGateway{}
	cat := catalog.NewSeeded()
	orders := &usecase.OrderService{
		Repo:        repo,
		Catalog:     cat,
		Gateway:     gw,
		Fragment:    stubDisburser{},
		AdminChatID: adminChat,
		Log:         entry,
	}
	h := &Handler{
		Gateway:     gw,
		Decisions:   orders,
		Repo:        repo,
		Query:       &usecase.QueryService{Repo: repo},
		Catalog:     cat,
		AdminChatID: adminChat,
		AdminSecret: "/getadmin111",
		Log:         entry,
	}
	return h, repo, gw, orders
}

func seedPending(repo *store.Memory, id string) {
	now := time.Now().UTC()
	_ = repo.Put(&domain.Order{
		OrderID:   id,
		Username:  "buyer_one",
		Stars:     100,
		Amount:    27000,
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func messageUpdate(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		Chat:      &tgbotapi.Chat{ID: chatID},
		From:      &tgbotapi.User{UserName: "someone"},
		Text:      text,
	}}
}

func callbackUpdate(chatID int64, messageID int, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		Data:    data,
		Message: &tgbotapi.Message{MessageID: messageID, Chat: &tgbotapi.Chat{ID: chatID}},
	}}
}

func TestCallbackConfirm(t *testing.T) {
	h, repo, gw, orders := newTestHandler()
	seedPending(repo, "ORD-ABC123")

	h.HandleUpdate(context.Background(), callbackUpdate(adminChat, 7, "confirm_ORD-ABC123"))
	orders.Wait()

	o, _ := repo.Get("ORD-ABC123")
	if o.Status != domain.StatusConfirmed {
		t.Fatalf("status = %s, want confirmed", o.Status)
	}
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if len(gw.edits) != 1 || gw.edits[0].ChatID != adminChat || gw.edits[0].MessageID != 7 {
		t.Fatalf("edits = %+v, want the button message edited in place", gw.edits)
	}
}

func TestCallbackDeniedForNonAdmin(t *testing.T) {
	h, repo, gw, _ := newTestHandler()
	seedPending(repo, "ORD-ABC123")

	h.HandleUpdate(context.Background(), callbackUpdate(12345, 7, "confirm_ORD-ABC123"))

	ans := gw.lastAnswer(t)
	if !ans.Alert || !strings.Contains(ans.Text, "No access") {
		t.Fatalf("answer = %+v, want access denial alert", ans)
	}
	o, _ := repo.Get("ORD-ABC123")
	if o.Status != domain.StatusPending {
		t.Fatalf("status = %s, non-admin must not decide orders", o.Status)
	}
}

func TestCallbackRejectShowsReasonKeyboard(t *testing.T) {
	h, repo, gw, _ := newTestHandler()
	seedPending(repo, "ORD-ABC123")

	h.HandleUpdate(context.Background(), callbackUpdate(adminChat, 7, "reject_ORD-ABC123"))

	gw.mu.Lock()
	defer gw.mu.Unlock()
	if len(gw.edits) != 1 {
		t.Fatalf("edits = %d, want reason picker", len(gw.edits))
	}
	kb := gw.edits[0].Kb
	if len(kb) != 4 {
		t.Fatalf("reason keyboard rows = %d, want 4", len(kb))
	}
	if kb[0][0].Data != "rejectr_ORD-ABC123_invalid_screenshot" {
		t.Fatalf("first reason payload = %q", kb[0][0].Data)
	}
	o, _ := repo.Get("ORD-ABC123")
	if o.Status != domain.StatusPending {
		t.Fatal("picking the reject button must not decide the order yet")
	}
}

func TestCallbackRejectWithReason(t *testing.T) {
	h, repo, gw, orders := newTestHandler()
	seedPending(repo, "ORD-ABC123")

	h.HandleUpdate(context.Background(), callbackUpdate(adminChat, 7, "rejectr_ORD-ABC123_payment_not_found"))
	orders.Wait()

	o, _ := repo.Get("ORD-ABC123")
	if o.Status != domain.StatusRejected {
		t.Fatalf("status = %s, want rejected", o.Status)
	}
	if o.RejectReason != domain.RejectReasons["payment_not_found"] {
		t.Fatalf("reason = %q", o.RejectReason)
	}
	ans := gw.lastAnswer(t)
	if !strings.Contains(ans.Text, "rejected") {
		t.Fatalf("answer = %+v", ans)
	}
}

func TestCallbackConflictAnswersAlert(t *testing.T) {
	h, repo, gw, orders := newTestHandler()
	seedPending(repo, "ORD-ABC123")

	h.HandleUpdate(context.Background(), callbackUpdate(adminChat, 7, "confirm_ORD-ABC123"))
	h.HandleUpdate(context.Background(), callbackUpdate(adminChat, 7, "rejectr_ORD-ABC123_other"))
	orders.Wait()

	ans := gw.lastAnswer(t)
	if !ans.Alert || !strings.Contains(ans.Text, "confirmed") {
		t.Fatalf("answer = %+v, want conflict alert", ans)
	}
	o, _ := repo.Get("ORD-ABC123")
	if o.Status != domain.StatusConfirmed {
		t.Fatalf("status = %s, first decision must stand", o.Status)
	}
}

func TestCallbackUnknownOrder(t *testing.T) {
	h, _, gw, orders := newTestHandler()

	h.HandleUpdate(context.Background(), callbackUpdate(adminChat, 7, "confirm_ORD-ZZZZZZ"))
	orders.Wait()

	gw.mu.Lock()
	defer gw.mu.Unlock()
	if len(gw.edits) != 1 || !strings.Contains(gw.edits[0].Text, "not found") {
		t.Fatalf("edits = %+v, want not-found notice", gw.edits)
	}
}

func TestCallbackDetails(t *testing.T) {
	h, repo, gw, _ := newTestHandler()
	seedPending(repo, "ORD-ABC123")

	h.HandleUpdate(context.Background(), callbackUpdate(adminChat, 7, "details_ORD-ABC123"))

	ans := gw.lastAnswer(t)
	if !ans.Alert || !strings.Contains(ans.Text, "ORD-ABC123") || !strings.Contains(ans.Text, "@buyer_one") {
		t.Fatalf("answer = %+v, want details alert", ans)
	}
}

func TestSetPriceCommand(t *testing.T) {
	h, _, gw, _ := newTestHandler()

	h.HandleUpdate(context.Background(), messageUpdate(adminChat, "/setprice 2 30000"))
	p, _ := h.Catalog.Get(2)
	if p.Price != 30000 {
		t.Fatalf("price = %v, want 30000", p.Price)
	}
	msgs := gw.textsTo("99")
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "updated") {
		t.Fatalf("reply = %+v", msgs)
	}

	h.HandleUpdate(context.Background(), messageUpdate(adminChat, "/setprice 2 nonsense"))
	p, _ = h.Catalog.Get(2)
	if p.Price != 30000 {
		t.Fatal("bad price input changed the catalog")
	}
}

func TestSetPriceIgnoredForNonAdmin(t *testing.T) {
	h, _, gw, _ := newTestHandler()

	h.HandleUpdate(context.Background(), messageUpdate(12345, "/setprice 2 1"))
	p, _ := h.Catalog.Get(2)
	if p.Price != 27000 {
		t.Fatalf("price = %v, non-admin changed the catalog", p.Price)
	}
	if len(gw.textsTo("12345")) != 0 {
		t.Fatal("non-admin setprice got a reply")
	}
}

func TestOrderStatusLookup(t *testing.T) {
	h, repo, gw, _ := newTestHandler()
	seedPending(repo, "ORD-ABC123")

	h.HandleUpdate(context.Background(), messageUpdate(500, "what about ord-abc123 ?"))
	msgs := gw.textsTo("500")
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "ORD-ABC123") {
		t.Fatalf("reply = %+v, want status for the order", msgs)
	}

	h.HandleUpdate(context.Background(), messageUpdate(500, "ORD-ZZZZZZ"))
	msgs = gw.textsTo("500")
	if len(msgs) != 2 || !strings.Contains(msgs[1].Text, "not found") {
		t.Fatalf("reply = %+v, want not-found notice", msgs)
	}
}

func TestAdminSecretRevealsChatID(t *testing.T) {
	h, _, gw, _ := newTestHandler()

	h.HandleUpdate(context.Background(), messageUpdate(555, "/getadmin111"))
	msgs := gw.textsTo("555")
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "555") {
		t.Fatalf("reply = %+v, want the chat id echoed", msgs)
	}
}

func TestPendingOrdersCommand(t *testing.T) {
	h, repo, gw, _ := newTestHandler()

	h.HandleUpdate(context.Background(), messageUpdate(adminChat, "/orders"))
	msgs := gw.textsTo("99")
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "No pending orders") {
		t.Fatalf("reply = %+v", msgs)
	}

	seedPending(repo, "ORD-ABC123")
	h.HandleUpdate(context.Background(), messageUpdate(adminChat, "/pending"))
	msgs = gw.textsTo("99")
	if len(msgs) != 2 || !strings.Contains(msgs[1].Text, "ORD-ABC123") {
		t.Fatalf("reply = %+v, want the pending order listed", msgs)
	}

	h.HandleUpdate(context.Background(), messageUpdate(12345, "/orders"))
	other := gw.textsTo("12345")
	if len(other) != 1 || !strings.Contains(other[0].Text, "not allowed") {
		t.Fatalf("non-admin reply = %+v", other)
	}
}

func TestStatsCommand(t *testing.T) {
	h, repo, gw, _ := newTestHandler()
	now := time.Now().UTC()
	_ = repo.Put(&domain.Order{OrderID: "ORD-STAT01", Username: "buyer_one", Stars: 100, Amount: 27000, Status: domain.StatusConfirmed, CreatedAt: now, UpdatedAt: now})
	seedPending(repo, "ORD-STAT02")

	h.HandleUpdate(context.Background(), messageUpdate(adminChat, "/stats"))
	msgs := gw.textsTo("99")
	if len(msgs) != 1 {
		t.Fatalf("replies = %d", len(msgs))
	}
	for _, want := range []string{"Orders: 2", "Pending: 1", "Confirmed: 1", "27000 UZS"} {
		if !strings.Contains(msgs[0].Text, want) {
			t.Fatalf("stats reply missing %q:\n%s", want, msgs[0].Text)
		}
	}
}
