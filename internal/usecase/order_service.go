package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"stars-shop-backend/internal/catalog"
	"stars-shop-backend/internal/domain"
	"stars-shop-backend/internal/fragment"
	"stars-shop-backend/internal/store"
	"stars-shop-backend/internal/telegram"
)

type OrderRepo interface {
	Put(*domain.Order) error
	Get(id string) (*domain.Order, bool)
	List() []domain.Order
	Transition(id string, to domain.OrderStatus, reason string) (*domain.Order, error)
}

type Messenger interface {
	SendText(target, text string, kb telegram.Keyboard) error
	SendPhoto(target, photo, caption string, kb telegram.Keyboard) error
	EditText(chatID int64, messageID int, text string, kb telegram.Keyboard) error
}

type Disburser interface {
	SendStars(ctx context.Context, recipient string, stars int) (fragment.Result, error)
}

type Decision string

const (
	DecisionConfirm Decision = "confirm"
	DecisionReject  Decision = "reject"
)

// CallbackOrigin identifies the operator message whose buttons
// triggered a decision, so the result can be edited in place.
type CallbackOrigin struct {
	ChatID    int64
	MessageID int
}

type CreateOrderInput struct {
	Username      string
	Stars         int
	Amount        float64
	PaymentMethod string
	Screenshot    string
}

type DecisionResult struct {
	Order        *domain.Order
	Disbursement *fragment.Result
	// Applied is false when the call was an idempotent repeat and no
	// side effects ran.
	Applied bool
}

// OrderService owns the order lifecycle: intake, operator decision,
// and the notification fan-out around both.
type OrderService struct {
	Repo        OrderRepo
	Catalog     *catalog.Catalog
	Gateway     Messenger
	Fragment    Disburser
	AdminChatID int64
	LogsChannel string
	Log         *logrus.Entry

	wg sync.WaitGroup
}

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{5,32}$`)

// Create validates and stores a pending order, then notifies the
// operator and the purchaser in the background. The caller gets the
// order id back without waiting on delivery.
func (s *OrderService) Create(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	var bad []string
	name := strings.TrimPrefix(strings.TrimSpace(in.Username), "@")
	if !usernameRe.MatchString(name) {
		bad = append(bad, "recipientHandle")
	}
	if in.Stars <= 0 {
		bad = append(bad, "starsAmount")
	}
	if in.Amount <= 0 {
		bad = append(bad, "priceAmount")
	}
	if len(bad) > 0 {
		return nil, ErrBadRequest("invalid fields: " + strings.Join(bad, ", "))
	}
	method := strings.TrimSpace(in.PaymentMethod)
	if method == "" {
		method = "Card transfer"
	}
	now := time.Now().UTC()
	o := &domain.Order{
		OrderID:       newOrderID(),
		Username:      name,
		Stars:         in.Stars,
		Amount:        in.Amount,
		PaymentMethod: method,
		Screenshot:    in.Screenshot,
		Status:        domain.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Repo.Put(o); err != nil {
		return nil, err
	}
	cp := *o
	s.spawn(func() { s.notifyNewOrder(&cp) })
	return o, nil
}

// ApplyDecision moves a pending order to its final state. Repeating a
// decision is a no-op that succeeds without re-notifying or
// re-disbursing; the opposite decision on a decided order conflicts.
func (s *OrderService) ApplyDecision(ctx context.Context, orderID string, d Decision, reason string, origin *CallbackOrigin) (*DecisionResult, error) {
	var target domain.OrderStatus
	var reasonText string
	switch d {
	case DecisionConfirm:
		target = domain.StatusConfirmed
	case DecisionReject:
		if strings.TrimSpace(reason) == "" {
			return nil, ErrBadRequest("reject requires a reason")
		}
		target = domain.StatusRejected
		reasonText = domain.ReasonText(reason)
	default:
		return nil, ErrBadRequest("unknown decision")
	}

	o, err := s.Repo.Transition(orderID, target, reasonText)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, ErrNotFound("order")
	case errors.Is(err, store.ErrDecided):
		if o.Status == target {
			return &DecisionResult{Order: o, Applied: false}, nil
		}
		return nil, ErrConflict("order already " + string(o.Status))
	case err != nil:
		return nil, err
	}

	res := &DecisionResult{Order: o, Applied: true}
	if target == domain.StatusConfirmed {
		disb, derr := s.Fragment.SendStars(ctx, o.Username, o.Stars)
		if derr != nil {
			s.Log.WithField("orderId", o.OrderID).WithError(derr).Warn("disbursement failed")
		}
		res.Disbursement = &disb
	}

	cp := *o
	disb := res.Disbursement
	s.spawn(func() { s.notifyDecision(&cp, disb, origin) })
	return res, nil
}

// Wait blocks until in-flight notification fan-outs finish. Used at
// shutdown and by tests.
func (s *OrderService) Wait() {
	s.wg.Wait()
}

func (s *OrderService) spawn(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *OrderService) notifyNewOrder(o *domain.Order) {
	g := new(errgroup.Group)
	g.Go(func() error {
		caption := renderOperatorNewOrder(o, s.priceMismatch(o))
		kb := decisionKeyboard(o.OrderID)
		admin := strconv.FormatInt(s.AdminChatID, 10)
		if o.Screenshot != "" {
			return s.Gateway.SendPhoto(admin, o.Screenshot, caption, kb)
		}
		return s.Gateway.SendText(admin, caption, kb)
	})
	g.Go(func() error {
		return s.Gateway.SendText("@"+o.Username, renderUserPending(o), nil)
	})
	if err := g.Wait(); err != nil {
		s.Log.WithField("orderId", o.OrderID).WithError(err).Warn("new order notification failed")
	}
}

func (s *OrderService) notifyDecision(o *domain.Order, disb *fragment.Result, origin *CallbackOrigin) {
	g := new(errgroup.Group)
	g.Go(func() error {
		var text string
		if o.Status == domain.StatusConfirmed {
			text = renderOperatorConfirmed(o)
		} else {
			text = renderOperatorRejected(o)
		}
		if origin != nil {
			return s.Gateway.EditText(origin.ChatID, origin.MessageID, text, nil)
		}
		return s.Gateway.SendText(strconv.FormatInt(s.AdminChatID, 10), text, nil)
	})
	g.Go(func() error {
		if o.Status == domain.StatusConfirmed {
			return s.Gateway.SendText("@"+o.Username, renderUserConfirmed(o, disb), nil)
		}
		return s.Gateway.SendText("@"+o.Username, renderUserRejected(o), nil)
	})
	if o.Status == domain.StatusConfirmed && s.LogsChannel != "" {
		g.Go(func() error {
			return s.Gateway.SendText(s.LogsChannel, renderAuditEntry(o, disb), nil)
		})
	}
	if err := g.Wait(); err != nil {
		s.Log.WithField("orderId", o.OrderID).WithError(err).Warn("decision notification failed")
	}
}

// priceMismatch reports the catalog package whose stars amount matches
// the order but whose price disagrees with what the client sent.
func (s *OrderService) priceMismatch(o *domain.Order) *domain.Package {
	if s.Catalog == nil {
		return nil
	}
	pkg, ok := s.Catalog.FindByStars(o.Stars)
	if !ok || pkg.Price == o.Amount {
		return nil
	}
	return &pkg
}

const orderIDCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func newOrderID() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = orderIDCharset[int(b[i])%len(orderIDCharset)]
	}
	return "ORD-" + string(b)
}

type ErrNotFound string

func (e ErrNotFound) Error() string { return string(e) + " not found" }

type ErrConflict string

func (e ErrConflict) Error() string { return string(e) }

type ErrBadRequest string

func (e ErrBadRequest) Error() string { return string(e) }

type ErrUnauthorized string

func (e ErrUnauthorized) Error() string { return string(e) }
