// Package server exposes the HTTP surface: storefront order intake,
// operator decision and dashboard endpoints, and the Telegram webhook.
package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"stars-shop-backend/internal/bot"
	"stars-shop-backend/internal/catalog"
	"stars-shop-backend/internal/config"
	"stars-shop-backend/internal/usecase"
)

type Server struct {
	cfg     config.Config
	orders  *usecase.OrderService
	query   *usecase.QueryService
	auth    *usecase.AuthService
	notify  *usecase.NotifyService
	catalog *catalog.Catalog
	hook    *bot.Handler
	log     *logrus.Entry
	engine  *gin.Engine
}

func New(cfg config.Config, orders *usecase.OrderService, query *usecase.QueryService, auth *usecase.AuthService, notify *usecase.NotifyService, cat *catalog.Catalog, hook *bot.Handler, log *logrus.Entry) *Server {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{
		cfg:     cfg,
		orders:  orders,
		query:   query,
		auth:    auth,
		notify:  notify,
		catalog: cat,
		hook:    hook,
		log:     log,
		engine:  gin.New(),
	}
	s.engine.Use(gin.Recovery(), s.cors())
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	s.engine.POST("/orders", s.handleCreateOrder)
	s.engine.GET("/orders", s.handleListOrders)
	s.engine.POST("/orders/:orderId/decision", s.handleDecision)
	s.engine.POST("/notify", s.handleNotify)
	s.engine.POST("/auth/verify", s.handleAuthVerify)
	s.engine.POST("/telegram/webhook", s.handleWebhook)
	s.engine.GET("/packages", s.handlePackages)
}

func (s *Server) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

type createOrderReq struct {
	Username      string  `json:"recipientHandle"`
	Stars         int     `json:"starsAmount"`
	Amount        float64 `json:"priceAmount"`
	PaymentMethod string  `json:"paymentMethodLabel"`
	Screenshot    string  `json:"paymentProofRef"`
}

func (s *Server) handleCreateOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, usecase.ErrBadRequest("invalid json body"))
		return
	}
	o, err := s.orders.Create(c.Request.Context(), usecase.CreateOrderInput{
		Username:      req.Username,
		Stars:         req.Stars,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		Screenshot:    req.Screenshot,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"orderId":       o.OrderID,
		"estimatedTime": "5-15 minutes",
	})
}

type decisionReq struct {
	Decision      string `json:"decision"`
	Reason        string `json:"reason"`
	OperatorToken string `json:"operatorToken"`
}

func (s *Server) handleDecision(c *gin.Context) {
	var req decisionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, usecase.ErrBadRequest("invalid json body"))
		return
	}
	if err := s.auth.Verify(req.OperatorToken); err != nil {
		s.fail(c, err)
		return
	}
	res, err := s.orders.ApplyDecision(c.Request.Context(), c.Param("orderId"), usecase.Decision(req.Decision), req.Reason, nil)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := gin.H{
		"orderId": res.Order.OrderID,
		"status":  res.Order.Status,
	}
	if res.Disbursement != nil {
		out["disbursement"] = res.Disbursement
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleListOrders(c *gin.Context) {
	if err := s.auth.Verify(bearerToken(c)); err != nil {
		s.fail(c, err)
		return
	}
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	orders, pagination, stats := s.query.ListOrders(usecase.ListFilters{
		Status: c.Query("status"),
		Date:   c.Query("date"),
		Search: c.Query("search"),
		Sort:   c.Query("sort"),
		Page:   page,
		Limit:  limit,
	})
	c.JSON(http.StatusOK, gin.H{
		"orders":     orders,
		"pagination": pagination,
		"stats":      stats,
	})
}

type notifyReq struct {
	Username      string           `json:"recipientHandle"`
	TemplateID    string           `json:"templateId"`
	Data          usecase.NotifyData `json:"data"`
	OperatorToken string           `json:"operatorToken"`
}

func (s *Server) handleNotify(c *gin.Context) {
	var req notifyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, usecase.ErrBadRequest("invalid json body"))
		return
	}
	if err := s.auth.Verify(req.OperatorToken); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.notify.Send(req.Username, req.TemplateID, req.Data); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipient": req.Username})
}

type authReq struct {
	Password string `json:"password"`
}

func (s *Server) handleAuthVerify(c *gin.Context) {
	var req authReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, usecase.ErrBadRequest("invalid json body"))
		return
	}
	token, err := s.auth.Login(req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"expiresIn": 3600,
	})
}

func (s *Server) handleWebhook(c *gin.Context) {
	var upd tgbotapi.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		// Telegram retries on non-200; a malformed update is dropped.
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}
	s.hook.HandleUpdate(c.Request.Context(), upd)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handlePackages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"packages": s.catalog.List()})
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "InternalError"
	msg := "unexpected error"
	switch err.(type) {
	case usecase.ErrBadRequest:
		status, code, msg = http.StatusBadRequest, "ValidationError", err.Error()
	case usecase.ErrUnauthorized:
		status, code, msg = http.StatusUnauthorized, "Unauthorized", err.Error()
	case usecase.ErrNotFound:
		status, code, msg = http.StatusNotFound, "NotFound", err.Error()
	case usecase.ErrConflict:
		status, code, msg = http.StatusConflict, "Conflict", err.Error()
	default:
		s.log.WithError(err).Error("request failed")
	}
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": msg}})
}
