// Package telegram wraps the Bot API for the rest of the service:
// send text, send photo, edit a message, answer a callback. The
// gateway passes chat targets through without interpreting them.
package telegram

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Button is one inline keyboard button; Data is the callback payload.
type Button struct {
	Text string
	Data string
}

// Keyboard is rows of inline buttons.
type Keyboard [][]Button

func (k Keyboard) markup() tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(k))
	for _, r := range k {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

type api interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Gateway struct {
	bot api
	log *logrus.Entry
}

// NewGateway authorizes against the Bot API. A missing token is a
// configuration error surfaced here, at startup, not per call.
func NewGateway(token string, log *logrus.Entry) (*Gateway, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram: bot token not configured")
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: 8 * time.Second})
	if err != nil {
		return nil, err
	}
	return &Gateway{bot: bot, log: log}, nil
}

// baseChat accepts either a numeric chat id or an @handle.
func baseChat(target string) tgbotapi.BaseChat {
	if id, err := strconv.ParseInt(target, 10, 64); err == nil {
		return tgbotapi.BaseChat{ChatID: id}
	}
	return tgbotapi.BaseChat{ChannelUsername: "@" + strings.TrimPrefix(target, "@")}
}

func (g *Gateway) SendText(target, text string, kb Keyboard) error {
	msg := tgbotapi.MessageConfig{
		BaseChat:  baseChat(target),
		Text:      text,
		ParseMode: tgbotapi.ModeHTML,
	}
	if kb != nil {
		msg.ReplyMarkup = kb.markup()
	}
	_, err := g.bot.Send(msg)
	return err
}

func (g *Gateway) SendPhoto(target, photo, caption string, kb Keyboard) error {
	msg := tgbotapi.PhotoConfig{
		BaseFile: tgbotapi.BaseFile{
			BaseChat: baseChat(target),
			File:     tgbotapi.FileURL(photo),
		},
		Caption:   caption,
		ParseMode: tgbotapi.ModeHTML,
	}
	if kb != nil {
		msg.ReplyMarkup = kb.markup()
	}
	_, err := g.bot.Send(msg)
	return err
}

func (g *Gateway) EditText(chatID int64, messageID int, text string, kb Keyboard) error {
	msg := tgbotapi.EditMessageTextConfig{
		BaseEdit: tgbotapi.BaseEdit{
			ChatID:    chatID,
			MessageID: messageID,
		},
		Text:      text,
		ParseMode: tgbotapi.ModeHTML,
	}
	if kb != nil {
		m := kb.markup()
		msg.ReplyMarkup = &m
	}
	_, err := g.bot.Send(msg)
	return err
}

func (g *Gateway) AnswerCallback(callbackID, text string, alert bool) error {
	cb := tgbotapi.CallbackConfig{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	}
	_, err := g.bot.Request(cb)
	return err
}
