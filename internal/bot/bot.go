package bot

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"replaces-backend/internal/components/assert"
	"replaces-backend/internal/components/telemetry"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	report_send         = "bot.send"
	report_replacements = "bot.replacements"
)

const (
	ReplacesButton = "замены"

	textStart          = "Я на связи👋. Пиши"
	textHelp           = `У меня пока есть только одна команда "замены"`
	textAskGroup       = "укажи номер группы"
	textBadGroup       = "номер группы должен быть числом, например 304"
	textNoReplacements = "замен пока нет"
	textFailed         = "не удалось получить замены, попробуй позже"
	textUnknown        = "я тебя не понимаю"
	textSticker        = "классный стикер"
)

// Sender is the part of *tgbotapi.BotAPI the bot uses to reply.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Replacements produces the replacement texts the bot answers with.
type Replacements interface {
	// GetReplacementsText refreshes the replacements, ok = false means there is no update for the group.
	GetReplacementsText(ctx context.Context, group int) (string, bool, error)
	// CurrentText renders the group from the latest known replacements.
	CurrentText(ctx context.Context, group int) (string, bool, error)
}

type Bot struct {
	sender  Sender
	source  Replacements
	tel     telemetry.API
	mutex   sync.Mutex
	waiting map[int64]bool
}

func NewBot(sender Sender, source Replacements, tel telemetry.API) *Bot {
	assert.NotNil(sender)
	assert.NotNil(source)
	assert.NotNil(tel)
	return &Bot{
		sender:  sender,
		source:  source,
		tel:     telemetry.NewScopedAPI("bot", tel),
		waiting: map[int64]bool{},
	}
}

func keyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(ReplacesButton)),
	)
	kb.ResizeKeyboard = true
	return kb
}

// Listen handles updates until ctx is done or the channel is closed.
func (b *Bot) Listen(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			b.HandleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		b.setWaiting(chatID, false)
		switch msg.Command() {
		case "start":
			b.reply(chatID, textStart, true)
		case "help":
			b.reply(chatID, textHelp, true)
		default:
			b.reply(chatID, textUnknown, false)
		}
		return
	}

	if msg.Sticker != nil {
		b.reply(chatID, textSticker, false)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if b.takeWaiting(chatID) {
		group, err := strconv.Atoi(text)
		if err != nil || group <= 0 {
			b.reply(chatID, textBadGroup, false)
			return
		}
		b.reply(chatID, b.replacements(ctx, group), false)
		return
	}

	if strings.EqualFold(text, ReplacesButton) {
		b.setWaiting(chatID, true)
		b.reply(chatID, textAskGroup, false)
		return
	}
	b.reply(chatID, textUnknown, false)
}

func (b *Bot) replacements(ctx context.Context, group int) string {
	text, ok, err := b.source.GetReplacementsText(ctx, group)
	if err != nil {
		b.tel.ReportWarning(report_replacements, err, telemetry.KV{Key: "group", Value: group})
	}
	if err == nil && ok {
		return text
	}

	text, ok, err = b.source.CurrentText(ctx, group)
	if err != nil {
		b.tel.ReportBroken(report_replacements, err, telemetry.KV{Key: "group", Value: group})
		return textFailed
	}
	if !ok {
		return textNoReplacements
	}
	return text
}

// Notify sends `text` to every chat in `chats`.
func (b *Bot) Notify(chats []int64, text string) {
	for _, chatID := range chats {
		b.reply(chatID, text, false)
	}
}

func (b *Bot) reply(chatID int64, text string, withKeyboard bool) {
	msg := tgbotapi.NewMessage(chatID, text)
	if withKeyboard {
		msg.ReplyMarkup = keyboard()
	}
	_, err := b.sender.Send(msg)
	if err != nil {
		b.tel.ReportBroken(report_send, err, telemetry.KV{Key: "chat", Value: chatID})
	}
}

func (b *Bot) setWaiting(chatID int64, waiting bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if waiting {
		b.waiting[chatID] = true
		return
	}
	delete(b.waiting, chatID)
}

func (b *Bot) takeWaiting(chatID int64) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	waiting := b.waiting[chatID]
	delete(b.waiting, chatID)
	return waiting
}
