package notify

import (
	"context"
	"fmt"
	"html"
	"log"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"jobharvest-engine/internal/harvest"
)

// Telegram sends end-of-workflow notices to one chat. Messages are queued
// and sent from a single goroutine so workflow steps never wait on the
// network.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	queue  chan string
	wg     sync.WaitGroup
	once   sync.Once
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	return NewTelegramWithEndpoint(token, chatID, tgbotapi.APIEndpoint)
}

// NewTelegramWithEndpoint targets a non-default bot API endpoint.
func NewTelegramWithEndpoint(token string, chatID int64, endpoint string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	t := &Telegram{bot: bot, chatID: chatID, queue: make(chan string, 32)}
	t.wg.Add(1)
	go t.run()
	return t, nil
}

func (t *Telegram) run() {
	defer t.wg.Done()
	for text := range t.queue {
		if err := t.SendMessage(text); err != nil {
			log.Printf("[notify] telegram send err=%v", err)
		}
	}
}

func (t *Telegram) SendMessage(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := t.bot.Send(msg)
	return err
}

// Notify queues completed, empty and error notices. Progress chatter is
// dropped.
func (t *Telegram) Notify(_ context.Context, n harvest.Notice) {
	var icon string
	switch n.Event {
	case harvest.EventCompleted:
		icon = "✅"
	case harvest.EventEmpty:
		icon = "📭"
	case harvest.EventError:
		icon = "⚠️"
	default:
		return
	}
	text := fmt.Sprintf("%s <b>%s</b>\n%s", icon, html.EscapeString(title(n)), html.EscapeString(n.Message))
	select {
	case t.queue <- text:
	default:
		log.Printf("[notify] telegram queue full, dropped session=%s event=%s", n.Session, n.Event)
	}
}

// Close sends what is queued and stops the sender.
func (t *Telegram) Close() {
	t.once.Do(func() { close(t.queue) })
	t.wg.Wait()
}

func title(n harvest.Notice) string {
	switch n.Kind {
	case harvest.KindAutoFetch:
		return "Description fetch"
	case harvest.KindCrawl:
		return "Crawl"
	case harvest.KindAvailability:
		return "Availability check"
	}
	return "Harvest"
}
