package telegram

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/advertile/campwatch/internal/utils"
	"github.com/advertile/campwatch/pkg/history"
)

// Bot long-polls getUpdates and turns chat commands into check runs. Only
// messages from the configured chat are honored.
type Bot struct {
	Client *Client
	Latch  *utils.RunLatch

	// RunCheck executes one full check pass and records it. The bot holds the
	// latch around the call so a second /check while one is in flight is
	// answered with "already running" instead of queued.
	RunCheck func() (history.Record, error)

	// StatusText renders the /status reply.
	StatusText func() string

	offset int64
	stop   chan struct{}
	done   chan struct{}

	http *http.Client
}

// Start begins polling in a background goroutine. It is a no-op when the
// channel is not configured.
func (b *Bot) Start() {
	if !b.Client.Configured() {
		utils.Log.Info("telegram bot not configured, command handling disabled")
		return
	}
	b.http = &http.Client{Timeout: 15 * time.Second}
	b.stop = make(chan struct{})
	b.done = make(chan struct{})

	// Polling and webhooks are mutually exclusive on Telegram's side.
	b.deleteWebhook()

	go b.pollLoop()
	utils.Log.Info("telegram bot polling started")
}

// Stop halts the polling loop and waits for it to finish.
func (b *Bot) Stop() {
	if b.stop == nil {
		return
	}
	close(b.stop)
	<-b.done
}

func (b *Bot) pollLoop() {
	defer close(b.done)
	for {
		select {
		case <-b.stop:
			return
		default:
		}

		for _, update := range b.getUpdates() {
			b.handleUpdate(update)
		}

		select {
		case <-b.stop:
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (b *Bot) deleteWebhook() {
	res, err := b.http.PostForm(apiBase+b.Client.Token+"/deleteWebhook", url.Values{"drop_pending_updates": {"true"}})
	if err != nil {
		utils.Log.WithField("error", err).Warn("telegram webhook cleanup failed")
		return
	}
	res.Body.Close()
}

func (b *Bot) getUpdates() []gjson.Result {
	params := url.Values{
		"offset":  {strconv.FormatInt(b.offset, 10)},
		"timeout": {"10"},
	}
	res, err := b.http.Get(apiBase + b.Client.Token + "/getUpdates?" + params.Encode())
	if err != nil {
		utils.Log.WithField("error", err).Warn("telegram getUpdates failed")
		return nil
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusConflict {
		// Another consumer (stale webhook) holds the updates stream.
		utils.Log.Warn("telegram getUpdates conflict, clearing webhook")
		b.deleteWebhook()
		return nil
	}
	if res.StatusCode != http.StatusOK {
		utils.Log.WithField("status", res.StatusCode).Warn("telegram getUpdates unexpected status")
		return nil
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil
	}
	doc := gjson.ParseBytes(body)
	if !doc.Get("ok").Bool() {
		return nil
	}

	updates := doc.Get("result").Array()
	if len(updates) > 0 {
		b.offset = updates[len(updates)-1].Get("update_id").Int() + 1
	}
	return updates
}

func (b *Bot) handleUpdate(update gjson.Result) {
	msg := update.Get("message")
	if !msg.Exists() {
		return
	}
	text := msg.Get("text").String()
	chatID := msg.Get("chat.id").String()
	username := msg.Get("from.username").String()

	if chatID != b.Client.ChatID {
		utils.Log.WithField("chat_id", chatID).Debug("ignoring message from unknown chat")
		return
	}

	switch {
	case hasCommand(text, "/check"), hasCommand(text, "/run"):
		utils.Log.WithField("user", username).Info("check requested via telegram")
		b.handleCheck()
	case hasCommand(text, "/status"):
		b.reply(b.StatusText())
	case hasCommand(text, "/help"):
		b.reply(helpText)
	}
}

func (b *Bot) handleCheck() {
	if !b.Latch.TryAcquire() {
		b.reply("⏳ A check is already running. Please wait...")
		return
	}

	go func() {
		defer b.Latch.Release()
		b.reply("🔍 Starting campaign check...")

		rec, err := b.RunCheck()
		if err != nil {
			b.reply(fmt.Sprintf("❌ Campaign check failed: %v", err))
			return
		}

		b.reply(fmt.Sprintf("✅ Check complete! Checked %d campaigns. Failing: %d.", rec.TotalChecked, rec.Failing))
		if rec.Failing > 0 {
			if err := b.Client.SendMany(AlertLines(rec.Results), DefaultMaxMessages); err != nil {
				utils.Log.WithField("error", err).Warn("sending failure details failed")
			}
		}
	}()
}

func (b *Bot) reply(text string) {
	if text == "" {
		return
	}
	if err := b.Client.SendMessage(text); err != nil {
		utils.Log.WithField("error", err).Warn("telegram reply failed")
	}
}

func hasCommand(text, cmd string) bool {
	return text == cmd || len(text) > len(cmd) && text[:len(cmd)+1] == cmd+" " ||
		len(text) > len(cmd) && text[:len(cmd)+1] == cmd+"@"
}

const helpText = `🤖 Available commands

/check or /run - Trigger a campaign check immediately
/status - Show current schedule and window
/help - Show this help message

Scheduled checks also run automatically based on the configured schedule.`
