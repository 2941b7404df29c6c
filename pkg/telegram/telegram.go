// Package telegram is the outbound alert channel and the inbound command bot.
package telegram

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/advertile/campwatch/pkg/campaign"
)

const (
	apiBase = "https://api.telegram.org/bot"

	// MaxMessageChars stays under Telegram's 4096-char hard limit.
	MaxMessageChars    = 3500
	DefaultMaxMessages = 25

	// At most this many failed checks are listed per campaign in an alert.
	maxFailedChecksPerCampaign = 8
)

// ErrNotConfigured is returned when the bot token or chat id is absent.
// Callers treat a send failure as non-fatal to the run itself.
var ErrNotConfigured = errors.New("telegram bot token or chat id not set")

// Client sends messages to a single configured chat.
type Client struct {
	Token  string
	ChatID string

	http *retryablehttp.Client
}

func NewClient(token, chatID string) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = stdlog.New(io.Discard, "", 0)
	retryClient.RetryMax = 2
	retryClient.HTTPClient.Timeout = 20 * time.Second

	return &Client{
		Token:  token,
		ChatID: chatID,
		http:   retryClient,
	}
}

// Configured reports whether the channel can send at all.
func (c *Client) Configured() bool {
	return c.Token != "" && c.ChatID != ""
}

// SendMessage posts one message to the configured chat.
func (c *Client) SendMessage(text string) error {
	return c.send(text, "")
}

// SendMarkdown posts one Markdown-formatted message.
func (c *Client) SendMarkdown(text string) error {
	return c.send(text, "Markdown")
}

func (c *Client) send(text, parseMode string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	payload := map[string]interface{}{
		"chat_id":                  c.ChatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	if parseMode != "" {
		payload["parse_mode"] = parseMode
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := retryablehttp.NewRequest("POST", apiBase+c.Token+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		body, _ := io.ReadAll(res.Body)
		snippet := string(body)
		if len(snippet) > 400 {
			snippet = snippet[:400]
		}
		return fmt.Errorf("telegram send failed: %d %s", res.StatusCode, snippet)
	}
	return nil
}

// SendMany batches lines into at most maxMessages messages and sends them in
// order. Lines that don't fit the cap are dropped by the batcher.
func (c *Client) SendMany(lines []string, maxMessages int) error {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	for _, msg := range BatchLines(lines, maxMessages, MaxMessageChars) {
		if err := c.SendMessage(msg); err != nil {
			return err
		}
	}
	return nil
}

// BatchLines greedily packs lines into messages of at most maxChars
// characters. Once maxMessages messages exist, remaining lines are dropped:
// the cap is a contract with the channel's rate and size limits, not an
// error. A non-empty trailing buffer is flushed as the final message.
func BatchLines(lines []string, maxMessages, maxChars int) []string {
	var out []string
	var buf []string
	bufLen := 0

	flush := func() {
		if len(buf) == 0 || len(out) >= maxMessages {
			return
		}
		out = append(out, strings.Join(buf, "\n"))
		buf = nil
		bufLen = 0
	}

	for _, line := range lines {
		if len(out) >= maxMessages {
			break
		}
		add := len(line)
		if len(buf) > 0 {
			add++ // joining newline
		}
		if len(buf) > 0 && bufLen+add > maxChars {
			flush()
			if len(out) >= maxMessages {
				return out
			}
			buf = []string{line}
			bufLen = len(line)
			continue
		}
		buf = append(buf, line)
		bufLen += add
	}
	flush()
	return out
}

// AlertLines renders the failing campaigns of a run into alert lines. Returns
// nil when nothing is failing: no news is good news.
func AlertLines(results []campaign.Result) []string {
	failing := 0
	for _, r := range results {
		if !r.OK() {
			failing++
		}
	}
	if failing == 0 {
		return nil
	}

	lines := []string{fmt.Sprintf("🚨 %d failing campaign(s) (checked %d campaigns with activity)", failing, len(results))}
	for _, r := range results {
		failed := r.FailedChecks()
		if r.OK() {
			continue
		}
		title := r.Campaign.Title
		if title == "" {
			title = "Campaign"
		}
		lines = append(lines, fmt.Sprintf("FAIL | %s | %s | %s", title, r.Campaign.ID, r.Campaign.DomainName))
		if r.Campaign.TrackingURL != "" {
			lines = append(lines, "  url: "+r.Campaign.TrackingURL)
		}
		if len(r.Checks) == 0 {
			lines = append(lines, "  - no URLs to check; nothing proven healthy")
		}
		for i, ch := range failed {
			if i >= maxFailedChecksPerCampaign {
				break
			}
			lines = append(lines, fmt.Sprintf("  - %s: %s %s %s", ch.Kind, ch.FailureType, ch.Message, ch.TestedURL))
		}
		lines = append(lines, "")
	}
	return lines
}
