// Package telegram provides a client for sending notifications via Telegram Bot API.
// It formats eligibility reports into human-readable messages and handles
// delivery with retry logic.
package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rewired-gh/drawcast/internal/eligibility"
	"github.com/rewired-gh/drawcast/internal/models"
	"github.com/rewired-gh/drawcast/internal/tracker"
)

// Client handles Telegram notifications
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// Send sends a notification for the given category results of report
func (c *Client) Send(report tracker.Report, results []tracker.CategoryResult) error {
	return c.sendText(formatMessage(report, results))
}

// SendError reports a failed polling cycle
func (c *Client) SendError(err error) error {
	return c.sendText(fmt.Sprintf("⚠️ *Polling failed*\n\n%s", escapeMarkdownV2(err.Error())))
}

// SendRecovery reports that polling succeeded again after failures
func (c *Client) SendRecovery(failures int) error {
	return c.sendText(fmt.Sprintf("✅ *Polling recovered* after %d failed cycles", failures))
}

func (c *Client) sendText(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// formatMessage renders a report as a MarkdownV2 message
func formatMessage(report tracker.Report, results []tracker.CategoryResult) string {
	var b strings.Builder

	b.WriteString("🎯 *Eligibility Update*\n\n")
	b.WriteString(fmt.Sprintf("📅 As of: %s\n", escapeMarkdownV2(models.FormatDate(report.AsOf))))
	b.WriteString(fmt.Sprintf("🔢 Score: %d \\(%s\\)\n\n", report.Score, escapeMarkdownV2(string(report.Mode))))

	for i, res := range results {
		b.WriteString(fmt.Sprintf("%d\\. *%s*\n", i+1, escapeMarkdownV2(res.Category)))
		b.WriteString(fmt.Sprintf("   %s %s\n", verdictEmoji(res.Verdict), escapeMarkdownV2(res.Verdict.String())))
		b.WriteString(fmt.Sprintf("   Last round: %s at %d\n\n",
			escapeMarkdownV2(models.FormatDate(res.Latest.Date)), res.Latest.Score))
	}

	return b.String()
}

func verdictEmoji(v eligibility.Verdict) string {
	switch v.Kind {
	case eligibility.Eligible:
		return "✅"
	case eligibility.Projected:
		return "📈"
	case eligibility.LastEligible:
		return "🕰"
	default:
		return "❌"
	}
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
