// Package bot turns Telegram messages into records and summaries.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pfm/internal/analytics"
	"pfm/internal/config"
	"pfm/internal/core"
	applog "pfm/internal/log"
	"pfm/internal/services"
)

// Sender is the part of *tgbotapi.BotAPI the handler uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type (
	// TextRecorder is satisfied by *services.TransactionService.
	TextRecorder interface {
		RecordFromText(ctx context.Context, viewer services.Viewer, scope core.Scope, payer, text string) (services.ChatResult, error)
	}

	// SnapshotSource is satisfied by *services.AnalyticsService.
	SnapshotSource interface {
		Snapshot(ctx context.Context, viewer services.Viewer, scope core.Scope, rangeDays int) (analytics.Snapshot, error)
	}
)

// Config binds the bot to one chat and one scope. Every message in the chat
// is recorded on behalf of UserID, in GroupID's scope when set.
type Config struct {
	ChatID       int64
	UserID       string
	GroupID      string
	DefaultRange int
}

type Handler struct {
	recorder TextRecorder
	snaps    SnapshotSource
	config   Config
	logger   *applog.Logger
}

func NewHandler(recorder TextRecorder, snaps SnapshotSource, config Config, logger *applog.Logger) *Handler {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	if config.DefaultRange <= 0 {
		config.DefaultRange = 30
	}
	return &Handler{
		recorder: recorder,
		snaps:    snaps,
		config:   config,
		logger:   logger.WithComponent(applog.ComponentBot),
	}
}

func (h *Handler) viewer() services.Viewer {
	return services.Viewer{UserID: h.config.UserID}
}

func (h *Handler) scope() core.Scope {
	return h.viewer().ScopeFor(h.config.GroupID)
}

// Run polls for updates until ctx is done.
func (h *Handler) Run(ctx context.Context, api *tgbotapi.BotAPI) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)
	defer api.StopReceivingUpdates()

	h.logger.InfoContext(ctx, "Bot started", "username", api.Self.UserName, applog.FieldScope, h.scope().Key())
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil {
				h.HandleMessage(ctx, api, update.Message)
			}
		}
	}
}

// HandleMessage answers one message. Messages from bots and from other chats
// are ignored.
func (h *Handler) HandleMessage(ctx context.Context, bot Sender, msg *tgbotapi.Message) {
	if msg == nil || msg.Chat == nil || (msg.From != nil && msg.From.IsBot) {
		return
	}
	if h.config.ChatID != 0 && msg.Chat.ID != h.config.ChatID {
		return
	}

	var reply string
	if msg.IsCommand() {
		reply = h.handleCommand(ctx, msg)
	} else {
		reply = h.handleText(ctx, msg)
	}
	if reply == "" {
		return
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, reply)
	out.ReplyToMessageID = msg.MessageID
	if _, err := bot.Send(out); err != nil {
		h.logger.ErrorContext(ctx, "Failed to send reply", applog.FieldError, err, "chat_id", msg.Chat.ID)
	}
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) string {
	switch msg.Command() {
	case "summary":
		days := h.config.DefaultRange
		if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
			n, err := strconv.Atoi(arg)
			if err != nil || !config.ValidRange(n) {
				return "Usage: /summary [7|30|90|365]"
			}
			days = n
		}
		return h.summary(ctx, days)
	case "help", "start":
		return helpText
	default:
		return "Unknown command. Send /help for the list."
	}
}

func (h *Handler) handleText(ctx context.Context, msg *tgbotapi.Message) string {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return ""
	}

	res, err := h.recorder.RecordFromText(ctx, h.viewer(), h.scope(), payerName(msg.From), text)
	if err != nil {
		h.logger.WarnContext(ctx, "Chat entry failed", applog.FieldError, err, applog.FieldScope, h.scope().Key())
		if errors.Is(err, services.ErrParserUnavailable) {
			return "I can't read expenses right now, try again in a moment."
		}
		return "Sorry, I couldn't save that."
	}
	h.logger.InfoContext(ctx, "Recorded from chat", applog.FieldRecords, len(res.Transactions), applog.FieldScope, h.scope().Key())

	if len(res.Transactions) == 0 {
		if res.Reply != "" {
			return res.Reply
		}
		return "I didn't find any expense in that message."
	}
	var b strings.Builder
	if res.Reply != "" {
		b.WriteString(res.Reply)
		b.WriteString("\n")
	}
	for _, t := range res.Transactions {
		fmt.Fprintf(&b, "\n%s  %s (%s), paid by %s", core.FormatAmount(t.Amount), t.Item, t.Category, t.Payer)
	}
	return b.String()
}

func (h *Handler) summary(ctx context.Context, days int) string {
	snap, err := h.snaps.Snapshot(ctx, h.viewer(), h.scope(), days)
	if err != nil {
		h.logger.WarnContext(ctx, "Summary failed", applog.FieldError, err, applog.FieldRangeDays, days)
		return "Sorry, I couldn't build the summary."
	}
	return FormatSummary(snap.Display())
}

func payerName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	if name := strings.TrimSpace(u.FirstName); name != "" {
		return name
	}
	return u.UserName
}

const helpText = `Send a message like "lunch 12.50" or "paid rent 800 yesterday" and I'll record it.

/summary [days]  totals for the last 7, 30, 90 or 365 days
/help            this message`

// FormatSummary renders the snapshot as a chat message.
func FormatSummary(d analytics.Display) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summary, last %d days\n\n", d.RangeDays)
	if d.UsesFallbackData {
		b.WriteString("(sample data: records could not be loaded)\n\n")
	} else if d.FetchFailed {
		b.WriteString("(records could not be loaded)\n\n")
	}
	fmt.Fprintf(&b, "Expenses: %d\n", d.TotalExpenses)
	fmt.Fprintf(&b, "Income: %d\n", d.TotalIncome)
	fmt.Fprintf(&b, "Balance: %d\n", d.NetBalance)
	if d.TotalIncome > 0 {
		fmt.Fprintf(&b, "Savings rate: %d%%\n", d.SavingsRate)
	}
	fmt.Fprintf(&b, "Daily average: %d\n", d.DailyAverage)
	if d.LoanCount > 0 {
		fmt.Fprintf(&b, "Loans: lent %d, received %d\n", d.LoanLent, d.LoanReceived)
	}

	if len(d.ExpenseCategories) > 0 {
		b.WriteString("\nTop categories:\n")
		for i, c := range d.ExpenseCategories {
			if i == 5 {
				break
			}
			fmt.Fprintf(&b, "  %s %d (%d%%)\n", c.Name, c.Amount, c.Share)
		}
	}
	if len(d.UserBreakdown) > 1 {
		b.WriteString("\nPaid by:\n")
		for _, p := range d.UserBreakdown {
			fmt.Fprintf(&b, "  %s %d\n", p.Label, p.Amount)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
