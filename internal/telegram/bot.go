package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"meal-scheduler/internal/app"
	"meal-scheduler/internal/catalog"
	"meal-scheduler/internal/config"
	"meal-scheduler/internal/metrics"
	"meal-scheduler/internal/planner"
	"meal-scheduler/internal/profile"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const commandTimeout = 30 * time.Second

const helpText = `🍽 *Meal Scheduler*

/plan - today's plan
/swap <slot> [item] - next alternative
/guest <slot> [any] - add a guest meal
/unguest <slot> <item> - remove a guest meal
/skip <slot>, /restore <slot>
/budget [amount] - show or set the daily allowance
/meals <breakfast,lunch,dinner>
/allergies <list|none>
/diet <list|none>
/note [days] <text> - e.g. "sushi for dinner on friday"
/notes, /delnote <id>`

// botAPI is the part of tgbotapi.BotAPI the bot uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
}

// Bot is the chat surface of the scheduler.
type Bot struct {
	api    botAPI
	app    *app.App
	cfg    *config.Config
	logger *zap.Logger
	wg     sync.WaitGroup

	mu      sync.Mutex
	pending map[string]pendingConfirmation
}

// pendingConfirmation holds a budget token behind a short callback key,
// since callback data is limited to 64 bytes.
type pendingConfirmation struct {
	userID string
	token  string
}

// reply is a message to send back to the chat.
type reply struct {
	text     string
	keyboard *tgbotapi.InlineKeyboardMarkup
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, application *app.App, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	logger.Info("authorized on telegram", zap.String("account", api.Self.UserName))

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook: %w", err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	logger.Info("webhook set", zap.String("description", resp.Description))

	return newBot(api, cfg, application, logger), nil
}

func newBot(api botAPI, cfg *config.Config, application *app.App, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		api:     api,
		app:     application,
		cfg:     cfg,
		logger:  logger,
		pending: make(map[string]pendingConfirmation),
	}
}

// RegisterHandlers mounts the webhook, health and metrics endpoints.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	if c := b.app.Collector(); c != nil {
		mux.Handle("/metrics", c.Handler())
	}
}

// Wait blocks until in-flight messages are handled.
func (b *Bot) Wait() {
	b.wg.Wait()
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		b.logger.Warn("error parsing update", zap.Error(err))
		return
	}

	if update.CallbackQuery != nil {
		if !b.isAllowed(update.CallbackQuery.From) {
			return
		}
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.handleCallbackQuery(update.CallbackQuery)
		}()
		return
	}

	if update.Message == nil || !b.isAllowed(update.Message.From) {
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.processMessage(update.Message)
	}()
}

func (b *Bot) isAllowed(from *tgbotapi.User) bool {
	if from == nil {
		return false
	}
	for _, id := range b.cfg.TelegramAllowedUserIDs {
		if from.ID == id {
			return true
		}
	}
	b.logger.Warn("unauthorized access attempt", zap.Int64("user_id", from.ID), zap.String("username", from.UserName))
	return false
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	command, args := msg.Command(), strings.TrimSpace(msg.CommandArguments())
	if command == "" {
		command, args = "note", strings.TrimSpace(msg.Text)
	}

	r := b.execute(ctx, msg.From.ID, command, args)
	out := tgbotapi.NewMessage(msg.Chat.ID, r.text)
	out.ParseMode = tgbotapi.ModeMarkdown
	if r.keyboard != nil {
		out.ReplyMarkup = r.keyboard
	}
	if _, err := b.api.Send(out); err != nil {
		b.logger.Error("failed to send reply", zap.String("command", command), zap.Error(err))
	}
}

// execute runs one chat command for a Telegram user and returns the reply.
func (b *Bot) execute(ctx context.Context, from int64, command, args string) reply {
	if command == "stats" {
		if from != b.cfg.AdminTelegramID {
			return reply{text: "⛔ *Access Denied*: Admin only."}
		}
		return b.stats(ctx)
	}

	userID := strconv.FormatInt(from, 10)
	s, err := b.app.Session(ctx, userID)
	if err != nil {
		return b.failure(command, err)
	}
	fields := strings.Fields(args)

	switch command {
	case "start", "help":
		return reply{text: helpText}

	case "plan":
		if _, err := s.Sync(ctx); err != nil {
			return b.failure(command, err)
		}

	case "swap":
		slot, ok := slotArg(fields)
		if !ok {
			return reply{text: "Usage: `/swap <breakfast|lunch|dinner> [item]`"}
		}
		itemID := ""
		if len(fields) > 1 {
			itemID = fields[1]
		}
		res, err := s.Swap(ctx, slot, itemID)
		if err != nil {
			return b.failure(command, err)
		}
		if !res.Swapped {
			return reply{text: fmt.Sprintf("No other option for %s.", slot)}
		}
		r := b.planReply(ctx, s)
		r.text = fmt.Sprintf("🔄 %s (%d/%d)\n\n%s", esc(res.Meal.Name), res.Position, res.Total, r.text)
		return r

	case "guest":
		slot, ok := slotArg(fields)
		if !ok {
			return reply{text: "Usage: `/guest <breakfast|lunch|dinner> [any]`"}
		}
		anyRestaurant := len(fields) > 1 && strings.EqualFold(fields[1], "any")
		req, err := s.AddGuest(ctx, slot, anyRestaurant)
		if err != nil {
			return b.failure(command, err)
		}
		if req != nil {
			return b.askConfirmation(userID, req)
		}

	case "unguest":
		slot, ok := slotArg(fields)
		if !ok || len(fields) < 2 {
			return reply{text: "Usage: `/unguest <slot> <item>`"}
		}
		if err := s.RemoveGuest(ctx, slot, fields[1]); err != nil {
			return b.failure(command, err)
		}

	case "skip", "restore":
		slot, ok := slotArg(fields)
		if !ok {
			return reply{text: fmt.Sprintf("Usage: `/%s <breakfast|lunch|dinner>`", command)}
		}
		op := s.Skip
		if command == "restore" {
			op = s.Restore
		}
		if err := op(ctx, slot); err != nil {
			return b.failure(command, err)
		}

	case "budget":
		if args == "" {
			break
		}
		amount, err := strconv.ParseFloat(strings.TrimPrefix(args, "$"), 64)
		if err != nil || amount < 0 {
			return reply{text: "Usage: `/budget 45.50`"}
		}
		if _, err := s.UpdatePreferences(ctx, func(p *profile.Preferences) { p.Profile.DailyAllowance = amount }); err != nil {
			return b.failure(command, err)
		}

	case "meals":
		var slots []catalog.MealTime
		for _, v := range profile.ParseList(args) {
			mt, ok := catalog.ParseMealTime(v)
			if !ok {
				return reply{text: fmt.Sprintf("Unknown meal time %q.", v)}
			}
			slots = append(slots, mt)
		}
		if _, err := s.UpdatePreferences(ctx, func(p *profile.Preferences) { p.MealPrefs = slots }); err != nil {
			return b.failure(command, err)
		}

	case "allergies", "diet":
		list := profile.ParseList(args)
		if len(list) == 1 && strings.EqualFold(list[0], "none") {
			list = []string{}
		}
		update := func(p *profile.Preferences) { p.Profile.Allergies = list }
		if command == "diet" {
			update = func(p *profile.Preferences) { p.Profile.Diet = list }
		}
		if _, err := s.UpdatePreferences(ctx, update); err != nil {
			return b.failure(command, err)
		}

	case "note":
		if args == "" {
			return reply{text: formatNotes(s.Notes())}
		}
		days := 1
		if len(fields) > 1 {
			if n, err := strconv.Atoi(fields[0]); err == nil && n > 0 {
				days = n
				args = strings.TrimSpace(strings.TrimPrefix(args, fields[0]))
			}
		}
		n, err := s.AddNote(ctx, args, days)
		if err != nil {
			return b.failure(command, err)
		}
		return reply{text: fmt.Sprintf("📝 Got it. I'll check %q shortly.\nId: `%s`", n.Text, n.ID)}

	case "notes":
		return reply{text: formatNotes(s.Notes())}

	case "delnote":
		if args == "" {
			return reply{text: "Usage: `/delnote <id>`"}
		}
		if err := s.DeleteNote(ctx, args); err != nil {
			return b.failure(command, err)
		}
		return reply{text: "🗑 Note deleted."}

	default:
		return reply{text: helpText}
	}

	return b.planReply(ctx, s)
}

func (b *Bot) planReply(ctx context.Context, s *app.Session) reply {
	plan, logistics, err := s.Logistics(ctx)
	if err != nil {
		return b.failure("plan", err)
	}
	sum, err := s.Summary(ctx)
	if err != nil {
		return b.failure("plan", err)
	}
	return reply{text: formatPlanMarkdown(plan, sum, logistics)}
}

func (b *Bot) askConfirmation(userID string, req *planner.BudgetConfirmationRequest) reply {
	key := uuid.NewString()[:8]
	b.mu.Lock()
	b.pending[key] = pendingConfirmation{userID: userID, token: req.Token}
	b.mu.Unlock()

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ Confirm $%.2f", req.ProposedTotal), "confirm|"+key),
			tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", "cancel|"+key),
		),
	)
	return reply{text: formatConfirmation(req), keyboard: &keyboard}
}

func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	// Answer callback to remove spinner
	b.api.Request(tgbotapi.NewCallback(query.ID, ""))

	r := b.confirm(ctx, query.From.ID, query.Data)
	if query.Message == nil {
		return
	}
	edit := tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID, r.text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Error("failed to edit message", zap.Error(err))
	}
}

// confirm handles "confirm|key" and "cancel|key" callback data.
func (b *Bot) confirm(ctx context.Context, from int64, data string) reply {
	action, key, ok := strings.Cut(data, "|")
	if !ok {
		return reply{text: "Unknown action."}
	}

	userID := strconv.FormatInt(from, 10)
	b.mu.Lock()
	p, found := b.pending[key]
	if found && p.userID == userID {
		delete(b.pending, key)
	}
	b.mu.Unlock()
	if !found || p.userID != userID {
		return reply{text: "⌛ This request is no longer available."}
	}

	if action != "confirm" {
		return reply{text: "Guest meal cancelled."}
	}

	s, err := b.app.Session(ctx, userID)
	if err != nil {
		return b.failure("confirm", err)
	}
	if err := s.ConfirmBudget(ctx, p.token); err != nil {
		return b.failure("confirm", err)
	}
	return b.planReply(ctx, s)
}

func (b *Bot) stats(ctx context.Context) reply {
	store := b.app.MetricsStore()
	if store == nil {
		return reply{text: "Metrics are not enabled."}
	}
	usage, err := store.GetDailyUsage(ctx, 7)
	if err != nil {
		return b.failure("stats", err)
	}
	health := metrics.GetSysHealth(filepath.Dir(b.cfg.DatabasePath))
	return reply{text: formatStats(usage, health)}
}

func (b *Bot) failure(command string, err error) reply {
	switch {
	case errors.Is(err, planner.ErrSlotNotFound), errors.Is(err, planner.ErrNoHost):
		return reply{text: "That meal time isn't in today's plan. Use /meals to change it."}
	case errors.Is(err, planner.ErrItemNotFound):
		return reply{text: "I couldn't find that item. Check /plan for the ids."}
	case errors.Is(err, planner.ErrHostRemoval):
		return reply{text: "The main meal can't be removed. Use /skip instead."}
	case errors.Is(err, planner.ErrInvalidConfirmation):
		return reply{text: "⌛ The plan changed since this was requested. Send /guest again."}
	}
	b.logger.Error("command failed", zap.String("command", command), zap.Error(err))
	safeErr := strings.ReplaceAll(err.Error(), "`", "'")
	return reply{text: fmt.Sprintf("❌ *Error:*\n```\n%v\n```", safeErr)}
}

func slotArg(fields []string) (catalog.MealTime, bool) {
	if len(fields) == 0 {
		return "", false
	}
	return catalog.ParseMealTime(fields[0])
}
