package telegram

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pantry-planner/internal/availability"
	"pantry-planner/internal/clipper"
	"pantry-planner/internal/config"
	"pantry-planner/internal/engine"
	"pantry-planner/internal/inventory"
	"pantry-planner/internal/metrics"
	"pantry-planner/internal/planner"
	"pantry-planner/internal/recipe"
	"pantry-planner/internal/shopping"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sessionTTLSeconds bounds how long an "add to list" confirmation stays valid.
const sessionTTLSeconds = 3600

// Bot wraps the Telegram API around the pantry engine. Each Telegram user is
// its own household.
type Bot struct {
	api          *tgbotapi.BotAPI
	cfg          *config.Config
	engine       *engine.Engine
	clipper      *clipper.Clipper
	sessions     *SessionRepository
	plans        *planner.PlanRepository
	recipes      *recipe.Repository
	pantry       *inventory.Repository
	entries      *shopping.Repository
	metricsStore *metrics.Store
	dataPath     string
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(
	cfg *config.Config,
	eng *engine.Engine,
	recipeClipper *clipper.Clipper,
	sessions *SessionRepository,
	plans *planner.PlanRepository,
	recipes *recipe.Repository,
	pantry *inventory.Repository,
	entries *shopping.Repository,
	metricsStore *metrics.Store,
) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	wh, _ := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	resp, err := bot.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Printf("Webhook set response: %s", resp.Description)

	return &Bot{
		api:          bot,
		cfg:          cfg,
		engine:       eng,
		clipper:      recipeClipper,
		sessions:     sessions,
		plans:        plans,
		recipes:      recipes,
		pantry:       pantry,
		entries:      entries,
		metricsStore: metricsStore,
		dataPath:     "data",
	}, nil
}

// RegisterHandlers registers the webhook handler with the default HTTP mux.
func (b *Bot) RegisterHandlers() {
	http.HandleFunc("/webhook", b.handleWebhook)
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		log.Printf("Error parsing update: %v", err)
		return
	}

	if update.CallbackQuery != nil {
		if b.isAllowed(update.CallbackQuery.From.ID) {
			go b.handleCallbackQuery(update.CallbackQuery)
		}
		return
	}

	if update.Message == nil {
		return
	}

	if !b.isAllowed(update.Message.From.ID) {
		log.Printf("⚠️ Unauthorized access attempt from UserID: %d (@%s)", update.Message.From.ID, update.Message.From.UserName)
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) isAllowed(userID int64) bool {
	for _, id := range b.cfg.TelegramAllowedUserIDs {
		if userID == id {
			return true
		}
	}
	return false
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	householdID := fmt.Sprintf("%d", msg.From.ID)

	switch {
	case strings.HasPrefix(msg.Text, "http://") || strings.HasPrefix(msg.Text, "https://"):
		b.handleClipRequest(msg)
	case strings.HasPrefix(msg.Text, "/plan "):
		b.handlePlanRequest(msg, householdID, strings.TrimSpace(strings.TrimPrefix(msg.Text, "/plan ")))
	case msg.Text == "/meals":
		b.handleMealsRequest(msg, householdID)
	case strings.HasPrefix(msg.Text, "/check "):
		b.handleCheckRequest(msg, householdID, strings.TrimSpace(strings.TrimPrefix(msg.Text, "/check ")))
	case msg.Text == "/list":
		b.handleListRequest(msg, householdID)
	case msg.Text == "/pantry":
		b.handlePantryRequest(msg, householdID)
	case msg.Text == "/metrics":
		b.handleMetricsRequest(msg)
	default:
		b.reply(msg.Chat.ID, helpText)
	}
}

const helpText = `🥫 *Pantry Planner*

• Send a recipe URL to import it
• /plan <recipe title> — schedule a meal
• /meals — planned meals
• /check <meal id> — what's missing for a meal
• /list — shopping list (tap ✓ when bought)
• /pantry — current inventory`

func (b *Bot) handleClipRequest(msg *tgbotapi.Message) {
	if b.clipper == nil {
		b.reply(msg.Chat.ID, "❌ Recipe import is not configured (no LLM key set).")
		return
	}

	statusText := "✂️ *Importing recipe...*"
	sentMsg, err := b.api.Send(markdownMessage(msg.Chat.ID, statusText))
	if err != nil {
		log.Printf("Failed to send initial reply: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()

	rec, err := b.clipper.ClipURL(ctx, msg.Text)
	var finalText string
	if err != nil {
		log.Printf("Error clipping recipe: %v", err)
		finalText = fmt.Sprintf("❌ *Error importing recipe:*\n```\n%v\n```", sanitizeForMarkdown(err.Error()))
	} else {
		finalText = fmt.Sprintf("✅ *Recipe saved!*\n\n*%s* — %d ingredients\nPlan it with `/plan %s`",
			rec.Title, len(rec.Ingredients), rec.Title)
	}
	b.edit(msg.Chat.ID, sentMsg.MessageID, finalText)
}

func (b *Bot) handlePlanRequest(msg *tgbotapi.Message, householdID, title string) {
	ctx := context.Background()

	rec, err := b.recipes.FindByTitle(ctx, title)
	if err != nil {
		b.reply(msg.Chat.ID, "❌ Error looking up recipe.")
		return
	}
	if rec == nil {
		b.reply(msg.Chat.ID, fmt.Sprintf("🤷 No recipe titled *%s*. Import it first by sending its URL.", title))
		return
	}

	mealID, err := b.plans.Save(ctx, householdID, rec.ID, "", 1)
	if err != nil {
		log.Printf("Error planning meal: %v", err)
		b.reply(msg.Chat.ID, "❌ Error planning meal.")
		return
	}

	b.reply(msg.Chat.ID, fmt.Sprintf("🗓️ Planned *%s*.\nCheck your pantry with `/check %s`", rec.Title, mealID))
}

func (b *Bot) handleMealsRequest(msg *tgbotapi.Message, householdID string) {
	ctx := context.Background()

	meals, err := b.plans.List(ctx, householdID)
	if err != nil {
		b.reply(msg.Chat.ID, "❌ Error listing meals.")
		return
	}
	if len(meals) == 0 {
		b.reply(msg.Chat.ID, "🗓️ No meals planned yet. Use /plan <recipe title>.")
		return
	}

	var sb strings.Builder
	sb.WriteString("🗓️ *Planned Meals*\n\n")
	for _, m := range meals {
		title := m.RecipeID
		if rec, err := b.recipes.Get(ctx, m.RecipeID); err == nil && rec != nil {
			title = rec.Title
		}
		sb.WriteString(fmt.Sprintf("• *%s*\n  `/check %s`\n", title, m.ID))
	}
	b.reply(msg.Chat.ID, sb.String())
}

func (b *Bot) handleCheckRequest(msg *tgbotapi.Message, householdID, mealID string) {
	ctx := context.Background()

	result, err := b.engine.CheckAvailability(ctx, householdID, mealID)
	if err != nil {
		log.Printf("Error checking availability: %v", err)
		b.reply(msg.Chat.ID, fmt.Sprintf("❌ *Error checking meal:*\n```\n%v\n```", sanitizeForMarkdown(err.Error())))
		return
	}

	text := formatAvailability(result)
	shortfalls := result.Shortfalls()
	if len(shortfalls) == 0 {
		b.reply(msg.Chat.ID, text)
		return
	}

	// Callback data tops out at 64 bytes, so the shortfall batch is stashed
	// in a session and the button carries only its id.
	sessionID, err := b.sessions.Create(ctx, householdID, "add_shortfalls", "pending",
		SessionContextData{MealID: mealID, Shortfalls: shortfalls}, sessionTTLSeconds)
	if err != nil {
		log.Printf("Error creating session: %v", err)
		b.reply(msg.Chat.ID, text)
		return
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("🛒 Add %d missing to list", len(shortfalls)),
				fmt.Sprintf("buy|%d", sessionID)),
		),
	)
	reply := markdownMessage(msg.Chat.ID, text)
	reply.ReplyMarkup = keyboard
	b.api.Send(reply)
}

func (b *Bot) handleListRequest(msg *tgbotapi.Message, householdID string) {
	ctx := context.Background()

	entries, err := b.entries.ListActive(ctx, householdID)
	if err != nil {
		b.reply(msg.Chat.ID, "❌ Error reading shopping list.")
		return
	}
	if len(entries) == 0 {
		b.reply(msg.Chat.ID, "🛒 Shopping list is empty.")
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, e := range entries {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("✓ %s (%g %s)", e.Name, e.ToBuyQuantity, e.Unit),
				"got|"+e.ID),
		))
	}

	reply := markdownMessage(msg.Chat.ID, formatShoppingList(entries))
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	b.api.Send(reply)
}

func (b *Bot) handlePantryRequest(msg *tgbotapi.Message, householdID string) {
	ctx := context.Background()

	items, err := b.pantry.Snapshot(ctx, householdID)
	if err != nil {
		b.reply(msg.Chat.ID, "❌ Error reading pantry.")
		return
	}
	b.reply(msg.Chat.ID, formatPantry(items))
}

func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	ctx := context.Background()
	householdID := fmt.Sprintf("%d", query.From.ID)

	parts := strings.SplitN(query.Data, "|", 2)
	if len(parts) < 2 {
		return
	}
	action, ref := parts[0], parts[1]

	// Answer callback to remove spinner
	b.api.Request(tgbotapi.NewCallback(query.ID, ""))

	switch action {
	case "buy":
		b.handleBuyCallback(ctx, query, householdID, ref)
	case "got":
		b.handleGotCallback(ctx, query, householdID, ref)
	}
}

func (b *Bot) handleBuyCallback(ctx context.Context, query *tgbotapi.CallbackQuery, householdID, ref string) {
	sessionID, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return
	}

	// The session is one-shot and claimed atomically: of two near-simultaneous
	// taps only one gets the shortfalls, so the same meal is never reconciled
	// twice.
	session, err := b.sessions.Claim(ctx, householdID, sessionID)
	if err != nil || session == nil {
		b.reply(query.Message.Chat.ID, "⏳ That check has expired. Run /check again.")
		return
	}

	data, err := session.GetContextData()
	if err != nil {
		log.Printf("Error decoding session %d: %v", sessionID, err)
		return
	}

	result, err := b.engine.AddShortfallToShoppingList(ctx, householdID, data.Shortfalls)
	if err != nil {
		log.Printf("Error reconciling shortfalls: %v", err)
		b.reply(query.Message.Chat.ID, "❌ Error updating shopping list. Run /check again to retry.")
		return
	}

	var sb strings.Builder
	sb.WriteString("🛒 *Added to shopping list:*\n")
	for _, e := range result.Entries {
		sb.WriteString(fmt.Sprintf("• %s — need %g %s\n", e.Name, e.ToBuyQuantity, e.Unit))
	}
	b.edit(query.Message.Chat.ID, query.Message.MessageID, sb.String())
}

func (b *Bot) handleGotCallback(ctx context.Context, query *tgbotapi.CallbackQuery, householdID, entryID string) {
	result, err := b.engine.SettlePurchases(ctx, householdID, []string{entryID})
	if err != nil {
		log.Printf("Error settling entry %s: %v", entryID, err)
		b.reply(query.Message.Chat.ID, "❌ Error recording purchase. It is safe to tap again.")
		return
	}

	// Telegram resends callbacks on flaky networks; settlement is a no-op
	// the second time, so just refresh the list either way.
	if result.MovedCount == 0 {
		log.Printf("Entry %s was already settled (household %s)", entryID, householdID)
	}

	entries, err := b.entries.ListActive(ctx, householdID)
	if err != nil {
		return
	}
	if len(entries) == 0 {
		b.edit(query.Message.Chat.ID, query.Message.MessageID, "🛒 Shopping list is empty. Everything is in the pantry! 🎉")
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, e := range entries {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("✓ %s (%g %s)", e.Name, e.ToBuyQuantity, e.Unit),
				"got|"+e.ID),
		))
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	edit := tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID, formatShoppingList(entries))
	edit.ParseMode = "Markdown"
	edit.ReplyMarkup = &keyboard
	b.api.Send(edit)
}

func (b *Bot) handleMetricsRequest(msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.AdminTelegramID {
		b.reply(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}

	usage, err := b.metricsStore.GetDailyUsage(7)
	if err != nil {
		b.reply(msg.Chat.ID, "❌ Error fetching metrics.")
		return
	}

	health := metrics.GetSysHealth(b.dataPath)

	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s* %s: %d items (%d runs, %d failed)\n",
			d.Date, d.Operation, d.TotalItems, d.TotalExecutions, d.TotalFailed))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))

	b.reply(msg.Chat.ID, sb.String())
}

func (b *Bot) reply(chatID int64, text string) {
	b.api.Send(markdownMessage(chatID, text))
}

func (b *Bot) edit(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = "Markdown"
	b.api.Send(edit)
}

func markdownMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	return msg
}

func sanitizeForMarkdown(s string) string {
	return strings.ReplaceAll(s, "`", "'")
}

func formatAvailability(result availability.Result) string {
	var sb strings.Builder
	sb.WriteString("🔎 *Pantry Check*\n\n")

	if len(result.Available) > 0 {
		sb.WriteString("✅ *In stock*\n")
		for _, r := range result.Available {
			sb.WriteString(fmt.Sprintf("• %s (%g %s)\n", r.Name, r.Quantity, r.Unit))
		}
		sb.WriteString("\n")
	}
	if len(result.LowStock) > 0 {
		sb.WriteString("⚠️ *Running low*\n")
		for _, r := range result.LowStock {
			sb.WriteString(fmt.Sprintf("• %s: have %g, need %g %s (short %g)\n",
				r.Name, r.AvailableQuantity, r.Quantity, r.Unit, r.Shortfall))
		}
		sb.WriteString("\n")
	}
	if len(result.OutOfStock) > 0 {
		sb.WriteString("❌ *Missing*\n")
		for _, r := range result.OutOfStock {
			sb.WriteString(fmt.Sprintf("• %s (%g %s)\n", r.Name, r.Quantity, r.Unit))
		}
		sb.WriteString("\n")
	}
	for _, w := range result.Warnings {
		sb.WriteString(fmt.Sprintf("_%s_\n", w))
	}
	if len(result.LowStock) == 0 && len(result.OutOfStock) == 0 {
		sb.WriteString("🎉 Everything you need is in the pantry!\n")
	}
	return sb.String()
}

func formatShoppingList(entries []shopping.Entry) string {
	var sb strings.Builder
	sb.WriteString("🛒 *Shopping List*\n\n")
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("• %s — %g %s", e.Name, e.ToBuyQuantity, e.Unit))
		if e.Category != "" {
			sb.WriteString(fmt.Sprintf(" _(%s)_", e.Category))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\nTap ✓ below when you've bought an item.")
	return sb.String()
}

func formatPantry(items []inventory.Item) string {
	if len(items) == 0 {
		return "🥫 Pantry is empty."
	}
	var sb strings.Builder
	sb.WriteString("🥫 *Pantry*\n\n")
	for _, it := range items {
		sb.WriteString(fmt.Sprintf("• %s — %g %s", it.Name, it.Quantity, it.Unit))
		if it.Category != "" {
			sb.WriteString(fmt.Sprintf(" _(%s)_", it.Category))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
