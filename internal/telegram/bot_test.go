package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"meal-scheduler/internal/app"
	"meal-scheduler/internal/catalog"
	"meal-scheduler/internal/config"
	"meal-scheduler/internal/metrics"
	"meal-scheduler/internal/planner"
	"meal-scheduler/internal/profile"
	"meal-scheduler/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ownerID = int64(42)
	adminID = int64(7)
)

var friday = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

type fakeAPI struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) HandleUpdate(r *http.Request) (*tgbotapi.Update, error) {
	var u tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (f *fakeAPI) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func testMeals() []catalog.Meal {
	mk := func(id, name string, price float64, vendor string, mt catalog.MealTime) catalog.Meal {
		return catalog.Meal{ID: id, Name: name, Price: price, MealTime: []catalog.MealTime{mt}, Vendor: catalog.Vendor{Name: vendor}}
	}
	return []catalog.Meal{
		mk("l1", "Deli Club", 10, "Deli", catalog.Lunch),
		mk("d1", "Bistro Chicken", 20, "Bistro", catalog.Dinner),
		mk("d2", "Bistro Steak", 22, "Bistro", catalog.Dinner),
	}
}

func newTestBot(t *testing.T) (*Bot, *fakeAPI) {
	t.Helper()
	cfg := &config.Config{
		BudgetSigningSecret:    "test-secret",
		ConfirmationTTL:        time.Minute,
		RandomSeed:             11,
		TelegramAllowedUserIDs: []int64{ownerID, adminID},
		AdminTelegramID:        adminID,
	}
	state := storage.NewStateRepository(storage.NewMemoryStore(), nil)
	a := app.NewApp(cfg, testMeals(), state,
		app.WithClock(func() time.Time { return friday }),
		app.WithCollector(metrics.NewCollector()),
	)
	t.Cleanup(a.Close)

	api := &fakeAPI{}
	return newBot(api, cfg, a, nil), api
}

func TestFormatPlanMarkdown(t *testing.T) {
	meals := testMeals()
	plan := planner.NewMealPlan("2026-10-16")
	plan.Items[catalog.Lunch] = []planner.ScheduleItem{{ID: planner.HostID(catalog.Lunch), Role: planner.RoleHost, Status: planner.StatusScheduled, Meal: meals[0]}}
	plan.Items[catalog.Dinner] = []planner.ScheduleItem{
		{ID: planner.HostID(catalog.Dinner), Role: planner.RoleHost, Status: planner.StatusSkipped, Meal: meals[1]},
		{ID: "dinner-guest-1", Role: planner.RoleGuest, Status: planner.StatusScheduled, Meal: meals[2]},
	}
	logistics := map[string]planner.LogisticsInfo{
		planner.HostID(catalog.Lunch): {Mode: planner.ModeGreen},
		"dinner-guest-1":              {Mode: planner.ModeRed},
	}
	sum := planner.Summarize(plan, profile.Default())

	out := formatPlanMarkdown(plan, sum, logistics)

	assert.Contains(t, out, "📅 *Plan for 2026-10-16*")
	assert.Contains(t, out, "*Lunch*\n• Deli Club (Deli) $10.00 🟢")
	assert.Contains(t, out, "_skipped:_ Bistro Chicken")
	assert.Contains(t, out, "Bistro Steak (Bistro) $22.00 🔴 👥 `dinner-guest-1`")
	assert.Contains(t, out, "💰 *Total:*")
	assert.NotContains(t, out, "Over budget")
	assert.Less(t, strings.Index(out, "*Lunch*"), strings.Index(out, "*Dinner*"))

	t.Run("Empty", func(t *testing.T) {
		out := formatPlanMarkdown(planner.NewMealPlan("2026-10-16"), planner.Summary{}, nil)
		assert.Contains(t, out, "No meals match")
	})
}

func TestBot_PlanCommand(t *testing.T) {
	b, _ := newTestBot(t)
	r := b.execute(context.Background(), ownerID, "plan", "")
	assert.Contains(t, r.text, "Plan for 2026-10-16")
	assert.Contains(t, r.text, "Deli Club")
	assert.Nil(t, r.keyboard)
}

func TestBot_PreferenceCommands(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBot(t)

	r := b.execute(ctx, ownerID, "meals", "dinner")
	assert.NotContains(t, r.text, "*Lunch*")
	assert.Contains(t, r.text, "*Dinner*")

	r = b.execute(ctx, ownerID, "meals", "brunch")
	assert.Contains(t, r.text, "Unknown meal time")

	r = b.execute(ctx, ownerID, "budget", "abc")
	assert.Contains(t, r.text, "Usage")

	b.execute(ctx, ownerID, "allergies", "peanuts, dairy")
	s, err := b.app.Session(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, []string{"peanuts", "dairy"}, s.Preferences().Profile.Allergies)

	b.execute(ctx, ownerID, "allergies", "none")
	assert.Empty(t, s.Preferences().Profile.Allergies)
}

func TestBot_GuestConfirmation(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBot(t)

	b.execute(ctx, ownerID, "meals", "dinner")
	b.execute(ctx, ownerID, "budget", "25")

	r := b.execute(ctx, ownerID, "guest", "dinner")
	require.NotNil(t, r.keyboard, r.text)
	assert.Contains(t, r.text, "Budget check")

	data := *r.keyboard.InlineKeyboard[0][0].CallbackData
	require.True(t, strings.HasPrefix(data, "confirm|"))

	t.Run("OtherUserCannotConfirm", func(t *testing.T) {
		got := b.confirm(ctx, adminID, data)
		assert.Contains(t, got.text, "no longer available")
	})

	got := b.confirm(ctx, ownerID, data)
	assert.Contains(t, got.text, "👥")

	again := b.confirm(ctx, ownerID, data)
	assert.Contains(t, again.text, "no longer available")
}

func TestBot_SwapShowsRotation(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBot(t)
	b.execute(ctx, ownerID, "meals", "dinner")

	r := b.execute(ctx, ownerID, "swap", "dinner")
	assert.Contains(t, r.text, "(2/2)")
	assert.Contains(t, r.text, "Plan for 2026-10-16")

	r = b.execute(ctx, ownerID, "swap", "dinner")
	assert.Contains(t, r.text, "(1/2)")
}

func TestBot_ErrorsAreFriendly(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBot(t)

	r := b.execute(ctx, ownerID, "swap", "breakfast")
	assert.Contains(t, r.text, "isn't in today's plan")

	r = b.execute(ctx, ownerID, "unguest", "dinner dinner-host")
	assert.Contains(t, r.text, "/skip")

	r = b.execute(ctx, ownerID, "swap", "")
	assert.Contains(t, r.text, "Usage")

	r = b.failure("confirm", fmt.Errorf("%w: day total too high", planner.ErrInvalidConfirmation))
	assert.Contains(t, r.text, "/guest again")
}

func TestBot_Notes(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBot(t)

	r := b.execute(ctx, ownerID, "notes", "")
	assert.Contains(t, r.text, "No notes yet")

	r = b.execute(ctx, ownerID, "note", "3 Bistro Steak for dinner on friday")
	assert.Contains(t, r.text, "Bistro Steak for dinner on friday")

	s, err := b.app.Session(ctx, "42")
	require.NoError(t, err)
	s.WaitForNotes()
	list := s.Notes()
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].DurationDays)

	r = b.execute(ctx, ownerID, "delnote", list[0].ID)
	assert.Contains(t, r.text, "deleted")
}

func TestBot_StatsIsAdminOnly(t *testing.T) {
	b, _ := newTestBot(t)
	r := b.execute(context.Background(), ownerID, "stats", "")
	assert.Contains(t, r.text, "Admin only")

	r = b.execute(context.Background(), adminID, "stats", "")
	assert.Contains(t, r.text, "not enabled")
}

func TestBot_Handlers(t *testing.T) {
	b, api := newTestBot(t)
	mux := http.NewServeMux()
	b.RegisterHandlers(mux)

	t.Run("Health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())
	})

	t.Run("Metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "go_goroutines")
	})

	update := func(from int64) string {
		return `{"update_id":1,"message":{"message_id":1,"from":{"id":` + jsonInt(from) +
			`},"chat":{"id":` + jsonInt(from) + `},"text":"/help","entities":[{"type":"bot_command","offset":0,"length":5}]}}`
	}

	t.Run("WebhookIgnoresStrangers", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(update(999))))
		b.Wait()
		assert.Zero(t, api.count())
	})

	t.Run("WebhookReplies", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(update(ownerID))))
		b.Wait()
		require.Equal(t, 1, api.count())
		msg, ok := api.sent[0].(tgbotapi.MessageConfig)
		require.True(t, ok)
		assert.Equal(t, ownerID, msg.ChatID)
		assert.Contains(t, msg.Text, "/plan")
	})
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
