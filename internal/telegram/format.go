package telegram

import (
	"fmt"
	"strings"

	"meal-scheduler/internal/metrics"
	"meal-scheduler/internal/notes"
	"meal-scheduler/internal/planner"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var modeIcons = map[planner.Mode]string{
	planner.ModeGreen:  "🟢",
	planner.ModeYellow: "🟡",
	planner.ModeRed:    "🔴",
}

func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

// formatPlanMarkdown renders the day's plan with delivery bands and the
// budget summary.
func formatPlanMarkdown(plan *planner.MealPlan, sum planner.Summary, logistics map[string]planner.LogisticsInfo) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📅 *Plan for %s*\n\n", plan.Date))

	if plan.IsEmpty() {
		sb.WriteString("_No meals match your preferences. Try /allergies, /diet or /budget._\n")
		return sb.String()
	}

	for _, slot := range plan.Slots() {
		sb.WriteString(fmt.Sprintf("*%s*\n", titleCase(string(slot))))
		for _, item := range plan.Items[slot] {
			line := fmt.Sprintf("%s (%s) $%.2f", esc(item.Meal.Name), esc(item.Meal.Vendor.Name), item.Meal.Price)
			if info, ok := logistics[item.ID]; ok {
				line += " " + modeIcons[info.Mode]
			}
			if item.Role == planner.RoleGuest {
				line += " 👥 `" + item.ID + "`"
			}
			if item.OverrideNoteID != "" {
				line += " 📌"
			}
			if !item.Scheduled() {
				line = "_skipped:_ " + line
			}
			sb.WriteString("• " + line + "\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("💰 *Total:* $%.2f (tax $%.2f) of $%.2f\n", sum.Total, sum.Tax, sum.AuthorizedBudget))
	if sum.OverBudget {
		sb.WriteString("⚠️ _Over budget_\n")
	}
	return sb.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatConfirmation(req *planner.BudgetConfirmationRequest) string {
	return fmt.Sprintf(
		"💸 *Budget check*\nAdding %s for %s brings today to $%.2f, $%.2f over your $%.2f budget.\nConfirm before %s?",
		esc(req.Meal.Name), req.Slot, req.ProposedTotal, req.Overage(), req.AuthorizedBudget,
		req.ExpiresAt.Format("15:04"),
	)
}

func formatNotes(list []notes.PriorityNote) string {
	if len(list) == 0 {
		return "_No notes yet._ Send `/note <text>` to add one."
	}
	var sb strings.Builder
	sb.WriteString("📝 *Notes*\n")
	for _, n := range list {
		sb.WriteString(fmt.Sprintf("• %s (%s, until %s)", esc(n.Text), n.Status, n.ExpiresAt.Format("Jan 2")))
		if n.Reason != "" {
			sb.WriteString(" _" + esc(n.Reason) + "_")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatStats(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d plans (%d over budget), %d tokens (%d execs)\n",
			d.Date, d.Generations, d.OverBudgetRuns, d.TotalPrompt+d.TotalCompletion, d.TotalExecution))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Uptime: %s\n", health.Uptime))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	return sb.String()
}
