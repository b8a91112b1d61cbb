package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"meal-scheduler/internal/app"
	"meal-scheduler/internal/catalog"
	"meal-scheduler/internal/config"
	"meal-scheduler/internal/logger"
	"meal-scheduler/internal/planner"
	"meal-scheduler/internal/profile"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Development: !cfg.IsProduction()})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	application, cleanup, err := app.Build(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("failed to initialize", zap.Error(err))
	}
	defer cleanup()

	if err := run(ctx, application, cfg, os.Args[1], os.Args[2:]); err != nil {
		cleanup()
		zl.Sync()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, cfg *config.Config, command string, args []string) error {
	switch command {
	case "import-menu":
		if len(args) < 2 {
			return fmt.Errorf("usage: import-menu <url> <vendor>")
		}
		n, err := a.ImportMenu(ctx, args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d meals into %s.\n", n, cfg.CatalogPath)
		return nil

	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
		cleanupCmd.Parse(args)

		affected, err := a.MetricsStore().Cleanup(ctx, *days)
		if err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)
		return nil

	case "stats":
		usage, err := a.MetricsStore().GetDailyUsage(ctx, 7)
		if err != nil {
			return err
		}
		if len(usage) == 0 {
			fmt.Println("No activity recorded yet.")
		}
		for _, d := range usage {
			fmt.Printf("%s  plans=%d over_budget=%d avg_latency=%.0fms tokens=%d\n",
				d.Date, d.Generations, d.OverBudgetRuns, d.AvgLatencyMS, d.TotalPrompt+d.TotalCompletion)
		}
		return nil
	}

	s, err := a.Session(ctx, cfg.DefaultUserID)
	if err != nil {
		return err
	}

	switch command {
	case "show":
		return showPlan(ctx, s)

	case "generate":
		res, err := s.Regenerate(ctx)
		if err != nil {
			return err
		}
		if res.Report != nil {
			fmt.Printf("Generated with %s strategy in %d optimizer passes (%d candidates).\n",
				res.Report.Strategy, res.Report.Iterations, res.Report.Candidates)
		}
		return showPlan(ctx, s)

	case "swap":
		slot, err := slotArg(args)
		if err != nil {
			return err
		}
		itemID := ""
		if len(args) > 1 {
			itemID = args[1]
		}
		res, err := s.Swap(ctx, slot, itemID)
		if err != nil {
			return err
		}
		if !res.Swapped {
			fmt.Printf("No alternative for %s.\n", slot)
			return nil
		}
		fmt.Printf("Swapped to %s (%d of %d).\n", res.Meal.Name, res.Position, res.Total)
		return showPlan(ctx, s)

	case "guest":
		slot, err := slotArg(args)
		if err != nil {
			return err
		}
		guestCmd := flag.NewFlagSet("guest", flag.ExitOnError)
		anyRestaurant := guestCmd.Bool("any-restaurant", false, "Allow a guest meal from another restaurant")
		guestCmd.Parse(args[1:])

		req, err := s.AddGuest(ctx, slot, *anyRestaurant)
		if err != nil {
			return err
		}
		if req != nil {
			fmt.Printf("Adding %s would bring today to $%.2f, $%.2f over the $%.2f budget.\n",
				req.Meal.Name, req.ProposedTotal, req.Overage(), req.AuthorizedBudget)
			fmt.Printf("To accept, run before %s:\n  meal-scheduler confirm %s\n", req.ExpiresAt.Format("15:04"), req.Token)
			return nil
		}
		return showPlan(ctx, s)

	case "confirm":
		if len(args) < 1 {
			return fmt.Errorf("usage: confirm <token>")
		}
		if err := s.ConfirmBudget(ctx, args[0]); err != nil {
			return err
		}
		return showPlan(ctx, s)

	case "unguest":
		slot, err := slotArg(args)
		if err != nil {
			return err
		}
		if len(args) < 2 {
			return fmt.Errorf("usage: unguest <slot> <itemID>")
		}
		if err := s.RemoveGuest(ctx, slot, args[1]); err != nil {
			return err
		}
		return showPlan(ctx, s)

	case "skip", "restore":
		slot, err := slotArg(args)
		if err != nil {
			return err
		}
		op := s.Skip
		if command == "restore" {
			op = s.Restore
		}
		if err := op(ctx, slot); err != nil {
			return err
		}
		return showPlan(ctx, s)

	case "prefs":
		return updatePrefs(ctx, s, args)

	case "note":
		if len(args) < 1 {
			return fmt.Errorf("usage: note <text> [--days N]")
		}
		noteCmd := flag.NewFlagSet("note", flag.ExitOnError)
		days := noteCmd.Int("days", 1, "How many days the note stays active")
		noteCmd.Parse(args[1:])

		n, err := s.AddNote(ctx, args[0], *days)
		if err != nil {
			return err
		}
		fmt.Printf("Analyzing note %s...\n", n.ID)
		s.WaitForNotes()
		printNotes(s)
		return showPlan(ctx, s)

	case "unnote":
		if len(args) < 1 {
			return fmt.Errorf("usage: unnote <id>")
		}
		if err := s.DeleteNote(ctx, args[0]); err != nil {
			return err
		}
		printNotes(s)
		return nil

	case "notes":
		printNotes(s)
		return nil

	case "logistics":
		plan, info, err := s.Logistics(ctx)
		if err != nil {
			return err
		}
		for _, slot := range plan.Slots() {
			for _, item := range plan.Items[slot] {
				li := info[item.ID]
				fmt.Printf("%-10s %-24s %-6s $%.2f  %s\n", slot, item.ID, li.Mode, li.DeliveryFee, li.Description)
			}
		}
		return nil
	}

	printUsage()
	return fmt.Errorf("unknown command: %s", command)
}

func updatePrefs(ctx context.Context, s *app.Session, args []string) error {
	prefsCmd := flag.NewFlagSet("prefs", flag.ExitOnError)
	budget := prefsCmd.Float64("budget", 0, "Daily allowance in dollars, tax included")
	meals := prefsCmd.String("meals", "", "Comma separated meal times")
	allergies := prefsCmd.String("allergies", "", "Comma separated allergens, or none")
	diet := prefsCmd.String("diet", "", "Comma separated diets, or none")
	cuisines := prefsCmd.String("cuisines", "", "Comma separated cuisine codes, or none")
	tiers := prefsCmd.String("tiers", "", "Comma separated restaurant tiers, or none")
	like := prefsCmd.String("like", "", "Meal name to like")
	dislike := prefsCmd.String("dislike", "", "Meal name to dislike")
	favorite := prefsCmd.String("favorite", "", "Meal name to toggle as favorite")
	prefsCmd.Parse(args)

	set := make(map[string]bool)
	prefsCmd.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if len(set) > 0 {
		var slots []catalog.MealTime
		for _, v := range profile.ParseList(*meals) {
			mt, ok := catalog.ParseMealTime(v)
			if !ok {
				return fmt.Errorf("unknown meal time %q", v)
			}
			slots = append(slots, mt)
		}

		_, err := s.UpdatePreferences(ctx, func(p *profile.Preferences) {
			if set["budget"] {
				p.Profile.DailyAllowance = *budget
			}
			if set["meals"] {
				p.MealPrefs = slots
			}
			if set["allergies"] {
				p.Profile.Allergies = listArg(*allergies)
			}
			if set["diet"] {
				p.Profile.Diet = listArg(*diet)
			}
			if set["cuisines"] {
				p.Cuisines = listArg(*cuisines)
			}
			if set["tiers"] {
				p.RestaurantPrefs = listArg(*tiers)
			}
			if *like != "" {
				p.SetReview(*like, true)
			}
			if *dislike != "" {
				p.SetReview(*dislike, false)
			}
			if *favorite != "" {
				p.ToggleFavorite(*favorite)
			}
		})
		if err != nil {
			return err
		}
	}

	p := s.Preferences()
	fmt.Printf("Meals:       %v\n", p.MealPrefs)
	fmt.Printf("Budget:      $%.2f/day\n", p.Profile.DailyAllowance)
	fmt.Printf("Allergies:   %s\n", strings.Join(p.Profile.Allergies, ", "))
	fmt.Printf("Diet:        %s\n", strings.Join(p.Profile.Diet, ", "))
	fmt.Printf("Cuisines:    %s\n", strings.Join(p.Cuisines, ", "))
	fmt.Printf("Restaurants: %s\n", strings.Join(p.RestaurantPrefs, ", "))
	return nil
}

func showPlan(ctx context.Context, s *app.Session) error {
	plan, logistics, err := s.Logistics(ctx)
	if err != nil {
		return err
	}
	sum, err := s.Summary(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("\n=== MEAL PLAN %s ===\n", plan.Date)
	if plan.IsEmpty() {
		fmt.Println("No meals match the current preferences.")
		return nil
	}
	for _, slot := range plan.Slots() {
		fmt.Printf("%s:\n", strings.ToUpper(string(slot)))
		for _, item := range plan.Items[slot] {
			status := ""
			if !item.Scheduled() {
				status = " [skipped]"
			}
			if item.OverrideNoteID != "" {
				status += " [note]"
			}
			fmt.Printf("  %-20s %-28s %-14s $%6.2f  %s%s\n",
				item.ID, item.Meal.Name, item.Meal.Vendor.Name, item.Meal.Price, logistics[item.ID].Mode, status)
		}
	}

	fmt.Println("\n=== BUDGET ===")
	for _, ss := range sum.Slots {
		fmt.Printf("%-10s $%7.2f", ss.Slot, ss.Subtotal)
		if ss.SplitFee > 0 {
			fmt.Printf("  (+$%.2f split delivery)", ss.SplitFee)
		}
		fmt.Println()
	}
	fmt.Printf("Tax        $%7.2f\n", sum.Tax)
	fmt.Printf("Total      $%7.2f of $%.2f", sum.Total, sum.AuthorizedBudget)
	if sum.OverBudget {
		fmt.Print("  OVER BUDGET")
	}
	fmt.Println()
	return nil
}

func printNotes(s *app.Session) {
	list := s.Notes()
	if len(list) == 0 {
		fmt.Println("No notes.")
		return
	}
	for _, n := range list {
		fmt.Printf("%s  %-8s until %s  %s", n.ID, n.Status, n.ExpiresAt.Format("2006-01-02"), n.Text)
		if n.Reason != "" {
			fmt.Printf("  (%s)", n.Reason)
		}
		fmt.Println()
	}
}

func slotArg(args []string) (catalog.MealTime, error) {
	if len(args) < 1 {
		return "", fmt.Errorf("missing meal time (breakfast, lunch or dinner)")
	}
	slot, ok := catalog.ParseMealTime(args[0])
	if !ok {
		return "", fmt.Errorf("%w: %s", planner.ErrSlotNotFound, args[0])
	}
	return slot, nil
}

func listArg(v string) []string {
	list := profile.ParseList(v)
	if len(list) == 1 && strings.EqualFold(list[0], "none") {
		return []string{}
	}
	return list
}

func printUsage() {
	fmt.Println("Usage: meal-scheduler <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  show                              Show today's plan, regenerating it if stale")
	fmt.Println("  generate                          Build a fresh plan for today")
	fmt.Println("  swap <slot> [itemID]              Rotate an item to its next alternative")
	fmt.Println("  guest <slot> [--any-restaurant]   Add a guest meal")
	fmt.Println("  confirm <token>                   Accept an over-budget guest meal")
	fmt.Println("  unguest <slot> <itemID>           Remove a guest meal")
	fmt.Println("  skip|restore <slot>               Skip or restore a slot's main meal")
	fmt.Println("  prefs [flags]                     Show or change preferences")
	fmt.Println("  note <text> [--days N]            Add a priority note")
	fmt.Println("  notes | unnote <id>               List or delete priority notes")
	fmt.Println("  logistics                         Show simulated delivery info")
	fmt.Println("  import-menu <url> <vendor>        Merge a vendor's menu page into the catalog")
	fmt.Println("  stats                             Show recent generation and usage stats")
	fmt.Println("  metrics-cleanup [--days N]        Remove old metric records")
}
