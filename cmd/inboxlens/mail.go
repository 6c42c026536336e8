package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/inboxlens/inboxlens/internal/analysis"
	"github.com/inboxlens/inboxlens/internal/history"
	"github.com/inboxlens/inboxlens/internal/inbox"
	"github.com/inboxlens/inboxlens/internal/ingest"
)

func syncCmd() *cobra.Command {
	var days, limit int
	var watch bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch and analyze recent mail",
		Long: `Connect to your mailbox over IMAP, analyze every new message and store
the results. Bounces and auto-replies are skipped unless inbox.skip_automated
is false. Messages analyzed before are not analyzed again.

With --watch the command keeps running and analyzes mail as it arrives.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(days, limit, watch)
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "How many days back to look (default from config)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum messages to fetch (default from config)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep watching for new mail after the initial sync")

	return cmd
}

func runSync(days, limit int, watch bool) error {
	e, err := setup()
	if err != nil {
		return err
	}
	if err := e.cfg.ValidateInbox(); err != nil {
		fmt.Println("Mailbox access is not configured.")
		fmt.Println()
		fmt.Println("Run 'inboxlens init' or add the following to your config.yaml:")
		fmt.Println()
		fmt.Println("inbox:")
		fmt.Println("  provider: gmail")
		fmt.Println("  email: you@gmail.com")
		fmt.Println("  password: your-app-password  # or set INBOXLENS_INBOX_PASSWORD")
		return err
	}
	if days <= 0 {
		days = e.cfg.Inbox.Days
	}
	if limit <= 0 {
		limit = e.cfg.Inbox.MaxMessages
	}

	store, err := e.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	syncer := ingest.NewSyncer(store, e.newAnalyzer(),
		ingest.WithWorkers(e.cfg.Analysis.Workers),
		ingest.WithScreening(e.cfg.Inbox.SkipAutomatedMail()),
		ingest.WithLogger(e.log),
	)

	ctx, cancel := signalContext()
	defer cancel()

	monitor := inbox.NewMonitor(e.cfg.Inbox, e.log)
	if err := monitor.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to inbox: %w", err)
	}
	defer monitor.Disconnect()

	fmt.Printf("Syncing %s (last %d days)...\n", e.cfg.Inbox.Email, days)
	report, err := syncer.Sync(ctx, monitor, days, limit, nil)
	if err != nil {
		return err
	}
	printReport(report)

	if !watch {
		return nil
	}

	fmt.Println()
	fmt.Println("Watching for new mail. Press Ctrl+C to stop.")
	total, err := syncer.Watch(ctx, monitor, func(r ingest.Report) {
		fmt.Printf("  %d new messages analyzed so far\n", r.Analyzed)
	})
	if ctx.Err() != nil {
		printReport(total)
		return nil
	}
	return err
}

func printReport(r ingest.Report) {
	fmt.Printf("Fetched %d, analyzed %d, already known %d, screened %d, failed %d\n",
		r.Fetched, r.Analyzed, r.Skipped, r.Screened, r.Failed)
}

func listCmd() *cobra.Command {
	var f history.EmailFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List analyzed emails",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(f)
		},
	}

	cmd.Flags().StringVar(&f.Category, "category", "", "Only this category (Work, Personal, Finance, ...)")
	cmd.Flags().StringVar(&f.Sentiment, "sentiment", "", "Only this sentiment (Positive, Negative, Neutral, Urgent)")
	cmd.Flags().BoolVar(&f.Important, "important", false, "Only important emails")
	cmd.Flags().BoolVar(&f.Starred, "starred", false, "Only starred emails")
	cmd.Flags().BoolVar(&f.NeedsFollowup, "followup", false, "Only emails needing a follow-up, soonest first")
	cmd.Flags().IntVar(&f.Limit, "limit", 20, "Number of emails to show")
	cmd.Flags().IntVar(&f.Offset, "offset", 0, "Number of emails to skip")

	return cmd
}

func runList(f history.EmailFilter) error {
	if f.Category != "" && !lo.Contains(analysis.Categories(), f.Category) {
		return fmt.Errorf("unknown category %q (one of: %s)", f.Category, strings.Join(analysis.Categories(), ", "))
	}
	e, err := setup()
	if err != nil {
		return err
	}
	store, err := e.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	emails, err := store.ListEmails(f)
	if err != nil {
		return fmt.Errorf("failed to list emails: %w", err)
	}
	if len(emails) == 0 {
		fmt.Println("No emails match.")
		return nil
	}

	fmt.Printf("%-5s %-10s %-4s %-10s %-9s %-24s %s\n", "ID", "RECEIVED", "PRIO", "CATEGORY", "SENTIMENT", "FROM", "SUBJECT")
	for _, em := range emails {
		flags := ""
		if em.IsImportant {
			flags += "!"
		}
		if em.NeedsFollowup {
			flags += "F"
		}
		fmt.Printf("%-5d %-10s %-4.1f %-10s %-9s %-24s %s %s\n",
			em.ID,
			em.ReceivedAt.Format("2006-01-02"),
			em.PriorityScore,
			em.Category,
			em.Sentiment,
			truncateString(em.Sender, 24),
			truncateString(em.Subject, 60),
			flags,
		)
	}
	return nil
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one analyzed email with everything extracted from it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			return runShow(id)
		},
	}
}

func runShow(id int64) error {
	e, err := setup()
	if err != nil {
		return err
	}
	store, err := e.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	d, err := store.GetEmailDetail(id)
	if err != nil {
		return err
	}
	if d == nil {
		return fmt.Errorf("email %d: %w", id, history.ErrNotFound)
	}

	fmt.Printf("#%d  %s\n", d.ID, d.Subject)
	fmt.Printf("From:      %s <%s>\n", d.Sender, d.SenderEmail)
	fmt.Printf("Received:  %s\n", d.ReceivedAt.Format("2006-01-02 15:04"))
	fmt.Printf("Type:      %s\n", d.ContentType)
	fmt.Printf("Category:  %s\n", d.Category)
	fmt.Printf("Sentiment: %s (%.2f)\n", d.Sentiment, d.SentimentScore)
	fmt.Printf("Priority:  %.1f\n", d.PriorityScore)
	if d.IsImportant {
		fmt.Println("Important: yes")
	}
	if d.NeedsFollowup {
		fmt.Printf("Follow up: by %s\n", formatDate(d.FollowupDate))
	}

	if d.Summary != "" {
		fmt.Println()
		fmt.Println("Summary:")
		fmt.Printf("  %s\n", d.Summary)
	}
	if len(d.Keywords) > 0 {
		fmt.Println()
		fmt.Print("Keywords:  ")
		for i, k := range d.Keywords {
			if i > 0 {
				fmt.Print(", ")
			}
			fmt.Print(k.Word)
		}
		fmt.Println()
	}
	if len(d.Entities) > 0 {
		fmt.Println()
		fmt.Println("Entities:")
		for _, ent := range d.Entities {
			fmt.Printf("  %-8s %s\n", ent.Type, ent.Text)
		}
	}
	if len(d.ActionItems) > 0 {
		fmt.Println()
		fmt.Println("Action items:")
		for _, a := range d.ActionItems {
			printActionItem(a, false)
		}
	}
	if len(d.Contacts) > 0 {
		fmt.Println()
		fmt.Println("Contacts:")
		for _, c := range d.Contacts {
			printContact(c)
		}
	}
	return nil
}

func actionsCmd() *cobra.Command {
	var all bool
	var limit int

	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List action items",
		Long:  "List open action items, soonest deadline first. Use --all to include completed ones.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActions(all, limit)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include completed action items")
	cmd.Flags().IntVar(&limit, "limit", 50, "Number of action items to show")

	cmd.AddCommand(setActionCmd("complete", "Mark an action item as done", true))
	cmd.AddCommand(setActionCmd("reopen", "Mark an action item as not done", false))

	return cmd
}

func setActionCmd(use, short string, completed bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			e, err := setup()
			if err != nil {
				return err
			}
			store, err := e.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.SetActionItemCompleted(id, completed); err != nil {
				return err
			}
			fmt.Printf("Action item %d marked %s.\n", id, lo.Ternary(completed, "done", "open"))
			return nil
		},
	}
}

func runActions(all bool, limit int) error {
	e, err := setup()
	if err != nil {
		return err
	}
	store, err := e.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	var filter *bool
	if !all {
		open := false
		filter = &open
	}
	items, err := store.ListActionItems(filter, limit, 0)
	if err != nil {
		return fmt.Errorf("failed to list action items: %w", err)
	}
	if len(items) == 0 {
		fmt.Println("No action items.")
		return nil
	}
	for _, a := range items {
		printActionItem(a, true)
	}
	return nil
}

func printActionItem(a history.ActionItem, withSubject bool) {
	mark := " "
	if a.Completed {
		mark = "x"
	}
	fmt.Printf("  [%s] %-4d %-10s %s\n", mark, a.ID, formatDate(a.Deadline), a.Text)
	if withSubject && a.EmailSubject != "" {
		fmt.Printf("                       re: %s\n", truncateString(a.EmailSubject, 60))
	}
}

func contactsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "List contacts found in your mail",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			store, err := e.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			contacts, err := store.ListContacts(limit, 0)
			if err != nil {
				return fmt.Errorf("failed to list contacts: %w", err)
			}
			if len(contacts) == 0 {
				fmt.Println("No contacts yet.")
				return nil
			}
			for _, c := range contacts {
				printContact(c)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "Number of contacts to show")
	return cmd
}

func printContact(c history.Contact) {
	fmt.Printf("  %-24s %-32s", truncateString(c.Name, 24), c.Email)
	if c.Phone != "" {
		fmt.Printf(" %s", c.Phone)
	}
	if c.Company != "" {
		fmt.Printf(" (%s)", c.Company)
	}
	fmt.Println()
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show statistics over analyzed mail",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			store, err := e.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			st, err := store.Stats()
			if err != nil {
				return fmt.Errorf("failed to get stats: %w", err)
			}

			fmt.Println("InboxLens Statistics")
			fmt.Println("--------------------")
			fmt.Printf("  Emails analyzed:   %d\n", st.Total)
			fmt.Printf("  Important:         %d\n", st.Important)
			fmt.Printf("  Need follow-up:    %d\n", st.Followups)
			fmt.Printf("  Open action items: %d\n", st.OpenActionItems)
			fmt.Printf("  Priority:          %d low, %d medium, %d high\n", st.Priority.Low, st.Priority.Medium, st.Priority.High)
			printCounts("By category", st.ByCategory)
			printCounts("By sentiment", st.BySentiment)
			return nil
		},
	}
}

// printCounts prints a count map largest first.
func printCounts(title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	fmt.Println()
	fmt.Printf("%s:\n", title)
	for _, k := range keys {
		fmt.Printf("  %-12s %d\n", k, counts[k])
	}
}
