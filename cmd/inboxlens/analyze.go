package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/inboxlens/inboxlens/internal/analysis"
	"github.com/inboxlens/inboxlens/internal/config"
	"github.com/inboxlens/inboxlens/internal/history"
	"github.com/inboxlens/inboxlens/internal/inbox"
	"github.com/inboxlens/inboxlens/internal/ingest"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long:  "Create a configuration file with your mailbox and digest settings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit()
		},
	}
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("InboxLens Configuration Setup")
	fmt.Println("=============================")
	fmt.Println()

	cfg := config.Default()

	fmt.Println("Mailbox (IMAP)")
	fmt.Println("  Use an app password, not your main password.")
	fmt.Println()
	cfg.Inbox.Provider = strings.ToLower(prompt(reader, "Provider (gmail/outlook/imap) [gmail]: "))
	if cfg.Inbox.Provider == "" {
		cfg.Inbox.Provider = "gmail"
	}
	if cfg.Inbox.Provider == "imap" {
		cfg.Inbox.Server = prompt(reader, "  IMAP server: ")
		cfg.Inbox.Port = 993
	}
	cfg.Inbox.Email = prompt(reader, "Email address: ")
	cfg.Inbox.Password = prompt(reader, "App password: ")

	fmt.Println()
	fmt.Println("Daily digest (optional, leave provider empty to skip)")
	fmt.Println()
	cfg.Digest.Provider = strings.ToLower(prompt(reader, "Provider (smtp/resend/sendgrid): "))
	if cfg.Digest.Provider != "" {
		cfg.Digest.From = prompt(reader, "  From address: ")
		cfg.Digest.To = prompt(reader, "  To address [same as mailbox]: ")
		if cfg.Digest.To == "" {
			cfg.Digest.To = cfg.Inbox.Email
		}
		switch cfg.Digest.Provider {
		case "smtp":
			cfg.Digest.SMTP.Host = prompt(reader, "  SMTP host: ")
			cfg.Digest.SMTP.Port = 465
			cfg.Digest.SMTP.UseTLS = true
			cfg.Digest.SMTP.Username = prompt(reader, "  SMTP username: ")
			cfg.Digest.SMTP.Password = prompt(reader, "  SMTP password: ")
		default:
			cfg.Digest.APIKey = prompt(reader, "  API key: ")
		}
	}

	configPath := resolveConfigPath()
	if err := config.Save(configPath, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Printf("Configuration saved to: %s\n", configPath)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Run 'inboxlens sync' to analyze the last week of mail")
	fmt.Println("  2. Run 'inboxlens list' or 'inboxlens serve' to browse the results")
	fmt.Println("  3. Run 'inboxlens digest' to preview today's digest")

	return nil
}

func analyzeCmd() *cobra.Command {
	var subject string
	var asJSON, save bool

	cmd := &cobra.Command{
		Use:   "analyze [file...]",
		Short: "Analyze messages from files or stdin",
		Long: `Analyze one or more messages and print the result.

Each argument is a raw RFC 5322 message (.eml) or plain text. With no
arguments, or with "-", the message is read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(args, subject, asJSON, save)
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Subject for plain-text input (overrides the message's own)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	cmd.Flags().BoolVar(&save, "save", false, "Store the results in the history database")

	return cmd
}

var headerLine = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*:[ \t]`)

// looksLikeMessage reports whether data starts with a header block.
func looksLikeMessage(name string, data []byte) bool {
	if strings.EqualFold(filepath.Ext(name), ".eml") {
		return true
	}
	firstLine, _, _ := bytes.Cut(data, []byte("\n"))
	hasBlankLine := bytes.Contains(data, []byte("\n\n")) || bytes.Contains(data, []byte("\r\n\r\n"))
	return headerLine.Match(firstLine) && hasBlankLine
}

// readInput loads one input as an email, parsing headers when present.
func readInput(name string, r io.Reader, subject string) (*inbox.Email, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	var email *inbox.Email
	if looksLikeMessage(name, data) {
		email, err = inbox.ParseMessage(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
	} else {
		email = &inbox.Email{Body: string(data), ReceivedAt: time.Now()}
	}

	if subject != "" {
		email.Subject = subject
	}
	if email.MessageID == "" || (subject != "" && strings.HasSuffix(email.MessageID, "@inboxlens.local")) {
		email.MessageID = inbox.SyntheticMessageID(email.Subject, email.AnalysisBody())
	}
	return email, nil
}

type analyzedInput struct {
	Source    string          `json:"source"`
	MessageID string          `json:"message_id"`
	Subject   string          `json:"subject"`
	Result    analysis.Result `json:"result"`
	Links     []string        `json:"links,omitempty"`
	StoredID  int64           `json:"stored_id,omitempty"`
}

func runAnalyze(args []string, subject string, asJSON, save bool) error {
	e, err := setup()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		args = []string{"-"}
	}

	var emails []*inbox.Email
	for _, arg := range args {
		var email *inbox.Email
		if arg == "-" {
			email, err = readInput("stdin", os.Stdin, subject)
		} else {
			f, openErr := os.Open(arg)
			if openErr != nil {
				return fmt.Errorf("failed to open %s: %w", arg, openErr)
			}
			email, err = readInput(arg, f, subject)
			f.Close()
		}
		if err != nil {
			return err
		}
		emails = append(emails, email)
	}

	analyzer := e.newAnalyzer()
	ctx, cancel := signalContext()
	defer cancel()

	msgs := lo.Map(emails, func(em *inbox.Email, _ int) analysis.Message {
		return analysis.Message{Subject: em.Subject, Body: em.AnalysisBody()}
	})
	results, err := analyzer.AnalyzeBatch(ctx, msgs, e.cfg.Analysis.Workers)
	if err != nil {
		return err
	}

	var store *history.Store
	if save {
		if store, err = e.openStore(); err != nil {
			return err
		}
		defer store.Close()
	}

	out := make([]analyzedInput, len(emails))
	for i, em := range emails {
		out[i] = analyzedInput{Source: args[i], MessageID: em.MessageID, Subject: em.Subject, Result: results[i], Links: inbox.ExtractLinks(em)}
		if store != nil {
			id, err := store.SaveAnalysis(ingest.StoredMessage(*em), results[i])
			if err != nil {
				return fmt.Errorf("failed to save %s: %w", args[i], err)
			}
			out[i].StoredID = id
		}
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if len(out) == 1 {
			return enc.Encode(out[0])
		}
		return enc.Encode(out)
	}

	for i, a := range out {
		if i > 0 {
			fmt.Println()
		}
		printResult(a)
	}
	return nil
}

func printResult(a analyzedInput) {
	r := a.Result
	fmt.Printf("== %s\n", a.Source)
	if a.Subject != "" {
		fmt.Printf("Subject:   %s\n", a.Subject)
	}
	fmt.Printf("Type:      %s\n", r.ContentType)
	fmt.Printf("Category:  %s\n", r.Category)
	fmt.Printf("Sentiment: %s (%.2f)\n", r.Sentiment, r.SentimentScore)
	fmt.Printf("Priority:  %.1f%s\n", r.PriorityScore, lo.Ternary(r.IsImportant, "  [important]", ""))
	if r.NeedsFollowup {
		fmt.Printf("Follow up: by %s\n", formatDate(r.FollowupDate))
	}
	if a.StoredID > 0 {
		fmt.Printf("Stored as: #%d\n", a.StoredID)
	}

	if r.Summary != "" {
		fmt.Println()
		fmt.Println("Summary:")
		for _, line := range strings.Split(r.Summary, "\n") {
			fmt.Printf("  %s\n", line)
		}
	}
	if len(r.Keywords) > 0 {
		fmt.Printf("\nKeywords:  %s\n", strings.Join(lo.Map(r.Keywords, func(k analysis.Keyword, _ int) string { return k.Word }), ", "))
	}
	if len(r.Entities) > 0 {
		fmt.Println("\nEntities:")
		for _, ent := range r.Entities {
			fmt.Printf("  %-8s %s\n", ent.Type, ent.Text)
		}
	}
	if len(r.ActionItems) > 0 {
		fmt.Println("\nAction items:")
		for _, item := range r.ActionItems {
			fmt.Printf("  - %s", item.Text)
			if item.Deadline != nil {
				fmt.Printf("  (by %s)", formatDate(item.Deadline))
			}
			fmt.Println()
		}
	}
	if len(r.Contacts) > 0 {
		fmt.Println("\nContacts:")
		for _, c := range r.Contacts {
			fmt.Printf("  %s <%s>%s\n", c.Name, c.Email, lo.Ternary(c.Phone != "", " "+c.Phone, ""))
		}
	}
	if len(a.Links) > 0 {
		fmt.Println("\nLinks:")
		for _, l := range a.Links {
			fmt.Printf("  %s\n", l)
		}
	}
}
