package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/inboxlens/inboxlens/internal/email"
	"github.com/inboxlens/inboxlens/internal/template"
)

func digestCmd() *cobra.Command {
	var send bool

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Build today's digest of follow-ups, action items and priority mail",
		Long: `Build a plain-text digest of follow-ups due today, open action items with
a deadline and high-priority mail. By default the digest is printed.

With --send it is mailed to digest.to using the configured provider
(smtp, resend or sendgrid).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDigest(send)
		},
	}

	cmd.Flags().BoolVar(&send, "send", false, "Send the digest instead of printing it")

	return cmd
}

func runDigest(send bool) error {
	e, err := setup()
	if err != nil {
		return err
	}
	if send {
		if err := e.cfg.ValidateDigest(); err != nil {
			return err
		}
	}

	store, err := e.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	now := time.Now().In(e.cfg.Analysis.Location())
	followups, err := store.DueFollowups(now)
	if err != nil {
		return fmt.Errorf("failed to load follow-ups: %w", err)
	}
	open := false
	items, err := store.ListActionItems(&open, 100, 0)
	if err != nil {
		return fmt.Errorf("failed to load action items: %w", err)
	}
	priority, err := store.HighPriority(e.cfg.Digest.MinPriority, 20)
	if err != nil {
		return fmt.Errorf("failed to load priority mail: %w", err)
	}

	engine, err := template.NewEngine()
	if err != nil {
		return err
	}
	data := template.BuildDigest(now, followups, items, priority, e.cfg.Digest.MinPriority)
	msg, err := engine.RenderDigest(data)
	if err != nil {
		return err
	}

	if !send {
		fmt.Printf("Subject: %s\n\n%s", msg.Subject, msg.Body)
		return nil
	}

	sender, err := email.NewSender(e.cfg.Digest)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	result := sender.Send(ctx, email.Message{
		To:      e.cfg.Digest.To,
		From:    e.cfg.Digest.From,
		Subject: msg.Subject,
		Body:    msg.Body,
	})
	if !result.Success {
		return fmt.Errorf("failed to send digest via %s: %w", sender.Name(), result.Error)
	}

	e.log.Info().Str("provider", sender.Name()).Str("message_id", result.MessageID).Msg("digest sent")
	fmt.Printf("Digest sent to %s (%s)\n", e.cfg.Digest.To, msg.Subject)
	return nil
}
