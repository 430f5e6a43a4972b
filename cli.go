package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/korjavin/profesorbot/bot"
	"github.com/korjavin/profesorbot/database"
	"github.com/korjavin/profesorbot/session"
)

// drainTimeout bounds how long the chat command waits for queued input once
// stdin is exhausted
const drainTimeout = 2 * time.Minute

func telegramCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "telegram",
		Short: "Run the Telegram bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			deps, err := a.deps(ctx)
			if err != nil {
				return err
			}
			b, err := bot.New(a.cfg, deps, a.log)
			if err != nil {
				return fmt.Errorf("failed to initialize bot: %w", err)
			}
			a.log.Info("Bot initialized successfully")

			return b.Run(ctx)
		},
	}
}

func chatCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant from the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			deps, err := a.deps(ctx)
			if err != nil {
				return err
			}
			if user == "" {
				user = a.cfg.DefaultUser
			}
			w, err := session.NewWorker(ctx, deps, user, a.log)
			if err != nil {
				return err
			}
			return runChat(ctx, w, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user name (defaults to the configured guest)")
	return cmd
}

// runChat feeds stdin lines to the worker and prints its messages until
// input ends or ctx is cancelled
func runChat(ctx context.Context, w *session.Worker, in io.Reader, out io.Writer) error {
	var g errgroup.Group

	g.Go(func() error {
		for ev := range w.Events() {
			if ev.Kind == session.EventMessage {
				fmt.Fprintf(out, "%s\n\n", ev.Text)
			}
		}
		return nil
	})

	lines := make(chan string)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-quit:
				return
			}
		}
	}()

	var err error
	timeout := drainTimeout
loop:
	for {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			timeout = session.DefaultStopTimeout
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			w.Submit(session.Request{Kind: session.RequestText, Text: line})
		}
	}

	if !w.Stop(timeout) {
		return errors.New("session did not stop in time")
	}
	if werr := g.Wait(); werr != nil {
		return werr
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage stored users",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			names, err := a.db.ListUsers()
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rename OLD NEW",
		Short: "Rename a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			ok, err := a.db.RenameUser(args[0], args[1])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("user %q not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s\n", args[0], args[1])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a user and their history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			ok, err := a.db.DeleteUser(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("user %q not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	})

	return cmd
}

func progressCmd() *cobra.Command {
	var user, subject, topic string
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show quiz progress of a user on a topic",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := progressReport(a.db, user, subject, topic)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "Invitado", "user name")
	cmd.Flags().StringVar(&subject, "subject", "General", "subject")
	cmd.Flags().StringVar(&topic, "topic", "General", "topic")
	return cmd
}

func progressReport(db *database.DB, user, subject, topic string) (string, error) {
	uid, err := db.GetUserID(user)
	if errors.Is(err, database.ErrNotFound) {
		return "", fmt.Errorf("user %q not found", user)
	}
	if err != nil {
		return "", err
	}
	tid, err := db.GetOrCreateTopic(subject, topic)
	if err != nil {
		return "", err
	}
	stats, err := db.TopicStats(uid, tid)
	if err != nil {
		return "", err
	}
	if stats.Total == 0 {
		return fmt.Sprintf("No quiz answers yet for %s on %s / %s", user, subject, topic), nil
	}
	blocks, err := db.ProgressBlocks(uid, tid, session.ProgressBlockSize)
	if err != nil {
		return "", err
	}
	return session.FormatProgress(subject, topic, stats, blocks), nil
}
