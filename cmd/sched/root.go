package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/cogodo/spaced-sub003/internal/config"
	"github.com/cogodo/spaced-sub003/internal/domain/srs"
	"github.com/cogodo/spaced-sub003/internal/events"
	"github.com/cogodo/spaced-sub003/internal/platform/badgerstore"
	"github.com/cogodo/spaced-sub003/internal/platform/postgres"
	"github.com/cogodo/spaced-sub003/internal/platform/remote"
	"github.com/cogodo/spaced-sub003/internal/queue"
	"github.com/cogodo/spaced-sub003/internal/schedule"
	"github.com/cogodo/spaced-sub003/internal/store"
	"github.com/cogodo/spaced-sub003/internal/syncer"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sched",
		Short:         "Local-first spaced-repetition scheduler",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newAddCmd(),
		newReviewCmd(),
		newDueCmd(),
		newListCmd(),
		newRemoveCmd(),
		newCeilingCmd(),
		newSyncCmd(),
	)
	return root
}

// session bundles the wired engine for one CLI invocation.
type session struct {
	manager *schedule.Manager
	local   *badgerstore.Store
	closers []func() error
}

func (s *session) Close() {
	for _, close := range s.closers {
		_ = close()
	}
}

// openSession wires the engine the same way a host application would:
// local store, queue, coordinator, scheduler, then a remote backend when
// one is configured.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	// CLI output belongs to the user; keep structured logs quiet.
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	local, err := badgerstore.Open(badgerstore.Config{
		Path:       cfg.Storage.Path,
		SyncWrites: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	s := &session{local: local}
	s.closers = append(s.closers, local.Close)

	pending := queue.New(local, log)
	coordinator := syncer.New(pending, log)
	manager := schedule.NewManager(local, pending, coordinator, srs.NewDefaultService(), events.NewEmitter(log), log)
	manager.Load(ctx)
	s.manager = manager

	if backend, closer, err := openRemote(ctx, cfg, log); err != nil {
		fmt.Printf("remote unavailable, staying offline: %v\n", err)
	} else if backend != nil {
		if closer != nil {
			s.closers = append(s.closers, closer)
		}
		if _, err := manager.SetRemoteBackend(ctx, backend); err != nil && !errors.Is(err, syncer.ErrNoRemote) {
			fmt.Printf("sync on attach failed: %v\n", err)
		}
	}

	return s, nil
}

// openRemote builds the configured remote backend variant, or nil when
// the session is local-only.
func openRemote(ctx context.Context, cfg *config.Config, log *slog.Logger) (store.Backend, func() error, error) {
	switch {
	case cfg.Remote.DatabaseURL != "":
		docs, err := postgres.Open(ctx, cfg.Remote.DatabaseURL, log)
		if err != nil {
			return nil, nil, err
		}
		return docs, docs.Close, nil
	case cfg.Remote.BaseURL != "":
		client, err := remote.New(remote.Config{
			BaseURL: cfg.Remote.BaseURL,
			Token:   cfg.Remote.Token,
			Logger:  log,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := client.Probe(ctx); err != nil {
			return nil, nil, err
		}
		return client, nil, nil
	default:
		return nil, nil, nil
	}
}

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <description>",
		Short: "Add a study task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			task, outcome, err := s.manager.AddTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("added %q (%s)\n", task.Description, outcome.Status)
			return nil
		},
	}
}

func newReviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review <description> <quality>",
		Short: "Record a review with quality 0-5",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			quality, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("quality must be an integer: %w", err)
			}

			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			task, outcome, err := s.manager.ApplyReview(cmd.Context(), args[0], quality)
			if err != nil {
				return err
			}
			if task.NextReview != nil {
				fmt.Printf("%q: repetition %d, next review %s (%s)\n",
					task.Description, task.Repetition,
					task.NextReview.Format("2006-01-02"), outcome.Status)
			} else {
				fmt.Printf("%q reviewed (%s)\n", task.Description, outcome.Status)
			}
			return nil
		},
	}
}

func newDueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "due",
		Short: "List tasks due today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			due := s.manager.DueTasks(time.Now())
			if len(due) == 0 {
				fmt.Println("nothing due")
				return nil
			}
			for _, task := range due {
				fmt.Printf("%s (repetition %d)\n", task.Description, task.Repetition)
			}
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			for _, task := range s.manager.Tasks() {
				next := "due now"
				if task.NextReview != nil {
					next = task.NextReview.Format("2006-01-02")
				}
				fmt.Printf("%s (repetition %d, next %s)\n", task.Description, task.Repetition, next)
			}
			return nil
		},
	}
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <description>",
		Short: "Remove a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			outcome, err := s.manager.RemoveTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("removed %q (%s)\n", args[0], outcome.Status)
			return nil
		},
	}
}

func newCeilingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ceiling <n>",
		Short: "Set the repetition ceiling",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ceiling, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("ceiling must be an integer: %w", err)
			}

			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			outcome, err := s.manager.SetRepetitionCeiling(cmd.Context(), ceiling)
			if err != nil {
				return err
			}
			fmt.Printf("repetition ceiling set to %d (%s)\n", ceiling, outcome.Status)
			return nil
		},
	}
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay pending operations against the remote store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := s.manager.TriggerSync(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("applied %d, remaining %d\n", result.Applied, result.Remaining)
			return nil
		},
	}
}
