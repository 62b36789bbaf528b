package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fr0stylo/txcommit/internal/adapters/sqlite"
	"github.com/fr0stylo/txcommit/internal/app/domain"
	"github.com/fr0stylo/txcommit/internal/app/services"
	"github.com/fr0stylo/txcommit/internal/config"
)

// NewEnqueueCommand accepts write requests from a file or stdin without
// starting any stage worker.
func NewEnqueueCommand(opts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Accept write requests into the pipeline",
		Long:  "Reads one JSON write request, or a JSON array of them, and enqueues each on request-in.",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			requests, err := decodeRequests(raw)
			if err != nil {
				return err
			}

			cfg, err := config.LoadForTool()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			store, err := sqlite.Open(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer store.Close()

			queue, closeQueue, err := openQueue(cfg, store)
			if err != nil {
				return err
			}
			defer closeQueue()

			// Batching happens in the running pipeline, never here.
			intake := services.NewIntake(queue, store, nil, cfg.SubmitBackoff(), opts.log)
			for _, req := range requests {
				if req.ProviderID == "" {
					req.ProviderID = cfg.Chain.ProviderID
				}
				if err := intake.Accept(cmd.Context(), req); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), req.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "request file, - for stdin")
	return cmd
}

// NewMigrateCommand applies database migrations and exits.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadForTool()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			store, err := sqlite.Open(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}
			opts.log.Info("Database migrated", "path", cfg.Database.Path)
			return store.Close()
		},
	}
}

// NewPurgeCommand drops finished sqlite queue rows older than a cutoff.
func NewPurgeCommand(opts *RootOptions) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete acked and failed queue rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			cfg, err := config.LoadForTool()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			store, err := sqlite.Open(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer store.Close()

			removed, err := store.PurgeFinished(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			opts.log.Info("Purged finished queue items", "removed", removed, "older_than", olderThan.String())
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "minimum age of finished rows to delete")
	return cmd
}

func readInput(stdin io.Reader, file string) ([]byte, error) {
	if file == "" || file == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(file)
}

func decodeRequests(raw []byte) ([]domain.WriteRequest, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, errors.New("no write request given")
	}
	if strings.HasPrefix(trimmed, "[") {
		var requests []domain.WriteRequest
		if err := json.Unmarshal([]byte(trimmed), &requests); err != nil {
			return nil, fmt.Errorf("decode write requests: %w", err)
		}
		return requests, nil
	}
	var req domain.WriteRequest
	if err := json.Unmarshal([]byte(trimmed), &req); err != nil {
		return nil, fmt.Errorf("decode write request: %w", err)
	}
	return []domain.WriteRequest{req}, nil
}
