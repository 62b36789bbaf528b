package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fr0stylo/txcommit/internal/observability"
)

// RootOptions holds flags shared by every command.
type RootOptions struct {
	Verbose bool
	log     *slog.Logger
}

// NewRootCommand builds the txcommitd command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "txcommitd",
		Short:         "Transaction commitment pipeline",
		Long:          "Allocates sequence numbers, batches, submits and tracks chain transactions and notifies subscribers of outcomes.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			baseHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
			opts.log = slog.New(observability.WrapSlogHandler(baseHandler))
			slog.SetDefault(opts.log)

			if err := godotenv.Load(); err != nil {
				slog.Debug("No .env file loaded", "error", err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewEnqueueCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewPurgeCommand(opts))

	return cmd
}

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		slog.Error("txcommitd exited", "error", err)
		os.Exit(1)
	}
}
