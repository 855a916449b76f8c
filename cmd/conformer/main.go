package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-warehouse/internal/config"
	"github.com/spec-kit/ticket-warehouse/internal/observability"
	apperrors "github.com/spec-kit/ticket-warehouse/pkg/util"
)

// reportedError marks a failure whose details were already printed.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

var rootCmd = &cobra.Command{
	Use:           "conformer",
	Short:         "Conform helpdesk staging data into the ticket warehouse",
	Long:          "conformer reads the Octa and Sults staging tables and loads the shared date, time, status, interaction and responsible-party dimensions and the ticket fact table.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(runCmd, migrateCmd, vocabularyCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		var reported reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	os.Exit(apperrors.ExitCode(err))
}

// bootstrap loads configuration and builds the logger shared by every command.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}
