// Command dashctl imports, queries and exports the dashboard data held in a
// local snapshot file.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset/repository"
	storesvc "github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type app struct {
	v      *viper.Viper
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "dashctl",
		Short:         "Sales and suppliers dashboard from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().String("snapshot", "data/snapshot.json", "snapshot file holding the imported datasets")
	root.PersistentFlags().Int64("max-bytes", 5<<20, "largest snapshot the file may grow to")
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")

	_ = a.v.BindPFlag("snapshot.path", root.PersistentFlags().Lookup("snapshot"))
	_ = a.v.BindPFlag("snapshot.max_bytes", root.PersistentFlags().Lookup("max-bytes"))
	_ = a.v.BindPFlag("logging.level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(
		a.importCmd(),
		a.queryCmd(),
		a.summaryCmd(),
		a.exportCmd(),
		a.clearCmd(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	a.v.SetEnvPrefix("DASHCTL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	var level slog.Level
	if err := level.UnmarshalText([]byte(a.v.GetString("logging.level"))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

// openStore restores the snapshot into a store that saves back to the same file.
// A snapshot that exists but cannot be read is an error here, so a later
// mutation never overwrites it with an empty store.
func (a *app) openStore(ctx context.Context) (*storesvc.Store, error) {
	repo := repository.NewFileRepository(a.v.GetString("snapshot.path"), a.v.GetInt64("snapshot.max_bytes"))
	store := storesvc.NewStore(repo, a.logger)
	if err := store.Restore(ctx); err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return store, nil
}

// persistWarning turns a non-fatal save failure into a CLI error since the
// process exits right after and would lose the change.
func persistWarning(store *storesvc.Store) error {
	if w := store.Status().PersistWarning; w != "" {
		return fmt.Errorf("changes were not saved: %s", w)
	}
	return nil
}
