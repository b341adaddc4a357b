package commands

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/hitoshi/disneydex/internal/app"
	"github.com/hitoshi/disneydex/internal/config"
	"github.com/hitoshi/disneydex/internal/disneyapi"
	"github.com/hitoshi/disneydex/internal/logger"
	"github.com/hitoshi/disneydex/internal/metrics"
)

// env はサブコマンドが共有する依存関係。
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	source disneyapi.CharacterSource

	timeout time.Duration
}

// Execute はルートコマンドを実行する。
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	e := &env{}
	var verbose bool

	root := &cobra.Command{
		Use:           "disneyctl",
		Short:         "Browse Disney characters from the terminal",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			e.logger = logger.Setup(cmd.ErrOrStderr(), level)

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			e.cfg = cfg
			if e.timeout <= 0 {
				e.timeout = cfg.DisneyAPITimeout
			}

			client, err := app.NewCharacterClient(cfg, e.logger, metrics.Nop{})
			if err != nil {
				return err
			}
			e.source = client
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log API calls to stderr")
	root.PersistentFlags().DurationVar(&e.timeout, "timeout", 0, "overall timeout per command (default DISNEY_API_TIMEOUT)")

	root.AddCommand(listCmd(e), searchCmd(e), showCmd(e), browseCmd(e))
	return root
}
