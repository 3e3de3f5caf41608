// Package cli builds the docmanager command line: the HTTP server and
// one-shot queries against configured collections.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nimburion/docmanager/pkg/config"
	"github.com/nimburion/docmanager/pkg/observability/logger"
)

// Options configures the root command.
type Options struct {
	Name        string
	Description string
	ConfigPath  string
	EnvPrefix   string
	Out         io.Writer
}

// rootFlags are the persistent flags shared by every command.
type rootFlags struct {
	configPath string
	output     string
	envPrefix  string
}

// NewRootCommand creates the CLI with serve, list, count, group, find,
// config and version subcommands.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Name == "" {
		opts.Name = "docmanager"
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	flags := &rootFlags{envPrefix: opts.EnvPrefix}
	root := &cobra.Command{
		Use:           opts.Name,
		Short:         opts.Description,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(opts.Out)

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", opts.ConfigPath, "config file path")
	pf.StringVarP(&flags.output, "output", "o", string(outputJSON), "output format (json, yaml)")
	config.RegisterFlags(pf)

	root.AddCommand(
		newServeCommand(flags),
		newListCommand(flags),
		newCountCommand(flags),
		newGroupCommand(flags),
		newFindCommand(flags),
		newSaveCommand(flags),
		newRemoveCommand(flags),
		newDispatchCommand(flags),
		newConfigCommand(flags),
		newVersionCommand(opts.Name),
	)
	return root
}

// Execute runs the command and exits with appropriate code.
func Execute(cmd *cobra.Command) {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// LoadConfigAndLogger loads configuration from file, environment and flags
// and creates the logger it describes. close flushes the logger.
func LoadConfigAndLogger(cfgPath, envPrefix string, flags *pflag.FlagSet) (cfg *config.Config, log logger.Logger, close func(), err error) {
	cfg, err = config.NewViperLoader(cfgPath, envPrefix).WithFlags(flags).Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	level, _ := logger.ParseLogLevel(cfg.Observability.LogLevel)
	format, _ := logger.ParseLogFormat(cfg.Observability.LogFormat)
	base, err := logger.NewZapLogger(logger.Config{Level: level, Format: format})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create logger: %w", err)
	}
	async := cfg.Observability.AsyncLogging
	log = logger.WrapAsync(base, logger.AsyncConfig{
		Enabled:      async.Enabled,
		QueueSize:    async.QueueSize,
		WorkerCount:  async.WorkerCount,
		DropWhenFull: async.DropWhenFull,
	})

	close = func() {
		if a, ok := log.(*logger.AsyncLogger); ok {
			a.Close()
		}
		_ = base.Sync()
	}

	if level == logger.DebugLevel {
		log.Debug("effective configuration", "config", fmt.Sprintf("%+v", cfg.Redacted()))
	}
	return cfg, log, close, nil
}

func (f *rootFlags) load(cmd *cobra.Command) (*config.Config, logger.Logger, func(), error) {
	if _, err := parseOutputFormat(f.output); err != nil {
		return nil, nil, nil, err
	}
	return LoadConfigAndLogger(f.configPath, f.envPrefix, cmd.Flags())
}

func (f *rootFlags) format() outputFormat {
	format, _ := parseOutputFormat(f.output)
	return format
}

func parseOutputFormat(s string) (outputFormat, error) {
	switch outputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", outputJSON:
		return outputJSON, nil
	case outputYAML, "yml":
		return outputYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (supported: json, yaml)", s)
	}
}
