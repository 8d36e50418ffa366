package main

import (
	"errors"
	"fmt"
	"go/build"
	"io"
	"path/filepath"
	"strings"

	"github.com/gophersatwork/doublet"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cliConfig is the merged configuration from flags, DOUBLET_* environment
// variables and the optional config file.
type cliConfig struct {
	Path       []string
	Override   []string
	Provider   string
	MaxEntries int
	Threads    bool
	LogLevel   string
	DumpDir    string
}

// app carries the state shared by the subcommands.
type app struct {
	v     *viper.Viper
	hooks *doublet.ShutdownHooks
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), hooks: doublet.NewShutdownHooks()}
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "doublet",
		Short: "Find resources provided by more than one container",
		Long: `doublet scans a search path of directories and zip archives (jar, war, zip,
including archives nested inside archives) and reports entry names that
more than one container provides. Doublets whose copies differ in content
are reported as incompatible.

Examples:
  doublet scan --path lib/a.jar --path lib/b.jar
  doublet incompatible --path 'lib/*.jar'
  doublet which META-INF/plugin.xml --path 'lib/*.jar'
  doublet dump reports --provider go`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadConfig(cmd, cfgFile)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.hooks.Run()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "YAML config file")
	flags.StringSlice("path", nil, "explicit search path entries (repeatable, list separator allowed)")
	flags.StringSlice("override", nil, "search path override, replaces the explicit path and the provider")
	flags.String("provider", "none", "container provider: none, go")
	flags.Int("max-entries", 0, "cap on listed entries, 0 for unlimited")
	flags.Bool("threads", doublet.DefaultConfig().MultiThreadingEnabled, "compare doublets in parallel")
	flags.String("log-level", "warn", "log level: trace, debug, info, warn, error")
	flags.String("dump-dir", "", "write reports to this directory on exit")

	cmd.AddCommand(
		newScanCmd(a),
		newNamesCmd(a),
		newDoubletsCmd(a),
		newIncompatibleCmd(a),
		newWhichCmd(a),
		newDumpCmd(a),
	)
	return cmd
}

// loadConfig binds the flags and reads the environment and config file.
func (a *app) loadConfig(cmd *cobra.Command, cfgFile string) error {
	a.v.SetEnvPrefix("DOUBLET")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	if cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
		a.v.SetConfigType("yaml")
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}
	return nil
}

func (a *app) config() cliConfig {
	return cliConfig{
		Path:       splitEntries(a.v.GetStringSlice("path")),
		Override:   splitEntries(a.v.GetStringSlice("override")),
		Provider:   a.v.GetString("provider"),
		MaxEntries: a.v.GetInt("max-entries"),
		Threads:    a.v.GetBool("threads"),
		LogLevel:   a.v.GetString("log-level"),
		DumpDir:    a.v.GetString("dump-dir"),
	}
}

// splitEntries splits every entry on the OS list separator, so a single
// environment variable can carry a whole search path.
func splitEntries(entries []string) []string {
	var out []string
	for _, e := range entries {
		for _, p := range filepath.SplitList(e) {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func newLogger(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(lvl).With().Timestamp().Logger(), nil
}

func providerFor(name string) (any, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return nil, nil
	case "go":
		return &build.Default, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// open creates the monitor for a subcommand. It is registered with the
// shutdown hooks so --dump-dir reports are written when the command ends.
func (a *app) open(cmd *cobra.Command) (*doublet.Monitor, error) {
	cfg := a.config()

	log, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	provider, err := providerFor(cfg.Provider)
	if err != nil {
		return nil, err
	}

	options := []doublet.Option{
		doublet.WithExplicitPath(cfg.Path...),
		doublet.WithMultiThreading(cfg.Threads),
		doublet.WithMaxDiagnosticEntries(cfg.MaxEntries),
		doublet.WithLogger(log),
		doublet.WithShutdownRegistrar(a.hooks),
		doublet.WithDumpDir(cfg.DumpDir),
	}
	if len(cfg.Override) > 0 {
		options = append(options, doublet.WithSearchPathOverride(cfg.Override...))
	}
	if provider != nil {
		options = append(options, doublet.WithProvider(provider))
	}

	m, err := doublet.Open(options...)
	if err != nil {
		var ve *doublet.ValidationError
		if errors.As(err, &ve) {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return nil, err
	}
	return m, nil
}
