package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/webstore-go/internal/cli/output"
	"github.com/yndnr/webstore-go/internal/config"
	"github.com/yndnr/webstore-go/internal/core/service"
	"github.com/yndnr/webstore-go/internal/infra/buildinfo"
	"github.com/yndnr/webstore-go/internal/storage"
	"github.com/yndnr/webstore-go/internal/telemetry/logger"
	"github.com/yndnr/webstore-go/internal/telemetry/metric"
)

const envKey = "env"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "webstore",
		Usage:   "Namespaced key-value storage over browser-style backends",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			SetCommand(),
			GetCommand(),
			RemoveCommand(),
			KeysCommand(),
			HasCommand(),
			ClearCommand(),
			TTLCommand(),
			BackendsCommand(),
			FallbackCommand(),
			WatchCommand(),
			ConfigCommand(),
			VersionCommand(),
		},
		Metadata: map[string]any{},
		After: func(c *cli.Context) error {
			if env, ok := c.App.Metadata[envKey].(*Env); ok {
				delete(c.App.Metadata, envKey)
				return env.Close()
			}
			return nil
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML configuration file",
			EnvVars: []string{"WEBSTORE_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "data-dir",
			Aliases: []string{"d"},
			Usage:   "Directory persisting localStorage and IndexedDB (default: user config dir)",
		},
		&cli.BoolFlag{
			Name:  "memory",
			Usage: "Keep everything in memory for this invocation",
		},
		&cli.StringFlag{
			Name:    "namespace",
			Aliases: []string{"n"},
			Usage:   "Key namespace",
		},
		&cli.StringFlag{
			Name:    "storage",
			Aliases: []string{"s"},
			Usage:   "Backend: localStorage, sessionStorage, cookie, indexedDB",
		},
		&cli.StringFlag{
			Name:    "secret",
			Usage:   "Enable encryption with this secret",
			EnvVars: []string{"WEBSTORE_SECRET"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Config    string
	DataDir   string
	Memory    bool
	Namespace string
	Storage   string
	Secret    string
	Output    string
	Wide      bool
	LogLevel  string
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Config:    c.String("config"),
		DataDir:   c.String("data-dir"),
		Memory:    c.Bool("memory"),
		Namespace: c.String("namespace"),
		Storage:   c.String("storage"),
		Secret:    c.String("secret"),
		Output:    c.String("output"),
		Wide:      c.Bool("wide"),
		LogLevel:  c.String("log-level"),
	}
}

// overrides turns the global flags into configuration overrides.
func (f *GlobalFlags) overrides() map[string]any {
	o := make(map[string]any)
	if f.DataDir != "" {
		o["origin.data_dir"] = f.DataDir
	}
	if f.Namespace != "" {
		o["namespace"] = f.Namespace
	}
	if f.Storage != "" {
		o["default_storage"] = f.Storage
	}
	if f.Secret != "" {
		o["encryption.enabled"] = true
		o["encryption.secret"] = f.Secret
	}
	if f.LogLevel != "" {
		o["log.level"] = f.LogLevel
	}
	return o
}

// loadConfig resolves the configuration for this invocation.
func loadConfig(flags *GlobalFlags) (*config.Config, error) {
	cfg, _, err := loadConfigSources(flags)
	return cfg, err
}

// loadConfigSources is loadConfig that also reports the source of each
// key set by the file, the environment or a flag.
func loadConfigSources(flags *GlobalFlags) (*config.Config, map[string]string, error) {
	overrides := flags.overrides()
	if flags.Memory {
		delete(overrides, "origin.data_dir")
	} else if _, set := overrides["origin.data_dir"]; !set {
		if dir, err := defaultDataDir(); err == nil {
			overrides["origin.data_dir"] = dir
		}
	}

	cfg, sources, err := config.LoadWithSources(flags.Config, overrides)
	if err != nil {
		return nil, nil, err
	}
	if flags.Memory {
		cfg.Origin.DataDir = ""
	}
	return cfg, sources, nil
}

// defaultDataDir is <user config dir>/webstore.
func defaultDataDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "webstore"), nil
}

// Env is what one invocation works with.
type Env struct {
	Config  *config.Config
	Logger  logger.Logger
	Metrics *metric.Registry
	Origin  *storage.Origin
	Manager *service.Manager

	Out    io.Writer
	format output.Format
	wide   bool
}

// GetEnv opens the origin and manager on first use. The App's After hook
// closes them.
func GetEnv(c *cli.Context) (*Env, error) {
	if env, ok := c.App.Metadata[envKey].(*Env); ok {
		return env, nil
	}

	flags := ParseGlobalFlags(c)
	format, err := output.ParseFormat(flags.Output)
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	env, err := openEnv(cfg, c.App.ErrWriter)
	if err != nil {
		return nil, err
	}
	if c.App.Writer != nil {
		env.Out = c.App.Writer
	}
	env.format = format
	env.wide = flags.Wide

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[envKey] = env
	return env, nil
}

func openEnv(cfg *config.Config, logOut io.Writer) (*Env, error) {
	if logOut == nil {
		logOut = os.Stderr
	}
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: logOut,
	})
	if err != nil {
		return nil, err
	}

	origin, err := storage.Open(cfg.StorageConfig(log.With("component", "origin").Slog()))
	if err != nil {
		return nil, fmt.Errorf("open origin: %w", err)
	}

	metrics := metric.NewRegistry()
	if err := metrics.Register(metric.NewCollector(origin)); err != nil {
		origin.Close()
		return nil, err
	}

	scfg, err := cfg.ServiceConfig(log.Slog(), metrics)
	if err != nil {
		origin.Close()
		return nil, err
	}
	mgr, err := service.NewManager(origin, scfg)
	if err != nil {
		origin.Close()
		return nil, err
	}

	log.Debug("environment opened",
		"origin", cfg.Origin.Name,
		"data_dir", cfg.Origin.DataDir,
		"context_id", mgr.ContextID(),
	)

	return &Env{
		Config:  cfg,
		Logger:  log.With("context_id", mgr.ContextID()),
		Metrics: metrics,
		Origin:  origin,
		Manager: mgr,
		Out:     os.Stdout,
		format:  output.FormatTable,
	}, nil
}

// Close releases the manager and origin.
func (e *Env) Close() error {
	var result *multierror.Error
	if err := e.Manager.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := e.Origin.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// Print renders data in the selected output format.
func (e *Env) Print(data any) error {
	return output.NewFormatter(e.format, e.wide).Format(e.Out, data)
}

// Context returns the context for storage calls, carrying the
// environment logger.
func (e *Env) Context(c *cli.Context) context.Context {
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.WithContextID(ctx, e.Manager.ContextID())
	return logger.WithLogger(ctx, e.Logger)
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
