package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/webstore-go/internal/cli/output"
	"github.com/yndnr/webstore-go/internal/core/domain"
)

// backendRow is one line of the backends listing.
type backendRow struct {
	Backend    string `json:"backend" yaml:"backend"`
	Available  bool   `json:"available" yaml:"available"`
	Async      bool   `json:"async" yaml:"async"`
	Persistent bool   `json:"persistent" yaml:"persistent"`
	Shared     bool   `json:"shared" yaml:"shared"`
	Notifies   bool   `json:"notifies" yaml:"notifies" table:"wide"`
	MaxBytes   int64  `json:"max_bytes" yaml:"max_bytes" table:"wide"`
	PerEntry   bool   `json:"per_entry_limit" yaml:"per_entry_limit" table:"wide"`
	Entries    int    `json:"entries" yaml:"entries"`
	UsageBytes int64  `json:"usage_bytes" yaml:"usage_bytes"`
	QuotaBytes int64  `json:"quota_bytes" yaml:"quota_bytes" table:"wide"`
}

// fallbackResult reports where a fallback operation landed.
type fallbackResult struct {
	Key     string `json:"key" yaml:"key"`
	Backend string `json:"backend" yaml:"backend"`
}

// BackendsCommand returns the backends command.
func BackendsCommand() *cli.Command {
	return &cli.Command{
		Name:   "backends",
		Usage:  "List backends with availability, capabilities and usage",
		Action: backendsAction,
	}
}

// FallbackCommand returns the fallback subcommand group.
func FallbackCommand() *cli.Command {
	return &cli.Command{
		Name:  "fallback",
		Usage: "Write to or read from the first backend that works",
		Subcommands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Store a value in the first backend that accepts it",
				ArgsUsage: "KEY VALUE",
				Flags:     writeFlags(),
				Action:    fallbackSetAction,
			},
			{
				Name:      "get",
				Usage:     "Read a value from the first backend that holds it",
				ArgsUsage: "KEY",
				Action:    fallbackGetAction,
			},
		},
	}
}

func backendsAction(c *cli.Context) error {
	env, err := GetEnv(c)
	if err != nil {
		return err
	}

	rows := make([]backendRow, 0, domain.BackendCount)
	byBackend := make(map[domain.Backend]int, domain.BackendCount)
	for _, b := range domain.Backends() {
		caps, err := env.Manager.Capabilities(b)
		if err != nil {
			return err
		}
		byBackend[b] = len(rows)
		rows = append(rows, backendRow{
			Backend:    b.String(),
			Available:  env.Manager.IsAvailable(b),
			Async:      caps.Async,
			Persistent: caps.Persistent,
			Shared:     caps.Shared,
			Notifies:   caps.Notifies,
			MaxBytes:   caps.MaxBytes,
			PerEntry:   caps.PerEntryLimit,
		})
	}
	for _, s := range env.Origin.Stats() {
		if i, ok := byBackend[s.Backend]; ok {
			rows[i].Entries = s.Entries
			rows[i].UsageBytes = s.UsageBytes
			rows[i].QuotaBytes = s.QuotaBytes
		}
	}
	return env.Print(rows)
}

func fallbackSetAction(c *cli.Context) error {
	if err := requireArgs(c, 2, "KEY VALUE"); err != nil {
		return err
	}
	env, err := GetEnv(c)
	if err != nil {
		return err
	}
	opts, err := writeOptions(c)
	if err != nil {
		return err
	}

	key := c.Args().Get(0)
	b, err := env.Manager.SetWithFallback(env.Context(c), key, parseValue(c.Args().Get(1), c.Bool("raw")), opts...)
	if err != nil {
		return err
	}
	env.Logger.Debug("fallback write", "key", key, "backend", b.String())

	if env.format == output.FormatTable {
		_, err = fmt.Fprintln(env.Out, b.String())
		return err
	}
	return env.Print(fallbackResult{Key: key, Backend: b.String()})
}

func fallbackGetAction(c *cli.Context) error {
	if err := requireArgs(c, 1, "KEY"); err != nil {
		return err
	}
	env, err := GetEnv(c)
	if err != nil {
		return err
	}

	key := c.Args().First()
	var value any
	b, ok, err := env.Manager.GetWithFallback(env.Context(c), key, &value)
	if err != nil {
		return err
	}
	if !ok {
		return cli.Exit(fmt.Sprintf("key %q not found in any backend", key), 1)
	}
	return printValue(env, key, b.String(), value)
}
