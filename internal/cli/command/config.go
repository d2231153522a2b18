package command

import (
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/webstore-go/internal/cli/output"
	"github.com/yndnr/webstore-go/internal/config"
	"github.com/yndnr/webstore-go/internal/infra/buildinfo"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the effective configuration (secrets masked)",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "sources",
						Usage: "List the keys set by the file, the environment or flags instead",
					},
				},
				Action: configShow,
			},
			{
				Name:      "validate",
				Usage:     "Validate a configuration file",
				ArgsUsage: "FILE",
				Action:    configValidate,
			},
		},
	}
}

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			return formatter(c).Format(c.App.Writer, buildinfo.Get())
		},
	}
}

// formatter returns the formatter selected by the global flags, without
// opening the environment.
func formatter(c *cli.Context) output.Formatter {
	flags := ParseGlobalFlags(c)
	format, err := output.ParseFormat(flags.Output)
	if err != nil {
		format = output.FormatTable
	}
	if format == output.FormatTable {
		// Nested sections do not fit a two-column table.
		format = output.FormatYAML
	}
	return output.NewFormatter(format, flags.Wide)
}

// sourceRow is one line of config show --sources.
type sourceRow struct {
	Key    string `json:"key" yaml:"key"`
	Source string `json:"source" yaml:"source"`
}

func configShow(c *cli.Context) error {
	cfg, sources, err := loadConfigSources(ParseGlobalFlags(c))
	if err != nil {
		return err
	}
	if !c.Bool("sources") {
		return formatter(c).Format(c.App.Writer, config.Sanitize(cfg))
	}

	rows := make([]sourceRow, 0, len(sources))
	for key, source := range sources {
		rows = append(rows, sourceRow{Key: key, Source: source})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })

	format, err := output.ParseFormat(ParseGlobalFlags(c).Output)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	return output.NewFormatter(format, false).Format(c.App.Writer, rows)
}

func configValidate(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("configuration file path required", 2)
	}

	if _, err := config.Load(path, nil); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	_, err := fmt.Fprintf(c.App.Writer, "configuration file is valid: %s\n", path)
	return err
}
