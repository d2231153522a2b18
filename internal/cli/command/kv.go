package command

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/webstore-go/internal/cli/output"
	"github.com/yndnr/webstore-go/internal/config"
	"github.com/yndnr/webstore-go/internal/core/service"
)

// entryResult is the structured form of a read.
type entryResult struct {
	Key     string `json:"key" yaml:"key"`
	Backend string `json:"backend" yaml:"backend"`
	Value   any    `json:"value" yaml:"value"`
}

// ttlResult describes the remaining lifetime of an entry.
type ttlResult struct {
	Key       string    `json:"key" yaml:"key"`
	Expires   bool      `json:"expires" yaml:"expires"`
	Remaining string    `json:"remaining,omitempty" yaml:"remaining,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty" table:"wide"`
}

func writeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:    "ttl",
			Aliases: []string{"t"},
			Usage:   "Expire the entry after this duration (e.g., 30m, 12h)",
		},
		&cli.BoolFlag{
			Name:    "encrypt",
			Aliases: []string{"e"},
			Usage:   "Encrypt the value (requires --secret)",
		},
		&cli.BoolFlag{
			Name:  "raw",
			Usage: "Store VALUE as a string even if it parses as JSON",
		},
		&cli.StringFlag{
			Name:  "cookie-path",
			Usage: "Cookie path attribute",
		},
		&cli.BoolFlag{
			Name:  "cookie-secure",
			Usage: "Set the cookie Secure attribute",
		},
		&cli.StringFlag{
			Name:  "same-site",
			Usage: "Cookie SameSite attribute: Strict, Lax, None",
		},
	}
}

// SetCommand returns the set command.
func SetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Store a value",
		ArgsUsage: "KEY VALUE",
		Flags:     writeFlags(),
		Action:    setAction,
	}
}

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Read a value",
		ArgsUsage: "KEY",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "raw",
				Usage: "Print string values without JSON quoting",
			},
		},
		Action: getAction,
	}
}

// RemoveCommand returns the rm command.
func RemoveCommand() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Aliases:   []string{"remove", "del"},
		Usage:     "Remove one or more keys",
		ArgsUsage: "KEY...",
		Action:    removeAction,
	}
}

// KeysCommand returns the keys command.
func KeysCommand() *cli.Command {
	return &cli.Command{
		Name:   "keys",
		Usage:  "List keys of the namespace",
		Action: keysAction,
	}
}

// HasCommand returns the has command.
func HasCommand() *cli.Command {
	return &cli.Command{
		Name:      "has",
		Usage:     "Report whether a key is present (expired entries count as present)",
		ArgsUsage: "KEY",
		Action:    hasAction,
	}
}

// ClearCommand returns the clear command.
func ClearCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Remove every key of the namespace from the backend",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Skip confirmation",
			},
		},
		Action: clearAction,
	}
}

// TTLCommand returns the ttl command.
func TTLCommand() *cli.Command {
	return &cli.Command{
		Name:      "ttl",
		Usage:     "Show the remaining lifetime of a key",
		ArgsUsage: "KEY",
		Action:    ttlAction,
	}
}

// parseValue treats the argument as JSON when it parses, otherwise as a
// string.
func parseValue(arg string, raw bool) any {
	if !raw && json.Valid([]byte(arg)) {
		return json.RawMessage(arg)
	}
	return arg
}

// writeOptions builds the per-call options from the write flags.
func writeOptions(c *cli.Context) ([]service.Option, error) {
	var opts []service.Option
	if c.IsSet("ttl") {
		opts = append(opts, service.WithTTL(c.Duration("ttl")))
	}
	if c.Bool("encrypt") {
		opts = append(opts, service.WithEncryption())
	}
	if p := c.String("cookie-path"); p != "" {
		opts = append(opts, service.WithCookiePath(p))
	}
	if c.IsSet("cookie-secure") {
		opts = append(opts, service.WithCookieSecure(c.Bool("cookie-secure")))
	}
	if s := c.String("same-site"); s != "" {
		mode, err := config.ParseSameSite(s)
		if err != nil {
			return nil, err
		}
		opts = append(opts, service.WithCookieSameSite(mode))
	}
	return opts, nil
}

func requireArgs(c *cli.Context, n int, usage string) error {
	if c.NArg() < n {
		return cli.Exit(fmt.Sprintf("usage: %s %s", c.Command.FullName(), usage), 2)
	}
	return nil
}

func setAction(c *cli.Context) error {
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
	value := parseValue(c.Args().Get(1), c.Bool("raw"))
	return env.Manager.Set(env.Context(c), key, value, opts...)
}

func getAction(c *cli.Context) error {
	if err := requireArgs(c, 1, "KEY"); err != nil {
		return err
	}
	env, err := GetEnv(c)
	if err != nil {
		return err
	}

	key := c.Args().First()
	var value any
	ok, err := env.Manager.Get(env.Context(c), key, &value)
	if err != nil {
		return err
	}
	if !ok {
		return cli.Exit(fmt.Sprintf("key %q not found", key), 1)
	}
	if str, isString := value.(string); isString && c.Bool("raw") && env.format == output.FormatTable {
		_, err = fmt.Fprintln(env.Out, str)
		return err
	}
	return printValue(env, key, env.Config.DefaultStorage, value)
}

// printValue writes a read result. The table format prints the bare JSON
// value so it can be piped.
func printValue(env *Env, key, backend string, value any) error {
	if env.format == output.FormatTable {
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(env.Out, string(raw))
		return err
	}
	return env.Print(entryResult{Key: key, Backend: backend, Value: value})
}

func removeAction(c *cli.Context) error {
	if err := requireArgs(c, 1, "KEY..."); err != nil {
		return err
	}
	env, err := GetEnv(c)
	if err != nil {
		return err
	}

	ctx := env.Context(c)
	for _, key := range c.Args().Slice() {
		if err := env.Manager.Remove(ctx, key); err != nil {
			return fmt.Errorf("remove %q: %w", key, err)
		}
	}
	return nil
}

func keysAction(c *cli.Context) error {
	env, err := GetEnv(c)
	if err != nil {
		return err
	}

	keys, err := env.Manager.Keys(env.Context(c))
	if err != nil {
		return err
	}
	if env.format == output.FormatTable {
		if len(keys) > 0 {
			_, err = fmt.Fprintln(env.Out, strings.Join(keys, "\n"))
		}
		return err
	}
	return env.Print(keys)
}

func hasAction(c *cli.Context) error {
	if err := requireArgs(c, 1, "KEY"); err != nil {
		return err
	}
	env, err := GetEnv(c)
	if err != nil {
		return err
	}

	ok, err := env.Manager.Has(env.Context(c), c.Args().First())
	if err != nil {
		return err
	}
	if env.format == output.FormatTable {
		_, err = fmt.Fprintln(env.Out, ok)
		return err
	}
	return env.Print(map[string]bool{"exists": ok})
}

func clearAction(c *cli.Context) error {
	if !c.Bool("force") {
		return cli.Exit("refusing to clear without --force", 2)
	}
	env, err := GetEnv(c)
	if err != nil {
		return err
	}
	return env.Manager.Clear(env.Context(c))
}

func ttlAction(c *cli.Context) error {
	if err := requireArgs(c, 1, "KEY"); err != nil {
		return err
	}
	env, err := GetEnv(c)
	if err != nil {
		return err
	}

	key := c.Args().First()
	ctx := env.Context(c)
	has, err := env.Manager.Has(ctx, key)
	if err != nil {
		return err
	}
	if !has {
		return cli.Exit(fmt.Sprintf("key %q not found", key), 1)
	}

	remaining, expires, err := env.Manager.TTL(ctx, key)
	if err != nil {
		return err
	}
	if !expires {
		// TTL evicts an entry that expired since the Has probe.
		if still, err := env.Manager.Has(ctx, key); err != nil || !still {
			return cli.Exit(fmt.Sprintf("key %q not found", key), 1)
		}
	}

	result := ttlResult{Key: key, Expires: expires}
	if expires {
		remaining = remaining.Round(time.Millisecond)
		result.Remaining = remaining.String()
		result.ExpiresAt = time.Now().Add(remaining).UTC().Truncate(time.Second)
	}
	if env.format == output.FormatTable && !env.wide {
		if !expires {
			_, err = fmt.Fprintln(env.Out, "no expiry")
		} else {
			_, err = fmt.Fprintln(env.Out, result.Remaining)
		}
		return err
	}
	return env.Print(result)
}
