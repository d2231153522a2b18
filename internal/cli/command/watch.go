package command

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/webstore-go/internal/cli/output"
	"github.com/yndnr/webstore-go/internal/core/service"
	"github.com/yndnr/webstore-go/internal/infra/shutdown"
	"github.com/yndnr/webstore-go/internal/server/httpserver"
	"github.com/yndnr/webstore-go/pkg/observe"
)

// changeLine is one printed change.
type changeLine struct {
	Time   time.Time       `json:"time" yaml:"time"`
	Key    string          `json:"key" yaml:"key"`
	Exists bool            `json:"exists" yaml:"exists"`
	Value  json.RawMessage `json:"value,omitempty" yaml:"-"`
	Source string          `json:"source" yaml:"source"`
}

// WatchCommand returns the watch command.
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Stream localStorage changes made by other contexts",
		ArgsUsage: "KEY...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "http-addr",
				Aliases: []string{"metrics-addr"},
				Usage:   "Serve metrics and a read-only inspection API on this address while watching",
			},
			&cli.StringSliceFlag{
				Name:  "allow",
				Value: cli.NewStringSlice("127.0.0.1", "::1"),
				Usage: "IPs or CIDR blocks allowed to query the inspection API",
			},
			&cli.DurationFlag{
				Name:  "shutdown-timeout",
				Value: 5 * time.Second,
				Usage: "Time allowed for cleanup on exit",
			},
		},
		Action: watchAction,
	}
}

func watchAction(c *cli.Context) error {
	if err := requireArgs(c, 1, "KEY..."); err != nil {
		return err
	}
	env, err := GetEnv(c)
	if err != nil {
		return err
	}

	ctx := env.Context(c)
	h := shutdown.NewHandler(c.Duration("shutdown-timeout"))

	var mu sync.Mutex
	onChange := func(ch service.Change) {
		mu.Lock()
		defer mu.Unlock()
		if err := printChange(env, ch); err != nil {
			env.Logger.Warn("print change", "key", ch.Key, "error", err)
		}
	}

	subs := make([]*observe.Subscription, 0, c.NArg())
	for _, key := range c.Args().Slice() {
		sub, err := env.Manager.Local().Watch(ctx, key, onChange)
		if err != nil {
			for _, s := range subs {
				s.Stop()
			}
			return err
		}
		subs = append(subs, sub)
	}
	h.OnShutdown(func(context.Context) error {
		for _, s := range subs {
			s.Stop()
		}
		return nil
	})

	if addr := c.String("http-addr"); addr != "" {
		rcfg := httpserver.DefaultRouterConfig()
		rcfg.Manager = env.Manager
		rcfg.Metrics = env.Metrics.Handler()
		rcfg.Logger = env.Logger.Slog()
		rcfg.AllowList = c.StringSlice("allow")

		srv := httpserver.New(addr, httpserver.NewRouter(rcfg), rcfg.Logger)
		if err := srv.Start(); err != nil {
			return err
		}
		h.OnShutdown(srv.Shutdown)
	}

	env.Logger.Info("watching", "keys", c.Args().Slice())
	return h.Wait(ctx)
}

func printChange(env *Env, ch service.Change) error {
	line := changeLine{
		Time:   time.Now().UTC(),
		Key:    ch.Key,
		Exists: ch.Exists,
		Value:  ch.Value,
		Source: ch.Source,
	}
	switch env.format {
	case output.FormatJSON:
		raw, err := json.Marshal(line)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(env.Out, string(raw))
		return err
	case output.FormatYAML:
		return env.Print([]changeLine{line})
	default:
		value := "(removed)"
		if ch.Exists {
			value = string(ch.Value)
		}
		_, err := fmt.Fprintf(env.Out, "%s\t%s\t%s\n", line.Time.Format(time.RFC3339), ch.Key, value)
		return err
	}
}
