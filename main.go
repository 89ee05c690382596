package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/bornholm/go-x/slogx"
	"github.com/harrisonrobin/taskmerge/pkg/config"
	"github.com/urfave/cli/v2"
)

const (
	flagLogLevel = "log-level"
	flagDebug    = "debug"
	flagOffline  = "offline"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := &cli.App{
		Name:     config.AppName,
		Usage:    "a task list that keeps local tasks in step with a remote to-do service",
		Commands: commands(),
		Before: func(ctx *cli.Context) error {
			slogLevel := slog.LevelWarn

			switch ctx.String(flagLogLevel) {
			case "debug":
				slogLevel = slog.LevelDebug
			case "info":
				slogLevel = slog.LevelInfo
			case "warn":
				slogLevel = slog.LevelWarn
			case "error":
				slogLevel = slog.LevelError
			}
			if ctx.Bool(flagDebug) {
				slogLevel = slog.LevelDebug
			}

			logger := slog.New(slogx.ContextHandler{
				Handler: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
					Level:     slogLevel,
					AddSource: ctx.Bool(flagDebug),
				}),
			})
			slog.SetDefault(logger)

			return nil
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				EnvVars: []string{"TASKMERGE_DEBUG"},
				Usage:   "Toggle debug mode",
			},
			&cli.StringFlag{
				Name:    flagLogLevel,
				EnvVars: []string{"TASKMERGE_LOG_LEVEL"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
			&cli.BoolFlag{
				Name:    flagOffline,
				EnvVars: []string{"TASKMERGE_OFFLINE"},
				Usage:   "Do not contact the remote backend",
			},
		},
	}

	app.ExitErrHandler = func(ctx *cli.Context, err error) {
		if err == nil {
			return
		}

		if !ctx.Bool(flagDebug) {
			fmt.Fprintf(ctx.App.ErrWriter, "Error: %v\n", err)
		} else {
			fmt.Fprintf(ctx.App.ErrWriter, "Error: %+v\n", err)
		}
	}

	sort.Sort(cli.FlagsByName(app.Flags))
	sort.Sort(cli.CommandsByName(app.Commands))

	return app
}
