package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"

	"github.com/bornholm/go-x/slogx"
	"github.com/harrisonrobin/taskmerge/pkg/auth"
	"github.com/harrisonrobin/taskmerge/pkg/config"
	"github.com/harrisonrobin/taskmerge/pkg/google"
	"github.com/harrisonrobin/taskmerge/pkg/index"
	"github.com/harrisonrobin/taskmerge/pkg/reconcile"
	"github.com/harrisonrobin/taskmerge/pkg/remote"
	"github.com/harrisonrobin/taskmerge/pkg/remote/rest"
	"github.com/harrisonrobin/taskmerge/pkg/render"
	"github.com/harrisonrobin/taskmerge/pkg/session"
	"github.com/harrisonrobin/taskmerge/pkg/storage"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

const handleIndexFile = "handles.json"

// environment is what every task command works against.
type environment struct {
	cfg     *config.Config
	service *reconcile.Service
	storage storage.Storage
	session *session.State
	printer *render.Printer
}

// openEnvironment loads the configuration and the task snapshot. The remote
// backend is only contacted when online is set and --offline is not.
func openEnvironment(cCtx *cli.Context, online bool) (*environment, error) {
	cCtx.Context = slogx.WithAttrs(cCtx.Context, slog.String("command", cCtx.Command.Name))
	ctx := cCtx.Context

	cfg, err := config.Load()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	store, err := storage.Open(cfg.Storage, cfg.DataFile())
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var client remote.Client
	if online && !cCtx.Bool(flagOffline) {
		client, err = newRemote(ctx, cfg, cCtx.App.ErrWriter)
		if err != nil {
			slog.WarnContext(ctx, "remote backend unavailable, working locally", slogx.Error(err))
			fmt.Fprintf(cCtx.App.ErrWriter, "Warning: remote backend unavailable, working locally: %v\n", err)
			client = nil
		}
	}

	errWriter := cCtx.App.ErrWriter
	service := reconcile.New(store,
		reconcile.WithRemote(client),
		reconcile.WithUserID(cfg.UserID),
		reconcile.WithFetchLimit(cfg.FetchLimit),
		reconcile.WithNotifier(func(ctx context.Context, msg string, err error) {
			slog.DebugContext(ctx, msg, slogx.Error(err))
			fmt.Fprintf(errWriter, "Warning: %s: %v\n", msg, err)
		}),
	)

	if err := service.Open(ctx); err != nil {
		store.Close()
		return nil, errors.WithStack(err)
	}

	return &environment{
		cfg:     cfg,
		service: service,
		storage: store,
		session: session.Open(config.AppName, cfg.Session),
		printer: render.NewPrinter(cCtx.App.Writer),
	}, nil
}

func (e *environment) Close() {
	if err := e.storage.Close(); err != nil {
		slog.Warn("could not close storage", slogx.Error(err))
	}
}

func newRemote(ctx context.Context, cfg *config.Config, prompt io.Writer) (remote.Client, error) {
	switch cfg.Backend {
	case config.BackendNone:
		return nil, nil

	case config.BackendGoogle:
		httpClient, err := auth.GetClient(ctx, cfg.Dir(), google.Scopes, prompt)
		if err != nil {
			return nil, errors.Wrap(err, "could not authenticate with google")
		}

		idx, err := index.Open(filepath.Join(cfg.Dir(), handleIndexFile))
		if err != nil {
			return nil, errors.WithStack(err)
		}

		client, err := google.NewClient(ctx, httpClient, cfg.TaskList, idx)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return client, nil

	default:
		baseURL, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid base url '%s'", cfg.BaseURL)
		}

		opts := []rest.OptionFunc{rest.WithBaseURL(baseURL)}
		if cfg.Token != "" {
			opts = append(opts, rest.WithToken(cfg.Token))
		}
		return rest.New(opts...), nil
	}
}
