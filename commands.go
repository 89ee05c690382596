package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/harrisonrobin/taskmerge/pkg/auth"
	"github.com/harrisonrobin/taskmerge/pkg/config"
	"github.com/harrisonrobin/taskmerge/pkg/google"
	"github.com/harrisonrobin/taskmerge/pkg/model"
	"github.com/harrisonrobin/taskmerge/pkg/orgmode"
	"github.com/harrisonrobin/taskmerge/pkg/remote"
	"github.com/harrisonrobin/taskmerge/pkg/render"
	"github.com/harrisonrobin/taskmerge/pkg/session"
	"github.com/harrisonrobin/taskmerge/pkg/taskwarrior"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

const (
	flagPriority = "priority"
	flagFilter   = "filter"
	flagYes      = "yes"
	flagTag      = "tag"
	flagFile     = "file"
	flagFormat   = "format"
)

func commands() []*cli.Command {
	return []*cli.Command{
		addCommand(),
		listCommand(),
		toggleCommand(),
		deleteCommand(),
		priorityCommand(),
		clearCommand(),
		importCommand(),
		importOrgCommand(),
		importTaskwarriorCommand(),
		exportCommand(),
		filterCommand(),
		authCommand(),
		configCommand(),
	}
}

func parsePriority(raw string) (model.Priority, error) {
	priority, ok := model.ParsePriority(raw)
	if !ok {
		names := make([]string, 0, len(model.Priorities))
		for _, p := range model.Priorities {
			names = append(names, string(p))
		}
		return "", errors.Errorf("invalid priority '%s', expected one of %s", raw, strings.Join(names, ", "))
	}
	return priority, nil
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Add a task",
		ArgsUsage: "TEXT",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagPriority,
				Aliases: []string{"p"},
				Value:   string(model.PriorityMedium),
				Usage:   "Task priority (low, medium, high)",
			},
		},
		Action: func(cCtx *cli.Context) error {
			priority, err := parsePriority(cCtx.String(flagPriority))
			if err != nil {
				return err
			}

			text := strings.Join(cCtx.Args().Slice(), " ")
			if strings.TrimSpace(text) == "" {
				return errors.New("task text is required")
			}

			env, err := openEnvironment(cCtx, true)
			if err != nil {
				return err
			}
			defer env.Close()

			task, err := env.service.Add(cCtx.Context, text, priority)
			if err != nil {
				return errors.WithStack(err)
			}

			env.printer.Task(task)
			return nil
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List tasks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagFilter,
				Aliases: []string{"f"},
				Usage:   "Filter to apply (all, active, completed); defaults to the session filter",
			},
		},
		Action: func(cCtx *cli.Context) error {
			env, err := openEnvironment(cCtx, false)
			if err != nil {
				return err
			}
			defer env.Close()

			filter := env.session.Filter()
			if cCtx.IsSet(flagFilter) {
				filter = model.ParseFilter(cCtx.String(flagFilter))
			}

			store := env.service.Store()
			total, done := store.Stats()
			env.printer.Tasks(store.Filtered(filter), total, done)
			return nil
		},
	}
}

// withTask resolves the first argument to a task id before running fn.
func withTask(fn func(cCtx *cli.Context, env *environment, id model.ID) error) cli.ActionFunc {
	return func(cCtx *cli.Context) error {
		if cCtx.Args().Len() < 1 {
			return errors.New("a task id is required")
		}

		env, err := openEnvironment(cCtx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		id, err := env.service.Resolve(cCtx.Args().First())
		if err != nil {
			return err
		}
		return fn(cCtx, env, id)
	}
}

func toggleCommand() *cli.Command {
	return &cli.Command{
		Name:      "toggle",
		Aliases:   []string{"done"},
		Usage:     "Flip a task between active and completed",
		ArgsUsage: "ID",
		Action: withTask(func(cCtx *cli.Context, env *environment, id model.ID) error {
			task, err := env.service.Toggle(cCtx.Context, id)
			if err != nil {
				return err
			}
			env.printer.Task(task)
			return nil
		}),
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete a task",
		ArgsUsage: "ID",
		Action: withTask(func(cCtx *cli.Context, env *environment, id model.ID) error {
			task, err := env.service.Delete(cCtx.Context, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cCtx.App.Writer, "Deleted %q\n", task.Text)
			return nil
		}),
	}
}

func priorityCommand() *cli.Command {
	return &cli.Command{
		Name:      "priority",
		Usage:     "Change the priority of a task",
		ArgsUsage: "ID LEVEL",
		Action: withTask(func(cCtx *cli.Context, env *environment, id model.ID) error {
			priority, err := parsePriority(cCtx.Args().Get(1))
			if err != nil {
				return err
			}

			task, err := env.service.UpdatePriority(cCtx.Context, id, priority)
			if err != nil {
				return err
			}
			env.printer.Task(task)
			return nil
		}),
	}
}

func clearCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Remove every completed task",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagYes,
				Aliases: []string{"y"},
				Usage:   "Do not ask for confirmation",
			},
		},
		Action: func(cCtx *cli.Context) error {
			env, err := openEnvironment(cCtx, true)
			if err != nil {
				return err
			}
			defer env.Close()

			_, done := env.service.Store().Stats()
			if done == 0 {
				fmt.Fprintln(cCtx.App.Writer, "No completed tasks.")
				return nil
			}

			if !cCtx.Bool(flagYes) {
				fmt.Fprintf(cCtx.App.Writer, "Remove %d completed task(s)? [y/N] ", done)
				answer, _ := bufio.NewReader(cCtx.App.Reader).ReadString('\n')
				if !confirmed(answer) {
					fmt.Fprintln(cCtx.App.Writer, "Aborted.")
					return nil
				}
			}

			removed, err := env.service.ClearCompleted(cCtx.Context)
			if err != nil {
				return err
			}
			fmt.Fprintf(cCtx.App.Writer, "Removed %d task(s)\n", len(removed))
			return nil
		},
	}
}

func confirmed(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Add the remote tasks that are not in the local list yet",
		Action: func(cCtx *cli.Context) error {
			env, err := openEnvironment(cCtx, true)
			if err != nil {
				return err
			}
			defer env.Close()

			added, err := env.service.Import(cCtx.Context)
			if errors.Is(err, remote.ErrOffline) {
				return errors.New("no remote backend available, check 'backend' in the configuration or drop --offline")
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cCtx.App.Writer, "Imported %d task(s)\n", added)
			return nil
		},
	}
}

func importOrgCommand() *cli.Command {
	return &cli.Command{
		Name:      "import-org",
		Usage:     "Add TODO and DONE headlines from Org-mode files",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagTag,
				Aliases: []string{"t"},
				Usage:   "Only import headlines carrying this tag",
			},
		},
		Action: func(cCtx *cli.Context) error {
			if cCtx.Args().Len() == 0 {
				return errors.New("at least one org file is required")
			}

			entries, err := orgmode.ParseFiles(cCtx.Args().Slice())
			if err != nil {
				return err
			}
			if tag := cCtx.String(flagTag); tag != "" {
				entries = orgmode.FilterByTag(entries, tag)
			}

			env, err := openEnvironment(cCtx, false)
			if err != nil {
				return err
			}
			defer env.Close()

			added, err := env.service.ImportDrafts(cCtx.Context, orgmode.Drafts(entries))
			if err != nil {
				return err
			}

			fmt.Fprintf(cCtx.App.Writer, "Imported %d of %d headline(s)\n", added, len(entries))
			return nil
		},
	}
}

func importTaskwarriorCommand() *cli.Command {
	return &cli.Command{
		Name:      "import-taskwarrior",
		Usage:     "Add tasks from Taskwarrior, running 'task export' unless --file is given",
		ArgsUsage: "[FILTER...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagFile,
				Usage: "Read a 'task export' dump from this file ('-' for stdin)",
			},
			&cli.StringFlag{
				Name:    flagTag,
				Aliases: []string{"t"},
				Usage:   "Only import tasks carrying this tag",
			},
		},
		Action: func(cCtx *cli.Context) error {
			var (
				tasks []taskwarrior.Task
				err   error
			)
			switch file := cCtx.String(flagFile); file {
			case "":
				tasks, err = taskwarrior.NewClient().Export(cCtx.Context, cCtx.Args().Slice())
			case "-":
				tasks, err = taskwarrior.ParseTasks(cCtx.App.Reader)
			default:
				var f *os.File
				if f, err = os.Open(file); err != nil {
					return errors.WithStack(err)
				}
				defer f.Close()
				tasks, err = taskwarrior.ParseTasks(f)
			}
			if err != nil {
				return err
			}

			env, err := openEnvironment(cCtx, false)
			if err != nil {
				return err
			}
			defer env.Close()

			drafts := taskwarrior.Drafts(tasks, cCtx.String(flagTag))
			added, err := env.service.ImportDrafts(cCtx.Context, drafts)
			if err != nil {
				return err
			}

			fmt.Fprintf(cCtx.App.Writer, "Imported %d of %d task(s)\n", added, len(drafts))
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write the task list to stdout",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagFormat,
				Value: render.FormatJSON,
				Usage: "Output format (json, yaml)",
			},
		},
		Action: func(cCtx *cli.Context) error {
			env, err := openEnvironment(cCtx, false)
			if err != nil {
				return err
			}
			defer env.Close()

			return render.Export(cCtx.App.Writer, env.service.Store().All(), cCtx.String(flagFormat))
		},
	}
}

func filterCommand() *cli.Command {
	return &cli.Command{
		Name:      "filter",
		Usage:     "Show or set the filter used by 'list' in this session",
		ArgsUsage: "[all|active|completed]",
		Action: func(cCtx *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			state := session.Open(config.AppName, cfg.Session)

			if cCtx.Args().Len() == 0 {
				fmt.Fprintln(cCtx.App.Writer, state.Filter())
				return nil
			}

			filter := model.ParseFilter(cCtx.Args().First())
			if err := state.SetFilter(filter); err != nil {
				return err
			}
			fmt.Fprintln(cCtx.App.Writer, filter)
			return nil
		},
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize access to Google Tasks",
		Action: func(cCtx *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if err := auth.Reset(cfg.Dir()); err != nil {
				return err
			}

			if _, err := auth.GetClient(cCtx.Context, cfg.Dir(), google.Scopes, cCtx.App.ErrWriter); err != nil {
				return errors.Wrap(err, "authentication failed")
			}

			fmt.Fprintf(cCtx.App.Writer, "Authentication successful! Token saved in %s\n", cfg.Dir())
			return nil
		},
	}
}

func configCommand() *cli.Command {
	const (
		flagSetBackend    = "set-backend"
		flagSetBaseURL    = "set-base-url"
		flagSetToken      = "set-token"
		flagSetTaskList   = "set-task-list"
		flagSetStorage    = "set-storage"
		flagSetFetchLimit = "set-fetch-limit"
	)

	return &cli.Command{
		Name:  "config",
		Usage: "Show or change the configuration",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagSetBackend, Usage: "Remote backend (rest, google, none)"},
			&cli.StringFlag{Name: flagSetBaseURL, Usage: "Base url of the REST to-do API"},
			&cli.StringFlag{Name: flagSetToken, Usage: "Bearer token for the REST to-do API, kept in the OS keyring (empty to remove)"},
			&cli.StringFlag{Name: flagSetTaskList, Usage: "Google Tasks list name"},
			&cli.StringFlag{Name: flagSetStorage, Usage: "Local storage (json, sqlite)"},
			&cli.IntFlag{Name: flagSetFetchLimit, Usage: "Number of remote tasks fetched by 'import'"},
		},
		Action: func(cCtx *cli.Context) error {
			// Changes are applied to the file contents alone so that
			// TASKMERGE_* overrides never end up persisted.
			stored, err := config.ReadFile(config.GetConfigPath())
			if err != nil {
				return err
			}

			changed := false
			set := func(flag string, target *string) {
				if cCtx.IsSet(flag) {
					*target = cCtx.String(flag)
					changed = true
				}
			}
			set(flagSetBackend, &stored.Backend)
			set(flagSetBaseURL, &stored.BaseURL)
			set(flagSetTaskList, &stored.TaskList)
			set(flagSetStorage, &stored.Storage)
			if cCtx.IsSet(flagSetFetchLimit) {
				stored.FetchLimit = cCtx.Int(flagSetFetchLimit)
				changed = true
			}

			if cCtx.IsSet(flagSetToken) {
				if err := config.StoreToken(cCtx.String(flagSetToken)); err != nil {
					return err
				}
			}

			if changed {
				if err := stored.Normalize(); err != nil {
					return err
				}
				if err := config.Save(stored); err != nil {
					return err
				}
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			w := cCtx.App.Writer
			fmt.Fprintf(w, "config:      %s\n", config.GetConfigPath())
			fmt.Fprintf(w, "backend:     %s\n", cfg.Backend)
			fmt.Fprintf(w, "base_url:    %s\n", cfg.BaseURL)
			fmt.Fprintf(w, "token:       %s\n", tokenState(cfg.Token))
			fmt.Fprintf(w, "task_list:   %s\n", cfg.TaskList)
			fmt.Fprintf(w, "user_id:     %d\n", cfg.UserID)
			fmt.Fprintf(w, "fetch_limit: %d\n", cfg.FetchLimit)
			fmt.Fprintf(w, "storage:     %s\n", cfg.Storage)
			fmt.Fprintf(w, "data:        %s\n", cfg.DataFile())
			fmt.Fprintf(w, "session:     %s\n", cfg.Session)
			return nil
		},
	}
}

func tokenState(token string) string {
	if token == "" {
		return "not set"
	}
	return "set"
}
