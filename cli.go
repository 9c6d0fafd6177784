package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"markestedt/cliptrans/cache"
	"markestedt/cliptrans/config"
	"markestedt/cliptrans/pipeline"
	"markestedt/cliptrans/platform"
	"markestedt/cliptrans/storage"
	"markestedt/cliptrans/systray"
	"markestedt/cliptrans/translate"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp() *cli.App {
	app := &cli.App{
		Name:    "cliptrans",
		Usage:   "Press Ctrl+C twice to translate the clipboard",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: config.Path(), Usage: "Config file path"},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
		},
		Before: func(c *cli.Context) error {
			setupLogging(c)
			return nil
		},
		Commands: []*cli.Command{
			runCmd(),
			translateCmd(),
			historyCmd(),
			clearCmd(),
			glossaryCmd(),
		},
	}
	// Errors are printed by main so tests can inspect them
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// loadConfig reads the config named by the global flag
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	slog.Debug("Configuration loaded", "path", path)
	return cfg, nil
}

// openStore loads the config and opens its database
func openStore(c *cli.Context) (*config.Config, *storage.DB, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	db, err := storage.Open(cfg.Cache.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return cfg, db, nil
}

// runCmd creates the run command.
func runCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run in the background, translating on double Ctrl+C",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-tray", Usage: "Do not show a system tray icon"},
		},
		Action: func(c *cli.Context) error {
			cfg, db, err := openStore(c)
			if err != nil {
				return err
			}
			defer db.Close()

			agent, err := NewAgent(cfg, db)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer cancel()

			errCh := make(chan error, 1)
			go func() {
				errCh <- agent.Run(ctx)
				cancel()
			}()

			if c.Bool("no-tray") {
				<-ctx.Done()
				return <-errCh
			}

			tray := systray.NewManager(agent.DashboardURL(), nil)
			go func() {
				select {
				case <-tray.WaitForQuit():
					cancel()
				case <-ctx.Done():
					tray.Stop()
				}
			}()
			tray.Run()
			cancel()

			err = <-errCh
			slog.Info("cliptrans stopped")
			return err
		},
	}
}

// translateCmd creates the translate command.
func translateCmd() *cli.Command {
	return &cli.Command{
		Name:      "translate",
		Usage:     "Translate text once (argument, piped stdin, or the clipboard)",
		ArgsUsage: "[text]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "style", Aliases: []string{"s"}, Usage: "Translation style (" + strings.Join(translate.Styles(), ", ") + ")"},
		},
		Action: func(c *cli.Context) error {
			cfg, db, err := openStore(c)
			if err != nil {
				return err
			}
			defer db.Close()

			if style := c.String("style"); style != "" {
				cfg.Translation.Style = style
			}
			if !slices.Contains(translate.Styles(), cfg.Translation.Style) {
				slog.Warn("Unknown style, using Academic wording", "style", cfg.Translation.Style)
			}

			client, err := translate.NewClient(cfg.Translation, db)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			source, err := textSource(c)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			out := &writerSink{w: c.App.Writer}
			tc := cache.New(db, cache.Options{Fuzzy: cfg.Cache.Fuzzy, Threshold: cfg.Cache.Threshold})
			p := pipeline.New(tc, client, out, pipeline.Options{
				Attempts: cfg.Capture.Attempts,
				Interval: cfg.Capture.Interval(),
				Style:    cfg.Translation.Style,
			})

			if id := p.Run(c.Context, source); id == "" {
				return cli.Exit("nothing to translate", 1)
			}
			if out.err != "" {
				return cli.Exit(out.err, 1)
			}
			return nil
		},
	}
}

// textSource picks the translate input: arguments, then piped stdin, then
// the clipboard
func textSource(c *cli.Context) (pipeline.TextProvider, error) {
	if c.NArg() > 0 {
		text := strings.Join(c.Args().Slice(), " ")
		return func() (string, error) { return text, nil }, nil
	}
	if stdinHasData() {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		text := string(data)
		return func() (string, error) { return text, nil }, nil
	}
	return platform.NewClipboard().Get, nil
}

// stdinHasData returns true if stdin has piped data.
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// writerSink streams a translation to a terminal
type writerSink struct {
	w   io.Writer
	err string
}

func (s *writerSink) OnLoadingStarted(string)      {}
func (s *writerSink) OnSourceKnown(string, string) {}

func (s *writerSink) OnChunk(_ string, text string) {
	fmt.Fprint(s.w, text)
}

func (s *writerSink) OnFinished(_ string, r pipeline.Result) {
	if r.Match != cache.Miss {
		// Cached results arrive whole
		fmt.Fprint(s.w, r.Text)
		slog.Debug("Served from cache", "match", r.Match, "score", r.Score)
	}
	fmt.Fprintln(s.w)
}

func (s *writerSink) OnError(_ string, message string) {
	s.err = message
}

// historyCmd creates the history command.
func historyCmd() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent translations",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "Maximum records"},
		},
		Action: func(c *cli.Context) error {
			_, db, err := openStore(c)
			if err != nil {
				return err
			}
			defer db.Close()

			records, err := db.RecentHistory(c.Context, c.Int("limit"))
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTYLE\tWHEN\tORIGINAL\tTRANSLATION")
			for _, r := range records {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
					r.ID, r.Style, r.CreatedAt.Format("2006-01-02 15:04"),
					ellipsis(r.OriginalText, 40), ellipsis(r.Translation, 40))
			}
			return tw.Flush()
		},
	}
}

// clearCmd creates the clear command.
func clearCmd() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Delete all cached translations (irreversible)",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Usage: "Confirm deletion"},
		},
		Action: func(c *cli.Context) error {
			if !c.Bool("yes") {
				return cli.Exit("refusing to clear history without --yes", 1)
			}

			_, db, err := openStore(c)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := db.ClearHistory(c.Context)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Deleted %d translations\n", n)
			return nil
		},
	}
}

// glossaryCmd creates the glossary command group.
func glossaryCmd() *cli.Command {
	return &cli.Command{
		Name:  "glossary",
		Usage: "Manage preferred term translations",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a term",
				ArgsUsage: "<term> <translation>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "context", Value: storage.DefaultTermContext, Usage: "Subject area"},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return cli.Exit("usage: glossary add <term> <translation>", 1)
					}
					return withStore(c, func(ctx context.Context, db *storage.DB) error {
						t, err := db.AddTerm(ctx, c.Args().Get(0), c.Args().Get(1), c.String("context"))
						if errors.Is(err, storage.ErrTermExists) || errors.Is(err, storage.ErrInvalidTerm) {
							return cli.Exit(err.Error(), 1)
						}
						if err != nil {
							return err
						}
						fmt.Fprintf(c.App.Writer, "Added term %d: %s -> %s\n", t.ID, t.Term, t.Definition)
						return nil
					})
				},
			},
			{
				Name:  "list",
				Usage: "List terms",
				Action: func(c *cli.Context) error {
					return withStore(c, func(ctx context.Context, db *storage.DB) error {
						terms, err := db.ListTerms(ctx)
						if err != nil {
							return err
						}
						tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
						fmt.Fprintln(tw, "ID\tTERM\tTRANSLATION\tCONTEXT")
						for _, t := range terms {
							fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", t.ID, t.Term, t.Definition, t.Context)
						}
						return tw.Flush()
					})
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a term by ID",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					id, err := strconv.ParseInt(c.Args().First(), 10, 64)
					if err != nil {
						return cli.Exit("usage: glossary delete <id>", 1)
					}
					return withStore(c, func(ctx context.Context, db *storage.DB) error {
						if err := db.DeleteTerm(ctx, id); errors.Is(err, storage.ErrTermNotFound) {
							return cli.Exit(err.Error(), 1)
						} else if err != nil {
							return err
						}
						fmt.Fprintf(c.App.Writer, "Deleted term %d\n", id)
						return nil
					})
				},
			},
		},
	}
}

func withStore(c *cli.Context, fn func(context.Context, *storage.DB) error) error {
	_, db, err := openStore(c)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(c.Context, db)
}

func ellipsis(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
