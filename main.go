package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lotas/lesezeichen/internal/analyzer"
	"github.com/lotas/lesezeichen/internal/applog"
	"github.com/lotas/lesezeichen/internal/bookmarks"
	"github.com/lotas/lesezeichen/internal/config"
	"github.com/lotas/lesezeichen/internal/export"
	"github.com/lotas/lesezeichen/internal/firefox"
	"github.com/lotas/lesezeichen/internal/history"
	"github.com/lotas/lesezeichen/internal/host"
	"github.com/lotas/lesezeichen/internal/pageinfo"
	"github.com/lotas/lesezeichen/internal/server"
	"github.com/lotas/lesezeichen/internal/tui"
)

func main() {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		fatal(err)
	}
	if cfg.DataDir != "" {
		if err := applog.Init(cfg.DataDir); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
		}
		defer applog.Close()
	}

	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "":
		err = runTUI(cfg, args)
	case "serve":
		err = runServe(cfg, args)
	case "profiles":
		err = runProfiles()
	case "export":
		err = runExport(cfg, args)
	case "check":
		err = runCheck(cfg, args)
	case "history":
		err = runHistory(cfg, args)
	case "favicon":
		err = runFavicon(cfg, args)
	case "help":
		printHelp()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n\n", cmd)
		printHelp()
		os.Exit(2)
	}
	if err != nil {
		applog.Close()
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printHelp() {
	fmt.Print(`lesezeichen: Firefox bookmarks on a new-tab page and in the terminal

Usage:
  lesezeichen                                Start the TUI (default)
    --profile <name>       Firefox profile name (default: Firefox's default profile)
    --read-only            Work on a copy of places.sqlite; edits are refused
    --firefox <path>       Firefox binary used to open tabs (default: firefox)
    --demo                 Use built-in demo bookmarks instead of a profile

  lesezeichen serve                          Serve the new-tab page on 127.0.0.1
    --port <n>             HTTP port (default: 19192)
    --cors <origins>       Comma-separated origins allowed to call /api
    --launch               Open tabs with the Firefox binary instead of the page
    --cache-backend <b>    Favicon cache: sqlite or file (default: sqlite)
    --cache-days <n>       Days before the favicon cache expires (default: 7)
    --favicon-timeout <d>  Timeout per favicon probe (default: 1s)
    --history-max <n>      Maximum history entries shown (default: 50)
    --demo, --profile, --read-only as above

  lesezeichen export                         Export bookmarks to stdout or file
    --format <f>           markdown, json, html or jsonlz4 (default: markdown)
    --out <path>           Output file; for jsonlz4 the backup directory
    --profile <name>       Firefox profile name

  lesezeichen check                          Report duplicates, empty folders,
    --days <n>             bookmarks unvisited for n days (default: 90)
    --dead                 Also check every link with a HEAD request

  lesezeichen history                        Print recent history
    --query <text>         Only entries whose title or URL contains text
    --max <n>              Maximum entries (default: 50)

  lesezeichen favicon <url>...               Resolve favicons through the cache
    --clear                Empty the favicon cache first

  lesezeichen profiles                       List Firefox profiles

Configuration is read from ~/.config/lesezeichen/config.yaml (or
$LESEZEICHEN_CONFIG), then LESEZEICHEN_* environment variables, then flags.

Environment:
  LESEZEICHEN_PROFILE, LESEZEICHEN_PORT, LESEZEICHEN_DATA_DIR,
  LESEZEICHEN_CACHE_BACKEND, LESEZEICHEN_CACHE_DAYS, LESEZEICHEN_FAVICON_TIMEOUT,
  LESEZEICHEN_ALLOWED_ORIGINS, LESEZEICHEN_HISTORY_MAX, LESEZEICHEN_FIREFOX,
  LESEZEICHEN_READ_ONLY
`)
}

func runTUI(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("lesezeichen", flag.ExitOnError)
	cfg.Bind(fs, "profile", "read-only", "firefox", "history-max")
	demo := fs.Bool("demo", false, "Use built-in demo bookmarks")
	fs.Parse(args)

	src, err := openSource(cfg, *demo)
	if err != nil {
		return err
	}
	defer src.Close()

	tabs := src.tabs
	if tabs == nil {
		tabs = firefox.Launcher{Binary: cfg.FirefoxBinary, Profile: src.profile.Path}
	}
	model := tui.NewModel(tui.Options{
		Bookmarks:  bookmarks.NewService(src.bookmarks),
		History:    src.history,
		Tabs:       tabs,
		Titles:     pageinfo.NewFetcher(15 * time.Second),
		HistoryMax: cfg.HistoryMax,
		Profile:    src.profile.Name,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func runServe(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfg.Bind(fs, "profile", "port", "data-dir", "favicon-timeout", "cache-days", "cache-backend", "history-max", "firefox", "read-only")
	demo := fs.Bool("demo", false, "Use built-in demo bookmarks")
	corsFlag := fs.String("cors", "", "Comma-separated origins allowed to call /api")
	launch := fs.Bool("launch", false, "Open tabs with the Firefox binary")
	fs.Parse(args)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	src, err := openSource(cfg, *demo)
	if err != nil {
		return err
	}
	defer src.Close()

	icons, closeCache, err := openFavicons(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	var tabs host.TabOpener
	if *launch {
		tabs = firefox.Launcher{Binary: cfg.FirefoxBinary, Profile: src.profile.Path}
	}
	var origins []string
	for _, o := range strings.Split(*corsFlag, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	srv := server.New(server.Options{
		Port:           cfg.Port,
		Bookmarks:      src.bookmarks,
		History:        src.history,
		Favicons:       icons,
		Titles:         pageinfo.NewFetcher(15 * time.Second),
		Tabs:           tabs,
		HistoryMax:     cfg.HistoryMax,
		AllowedOrigins: origins,
	})
	if len(src.watch) > 0 {
		go func() {
			if err := srv.Watch(ctx, src.watch...); err != nil {
				applog.Error("server.watch", err)
				fmt.Fprintf(os.Stderr, "Warning: not watching %s for changes: %v\n", src.profile.Name, err)
			}
		}()
	}

	fmt.Fprintf(os.Stderr, "Serving %s bookmarks on http://127.0.0.1:%d/\n", src.profile.Name, cfg.Port)
	return srv.ListenAndServe(ctx)
}

func runProfiles() error {
	profiles, err := firefox.DiscoverProfiles()
	if err != nil {
		return fmt.Errorf("discover Firefox profiles: %w", err)
	}
	if len(profiles) == 0 {
		return fmt.Errorf("no Firefox profiles found")
	}

	for _, p := range profiles {
		suffix := ""
		if p.IsDefault {
			suffix = " [default]"
		}
		fmt.Printf("%s (%s)%s\n", p.Name, p.Path, suffix)
	}
	return nil
}

func runExport(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	cfg.Bind(fs, "profile")
	format := fs.String("format", "markdown", "markdown, json, html or jsonlz4")
	outFile := fs.String("out", "", "Output file path (default: stdout)")
	demo := fs.Bool("demo", false, "Export the built-in demo bookmarks")
	fs.Parse(args)

	cfg.ReadOnly = true
	src, err := openSource(cfg, *demo)
	if err != nil {
		return err
	}
	defer src.Close()
	ctx := context.Background()

	if *format == "jsonlz4" {
		roots, err := src.bookmarks.Tree(ctx)
		if err != nil {
			return fmt.Errorf("load bookmarks: %w", err)
		}
		dir := *outFile
		if dir == "" {
			dir = "."
		}
		path, err := firefox.WriteBackup(dir, roots, time.Now())
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	}

	forest, err := bookmarks.NewService(src.bookmarks).Tree(ctx)
	if err != nil {
		return err
	}
	var output string
	switch *format {
	case "markdown", "md":
		output = export.Markdown(src.profile.Name, forest)
	case "json":
		output, err = export.JSON(src.profile.Name, forest)
		if err != nil {
			return fmt.Errorf("generate JSON: %w", err)
		}
	case "html", "netscape":
		output = export.Netscape(forest, time.Now())
	default:
		return fmt.Errorf("unknown export format %q", *format)
	}

	if *outFile != "" {
		if err := os.WriteFile(*outFile, []byte(output), 0644); err != nil {
			return fmt.Errorf("write %s: %w", *outFile, err)
		}
		return nil
	}
	fmt.Print(output)
	return nil
}

func runCheck(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	cfg.Bind(fs, "profile")
	days := fs.Int("days", 90, "Report bookmarks not visited for this many days")
	dead := fs.Bool("dead", false, "Check every link with a HEAD request")
	demo := fs.Bool("demo", false, "Check the built-in demo bookmarks")
	fs.Parse(args)

	cfg.ReadOnly = true
	src, err := openSource(cfg, *demo)
	if err != nil {
		return err
	}
	defer src.Close()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	forest, err := bookmarks.NewService(src.bookmarks).Tree(ctx)
	if err != nil {
		return err
	}
	entries := analyzer.Flatten(forest)
	dups := analyzer.Duplicates(entries)

	since := time.Now().AddDate(0, 0, -*days)
	visited, err := src.history.Search(ctx, host.HistoryQuery{StartTime: since.UnixMilli()})
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	unvisited := analyzer.Unvisited(entries, visited)

	var deadResults []analyzer.DeadLinkResult
	if *dead {
		fmt.Fprintf(os.Stderr, "Checking %d links...\n", len(entries))
		results := make(chan analyzer.DeadLinkResult, len(entries))
		analyzer.DeadLinks(ctx, nil, entries, results)
		close(results)
		for r := range results {
			deadResults = append(deadResults, r)
		}
	}

	stats := analyzer.ComputeStats(forest, dups, deadResults, unvisited)
	fmt.Printf("%d bookmarks in %d folders (depth %d)\n", stats.Bookmarks, stats.Folders, stats.MaxDepth)

	if len(dups) > 0 {
		fmt.Printf("\nDuplicates (%d bookmarks):\n", stats.Duplicates)
		for _, g := range dups {
			fmt.Printf("  %s\n", g[0].URL)
			for _, e := range g {
				fmt.Printf("    - %s (%s)\n", e.Title, e.Folder)
			}
		}
	}
	if empty := analyzer.EmptyFolders(forest); len(empty) > 0 {
		fmt.Printf("\nEmpty folders (%d):\n", len(empty))
		for _, id := range empty {
			if f := bookmarks.FindFolderByID(forest, id); f != nil {
				fmt.Printf("  - %s\n", f.Title)
			}
		}
	}
	if len(unvisited) > 0 {
		fmt.Printf("\nNot visited in %d days (%d):\n", *days, len(unvisited))
		for _, e := range unvisited {
			fmt.Printf("  - %s  %s\n", e.Title, e.URL)
		}
	}
	if stats.Dead > 0 {
		fmt.Printf("\nDead links (%d):\n", stats.Dead)
		for _, r := range deadResults {
			if r.IsDead {
				e := entries[r.Index]
				fmt.Printf("  - [%s] %s  %s\n", r.Reason, e.Title, e.URL)
			}
		}
	}
	return nil
}

func runHistory(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	cfg.Bind(fs, "profile")
	query := fs.String("query", "", "Only entries whose title or URL contains text")
	maxItems := fs.Int("max", history.DefaultMax, "Maximum entries")
	demo := fs.Bool("demo", false, "Use the built-in demo history")
	fs.Parse(args)

	cfg.ReadOnly = true
	src, err := openSource(cfg, *demo)
	if err != nil {
		return err
	}
	defer src.Close()

	items, err := history.Recent(context.Background(), src.history, *maxItems, time.Now())
	if err != nil {
		return err
	}
	for _, item := range history.Filter(items, *query) {
		visited := time.UnixMilli(item.LastVisitTime).Format("2006-01-02 15:04")
		fmt.Printf("%s  %s\n  %s\n", visited, item.Title, item.URL)
	}
	return nil
}

func runFavicon(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("favicon", flag.ExitOnError)
	cfg.Bind(fs, "data-dir", "favicon-timeout", "cache-days", "cache-backend")
	clearCache := fs.Bool("clear", false, "Empty the favicon cache first")
	fs.Parse(args)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	icons, closeCache, err := openFavicons(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	if *clearCache {
		icons.Clear(ctx)
		fmt.Fprintln(os.Stderr, "Favicon cache cleared.")
	}
	urls := fs.Args()
	for i, icon := range icons.GetAll(ctx, urls) {
		if len(icon) > 80 {
			icon = icon[:79] + "…"
		}
		fmt.Printf("%s\t%s\n", urls[i], icon)
	}
	return nil
}
