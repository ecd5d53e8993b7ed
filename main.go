// main.go - Entry point and dependency injection
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"
	"golang.org/x/term"

	"github.com/sstent/garminexport/internal/config"
	"github.com/sstent/garminexport/internal/csvexport"
	"github.com/sstent/garminexport/internal/database"
	"github.com/sstent/garminexport/internal/export"
	"github.com/sstent/garminexport/internal/garmin"
	"github.com/sstent/garminexport/internal/parser"
	"github.com/sstent/garminexport/internal/web"
)

const version = "3.0.0"

type App struct {
	opts    cliOptions
	cfg     config.Config
	logger  *log.Logger
	garmin  *garmin.Client
	ledger  *database.SQLiteDB
	service *export.Service
	cron    *cron.Cron
	server  *http.Server

	// ctx outlives HTTP requests so runs they trigger keep going.
	ctx     context.Context
	runMu   sync.Mutex
	running sync.WaitGroup
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if opts.version {
		fmt.Println("garminexport", version)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.NewWithOptions(os.Stderr, log.Options{Level: opts.verbosity.level(), ReportTimestamp: true})
	app := &App{opts: opts, logger: logger, ctx: ctx}

	fmt.Println("Welcome to Garmin Connect Exporter!")
	err = app.init(ctx)
	if err == nil {
		err = app.start(ctx)
	}
	app.stop()

	if ctx.Err() != nil && (err == nil || errors.Is(err, context.Canceled)) {
		fmt.Println("Interrupted")
		return
	}
	if err != nil {
		logger.Error("Export failed", "err", err)
		os.Exit(1)
	}
}

func (app *App) init(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if app.opts.ledger != "" {
		cfg.LedgerPath = app.opts.ledger
	}
	if app.opts.httpAddr != "" {
		cfg.HTTPAddress = app.opts.httpAddr
	}
	app.cfg = cfg

	tmpl, err := csvexport.LoadTemplate(app.opts.template)
	if err != nil {
		return err
	}

	app.garmin, err = garmin.NewClient(cfg, garmin.WithLogger(app.logger))
	if err != nil {
		return err
	}
	creds, err := app.credentials(ctx)
	if err != nil {
		return err
	}
	if _, err := app.garmin.Login(ctx, creds); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	// The ledger is bookkeeping; an export still runs without it.
	serviceOpts := []export.Option{
		export.WithLogger(app.logger),
		export.WithProgress(os.Stdout),
		export.WithInspector(parser.NewInspector()),
	}
	if app.ledger, err = database.NewSQLiteDB(cfg.LedgerPath); err != nil {
		if app.opts.schedule != "" {
			return fmt.Errorf("failed to open ledger: %w", err)
		}
		app.logger.Warn("Export ledger unavailable", "path", cfg.LedgerPath, "err", err)
	} else {
		serviceOpts = append(serviceOpts, export.WithLedger(app.ledger))
	}

	app.service = export.NewService(app.garmin, cfg, export.Options{
		Directory:    app.opts.directory,
		Subdir:       app.opts.subdir,
		Format:       app.opts.format,
		Unzip:        app.opts.unzip,
		OriginalTime: app.opts.originalTime,
		Desc:         app.opts.desc.enabled,
		DescLength:   app.opts.desc.length,
		FilePrefix:   app.opts.filePrefix,
		Template:     tmpl,
	}, serviceOpts...)

	if app.opts.schedule != "" {
		app.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
		app.server = &http.Server{
			Addr:              cfg.HTTPAddress,
			Handler:           web.NewRouter(web.NewWebHandler(app.ledger, app, app.logger)),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	return nil
}

// credentials takes username and password from the flags, then the
// environment, and prompts for whatever is still missing. An interrupt
// during a prompt cancels ctx and ends the wait.
func (app *App) credentials(ctx context.Context) (garmin.Credentials, error) {
	creds := garmin.Credentials{Username: app.opts.username, Password: app.opts.password}
	if creds.Username == "" {
		creds.Username = app.cfg.Username
	}
	if creds.Password == "" {
		creds.Password = app.cfg.Password
	}

	var err error
	if creds.Username == "" {
		fmt.Print("Username: ")
		creds.Username, err = readInput(ctx, func() (string, error) {
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			return strings.TrimSpace(line), err
		})
		if err != nil {
			return creds, fmt.Errorf("failed to read username: %w", err)
		}
	}
	if creds.Password == "" {
		fd := int(os.Stdin.Fd())
		// ReadPassword turns echo off; put the terminal back even if the
		// prompt is abandoned.
		if state, err := term.GetState(fd); err == nil {
			defer term.Restore(fd, state)
		}
		fmt.Print("Password (will not be echoed): ")
		creds.Password, err = readInput(ctx, func() (string, error) {
			pw, err := term.ReadPassword(fd)
			return string(pw), err
		})
		fmt.Println()
		if err != nil {
			return creds, fmt.Errorf("failed to read password: %w", err)
		}
	}
	return creds, nil
}

// readInput runs a blocking terminal read and gives up when ctx is done.
func readInput(ctx context.Context, read func() (string, error)) (string, error) {
	type result struct {
		value string
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := read()
		done <- result{v, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.value, r.err
	}
}

func (app *App) start(ctx context.Context) error {
	if app.cron == nil {
		return app.runExport(ctx)
	}

	if _, err := app.cron.AddFunc(app.opts.schedule, func() {
		app.logger.Info("Starting scheduled export...")
		if err := app.runExport(ctx); err != nil && !errors.Is(err, web.ErrRunInProgress) {
			app.logger.Error("Scheduled export failed", "err", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", app.opts.schedule, err)
	}
	app.cron.Start()

	go func() {
		app.logger.Info("Server starting", "addr", app.server.Addr)
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("Server error", "err", err)
		}
	}()

	<-ctx.Done()
	return nil
}

// Start begins an export in the background unless one is running.
func (app *App) Start(context.Context) error {
	if !app.runMu.TryLock() {
		return web.ErrRunInProgress
	}
	app.running.Add(1)
	go func() {
		defer app.running.Done()
		defer app.runMu.Unlock()
		if err := app.export(app.ctx); err != nil {
			app.logger.Error("Triggered export failed", "err", err)
		}
	}()
	return nil
}

// runExport runs one export in the foreground. Runs never overlap.
func (app *App) runExport(ctx context.Context) error {
	if !app.runMu.TryLock() {
		return web.ErrRunInProgress
	}
	defer app.runMu.Unlock()
	return app.export(ctx)
}

func (app *App) export(ctx context.Context) error {
	summary, err := app.service.Run(ctx, app.opts.count)
	if err != nil {
		return err
	}
	fmt.Printf("Export completed to %s (%d processed, %d downloaded, %d skipped)\n",
		app.opts.directory, summary.Processed, summary.Downloaded, summary.Skipped)

	if app.opts.external != "" {
		return app.runExternal(ctx, summary.CSVPath)
	}
	return nil
}

// runExternal hands the CSV to the --external program.
func (app *App) runExternal(ctx context.Context, csvPath string) error {
	args := append(strings.Fields(app.opts.externalArgs), csvPath)
	app.logger.Info("Running external program", "program", app.opts.external, "args", args)

	cmd := exec.CommandContext(ctx, app.opts.external, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("external program %s: %w", app.opts.external, err)
	}
	return nil
}

func (app *App) stop() {
	app.logger.Info("Shutting down...")

	if app.cron != nil {
		<-app.cron.Stop().Done()
	}

	if app.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.server.Shutdown(ctx); err != nil {
			app.logger.Error("Server shutdown error", "err", err)
		}
	}
	app.running.Wait()

	if app.ledger != nil {
		app.ledger.Close()
	}

	app.logger.Info("Shutdown complete")
}
