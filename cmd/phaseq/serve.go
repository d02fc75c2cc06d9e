package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"
	"golang.org/x/sync/errgroup"

	"github.com/adwforge/phaseq/internal/collab"
	"github.com/adwforge/phaseq/internal/config"
	"github.com/adwforge/phaseq/internal/coordinator"
	"github.com/adwforge/phaseq/internal/httpapi"
	"github.com/adwforge/phaseq/internal/lockfile"
	"github.com/adwforge/phaseq/internal/storage/sqlite"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the coordinator daemon and queue API",
	Long: `Run the background coordinator loop and the HTTP queue API for the
lifetime of the process. The coordinator is the single authority for
concluding phases (running → completed/failed); completion reports
arriving over the API funnel through the same transition path.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(); err != nil {
			fatal("%v", err)
		}
	},
}

func runServe() error {
	// One daemon per database.
	lockPath := filepath.Join(filepath.Dir(store.Path()), "phaseq.lock")
	lock, err := lockfile.Acquire(lockPath)
	if err != nil {
		if errors.Is(err, lockfile.ErrLocked) {
			return fmt.Errorf("another phaseq daemon is already running for %s", store.Path())
		}
		return err
	}
	defer func() { _ = lock.Close() }()

	log, closer := setupLogger()
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	if err := validateSchemaVersion(log); err != nil {
		return err
	}

	interval := config.GetDuration("poll-interval")
	history, launcher, commenter := buildCollaborators(log)
	coord := coordinator.New(svc, history, launcher, commenter, log, interval)

	listen := config.GetString("listen")
	api := httpapi.NewServer(svc)
	srv := &http.Server{
		Addr:              listen,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return coord.Run(ctx)
	})
	g.Go(func() error {
		log.Logf("Queue API listening on %s", listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.Logf("Daemon stopped")
	return err
}

func setupLogger() (coordinator.Logger, interface{ Close() error }) {
	logFile := config.GetString("log-file")
	if logFile == "" {
		logFile = filepath.Join(filepath.Dir(store.Path()), "daemon.log")
	}
	if logFile == "-" {
		return coordinator.NewWriterLogger(os.Stderr), nil
	}
	return coordinator.NewFileLogger(logFile)
}

// validateSchemaVersion compares the database's recorded schema
// version against the daemon's. A newer database likely means an
// older binary; refuse rather than corrupt.
func validateSchemaVersion(log coordinator.Logger) error {
	dbVersion, err := store.GetMetadata(context.Background(), "schema_version")
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if !semver.IsValid(dbVersion) {
		return fmt.Errorf("database has invalid schema version %q", dbVersion)
	}
	if semver.Compare(dbVersion, sqlite.SchemaVersion) > 0 {
		return fmt.Errorf("database schema %s is newer than this daemon supports (%s); upgrade phaseq",
			dbVersion, sqlite.SchemaVersion)
	}
	if semver.Compare(dbVersion, sqlite.SchemaVersion) < 0 {
		log.Logf("Warning: database schema %s is older than %s", dbVersion, sqlite.SchemaVersion)
	}
	return nil
}

// buildCollaborators wires the external-collaborator interfaces from
// config. Without an executor URL the daemon runs push-model: phases
// conclude only via inbound completion reports.
func buildCollaborators(log coordinator.Logger) (coordinator.ExecutionHistory, coordinator.Launcher, coordinator.Commenter) {
	client := collab.NewHTTPClient()

	var history coordinator.ExecutionHistory = collab.PushHistory{}
	var launcher coordinator.Launcher = &collab.LogLauncher{Log: log}
	if executorURL := config.GetString("executor-url"); executorURL != "" {
		bridge := &collab.ExecutorBridge{BaseURL: executorURL, Client: client}
		history = bridge
		launcher = bridge
	}

	var commenter coordinator.Commenter = &collab.LogCommenter{Log: log}
	if ticketURL := config.GetString("ticket-url"); ticketURL != "" {
		commenter = &collab.TicketCommenter{BaseURL: ticketURL, Client: client}
	}

	return history, launcher, commenter
}
