package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/USA-RedDragon/wander-server/internal/apis"
	"github.com/USA-RedDragon/wander-server/internal/config"
	"github.com/USA-RedDragon/wander-server/internal/db"
	"github.com/USA-RedDragon/wander-server/internal/events"
	"github.com/USA-RedDragon/wander-server/internal/metrics"
	"github.com/USA-RedDragon/wander-server/internal/navigation"
	"github.com/USA-RedDragon/wander-server/internal/notes"
	"github.com/USA-RedDragon/wander-server/internal/server"
	"github.com/USA-RedDragon/wander-server/internal/storage"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/ztrue/shutdown"
	"golang.org/x/sync/errgroup"
)

func NewCommand(version, commit string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "wander-server",
		Version: fmt.Sprintf("%s - %s", version, commit),
		Annotations: map[string]string{
			"version": version,
			"commit":  commit,
		},
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(cmd)
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	slog.Info("wander-server", "version", cmd.Annotations["version"], "commit", cmd.Annotations["commit"])

	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	config, err := config.LoadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	err = config.Validate()
	if err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	location, err := config.Notes.Location()
	if err != nil {
		return fmt.Errorf("failed to load notes timezone: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exports, err := storage.NewStorage(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to open export storage: %w", err)
	}
	defer exports.Close()

	db, err := db.MakeDB(config)
	if err != nil {
		return fmt.Errorf("failed to make database: %w", err)
	}
	slog.Info("Database connection established")

	var nc *nats.Conn
	if config.NATS.Enabled {
		nc, err = nats.Connect(config.NATS.URL, nats.Name("wander-server"))
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer nc.Close()
		slog.Info("NATS connection established", "url", config.NATS.URL)
	}

	metrics := metrics.NewMetrics(prometheus.DefaultRegisterer)
	eventBus := events.NewEventBus(nc, config.NATS.SubjectPrefix)

	nav := navigation.NewService(
		apis.NewOSRM(config.Routing.OSRMURL, config.Routing.Profile),
		apis.NewNominatim(config.Geocoding.NominatimURL, config.Geocoding.UserAgent, config.Geocoding.AcceptLanguage),
		eventBus,
		metrics,
		navigation.Options{
			DefaultRadius: config.Navigation.DefaultRadius,
			LookupTimeout: config.Navigation.LookupTimeout,
		},
	)
	noteStore := notes.NewStore(db, exports, config.Persistence.Exports.Compression, location, metrics)
	noteCount, err := noteStore.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count notes: %w", err)
	}
	metrics.SetStoredNotes(float64(noteCount))

	slog.Info("Starting HTTP server")
	server := server.NewServer(config, server.Dependencies{
		Navigation: nav,
		Notes:      noteStore,
		EventBus:   eventBus,
		Metrics:    metrics,
	})
	err = server.Start()
	if err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	stop := func(_ os.Signal) {
		slog.Info("Shutting down")

		errGrp := errgroup.Group{}

		errGrp.Go(func() error {
			return server.Stop()
		})
		errGrp.Go(func() error {
			nav.Stop()
			return nil
		})
		if nc != nil {
			errGrp.Go(func() error {
				return nc.Drain()
			})
		}

		err := errGrp.Wait()
		if err != nil {
			slog.Error("Shutdown error", "error", err.Error())
		}
		slog.Info("Shutdown complete")
	}

	if cmd.Annotations["version"] == "testing" {
		doneChannel := make(chan struct{})
		go func() {
			slog.Info("Sleeping for 5 seconds")
			time.Sleep(5 * time.Second)
			slog.Info("Sending SIGTERM")
			stop(syscall.SIGTERM)
			doneChannel <- struct{}{}
		}()
		<-doneChannel
	} else {
		shutdown.AddWithParam(stop)
		shutdown.Listen(syscall.SIGINT, syscall.SIGKILL, syscall.SIGTERM, syscall.SIGQUIT)
	}

	return nil
}
