package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"sitewise-backend/config"
	"sitewise-backend/events"
	"sitewise-backend/github"
	"sitewise-backend/migrations"
	"sitewise-backend/src"
	"sitewise-backend/src/middleware"
	"sitewise-backend/utils"
	"sitewise-backend/versions"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalln("[SERVER] Error Loading .env file: " + err.Error())
	}

	settings, err := config.Load()
	if err != nil {
		log.Fatalln(err)
	}

	logger, err := utils.SetupLogger(settings.LogLevel, settings.Production)
	if err != nil {
		log.Fatalln("[SERVER] could not build logger: " + err.Error())
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openVersionStore(ctx, settings)
	if err != nil {
		logger.Fatalw("[SERVER] could not open versions store", "store", settings.VersionStore, "error", err)
	}
	defer closeStore()

	var publisher events.Publisher = events.Nop{}
	if settings.Rabbit.Configured() {
		rabbit, err := config.InitRabbitConnection(settings.Rabbit)
		if err != nil {
			logger.Fatalw("[SERVER] could not connect to RabbitMQ", "error", err)
		}
		defer rabbit.Close()

		publisher = events.NewRabbitPublisher(rabbit.Channel, rabbit.Queue.Name)
		logger.Infow("[SERVER] publishing events", "queue", rabbit.Queue.Name)
	}

	handler := src.Service(src.Dependencies{
		Settings: settings,
		Github:   github.NewClient(settings.Github.APIURL, settings.Github.OAuthURL, nil),
		Session:  middleware.NewSession(settings.SessionSecret, settings.SecureCookies()),
		Versions: store,
		Events:   publisher,
	})

	server := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorw("[SERVER] shutdown", "error", err)
		}
	}()

	logger.Infow("[SERVER] listening", "addr", server.Addr, "versions", store.Name())

	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalw("[SERVER] stopped", "error", err)
	}
}

// openVersionStore builds the store the local versions routes use. The
// returned func releases whatever connection the store holds.
func openVersionStore(ctx context.Context, settings *config.Settings) (versions.Store, func(), error) {
	switch settings.VersionStore {
	case config.StorePostgres:
		db, err := config.InitDBConnection(settings.DB)
		if err != nil {
			return nil, nil, err
		}

		if err := migrations.Up(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}

		return versions.NewPostgresStore(db, nil), func() { db.Close() }, nil
	case config.StoreMinio:
		client, err := config.InitMinioConnection(ctx, settings.Minio)
		if err != nil {
			return nil, nil, err
		}

		return versions.NewMinioStore(client, settings.Minio.Bucket, nil), func() {}, nil
	default:
		return versions.NewFileStore(settings.VersionsDir, nil), func() {}, nil
	}
}
