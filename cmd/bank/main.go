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

	"github.com/anoskuns/Ignite-History/internal/app"
	"github.com/anoskuns/Ignite-History/internal/config"
	"github.com/anoskuns/Ignite-History/internal/pkg/logger"
	"github.com/anoskuns/Ignite-History/internal/service"
	"github.com/anoskuns/Ignite-History/internal/storage"
	"github.com/anoskuns/Ignite-History/internal/watch"
)

func main() {
	var l *logger.Logger
	var err error
	if l, err = logger.CreateLogger(config.LogLevel); err != nil {
		log.Fatal("Failed to create logger:", err)
	}

	store, err := newStore(l)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	watcher := watch.NewWatcher(store, config.PollInterval, l)
	app := app.NewApp(store, watcher, l)
	service := service.NewService(app, config.ServerRunAddress, l)

	const readHeaderTimeout = 5 * time.Second
	server := &http.Server{Addr: config.ServerRunAddress, Handler: service.NewRouter(), ReadHeaderTimeout: readHeaderTimeout}

	serverCtx, serverStopCtx := context.WithCancel(context.Background())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		const shutdownTimeout = 30 * time.Second
		shutdownCtx, cancel := context.WithTimeout(serverCtx, shutdownTimeout)
		defer cancel()

		go func() {
			<-shutdownCtx.Done()
			if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		defer store.Close()
		log.Fatal(err)
	}

	<-serverCtx.Done()
}

// newStore selects the authoritative store backend: postgres for shared
// multi-device rooms, sqlite for a single-device setup where observers
// converge through polling alone, memory for ephemeral rooms.
func newStore(l *logger.Logger) (storage.Store, error) {
	switch config.StoreDriver {
	case "postgres":
		return storage.NewPostgreSQL(config.DatabaseURI, l)
	case "sqlite":
		return storage.NewSQLite(config.SQLitePath, l)
	case "memory":
		return storage.NewMemory(), nil
	default:
		return nil, errors.New("unknown STORE_DRIVER: " + config.StoreDriver)
	}
}
