package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskboard/app/config"
	"taskboard/app/controllers"
	"taskboard/app/routes"
	"taskboard/app/services"
	"taskboard/app/store"

	"github.com/gorilla/mux"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	logger := config.NewLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize the store
	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize store", slog.String("driver", cfg.Store.Driver), slog.Any("error", err))
		os.Exit(1)
	}
	defer st.Close(context.Background())

	// Initialize the service layer
	taskService := services.NewTaskService(st, logger)
	subTaskService := services.NewSubTaskService(st, logger)

	// Initialize the controller layer
	taskController := controllers.NewTaskController(taskService, logger)
	subTaskController := controllers.NewSubTaskController(subTaskService, logger)

	// Setup HTTP server
	router := mux.NewRouter()
	routes.RegisterRoutes(router, taskController, subTaskController)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("server is running", slog.String("addr", cfg.Server.Addr), slog.String("store", cfg.Store.Driver))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Store.Driver == config.DriverSQLite {
		return store.NewSQLiteStore(cfg.SQLite.Path)
	}

	driver, err := config.InitNeo4j(cfg.Neo4j)
	if err != nil {
		return nil, err
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, err
	}
	s := store.NewNeo4jStore(driver, store.WithDatabase(cfg.Neo4j.Database))
	if err := s.EnsureConstraints(ctx); err != nil {
		s.Close(ctx)
		return nil, err
	}
	return s, nil
}
