package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/platform/config"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/platform/httpserver"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/platform/logger"
	pgplatform "github.com/SpeckiJ/sensorweb-server-dao-impl/internal/platform/postgres"
	redisplatform "github.com/SpeckiJ/sensorweb-server-dao-impl/internal/platform/redis"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/assembler"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/metrics"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/nodata"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/service"
	datastore "github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/store/data"
	datasetstore "github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/store/dataset"
	entitystore "github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/store/entity"
	httptransport "github.com/SpeckiJ/sensorweb-server-dao-impl/internal/transport/http"
)

// main wires the stores, the assembler factory and the series service
// behind the HTTP router and keeps the server lifecycle small.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pool, err := pgplatform.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := redisplatform.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	entities := entitystore.NewPostgres(pool)
	labelOpts := []entitystore.LabelOption{entitystore.WithLogger(log)}
	if redisClient != nil {
		labelOpts = append(labelOpts, entitystore.WithCache(redisClient, cfg.Redis.LabelTTL))
	}
	labels := entitystore.NewLabelResolver(entities, labelOpts...)

	datasets := datasetstore.NewPostgres(pool, log)

	seriesMetrics := metrics.New()
	factory := assembler.NewFactory(assembler.Deps{
		Data:     datastore.NewPostgres(pool, log),
		Datasets: datasets,
		Entities: entities,
		Labels:   labels,
		Policy:   nodata.New(),
		Metrics:  seriesMetrics,
		Logger:   log,
	})

	svc, err := service.New(
		datasets,
		factory,
		entities,
		labels,
		service.WithLogger(log),
		service.WithMetrics(seriesMetrics),
	)
	if err != nil {
		log.Error("service construction failed", "error", err)
		os.Exit(1)
	}

	handler := httptransport.NewHandler(svc, log)
	router := httptransport.NewRouter(handler)
	srv := httpserver.New(cfg.Server.Addr, router, cfg.Server.ReadHeaderTimeout)

	log.Info("starting sensorweb series server", "addr", cfg.Server.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
