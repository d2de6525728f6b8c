package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thanhtrancs/Mapty/internal/api"
	"github.com/thanhtrancs/Mapty/internal/app"
	"github.com/thanhtrancs/Mapty/internal/auth"
	"github.com/thanhtrancs/Mapty/internal/config"
	"github.com/thanhtrancs/Mapty/internal/feed"
	"github.com/thanhtrancs/Mapty/internal/form"
	"github.com/thanhtrancs/Mapty/internal/geo"
	"github.com/thanhtrancs/Mapty/internal/listview"
	"github.com/thanhtrancs/Mapty/internal/mapview"
	"github.com/thanhtrancs/Mapty/internal/persistence"
	"github.com/thanhtrancs/Mapty/internal/persistence/slots"
	"github.com/thanhtrancs/Mapty/internal/session"
	"github.com/thanhtrancs/Mapty/internal/store"
	httptransport "github.com/thanhtrancs/Mapty/internal/transport/http"
	"github.com/thanhtrancs/Mapty/internal/view"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slot, closeSlot, err := slots.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open %s slot: %v", cfg.SlotDriver, err)
	}
	defer closeSlot()

	var publisher feed.Publisher = feed.Discard{}
	if cfg.FeedEnabled {
		producer := feed.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()

		var opts []feed.PublisherOption
		if cfg.SchemaRegistryURL != "" {
			opts = append(opts, feed.WithRegistry(feed.NewRegistryClient(cfg.SchemaRegistryURL)))
		}
		publisher = feed.NewKafkaPublisher(producer, cfg.FeedTopic, opts...)
	}

	surfaces := api.Surfaces{
		List:    listview.New(),
		Map:     mapview.New(),
		Form:    form.New(),
		Notices: app.NewNotices(),
	}
	workouts := app.New(app.Components{
		Store:       store.New(),
		Persistence: persistence.NewAdapter(slot, persistence.WithDriverName(cfg.SlotDriver)),
		View:        view.New(surfaces.List, view.WithZoom(cfg.MapZoomLevel)),
		Session:     session.New(surfaces.Form),
		Locator:     geo.NewStaticLocator(cfg.HomeLat, cfg.HomeLng),
		Map:         surfaces.Map,
	}, app.WithNotifier(surfaces.Notices), app.WithPublisher(publisher))
	workouts.Start(ctx)

	mux := http.NewServeMux()
	api.NewHandler(workouts, surfaces).RegisterRoutes(mux)

	authCfg := auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}
	authMiddleware := auth.NewMiddleware(authCfg, auth.SkipPaths("/healthz"))
	if !authCfg.Enabled() {
		log.Printf("JWT_SECRET not set, serving without bearer-token checks")
	}

	server := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress), httptransport.Chain(mux,
		httptransport.RequestLogger(nil),
		httptransport.CORS(cfg.CORSOrigin),
		authMiddleware.Wrap,
	))
	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler()}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("mapty api listening on %s (slot=%s)", cfg.HTTPAddress, cfg.SlotDriver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()
	go func() {
		log.Printf("metrics listening on %s", cfg.MetricsAddress)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics server shutdown error: %v", err)
	}
}
