package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/stocksentry/backend/internal/alerts"
	"github.com/stocksentry/backend/internal/catalog"
	"github.com/stocksentry/backend/internal/config"
	"github.com/stocksentry/backend/internal/db"
	"github.com/stocksentry/backend/internal/live"
	"github.com/stocksentry/backend/internal/purchase"
	"github.com/stocksentry/backend/internal/sales"
	"github.com/stocksentry/backend/internal/suggest"
)

// Standalone alert consumer: runs the dispatcher and serves the live
// websocket endpoint, without the HTTP API. Useful when the consumer is
// scaled separately from the API server.
func main() {
	cfg := config.Load()

	ctx := context.Background()
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer database.Close()

	broker, err := alerts.NewBroker(cfg)
	if err != nil {
		log.Fatalf("alert broker setup failed: %v", err)
	}
	defer broker.Close() //nolint:errcheck // best-effort cleanup on shutdown

	supplierStore := catalog.NewSupplierStore(database.Pool)
	productStore := catalog.NewProductStore(database.Pool)
	saleStore := sales.NewSaleStore(database.Pool)
	purchaseStore := purchase.NewPurchaseStore(database.Pool)
	suggestionStore := suggest.NewSuggestionStore(database.Pool)

	catalogService := catalog.NewService(productStore, nil)
	purchaseService := purchase.NewService(purchaseStore, catalogService)

	hub := live.NewHub()
	engine := suggest.NewEngine(supplierStore, saleStore, suggestionStore, purchaseService, hub)

	dispatcher := alerts.NewDispatcher(broker, cfg.StockAlertTopic,
		alerts.Stage{Name: "fanout", Fn: live.AlertFanout(hub)},
		alerts.Stage{Name: "suggest", Fn: engine.HandleAlert},
	)
	if err := dispatcher.Start(); err != nil {
		log.Fatalf("alert dispatcher failed to start: %v", err)
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")
	live.NewHandler(hub).RegisterRoutes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("Stopping consumer...")
		dispatcher.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Fatalf("Server shutdown failed: %v", err)
		}
	}()

	log.Printf("Starting alert consumer on :%s (topic %s, group %s)",
		cfg.Port, cfg.StockAlertTopic, cfg.KafkaConsumerGroup)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed to start: %v", err)
	}

	log.Println("Consumer stopped")
}
