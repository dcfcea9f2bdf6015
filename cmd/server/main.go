package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
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

func main() {
	cfg := config.Load()

	// Database
	ctx := context.Background()
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer database.Close()
	if err := db.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	// Alert broker + producer
	broker, err := alerts.NewBroker(cfg)
	if err != nil {
		log.Fatalf("alert broker setup failed: %v", err)
	}
	defer broker.Close() //nolint:errcheck // best-effort cleanup on shutdown
	producer := alerts.NewProducer(broker, cfg.StockAlertTopic)

	// Stores
	productStore := catalog.NewProductStore(database.Pool)
	supplierStore := catalog.NewSupplierStore(database.Pool)
	saleStore := sales.NewSaleStore(database.Pool)
	purchaseStore := purchase.NewPurchaseStore(database.Pool)
	suggestionStore := suggest.NewSuggestionStore(database.Pool)

	// Services
	catalogService := catalog.NewService(productStore, producer)
	salesService := sales.NewService(saleStore, catalogService)
	purchaseService := purchase.NewService(purchaseStore, catalogService)

	// Live subscription hub
	hub := live.NewHub()

	// Suggestion engine
	engine := suggest.NewEngine(supplierStore, saleStore, suggestionStore, purchaseService, hub)

	// Alert consumer: fan-out first, then suggestion generation; each
	// stage's failure is isolated from the other.
	dispatcher := alerts.NewDispatcher(broker, cfg.StockAlertTopic,
		alerts.Stage{Name: "fanout", Fn: live.AlertFanout(hub)},
		alerts.Stage{Name: "suggest", Fn: engine.HandleAlert},
	)
	if err := dispatcher.Start(); err != nil {
		log.Fatalf("alert dispatcher failed to start: %v", err)
	}
	defer dispatcher.Stop()

	// Router
	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthzHandler).Methods("GET")

	catalog.NewHandlers(productStore, supplierStore, catalogService).RegisterRoutes(r)
	sales.NewHandlers(saleStore, salesService).RegisterRoutes(r)
	purchase.NewHandlers(purchaseStore, purchaseService).RegisterRoutes(r)
	suggest.NewHandlers(suggestionStore, engine).RegisterRoutes(r)
	live.NewHandler(hub).RegisterRoutes(r)

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        corsMiddleware(r),
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Fatalf("Server shutdown failed: %v", err)
		}
	}()

	log.Printf("Starting server on :%s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed to start: %v", err)
	}

	log.Println("Server stopped")
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000"
	}

	origins := make(map[string]bool)
	for _, o := range strings.Split(allowedOrigins, ",") {
		origins[strings.TrimSpace(o)] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(origins) == 1 {
			// Single origin mode: always set it (for dev convenience)
			for o := range origins {
				w.Header().Set("Access-Control-Allow-Origin", o)
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
