package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-commerce-checkout.git/internal/cart"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/checkout"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/config"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/events"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/httpx"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/inventory"
	kafkax "github.com/ariefcatur/go-commerce-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/orders"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/payments"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/postgres"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/pricing"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/promo"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN, int32(cfg.PGMaxConns))
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// one producer per topic, same buffered inbox pattern
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicOrderCreated, 1024)
	pCreated.Start(ctx)
	pUpdated := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicOrderUpdated, 1024)
	pUpdated.Start(ctx)
	pPayment := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicPaymentEvents, 1024)
	pPayment.Start(ctx)

	cartRepo := &cart.Repo{DB: db}
	pricingRepo := &pricing.Repo{DB: db}
	promoEngine := promo.NewEngine(&promo.Repo{DB: db})
	calc := &pricing.Calculator{
		Catalog: pricingRepo,
		Rates:   &pricing.CachedRates{Source: pricingRepo, Redis: rdb},
		Promos:  promoEngine,
	}
	ledger := &inventory.Repo{DB: db}
	orderRepo := &orders.Repo{DB: db}

	svc := &checkout.Service{
		Carts:           cartRepo,
		Calc:            calc,
		Ledger:          ledger,
		Orders:          orderRepo,
		Provider:        payments.NewHTTPProvider(cfg.ProviderBaseURL, cfg.ProviderAPIKey),
		StockLocationID: cfg.StockLocationID,
		ReservationTTL:  cfg.ReservationTTL,
	}

	router := httpx.NewRouter(cfg.RequestTimeout)
	(&httpx.CartsHandler{Store: cartRepo, Calc: calc}).Register(router)
	(&httpx.CheckoutHandler{Service: svc, Producer: pCreated, Redis: rdb, Name: cfg.ServiceName}).Register(router)
	(&httpx.OrdersHandler{Store: orderRepo, Producer: pUpdated, Redis: rdb, Name: cfg.ServiceName}).Register(router)
	(&httpx.WebhookHandler{Secret: cfg.WebhookSecret, Producer: pPayment, Redis: rdb, Name: cfg.ServiceName}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pCreated.Close()
	pUpdated.Close()
	pPayment.Close()
	cancel()
	pCreated.WaitClosed()
	pUpdated.WaitClosed()
	pPayment.WaitClosed()
}
