package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-commerce-checkout.git/internal/config"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/events"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/inventory"
	kafkax "github.com/ariefcatur/go-commerce-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/orders"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/payments"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/postgres"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/redisx"
)

// worker applies verified payment provider events to orders and sweeps
// expired stock reservations.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN, int32(cfg.PGMaxConns))
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	pUpdated := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicOrderUpdated, 1024)
	pUpdated.Start(ctx)

	proc := &payments.Processor{Store: &payments.Repo{DB: db}}
	handler := paymentHandler(proc, pUpdated, rdb, cfg.ServiceName+"-worker")

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.PaymentGroup, events.TopicPaymentEvents, cfg.PaymentWorkers)
	go func() {
		log.Printf("payment consumer started: group=%s topic=%s workers=%d",
			cfg.PaymentGroup, events.TopicPaymentEvents, cfg.PaymentWorkers)
		if err := cons.Start(ctx, handler); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	sweeper := inventory.NewSweeper(&inventory.Repo{DB: db}, cfg.SweepInterval)
	sweeper.Start(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down worker...")
	cancel()
	sweeper.Wait()
	pUpdated.Close()
	pUpdated.WaitClosed()
}

// paymentHandler decodes one enveloped provider event and applies it. A nil
// error commits the offset; processing errors leave it for redelivery, which
// the processed-event constraint makes safe.
func paymentHandler(proc *payments.Processor, pUpdated *kafkax.Producer, rdb *redis.Client, name string) kafkax.Handler {
	return func(ctx context.Context, m kafkago.Message) error {
		var env events.Envelope
		if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
			log.Printf("drop malformed envelope at offset %d: %v", m.Offset, err)
			return nil
		}
		ev, err := kafkax.UnwrapPayload[events.ProviderEvent](env.Payload)
		if err != nil {
			log.Printf("drop malformed payload %s: %v", env.EventID, err)
			return nil
		}

		ord, err := proc.Process(ctx, &ev)
		if err != nil {
			var transition *orders.InvalidTransitionError
			if errors.As(err, &transition) || errors.Is(err, orders.ErrRefundExceeded) {
				// a replayed, out-of-order, or over-refunding event that can
				// never apply; committing it is the only way forward
				log.Printf("event %s rejected: %v", ev.ID, err)
				return nil
			}
			return err
		}
		if ord == nil {
			return nil // idempotent replay
		}

		statusKey := fmt.Sprintf(redisx.KeyOrderStatus, ord.ID)
		b, _ := json.Marshal(map[string]string{
			"status":             string(ord.Status),
			"payment_status":     string(ord.PaymentStatus),
			"fulfillment_status": string(ord.FulfillmentStatus),
		})
		_ = rdb.Set(ctx, statusKey, b, redisx.TTLStatusCache).Err()

		out := events.Envelope{
			EventID:       uuid.NewString(),
			EventType:     eventTypeFor(ord.Status),
			EventVersion:  1,
			OccurredAt:    time.Now().UTC(),
			Producer:      name,
			TraceID:       env.TraceID,
			CorrelationID: ord.ID,
		}
		out.Payload = kafkax.MustMarshal(events.OrderUpdatedPayload{
			OrderID:           ord.ID,
			OrderStatus:       string(ord.Status),
			PaymentStatus:     string(ord.PaymentStatus),
			FulfillmentStatus: string(ord.FulfillmentStatus),
			Reason:            ev.Kind,
		})
		pUpdated.Publish(events.PartitionKey(ord.ID), kafkax.MustMarshal(out),
			kafkago.Header{Key: "x-event-type", Value: []byte(out.EventType)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
		return nil
	}
}

func eventTypeFor(s orders.Status) string {
	switch s {
	case orders.StatusConfirmed:
		return events.EventOrderConfirmed
	case orders.StatusCancelled:
		return events.EventOrderCancelled
	case orders.StatusRefunded:
		return events.EventOrderRefunded
	default:
		return events.EventFulfillmentMoved
	}
}
