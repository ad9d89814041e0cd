package kafka

import (
	"context"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler must return nil only when the message is fully applied and the
// offset may be committed. An error blocks the message's partition: the
// message is retried with backoff, and no later offset on that partition is
// committed past it. Handlers therefore have to be idempotent and must
// swallow (return nil for) anything that can never succeed.
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	r       *kafka.Reader
	workers int
	backoff time.Duration
}

func NewConsumer(brokers []string, group, topic string, workers int) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers, backoff: 200 * time.Millisecond}
}

// Start fetches messages and shards them to workers by partition, so each
// partition is processed by exactly one goroutine in offset order.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	shards := make([]chan kafka.Message, c.workers)
	done := make(chan struct{}, c.workers)
	for i := range shards {
		shards[i] = make(chan kafka.Message, 64)
		go func(ch <-chan kafka.Message) {
			defer func() { done <- struct{}{} }()
			runShard(ctx, ch, h, c.r.CommitMessages, c.backoff)
		}(shards[i])
	}
	closeShards := func() {
		for _, ch := range shards {
			close(ch)
		}
		for range shards {
			<-done
		}
	}

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			closeShards()
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		select {
		case shards[m.Partition%c.workers] <- m:
		case <-ctx.Done():
			closeShards()
			return nil
		}
	}
}

// runShard drains one shard of partitions in order. The offset of a message
// only commits after its handler succeeded, so a failing message holds back
// everything behind it on the same partition until it applies or the
// consumer shuts down.
func runShard(ctx context.Context, ch <-chan kafka.Message, h Handler,
	commit func(ctx context.Context, msgs ...kafka.Message) error, backoff time.Duration) {
	for m := range ch {
		for {
			if err := h(ctx, m); err == nil {
				break
			} else {
				log.Printf("handle %s[%d]@%d: %v", m.Topic, m.Partition, m.Offset, err)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
		}
		if err := commit(ctx, m); err != nil {
			// the handler already applied the message; redelivery after a
			// failed commit is covered by handler idempotency
			log.Printf("commit %s[%d]@%d: %v", m.Topic, m.Partition, m.Offset, err)
			if ctx.Err() != nil {
				return
			}
		}
	}
}
