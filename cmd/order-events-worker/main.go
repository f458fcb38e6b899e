package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

const (
	defaultGroupID    = "storefront-order-events-worker"
	defaultMaxRetries = 3
)

type config struct {
	brokers    []string
	groupID    string
	topics     []string
	maxRetries int
}

// outboxEnvelope — форма сообщений, которые публикует outbox worker.
// Прямые события оформления приходят как kafka.OrderEvent/CheckoutEvent.
type outboxEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	cfg, err := readConfig()
	if err != nil {
		fail("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fail("order events worker failed: %v", err)
	}
}

func readConfig() (config, error) {
	var (
		brokersRaw string
		topicsRaw  string
		cfg        config
	)

	flag.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: KAFKA_BROKERS)")
	flag.StringVar(&cfg.groupID, "group", defaultGroupID, "consumer group id")
	flag.StringVar(&topicsRaw, "topics", kafka.TopicOrderEvents+","+kafka.TopicCheckoutEvents, "topics to consume as comma-separated list")
	flag.IntVar(&cfg.maxRetries, "max-retries", defaultMaxRetries, "processing attempts before a message goes to the DLQ")
	flag.Parse()

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw = os.Getenv("KAFKA_BROKERS")
	}

	cfg.brokers = splitAndTrim(brokersRaw)
	if len(cfg.brokers) == 0 {
		return config{}, fmt.Errorf("kafka brokers are required (-brokers or KAFKA_BROKERS)")
	}
	cfg.topics = splitAndTrim(topicsRaw)
	if len(cfg.topics) == 0 {
		return config{}, fmt.Errorf("at least one topic is required")
	}
	if strings.TrimSpace(cfg.groupID) == "" {
		return config{}, fmt.Errorf("consumer group id is required")
	}
	if cfg.maxRetries < 0 {
		return config{}, fmt.Errorf("max-retries must be >= 0")
	}

	return cfg, nil
}

func splitAndTrim(raw string) []string {
	chunks := strings.Split(raw, ",")
	values := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		value := strings.TrimSpace(chunk)
		if value == "" {
			continue
		}
		values = append(values, value)
	}
	return values
}

func run(ctx context.Context, cfg config) error {
	logger := log.WithField("component", "order-events-worker")

	dlqProducer, err := kafka.NewProducer(cfg.brokers)
	if err != nil {
		return fmt.Errorf("create dlq producer: %w", err)
	}
	defer func() {
		if closeErr := dlqProducer.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("failed to close dlq producer")
		}
	}()

	consumer, err := kafka.NewConsumerWithDLQ(cfg.brokers, cfg.groupID, cfg.topics, handleMessage(logger), dlqProducer, cfg.maxRetries)
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}

	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}

	logger.WithFields(log.Fields{
		"group":  cfg.groupID,
		"topics": cfg.topics,
	}).Info("order events worker started")

	<-ctx.Done()

	logger.Info("получен сигнал остановки, останавливаем consumer")
	if err := consumer.Stop(); err != nil {
		return fmt.Errorf("stop consumer: %w", err)
	}
	return nil
}

// handleMessage возвращает обработчик, ведущий журнал событий витрины.
// Нераспознанное сообщение — ошибка: после исчерпания retry оно уходит в DLQ.
func handleMessage(logger *log.Entry) kafka.MessageHandler {
	return func(ctx context.Context, message *sarama.ConsumerMessage) error {
		return logEvent(logger, message)
	}
}

func logEvent(logger *log.Entry, message *sarama.ConsumerMessage) error {
	entry := logger.WithFields(log.Fields{
		"topic":     message.Topic,
		"partition": message.Partition,
		"offset":    message.Offset,
	})

	switch message.Topic {
	case kafka.TopicCheckoutEvents:
		event, err := kafka.ParseCheckoutEvent(message)
		if err != nil || event.EventType == "" {
			return fmt.Errorf("unrecognized checkout event at offset %d: %w", message.Offset, errOrUnknown(err))
		}
		entry.WithFields(log.Fields{
			"event_type": event.EventType,
			"user_id":    event.UserID,
			"mode":       event.Mode,
		}).Info("checkout event")
		return nil

	default:
		// Прямое событие заказа: у него заполнен order_id.
		if event, err := kafka.ParseOrderEvent(message); err == nil && event.OrderID != "" {
			entry.WithFields(log.Fields{
				"event_type":     event.EventType,
				"order_id":       event.OrderID,
				"user_id":        event.UserID,
				"status":         event.Status,
				"payment_method": event.PaymentMethod,
				"amount_minor":   event.AmountMinor,
			}).Info("order event")
			return nil
		}

		// Конверт outbox: той же темой идут события, прошедшие через outbox worker.
		var envelope outboxEnvelope
		if err := json.Unmarshal(message.Value, &envelope); err == nil && envelope.EventType != "" && envelope.AggregateID != "" {
			entry.WithFields(log.Fields{
				"event_type":     envelope.EventType,
				"aggregate_type": envelope.AggregateType,
				"aggregate_id":   envelope.AggregateID,
			}).Info("outbox event")
			return nil
		}

		return fmt.Errorf("unrecognized order event at offset %d", message.Offset)
	}
}

func errOrUnknown(err error) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("event_type is empty")
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
