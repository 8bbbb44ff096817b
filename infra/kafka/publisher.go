package kafka

import (
	"context"
	"errors"
	"fmt"

	"matchbook/config"
)

var ErrUnknownDriver = errors.New("kafka: unknown driver")

// Publisher delivers one keyed message and returns once the broker acked it.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
	Close() error
}

// New picks the client library named by cfg.Driver.
func New(cfg config.Kafka) (Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	switch cfg.Driver {
	case "", "sarama":
		return NewSaramaPublisher(cfg.Brokers, cfg.Topic)
	case "kafkago", "kafka-go":
		return NewWriterPublisher(cfg.Brokers, cfg.Topic), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
}
