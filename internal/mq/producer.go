package mq

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	TopicMails = "mails"
	TopicSMS   = "sms"
)

const (
	outboxSize   = 64
	writeTimeout = 5 * time.Second
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type outbound struct {
	topic string
	value []byte
}

// Producer hands payloads to the broker without ever blocking or failing
// the caller: Publish enqueues into a buffered outbox and a background
// goroutine does the actual writes. A full outbox drops the message, a
// broker error is logged, neither reaches the request path.
type Producer struct {
	writer messageWriter
	log    *slog.Logger
	out    chan outbound
	wg     sync.WaitGroup
}

func NewProducer(brokers []string, log *slog.Logger) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return newProducer(w, log)
}

func newProducer(w messageWriter, log *slog.Logger) *Producer {
	p := &Producer{
		writer: w,
		log:    log,
		out:    make(chan outbound, outboxSize),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Publish serializes payload as JSON and enqueues it for topic.
// Best-effort: the caller never learns about broker trouble.
func (p *Producer) Publish(topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.log.Error("mq_marshal_failed", "topic", topic, "error", err)
		return
	}
	select {
	case p.out <- outbound{topic: topic, value: data}:
	default:
		p.log.Warn("mq_outbox_full", "topic", topic)
	}
}

func (p *Producer) run() {
	defer p.wg.Done()
	for m := range p.out {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := p.writer.WriteMessages(ctx, kafka.Message{Topic: m.topic, Value: m.value})
		cancel()
		if err != nil {
			p.log.Error("mq_publish_failed", "topic", m.topic, "error", err)
			continue
		}
		p.log.Info("mq_published", "topic", m.topic)
	}
}

// Close drains the outbox and closes the underlying writer.
func (p *Producer) Close() error {
	close(p.out)
	p.wg.Wait()
	return p.writer.Close()
}
