package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-booking/internal/models"
)

// TopicTicketLifecycle carries every ticket state transition.
const TopicTicketLifecycle = "booking.tickets.lifecycle"

const (
	EventTicketReserved  = "ticket.reserved"
	EventTicketPurchased = "ticket.purchased"
	EventTicketReleased  = "ticket.released"
)

// TicketEvent is the wire payload streamed on ticket transitions.
type TicketEvent struct {
	Type      string        `json:"type"`
	Ticket    models.Ticket `json:"ticket"`
	EmittedAt time.Time     `json:"emitted_at"`
}

type Producer struct {
	Writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: brokers,
		Topic:   topic,
	})
	return &Producer{Writer: writer}
}

// NewDisabledProducer returns a producer that drops everything, for
// deployments without a broker and for tests.
func NewDisabledProducer() *Producer {
	return &Producer{}
}

func (p *Producer) publish(eventType string, ticket models.Ticket) error {
	if p.Writer == nil {
		return nil
	}

	// The QR PNG has no business on the bus.
	ticket.QRCode = nil

	event := TicketEvent{
		Type:      eventType,
		Ticket:    ticket,
		EmittedAt: time.Now(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(ticket.ID),
			Value: value,
		},
	)
}

func (p *Producer) PublishTicketReserved(ticket models.Ticket) error {
	return p.publish(EventTicketReserved, ticket)
}

func (p *Producer) PublishTicketPurchased(ticket models.Ticket) error {
	return p.publish(EventTicketPurchased, ticket)
}

func (p *Producer) PublishTicketReleased(ticket models.Ticket) error {
	return p.publish(EventTicketReleased, ticket)
}

func (p *Producer) Close() error {
	if p.Writer == nil {
		return nil
	}
	return p.Writer.Close()
}
