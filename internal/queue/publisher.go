package queue

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// Publisher sends ticket notifications to RabbitMQ. Each publish dials a
// short-lived connection; notifications are rare compared to requests and
// this keeps the publisher free of reconnect state.
type Publisher struct {
    url string
    log *logrus.Logger
}

// NewPublisher returns a Publisher for the given AMQP URL.
func NewPublisher(url string, log *logrus.Logger) *Publisher {
    if log == nil {
        log = logrus.StandardLogger()
    }
    return &Publisher{url: url, log: log}
}

// PublishTicketStatus publishes ev to the queue named by its routing key.
// Errors are logged and returned so the caller can choose to ignore them.
// Messages are marked as persistent.
func (p *Publisher) PublishTicketStatus(ctx context.Context, ev TicketStatusChanged) error {
    l := p.log.WithFields(logrus.Fields{"ticket_id": ev.TicketID, "queue": ev.RoutingKey()})

    conn, err := amqp.Dial(p.url)
    if err != nil {
        l.WithError(err).Warn("rabbitmq: dial failed")
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        l.WithError(err).Warn("rabbitmq: channel open failed")
        return err
    }
    defer func() { _ = ch.Close() }()

    // Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(ev.RoutingKey(), true, false, false, false, nil); err != nil {
        l.WithError(err).Warn("rabbitmq: queue declare failed")
        return err
    }

    pub, err := encode(ev)
    if err != nil {
        l.WithError(err).Warn("rabbitmq: marshal event failed")
        return err
    }

    if err := ch.PublishWithContext(ctx, "", ev.RoutingKey(), false, false, pub); err != nil {
        l.WithError(err).Warn("rabbitmq: publish failed")
        return err
    }
    return nil
}

func encode(ev TicketStatusChanged) (amqp.Publishing, error) {
    body, err := json.Marshal(ev)
    if err != nil {
        return amqp.Publishing{}, err
    }
    return amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        MessageId:    ev.TicketID + ":" + ev.Status,
        Body:         body,
    }, nil
}
