package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// Consumer listens to the ticket.paid and ticket.cancelled queues and
// appends one line per message to a log file (logs/tickets.log by default).
type Consumer struct {
    url     string
    logPath string
    log     *logrus.Logger
}

// NewConsumer returns a Consumer writing to logs/tickets.log.
func NewConsumer(url string, log *logrus.Logger) *Consumer {
    if log == nil {
        log = logrus.StandardLogger()
    }
    return &Consumer{url: url, logPath: filepath.Join("logs", "tickets.log"), log: log}
}

// Run connects to RabbitMQ, declares both durable queues and consumes until
// ctx is cancelled. Broker failures trigger a reconnect with exponential
// backoff capped at 30s; bad messages are rejected without requeue so the
// loop never spins on them.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.WithError(err).Warnf("ticket-consumer: failed to dial broker; retrying in %s", backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.log.WithError(err).Warn("ticket-consumer: consume loop ended; reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.log.WithError(err).Warn("ticket-consumer: set QoS failed")
    }

    merged := make(chan amqp.Delivery)
    for _, name := range []string{TicketPaidQueue, TicketCancelledQueue} {
        if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
            return fmt.Errorf("queue declare %s: %w", name, err)
        }
        msgs, err := ch.Consume(name, "", false, false, false, false, nil)
        if err != nil {
            return fmt.Errorf("queue consume %s: %w", name, err)
        }
        go func(in <-chan amqp.Delivery) {
            for d := range in {
                select {
                case merged <- d:
                case <-ctx.Done():
                    return
                }
            }
        }(msgs)
    }

    closed := ch.NotifyClose(make(chan *amqp.Error, 1))
    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case amqpErr := <-closed:
            if amqpErr != nil {
                return amqpErr
            }
            return errors.New("channel closed")
        case d := <-merged:
            if err := c.handle(d.Body); err != nil {
                c.log.WithError(err).Warn("ticket-consumer: handle message failed")
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func (c *Consumer) handle(body []byte) error {
    if err := os.MkdirAll(filepath.Dir(c.logPath), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(c.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    return writeLine(f, body)
}

// writeLine decodes one message and writes its single-line summary.
func writeLine(w io.Writer, body []byte) error {
    var ev TicketStatusChanged
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.TicketID == "" {
        return errors.New("message without ticket_id")
    }
    line := fmt.Sprintf("[%s] Ticket %s | ticket_id=%s | event_id=%s | user_id=%d | quantity=%d | payment=%s | total=%d cents | source=%s\n",
        ev.OccurredAt, ev.Status, ev.TicketID, ev.EventID, ev.UserID, ev.Quantity, ev.PaymentStatus, ev.AmountCents, ev.Source)
    if _, err := io.WriteString(w, line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
