package nats

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

const workerQueueGroup = "verirag-workers"

// Queue carries uploaded-document IDs between the API and ingestion
// workers. Messages hold the raw document ID, nothing else.
type Queue struct {
	conn    *nats.Conn
	subject string
	log     *slog.Logger
}

func NewQueue(url, subject string, log *slog.Logger) (*Queue, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{conn: conn, subject: subject, log: log}, nil
}

func (q *Queue) PublishDocumentUploaded(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := q.conn.Publish(q.subject, []byte(documentID)); err != nil {
		return fmt.Errorf("publish document id: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("flush publish: %w", err)
	}
	return nil
}

// SubscribeDocumentUploaded consumes document IDs in a queue group so only
// one worker processes each upload. It blocks until ctx is done.
func (q *Queue) SubscribeDocumentUploaded(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, workerQueueGroup, func(msg *nats.Msg) {
		documentID := strings.TrimSpace(string(msg.Data))
		if documentID == "" {
			q.log.Warn("dropping empty ingest message", "subject", q.subject)
			return
		}
		if err := handler(ctx, documentID); err != nil {
			q.log.Error("ingest handler failed", "document_id", documentID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", q.subject, err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		q.log.Warn("drain subscription", "error", err)
	}
	return ctx.Err()
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}
