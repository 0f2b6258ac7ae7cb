package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/docbuddy/internal/pkg/utils"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vgarvardt/gue/v5"
	"github.com/vgarvardt/gue/v5/adapter/pgxv5"
)

// Sender enqueues notification messages to the postgres gue queue
type Sender struct {
	gc    *gue.Client
	delay time.Duration
}

// NewSender initializes gue sender, delay postpones the job run
func NewSender(pool *pgxpool.Pool, delay time.Duration) (*Sender, error) {
	gc, err := gue.NewClient(pgxv5.NewConnPool(pool), gue.WithClientLogger(utils.NewGueLoggerAdapter("sender")))
	if err != nil {
		return nil, fmt.Errorf("can't init gue: %w", err)
	}
	return &Sender{gc: gc, delay: delay}, nil
}

// SendMessage enqueues the message, queue name is also the job type
func (sender *Sender) SendMessage(ctx context.Context, msg messages.Message, queue string) error {
	j, err := newJob(msg, queue, time.Now().Add(sender.delay))
	if err != nil {
		return err
	}
	if err := sender.gc.Enqueue(ctx, j); err != nil {
		return fmt.Errorf("can't send msg to %s: %w", queue, err)
	}
	goapp.Log.Info().Str("queue", queue).Str("job", j.ID.String()).Time("runAt", j.RunAt).Msg("enqueued")
	return nil
}

func newJob(msg messages.Message, queue string, runAt time.Time) (*gue.Job, error) {
	args, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("can't marshal msg: %w", err)
	}
	return &gue.Job{Type: queue, Queue: queue, Args: args, RunAt: runAt}, nil
}
