package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/airenas/docbuddy/internal/pkg/utils"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/vgarvardt/gue/v5"
)

// Opts configures a queue handler
type Opts[TM any] struct {
	backoff    gue.Backoff
	timeout    time.Duration
	maxRetries int32
}

// Create wraps the message handler into a gue work func.
// Permanent failures (missing record, bad message, duplicate) are dropped, others are rescheduled with backoff
func Create[TM any, SD any](data *SD, hf func(context.Context, *TM, *SD) error, opts *Opts[TM]) gue.WorkFunc {
	if opts == nil {
		goapp.Log.Panic().Msg("no opts provided")
	}
	return func(ctx context.Context, j *gue.Job) error {
		goapp.Log.Info().Str("queue", j.Queue).Str("type", j.Type).Int32("errCount", j.ErrorCount).Msg("got msg")

		var m TM
		if err := json.Unmarshal(j.Args, &m); err != nil {
			goapp.Log.Error().Err(err).Str("queue", j.Queue).Msg("could not unmarshal message, drop")
			return nil
		}
		wrkCtx, cf := context.WithTimeout(ctx, opts.timeout)
		defer cf()
		err := hf(wrkCtx, &m, data)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			goapp.Log.Warn().Err(err).Str("queue", j.Queue).Msg("permanent failure, drop")
			return nil
		}
		if j.ErrorCount >= opts.maxRetries {
			goapp.Log.Error().Err(err).Str("queue", j.Queue).Int32("errCount", j.ErrorCount).Msg("too many failures, drop")
			return nil
		}
		delay := opts.backoff(int(j.ErrorCount + 1))
		goapp.Log.Info().Err(err).Str("queue", j.Queue).Dur("after", delay).Msg("retry after")
		return gue.ErrRescheduleJobIn(delay, err.Error())
	}
}

func retryable(err error) bool {
	return !errors.Is(err, utils.ErrNotFound) && !errors.Is(err, utils.ErrValidation) &&
		!errors.Is(err, utils.ErrConflict)
}

// DefaultOpts returns 15 min timeout, 3 retries and jittered backoff
func DefaultOpts[TM any]() *Opts[TM] {
	return &Opts[TM]{timeout: time.Minute * 15, maxRetries: 3, backoff: DefaultBackoff()}
}

// DefaultBackoff grows by 10s per retry with full jitter
func DefaultBackoff() gue.Backoff {
	return func(retries int) time.Duration {
		return fullJitter(time.Duration(retries) * time.Second * 10)
	}
}

// NoBackoff retries immediately
func NoBackoff() gue.Backoff {
	return func(retries int) time.Duration {
		return 0
	}
}

// DefaultBackoffOrTest returns NoBackoff in tests
func DefaultBackoffOrTest(test bool) gue.Backoff {
	if test {
		return NoBackoff()
	}
	return DefaultBackoff()
}

// WithTimeout sets a timeout of one handler call
func (o *Opts[TM]) WithTimeout(timeout time.Duration) *Opts[TM] {
	o.timeout = timeout
	return o
}

// WithBackoff sets a retry backoff
func (o *Opts[TM]) WithBackoff(b gue.Backoff) *Opts[TM] {
	o.backoff = b
	return o
}

// WithMaxRetries sets how many failures are rescheduled
func (o *Opts[TM]) WithMaxRetries(n int32) *Opts[TM] {
	o.maxRetries = n
	return o
}

// fullJitter return randomized duration in interval [0, t)
func fullJitter(t time.Duration) time.Duration {
	return time.Duration(float64(t) * rand.Float64())
}

func (o *Opts[TM]) String() string {
	return fmt.Sprintf("timeout=%v, retries=%d", o.timeout, o.maxRetries)
}
