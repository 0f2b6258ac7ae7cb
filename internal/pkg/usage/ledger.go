package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/docbuddy/internal/pkg/persistence"
	"github.com/airenas/docbuddy/internal/pkg/utils"
	"github.com/airenas/go-app/pkg/goapp"
)

// DefaultLimit is the monthly transcription limit in minutes
const DefaultLimit = 120.0

// Store keeps monthly usage records, all mutations must be atomic and additive
type Store interface {
	// Reserve adds minutes to the reserved counter only if used+reserved+minutes <= limit
	Reserve(ctx context.Context, userID string, year, month int, minutes, limit float64) (bool, error)
	// Commit adds actual minutes to the used counter and takes reserved minutes off the reserved counter
	Commit(ctx context.Context, userID string, year, month int, actual, reserved float64) error
	// Release takes reserved minutes off the reserved counter
	Release(ctx context.Context, userID string, year, month int, reserved float64) error
	LoadUsage(ctx context.Context, userID string, year, month int) (*persistence.Usage, error)
}

// Reservation keeps minutes held for one in-flight transcription
type Reservation struct {
	UserID  string
	Year    int
	Month   int
	Minutes float64
	// Held is false when the store failed and the check was passed without a reservation
	Held bool
}

// Ledger enforces the monthly transcription limit
type Ledger struct {
	store Store
	limit float64
	now   func() time.Time
}

// NewLedger creates ledger, limit <= 0 - DefaultLimit
func NewLedger(store Store, limit float64) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("no store")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	goapp.Log.Info().Float64("limit", limit).Msg("usage ledger")
	return &Ledger{store: store, limit: limit, now: time.Now}, nil
}

// Limit returns monthly limit in minutes
func (l *Ledger) Limit() float64 {
	return l.limit
}

// CheckQuota reserves estimated minutes for the current month or returns utils.ErrQuotaExceeded.
// A store failure does not block the user: the check passes with an unheld reservation
func (l *Ledger) CheckQuota(ctx context.Context, userID string, estimated float64) (*Reservation, error) {
	now := l.now().UTC()
	res := &Reservation{UserID: userID, Year: now.Year(), Month: int(now.Month()), Minutes: estimated}
	ok, err := l.store.Reserve(ctx, userID, res.Year, res.Month, estimated, l.limit)
	if err != nil {
		goapp.Log.Error().Err(err).Str("user", userID).Msg("can't reserve usage, allow")
		return res, nil
	}
	if !ok {
		return nil, fmt.Errorf("%w: monthly limit of %.0f minutes reached", utils.ErrQuotaExceeded, l.limit)
	}
	res.Held = true
	goapp.Log.Info().Str("user", userID).Float64("minutes", estimated).Msg("reserved")
	return res, nil
}

// CommitUsage adds actual minutes to the reservation month and drops the reservation, errors are only logged
func (l *Ledger) CommitUsage(ctx context.Context, r *Reservation, actual float64) {
	if r == nil {
		return
	}
	reserved := 0.0
	if r.Held {
		reserved = r.Minutes
	}
	if err := l.store.Commit(ctx, r.UserID, r.Year, r.Month, actual, reserved); err != nil {
		goapp.Log.Error().Err(err).Str("user", r.UserID).Float64("minutes", actual).Msg("can't commit usage")
		return
	}
	goapp.Log.Info().Str("user", r.UserID).Float64("minutes", actual).Float64("reserved", reserved).Msg("committed")
}

// Release drops the reservation after a failed transcription, errors are only logged
func (l *Ledger) Release(ctx context.Context, r *Reservation) {
	if r == nil || !r.Held {
		return
	}
	if err := l.store.Release(ctx, r.UserID, r.Year, r.Month, r.Minutes); err != nil {
		goapp.Log.Error().Err(err).Str("user", r.UserID).Msg("can't release usage")
	}
}

// Usage returns used minutes of the month, a missing record is 0
func (l *Ledger) Usage(ctx context.Context, userID string, year, month int) (float64, error) {
	res, err := l.store.LoadUsage(ctx, userID, year, month)
	if err != nil {
		return 0, err
	}
	if res == nil {
		return 0, nil
	}
	return res.MinutesUsed, nil
}

// Now returns the current year and month
func (l *Ledger) Now() (int, int) {
	now := l.now().UTC()
	return now.Year(), int(now.Month())
}
