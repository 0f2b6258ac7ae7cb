package mocks

import (
	"context"
	"time"

	"github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/docbuddy/internal/pkg/analysis"
	"github.com/airenas/docbuddy/internal/pkg/persistence"
	tapi "github.com/airenas/docbuddy/internal/pkg/transcriber/api"
	"github.com/airenas/docbuddy/internal/pkg/usage"
	"github.com/stretchr/testify/mock"
)

// Blob is a blob store mock
type Blob struct{ mock.Mock }

// Put func mock
func (m *Blob) Put(ctx context.Context, data []byte, path, contentType string) (string, error) {
	args := m.Called(ctx, data, path, contentType)
	return args.String(0), args.Error(1)
}

// Load func mock
func (m *Blob) Load(ctx context.Context, path string) ([]byte, error) {
	args := m.Called(ctx, path)
	return To[[]byte](args.Get(0)), args.Error(1)
}

// DB is postgres DB mock
type DB struct{ mock.Mock }

// InsertDraft func mock
func (m *DB) InsertDraft(ctx context.Context, d *persistence.Draft) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

// LoadDraft func mock
func (m *DB) LoadDraft(ctx context.Context, userID, id string) (*persistence.Draft, error) {
	args := m.Called(ctx, userID, id)
	return To[*persistence.Draft](args.Get(0)), args.Error(1)
}

// ListDrafts func mock
func (m *DB) ListDrafts(ctx context.Context, userID string) ([]*persistence.Draft, error) {
	args := m.Called(ctx, userID)
	return To[[]*persistence.Draft](args.Get(0)), args.Error(1)
}

// UpdateDraft func mock
func (m *DB) UpdateDraft(ctx context.Context, d *persistence.Draft) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

// DeleteDraft func mock
func (m *DB) DeleteDraft(ctx context.Context, userID, id string, version int) error {
	args := m.Called(ctx, userID, id, version)
	return args.Error(0)
}

// LoadTombstone func mock
func (m *DB) LoadTombstone(ctx context.Context, userID, id string) (*persistence.Tombstone, error) {
	args := m.Called(ctx, userID, id)
	return To[*persistence.Tombstone](args.Get(0)), args.Error(1)
}

// FinalizeDraft func mock
func (m *DB) FinalizeDraft(ctx context.Context, s *persistence.Session, d *persistence.Draft) error {
	args := m.Called(ctx, s, d)
	return args.Error(0)
}

// DeleteExpiredDrafts func mock
func (m *DB) DeleteExpiredDrafts(ctx context.Context, userID string, olderThan time.Time) (int, error) {
	args := m.Called(ctx, userID, olderThan)
	return args.Int(0), args.Error(1)
}

// LoadSession func mock
func (m *DB) LoadSession(ctx context.Context, userID, id string) (*persistence.Session, error) {
	args := m.Called(ctx, userID, id)
	return To[*persistence.Session](args.Get(0)), args.Error(1)
}

// ListSessions func mock
func (m *DB) ListSessions(ctx context.Context, userID string) ([]*persistence.Session, error) {
	args := m.Called(ctx, userID)
	return To[[]*persistence.Session](args.Get(0)), args.Error(1)
}

// UpdateSession func mock
func (m *DB) UpdateSession(ctx context.Context, s *persistence.Session) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

// DeleteSession func mock
func (m *DB) DeleteSession(ctx context.Context, userID, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

// LoadSettings func mock
func (m *DB) LoadSettings(ctx context.Context, userID string) (*persistence.Settings, error) {
	args := m.Called(ctx, userID)
	return To[*persistence.Settings](args.Get(0)), args.Error(1)
}

// SaveSettings func mock
func (m *DB) SaveSettings(ctx context.Context, s *persistence.Settings) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

// ListUsage func mock
func (m *DB) ListUsage(ctx context.Context, userID string) ([]*persistence.Usage, error) {
	args := m.Called(ctx, userID)
	return To[[]*persistence.Usage](args.Get(0)), args.Error(1)
}

// LockEmailTable func mock
func (m *DB) LockEmailTable(ctx context.Context, id, msgType string) error {
	args := m.Called(ctx, id, msgType)
	return args.Error(0)
}

// UnLockEmailTable func mock
func (m *DB) UnLockEmailTable(ctx context.Context, id, msgType string, value *int) error {
	args := m.Called(ctx, id, msgType, *value)
	return args.Error(0)
}

// Sender is postgres queue mock
type Sender struct{ mock.Mock }

// SendMessage func mock
func (m *Sender) SendMessage(ctx context.Context, msg messages.Message, queue string) error {
	args := m.Called(ctx, msg, queue)
	return args.Error(0)
}

// Transcriber is speech-to-text client mock
type Transcriber struct{ mock.Mock }

// Transcribe func mock
func (m *Transcriber) Transcribe(ctx context.Context, audio *tapi.Audio) (*tapi.Result, error) {
	args := m.Called(ctx, audio)
	return To[*tapi.Result](args.Get(0)), args.Error(1)
}

// Analyzer is analysis client mock
type Analyzer struct{ mock.Mock }

// Analyze func mock
func (m *Analyzer) Analyze(ctx context.Context, in *analysis.Input) (*analysis.Result, error) {
	args := m.Called(ctx, in)
	return To[*analysis.Result](args.Get(0)), args.Error(1)
}

// Estimator is audio duration estimator mock
type Estimator struct{ mock.Mock }

// EstimateMinutes func mock
func (m *Estimator) EstimateMinutes(ctx context.Context, data []byte) float64 {
	args := m.Called(ctx, data)
	return args.Get(0).(float64)
}

// Ledger is usage ledger mock
type Ledger struct{ mock.Mock }

// CheckQuota func mock
func (m *Ledger) CheckQuota(ctx context.Context, userID string, estimated float64) (*usage.Reservation, error) {
	args := m.Called(ctx, userID, estimated)
	return To[*usage.Reservation](args.Get(0)), args.Error(1)
}

// CommitUsage func mock
func (m *Ledger) CommitUsage(ctx context.Context, r *usage.Reservation, actual float64) {
	m.Called(ctx, r, actual)
}

// Release func mock
func (m *Ledger) Release(ctx context.Context, r *usage.Reservation) {
	m.Called(ctx, r)
}

// Usage func mock
func (m *Ledger) Usage(ctx context.Context, userID string, year, month int) (float64, error) {
	args := m.Called(ctx, userID, year, month)
	return args.Get(0).(float64), args.Error(1)
}

// Now func mock
func (m *Ledger) Now() (int, int) {
	args := m.Called()
	return args.Int(0), args.Int(1)
}

// Limit func mock
func (m *Ledger) Limit() float64 {
	args := m.Called()
	return args.Get(0).(float64)
}

// To converts mock value, nil safe
func To[T interface{}](val interface{}) T {
	if val == nil {
		var res T
		return res
	}
	return val.(T)
}
