package usage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/airenas/docbuddy/internal/pkg/persistence"
	"github.com/airenas/docbuddy/internal/pkg/test"
	"github.com/airenas/docbuddy/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	lock sync.Mutex
	data map[string]*persistence.Usage
}

func newMemStore() *memStore {
	return &memStore{data: map[string]*persistence.Usage{}}
}

func (s *memStore) get(userID string, year, month int) *persistence.Usage {
	k := fmt.Sprintf("%s/%d/%d", userID, year, month)
	res, ok := s.data[k]
	if !ok {
		res = &persistence.Usage{UserID: userID, Year: year, Month: month}
		s.data[k] = res
	}
	return res
}

func (s *memStore) Reserve(ctx context.Context, userID string, year, month int, minutes, limit float64) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	u := s.get(userID, year, month)
	if u.MinutesUsed+u.MinutesReserved+minutes > limit {
		return false, nil
	}
	u.MinutesReserved += minutes
	return true, nil
}

func (s *memStore) Commit(ctx context.Context, userID string, year, month int, actual, reserved float64) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	u := s.get(userID, year, month)
	u.MinutesUsed += actual
	u.MinutesReserved -= reserved
	if u.MinutesReserved < 0 {
		u.MinutesReserved = 0
	}
	return nil
}

func (s *memStore) Release(ctx context.Context, userID string, year, month int, reserved float64) error {
	return s.Commit(ctx, userID, year, month, 0, reserved)
}

func (s *memStore) LoadUsage(ctx context.Context, userID string, year, month int) (*persistence.Usage, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	res := *s.get(userID, year, month)
	return &res, nil
}

type mockStore struct{ mock.Mock }

func (m *mockStore) Reserve(ctx context.Context, userID string, year, month int, minutes, limit float64) (bool, error) {
	args := m.Called(ctx, userID, year, month, minutes, limit)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) Commit(ctx context.Context, userID string, year, month int, actual, reserved float64) error {
	args := m.Called(ctx, userID, year, month, actual, reserved)
	return args.Error(0)
}

func (m *mockStore) Release(ctx context.Context, userID string, year, month int, reserved float64) error {
	args := m.Called(ctx, userID, year, month, reserved)
	return args.Error(0)
}

func (m *mockStore) LoadUsage(ctx context.Context, userID string, year, month int) (*persistence.Usage, error) {
	args := m.Called(ctx, userID, year, month)
	var res *persistence.Usage
	if v := args.Get(0); v != nil {
		res = v.(*persistence.Usage)
	}
	return res, args.Error(1)
}

func newTestLedger(t *testing.T, s Store) *Ledger {
	t.Helper()
	res, err := NewLedger(s, 0)
	require.Nil(t, err)
	res.now = func() time.Time { return time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC) }
	return res
}

func TestNewLedger(t *testing.T) {
	l, err := NewLedger(newMemStore(), 0)
	require.Nil(t, err)
	assert.Equal(t, DefaultLimit, l.Limit())
	l, err = NewLedger(newMemStore(), 30)
	require.Nil(t, err)
	assert.Equal(t, 30.0, l.Limit())
	_, err = NewLedger(nil, 30)
	assert.NotNil(t, err)
}

func TestLedger_CheckQuota_Limit(t *testing.T) {
	tests := []struct {
		name      string
		estimated float64
		wantErr   bool
	}{
		{name: "Denied", estimated: 1.0, wantErr: true},
		{name: "Allowed", estimated: 0.3, wantErr: false},
		{name: "Exact", estimated: 0.5, wantErr: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newMemStore()
			l := newTestLedger(t, s)
			s.get("u1", 2025, 3).MinutesUsed = 119.5
			r, err := l.CheckQuota(test.Ctx(t), "u1", tt.estimated)
			if tt.wantErr {
				assert.ErrorIs(t, err, utils.ErrQuotaExceeded)
				assert.Nil(t, r)
				assert.Equal(t, 0.0, s.get("u1", 2025, 3).MinutesReserved)
				return
			}
			require.Nil(t, err)
			assert.True(t, r.Held)
			assert.Equal(t, 2025, r.Year)
			assert.Equal(t, 3, r.Month)
		})
	}
}

func TestLedger_Additive(t *testing.T) {
	s := newMemStore()
	l := newTestLedger(t, s)
	ctx := test.Ctx(t)
	for i := 0; i < 2; i++ {
		r, err := l.CheckQuota(ctx, "u1", 2.5)
		require.Nil(t, err)
		l.CommitUsage(ctx, r, 2.0)
	}
	v, err := l.Usage(ctx, "u1", 2025, 3)
	require.Nil(t, err)
	assert.InDelta(t, 4.0, v, 0.0001)
	assert.Equal(t, 0.0, s.get("u1", 2025, 3).MinutesReserved)
}

func TestLedger_Concurrent(t *testing.T) {
	s := newMemStore()
	l := newTestLedger(t, s)
	ctx := test.Ctx(t)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := l.CheckQuota(ctx, "u1", 1)
			if err == nil {
				l.CommitUsage(ctx, r, 1)
			}
		}()
	}
	wg.Wait()
	v, err := l.Usage(ctx, "u1", 2025, 3)
	require.Nil(t, err)
	assert.InDelta(t, 50.0, v, 0.0001)
}

func TestLedger_ConcurrentLimit(t *testing.T) {
	s := newMemStore()
	l := newTestLedger(t, s)
	ctx := test.Ctx(t)
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r, err := l.CheckQuota(ctx, "u1", 1); err == nil {
				l.CommitUsage(ctx, r, 1)
			}
		}()
	}
	wg.Wait()
	v, err := l.Usage(ctx, "u1", 2025, 3)
	require.Nil(t, err)
	assert.InDelta(t, DefaultLimit, v, 0.0001)
}

func TestLedger_Release(t *testing.T) {
	s := newMemStore()
	l := newTestLedger(t, s)
	ctx := test.Ctx(t)
	r, err := l.CheckQuota(ctx, "u1", 10)
	require.Nil(t, err)
	assert.Equal(t, 10.0, s.get("u1", 2025, 3).MinutesReserved)
	l.Release(ctx, r)
	assert.Equal(t, 0.0, s.get("u1", 2025, 3).MinutesReserved)
	assert.Equal(t, 0.0, s.get("u1", 2025, 3).MinutesUsed)
}

func TestLedger_FailOpen(t *testing.T) {
	s := &mockStore{}
	l := newTestLedger(t, s)
	s.On("Reserve", mock.Anything, "u1", 2025, 3, 1.0, DefaultLimit).Return(false, fmt.Errorf("olia"))
	r, err := l.CheckQuota(test.Ctx(t), "u1", 1.0)
	require.Nil(t, err)
	require.NotNil(t, r)
	assert.False(t, r.Held)

	s.On("Commit", mock.Anything, "u1", 2025, 3, 2.0, 0.0).Return(nil)
	l.CommitUsage(test.Ctx(t), r, 2.0)
	s.AssertNumberOfCalls(t, "Commit", 1)
	l.Release(test.Ctx(t), r)
	s.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLedger_CommitFails(t *testing.T) {
	s := &mockStore{}
	l := newTestLedger(t, s)
	s.On("Commit", mock.Anything, "u1", 2025, 3, 2.0, 1.0).Return(fmt.Errorf("olia"))
	s.On("Release", mock.Anything, "u1", 2025, 3, 1.0).Return(fmt.Errorf("olia"))
	r := &Reservation{UserID: "u1", Year: 2025, Month: 3, Minutes: 1.0, Held: true}
	l.CommitUsage(test.Ctx(t), r, 2.0)
	l.Release(test.Ctx(t), r)
	s.AssertNumberOfCalls(t, "Commit", 1)
	s.AssertNumberOfCalls(t, "Release", 1)
	l.CommitUsage(test.Ctx(t), nil, 2.0)
	s.AssertNumberOfCalls(t, "Commit", 1)
}

func TestLedger_Usage(t *testing.T) {
	s := &mockStore{}
	l := newTestLedger(t, s)
	s.On("LoadUsage", mock.Anything, "u1", 2025, 2).Return(nil, nil)
	s.On("LoadUsage", mock.Anything, "u1", 2025, 3).Return(&persistence.Usage{MinutesUsed: 12}, nil)
	s.On("LoadUsage", mock.Anything, "u1", 2025, 4).Return(nil, fmt.Errorf("olia"))
	v, err := l.Usage(test.Ctx(t), "u1", 2025, 2)
	require.Nil(t, err)
	assert.Equal(t, 0.0, v)
	v, err = l.Usage(test.Ctx(t), "u1", 2025, 3)
	require.Nil(t, err)
	assert.Equal(t, 12.0, v)
	_, err = l.Usage(test.Ctx(t), "u1", 2025, 4)
	assert.NotNil(t, err)
	y, m := l.Now()
	assert.Equal(t, 2025, y)
	assert.Equal(t, 3, m)
}
