package workbooks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// fakeGate implements WorkbookGate for tests with counters.
type fakeGate struct {
	acquireErr error
	acquires   atomic.Int64
	releases   atomic.Int64
}

func (g *fakeGate) AcquireWorkbook(ctx context.Context) error {
	g.acquires.Add(1)
	return g.acquireErr
}
func (g *fakeGate) ReleaseWorkbook() { g.releases.Add(1) }

func TestAdoptGetClose(t *testing.T) {
	gate := &fakeGate{}
	m := NewManager(2*time.Second, time.Second, gate, nil, time.Now)

	f := excelize.NewFile()
	id, err := m.Adopt(context.Background(), f)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Equal(t, int64(1), gate.acquires.Load())
	require.Equal(t, 1, m.Count())

	h, ok := m.Get(id)
	require.True(t, ok)
	require.Equal(t, id, h.ID)

	require.NoError(t, m.CloseHandle(context.Background(), id))
	require.Equal(t, 0, m.Count())
	require.Equal(t, int64(1), gate.releases.Load())
}

func TestTTLExpiryAndEviction(t *testing.T) {
	var now atomic.Int64
	now.Store(time.Now().UnixNano())
	clock := func() time.Time { return time.Unix(0, now.Load()) }

	gate := &fakeGate{}
	m := NewManager(50*time.Millisecond, 5*time.Millisecond, gate, nil, clock)

	_, err := m.Adopt(context.Background(), excelize.NewFile())
	require.NoError(t, err)
	require.Equal(t, 1, m.Count())

	now.Store(time.Now().Add(200 * time.Millisecond).UnixNano())
	m.EvictExpired()

	require.Equal(t, 0, m.Count())
	require.Equal(t, int64(1), gate.releases.Load())
}

func TestReadWriteLocking(t *testing.T) {
	m := NewManager(time.Second, time.Second, nil, nil, time.Now)
	id, err := m.Adopt(context.Background(), excelize.NewFile())
	require.NoError(t, err)

	var r1Acq, r2Acq, wAcq sync.WaitGroup
	r1Acq.Add(1)
	r2Acq.Add(1)
	wAcq.Add(1)

	releaseR1 := make(chan struct{})
	releaseR2 := make(chan struct{})
	writeDone := make(chan struct{})

	go func() {
		err := m.WithRead(id, func(*excelize.File) error {
			r1Acq.Done()
			<-releaseR1
			return nil
		})
		require.NoError(t, err)
	}()

	go func() {
		err := m.WithRead(id, func(*excelize.File) error {
			r2Acq.Done()
			<-releaseR2
			return nil
		})
		require.NoError(t, err)
	}()

	go func() {
		r1Acq.Wait()
		r2Acq.Wait()
		err := m.WithWrite(id, func(*excelize.File) error {
			wAcq.Done()
			return nil
		})
		require.NoError(t, err)
		close(writeDone)
	}()

	ch := make(chan struct{})
	go func() { wAcq.Wait(); close(ch) }()
	select {
	case <-ch:
		t.Fatal("writer should not acquire while readers hold RLock")
	case <-time.After(30 * time.Millisecond):
	}

	close(releaseR1)
	close(releaseR2)
	<-writeDone
}

func TestOpen_UnsupportedFormatReleasesGate(t *testing.T) {
	gate := &fakeGate{}
	m := NewManager(time.Second, time.Second, gate, nil, time.Now)

	_, err := m.Open(context.Background(), "not_excel.txt")
	require.Error(t, err)
	require.Equal(t, int64(1), gate.acquires.Load())
	require.Equal(t, int64(1), gate.releases.Load())
}

func TestOpen_GateBusy(t *testing.T) {
	gate := &fakeGate{acquireErr: context.DeadlineExceeded}
	m := NewManager(time.Second, time.Second, gate, nil, time.Now)

	_, err := m.Open(context.Background(), "sheet.xlsx")
	require.Error(t, err)
	require.Equal(t, int64(1), gate.acquires.Load())
	require.Equal(t, int64(0), gate.releases.Load())
}

type denyValidator struct{}

func (denyValidator) ValidateOpenPath(string) (string, error) { return "", fmt.Errorf("denied") }

func TestOpen_PathValidatorDenied_ReleasesGate(t *testing.T) {
	gate := &fakeGate{}
	m := NewManager(time.Second, time.Second, gate, denyValidator{}, time.Now)

	_, err := m.Open(context.Background(), "ok.xlsx")
	require.Error(t, err)
	require.Equal(t, int64(1), gate.acquires.Load())
	require.Equal(t, int64(1), gate.releases.Load())
}

func TestSheetResolvesAdapter(t *testing.T) {
	m := NewManager(time.Second, time.Second, nil, nil, time.Now)
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "hello"))

	id, err := m.Adopt(context.Background(), f)
	require.NoError(t, err)

	s, err := m.Sheet(id, "Sheet1")
	require.NoError(t, err)
	rows, cols := s.Dimensions()
	require.Positive(t, rows)
	require.Positive(t, cols)
	require.Equal(t, "hello", s.Value(1, 1).Text())
}

func TestSheetUnknownHandle(t *testing.T) {
	m := NewManager(time.Second, time.Second, nil, nil, time.Now)
	_, err := m.Sheet("missing", "Sheet1")
	require.ErrorIs(t, err, ErrHandleNotFound)
}
