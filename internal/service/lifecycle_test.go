package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vehiclesense/internal/clients"
	"vehiclesense/internal/models"
	redisstore "vehiclesense/internal/redis"
	"vehiclesense/internal/repository"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

type fakeSessionStore struct {
	nextID      int64
	sessions    []*models.AccessSession
	openErr     error
	setOwnerErr error
	closeErr    error
}

func (f *fakeSessionStore) active(plate string) *models.AccessSession {
	for _, s := range f.sessions {
		if s.PlateNumber == plate && s.Status == models.SessionStatusActive {
			return s
		}
	}
	return nil
}

func (f *fakeSessionStore) FindActiveByPlate(ctx context.Context, plate string) (*models.AccessSession, error) {
	if s := f.active(plate); s != nil {
		copied := *s
		return &copied, nil
	}
	return nil, repository.ErrSessionNotFound
}

func (f *fakeSessionStore) OpenOrTouch(ctx context.Context, plate string, now time.Time) (*models.AccessSession, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	if s := f.active(plate); s != nil {
		s.LastSeen = now
		copied := *s
		return &copied, nil
	}
	f.nextID++
	s := &models.AccessSession{
		ID:          f.nextID,
		PlateNumber: plate,
		EntryTime:   now,
		LastSeen:    now,
		Status:      models.SessionStatusActive,
	}
	f.sessions = append(f.sessions, s)
	copied := *s
	return &copied, nil
}

func (f *fakeSessionStore) SetOwner(ctx context.Context, sessionID, ownerID int64) error {
	if f.setOwnerErr != nil {
		return f.setOwnerErr
	}
	for _, s := range f.sessions {
		if s.ID == sessionID {
			id := ownerID
			s.OwnerID = &id
			return nil
		}
	}
	return repository.ErrSessionNotFound
}

func (f *fakeSessionStore) CloseStale(ctx context.Context, threshold, now time.Time) ([]models.AccessSession, error) {
	if f.closeErr != nil {
		return nil, f.closeErr
	}
	var closed []models.AccessSession
	for _, s := range f.sessions {
		if s.Status == models.SessionStatusActive && s.LastSeen.Before(threshold) {
			exit := now
			s.ExitTime = &exit
			s.Status = models.SessionStatusExited
			closed = append(closed, *s)
		}
	}
	return closed, nil
}

func (f *fakeSessionStore) List(ctx context.Context, activeOnly bool, limit int) ([]models.AccessSession, error) {
	var out []models.AccessSession
	for _, s := range f.sessions {
		if activeOnly && s.Status != models.SessionStatusActive {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

type fakeDetectionStore struct {
	nextID     int64
	detections []*models.Detection
	appendErr  error
}

func (f *fakeDetectionStore) Append(ctx context.Context, detection *models.Detection) (*models.Detection, error) {
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	f.nextID++
	detection.ID = f.nextID
	copied := *detection
	f.detections = append(f.detections, &copied)
	return detection, nil
}

func (f *fakeDetectionStore) List(ctx context.Context, limit int) ([]models.Detection, error) {
	var out []models.Detection
	for i := len(f.detections) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *f.detections[i])
	}
	return out, nil
}

type fakeOwnerStore struct {
	nextID  int64
	records map[string]*models.OwnerRecord
	inserts int
}

func newFakeOwnerStore() *fakeOwnerStore {
	return &fakeOwnerStore{records: make(map[string]*models.OwnerRecord)}
}

func (f *fakeOwnerStore) FindByPlate(ctx context.Context, plate string) (*models.OwnerRecord, error) {
	if rec, ok := f.records[plate]; ok {
		copied := *rec
		return &copied, nil
	}
	return nil, repository.ErrOwnerNotFound
}

func (f *fakeOwnerStore) Upsert(ctx context.Context, rec *models.OwnerRecord) (*models.OwnerRecord, error) {
	if existing, ok := f.records[rec.PlateNumber]; ok {
		rec.ID = existing.ID
	} else {
		f.nextID++
		rec.ID = f.nextID
		f.inserts++
	}
	copied := *rec
	f.records[rec.PlateNumber] = &copied
	return rec, nil
}

type fakeCropStore struct {
	saved []string
	err   error
}

func (f *fakeCropStore) Save(cameraID, plate string, data []byte, at time.Time) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	path := cameraID + "_" + plate + ".jpg"
	f.saved = append(f.saved, path)
	return path, nil
}

type fakeCache struct {
	entries map[string]redisstore.ActiveSession
	deletes []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]redisstore.ActiveSession)}
}

func (f *fakeCache) Save(ctx context.Context, session redisstore.ActiveSession) error {
	f.entries[session.Plate] = session
	return nil
}

func (f *fakeCache) Get(ctx context.Context, plate string) (*redisstore.ActiveSession, error) {
	if entry, ok := f.entries[plate]; ok {
		return &entry, nil
	}
	return nil, redisstore.ErrCacheMiss
}

func (f *fakeCache) Delete(ctx context.Context, plate string) error {
	delete(f.entries, plate)
	f.deletes = append(f.deletes, plate)
	return nil
}

type countingLookup struct {
	calls  int
	result *clients.OwnerLookup
	err    error
}

func (c *countingLookup) LookupPlate(ctx context.Context, plate string) (*clients.OwnerLookup, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.result, nil
}

type managerFixture struct {
	manager    *LifecycleManager
	sessions   *fakeSessionStore
	detections *fakeDetectionStore
	owners     *fakeOwnerStore
	crops      *fakeCropStore
	cache      *fakeCache
	clock      *fakeClock
}

func newManagerFixture(t *testing.T, timeout time.Duration) *managerFixture {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	sessions := &fakeSessionStore{}
	detections := &fakeDetectionStore{}
	owners := newFakeOwnerStore()
	crops := &fakeCropStore{}
	cache := newFakeCache()

	directory := NewOwnerDirectory(owners, nil, 0, zap.NewNop())
	directory.now = clock.Now

	manager := NewLifecycleManager(sessions, detections, directory, crops, cache, timeout, zap.NewNop())
	manager.now = clock.Now

	return &managerFixture{
		manager:    manager,
		sessions:   sessions,
		detections: detections,
		owners:     owners,
		crops:      crops,
		cache:      cache,
		clock:      clock,
	}
}

func TestProcessDetectionOpensSession(t *testing.T) {
	f := newManagerFixture(t, 300*time.Second)
	t0 := f.clock.Now()

	result, err := f.manager.ProcessDetection(context.Background(), DetectionInput{
		PlateText:  "abc123",
		Confidence: 0.8,
		Image:      []byte("jpeg"),
		CameraID:   "cam7",
	})
	require.NoError(t, err)
	assert.Equal(t, "ABC123", result.Plate)
	assert.Equal(t, "Owner of ABC123", result.Owner.OwnerName)

	require.Len(t, f.sessions.sessions, 1)
	session := f.sessions.sessions[0]
	assert.Equal(t, models.SessionStatusActive, session.Status)
	assert.True(t, session.EntryTime.Equal(t0))
	assert.True(t, session.LastSeen.Equal(t0))
	assert.Nil(t, session.ExitTime)
	require.NotNil(t, session.OwnerID)

	require.Len(t, f.detections.detections, 1)
	detection := f.detections.detections[0]
	assert.Equal(t, "ABC123", detection.OCRText)
	assert.Equal(t, 0.8, detection.Confidence)
	assert.Equal(t, "cam7", detection.CameraID)
	require.NotNil(t, detection.SessionID)
	assert.Equal(t, session.ID, *detection.SessionID)

	require.Len(t, f.crops.saved, 1)
	assert.Contains(t, f.cache.entries, "ABC123")
}

func TestProcessDetectionExtendsSession(t *testing.T) {
	f := newManagerFixture(t, 300*time.Second)
	t0 := f.clock.Now()

	first, err := f.manager.ProcessDetection(context.Background(), DetectionInput{PlateText: "ABC123", Confidence: 0.8})
	require.NoError(t, err)

	f.clock.Advance(60 * time.Second)
	second, err := f.manager.ProcessDetection(context.Background(), DetectionInput{PlateText: "ABC123", Confidence: 0.9})
	require.NoError(t, err)

	assert.Equal(t, first.SessionID, second.SessionID)
	require.Len(t, f.sessions.sessions, 1)
	session := f.sessions.sessions[0]
	assert.True(t, session.EntryTime.Equal(t0))
	assert.True(t, session.LastSeen.Equal(t0.Add(60*time.Second)))
	assert.Len(t, f.detections.detections, 2)
}

func TestSweepClosesStaleSessions(t *testing.T) {
	f := newManagerFixture(t, 300*time.Second)

	_, err := f.manager.ProcessDetection(context.Background(), DetectionInput{PlateText: "ABC123", Confidence: 0.8})
	require.NoError(t, err)

	f.clock.Advance(400 * time.Second)
	closed, err := f.manager.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	session := f.sessions.sessions[0]
	assert.Equal(t, models.SessionStatusExited, session.Status)
	require.NotNil(t, session.ExitTime)
	assert.True(t, session.ExitTime.Equal(f.clock.Now()))
	assert.NotContains(t, f.cache.entries, "ABC123")
}

func TestSweepIsIdempotent(t *testing.T) {
	f := newManagerFixture(t, 300*time.Second)

	_, err := f.manager.ProcessDetection(context.Background(), DetectionInput{PlateText: "ABC123", Confidence: 0.8})
	require.NoError(t, err)

	f.clock.Advance(400 * time.Second)
	closed, err := f.manager.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, closed)
	exitTime := *f.sessions.sessions[0].ExitTime

	f.clock.Advance(10 * time.Second)
	closed, err = f.manager.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, closed)
	assert.True(t, f.sessions.sessions[0].ExitTime.Equal(exitTime))
	assert.Equal(t, models.SessionStatusExited, f.sessions.sessions[0].Status)
}

func TestSweepLeavesFreshSessionsOpen(t *testing.T) {
	f := newManagerFixture(t, 300*time.Second)

	_, err := f.manager.ProcessDetection(context.Background(), DetectionInput{PlateText: "ABC123", Confidence: 0.8})
	require.NoError(t, err)

	f.clock.Advance(200 * time.Second)
	closed, err := f.manager.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, closed)
	assert.Equal(t, models.SessionStatusActive, f.sessions.sessions[0].Status)
	assert.Nil(t, f.sessions.sessions[0].ExitTime)
}

func TestProcessDetectionRejectsEmptyPlate(t *testing.T) {
	f := newManagerFixture(t, 300*time.Second)

	for _, raw := range []string{"", "   ", "!!??"} {
		_, err := f.manager.ProcessDetection(context.Background(), DetectionInput{PlateText: raw, Confidence: 0.5})
		assert.ErrorIs(t, err, ErrEmptyPlate, "plate %q", raw)
	}
	assert.Empty(t, f.sessions.sessions)
	assert.Empty(t, f.detections.detections)
}

func TestProcessDetectionReportsFailedStep(t *testing.T) {
	t.Run("session resolution", func(t *testing.T) {
		f := newManagerFixture(t, 300*time.Second)
		f.sessions.openErr = errors.New("db down")

		_, err := f.manager.ProcessDetection(context.Background(), DetectionInput{PlateText: "ABC123", Confidence: 0.8})
		var procErr *ProcessingError
		require.ErrorAs(t, err, &procErr)
		assert.Equal(t, StepResolveSession, procErr.Step)
	})

	t.Run("owner attach", func(t *testing.T) {
		f := newManagerFixture(t, 300*time.Second)
		f.sessions.setOwnerErr = errors.New("db down")

		_, err := f.manager.ProcessDetection(context.Background(), DetectionInput{PlateText: "ABC123", Confidence: 0.8})
		var procErr *ProcessingError
		require.ErrorAs(t, err, &procErr)
		assert.Equal(t, StepResolveOwner, procErr.Step)
		// the session open already committed and stays committed
		assert.Len(t, f.sessions.sessions, 1)
		assert.Empty(t, f.detections.detections)
	})

	t.Run("detection append", func(t *testing.T) {
		f := newManagerFixture(t, 300*time.Second)
		f.detections.appendErr = errors.New("db down")

		_, err := f.manager.ProcessDetection(context.Background(), DetectionInput{PlateText: "ABC123", Confidence: 0.8})
		var procErr *ProcessingError
		require.ErrorAs(t, err, &procErr)
		assert.Equal(t, StepAppendDetection, procErr.Step)
	})

	t.Run("crop store", func(t *testing.T) {
		f := newManagerFixture(t, 300*time.Second)
		f.crops.err = errors.New("disk full")

		_, err := f.manager.ProcessDetection(context.Background(), DetectionInput{
			PlateText:  "ABC123",
			Confidence: 0.8,
			Image:      []byte("jpeg"),
		})
		var procErr *ProcessingError
		require.ErrorAs(t, err, &procErr)
		assert.Equal(t, StepStoreImage, procErr.Step)
	})
}

func TestProcessDetectionKeepsCallerImagePath(t *testing.T) {
	f := newManagerFixture(t, 300*time.Second)

	_, err := f.manager.ProcessDetection(context.Background(), DetectionInput{
		PlateText:  "ABC123",
		Confidence: 0.8,
		ImagePath:  "static/images/cam0_ABC123_123.jpg",
	})
	require.NoError(t, err)
	assert.Empty(t, f.crops.saved)
	assert.Equal(t, "static/images/cam0_ABC123_123.jpg", f.detections.detections[0].ImagePath)
}

func TestCurrentSessionPrefersCache(t *testing.T) {
	f := newManagerFixture(t, 300*time.Second)

	result, err := f.manager.ProcessDetection(context.Background(), DetectionInput{PlateText: "ABC123", Confidence: 0.8})
	require.NoError(t, err)

	session, err := f.manager.CurrentSession(context.Background(), "abc 123")
	require.NoError(t, err)
	assert.Equal(t, result.SessionID, session.ID)
	assert.Equal(t, models.SessionStatusActive, session.Status)

	// cache miss falls back to the store
	delete(f.cache.entries, "ABC123")
	session, err = f.manager.CurrentSession(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, result.SessionID, session.ID)

	_, err = f.manager.CurrentSession(context.Background(), "ZZZ999")
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
}

func TestUniqueActiveSessionPerPlate(t *testing.T) {
	f := newManagerFixture(t, 300*time.Second)

	for i := 0; i < 5; i++ {
		_, err := f.manager.ProcessDetection(context.Background(), DetectionInput{PlateText: "ABC123", Confidence: 0.8})
		require.NoError(t, err)
		f.clock.Advance(10 * time.Second)
	}

	active, err := f.manager.ListSessions(context.Background(), true, 500)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}
