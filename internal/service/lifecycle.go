package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"vehiclesense/internal/models"
	redisstore "vehiclesense/internal/redis"
)

// SessionStore is the access-session persistence contract. FindActiveByPlate
// reports a miss with repository.ErrSessionNotFound. OpenOrTouch must be
// atomic per plate: a concurrent duplicate open resolves to a touch, so at
// most one active session exists per plate at any time.
type SessionStore interface {
	FindActiveByPlate(ctx context.Context, plate string) (*models.AccessSession, error)
	OpenOrTouch(ctx context.Context, plate string, now time.Time) (*models.AccessSession, error)
	SetOwner(ctx context.Context, sessionID, ownerID int64) error
	CloseStale(ctx context.Context, threshold, now time.Time) ([]models.AccessSession, error)
	List(ctx context.Context, activeOnly bool, limit int) ([]models.AccessSession, error)
}

// DetectionStore persists recognition events.
type DetectionStore interface {
	Append(ctx context.Context, detection *models.Detection) (*models.Detection, error)
	List(ctx context.Context, limit int) ([]models.Detection, error)
}

// CropStore writes detection crop images and returns stable paths.
type CropStore interface {
	Save(cameraID, plate string, data []byte, at time.Time) (string, error)
}

// ActiveSessionCache is the optional redis-backed fast path for open sessions.
type ActiveSessionCache interface {
	Save(ctx context.Context, session redisstore.ActiveSession) error
	Get(ctx context.Context, plate string) (*redisstore.ActiveSession, error)
	Delete(ctx context.Context, plate string) error
}

const defaultCameraID = "cam0"

// DetectionInput is one detection event handed in by an ingest gateway.
type DetectionInput struct {
	PlateText  string
	Confidence float64
	Image      []byte
	ImagePath  string // set when the caller already stored the crop
	CameraID   string
}

// DetectionResult is returned to the ingest caller.
type DetectionResult struct {
	SessionID int64            `json:"session_id"`
	Plate     string           `json:"plate"`
	Owner     models.OwnerInfo `json:"owner"`
}

// LifecycleManager turns a stream of repeated plate detections into coherent
// entry/exit sessions: it opens a session on first sight of a plate, extends
// it on every repeat, and Sweep closes sessions whose last detection is older
// than the configured timeout.
type LifecycleManager struct {
	sessions   SessionStore
	detections DetectionStore
	owners     *OwnerDirectory
	crops      CropStore
	cache      ActiveSessionCache
	timeout    time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// NewLifecycleManager builds the manager. cache may be nil.
func NewLifecycleManager(
	sessions SessionStore,
	detections DetectionStore,
	owners *OwnerDirectory,
	crops CropStore,
	cache ActiveSessionCache,
	timeout time.Duration,
	logger *zap.Logger,
) *LifecycleManager {
	return &LifecycleManager{
		sessions:   sessions,
		detections: detections,
		owners:     owners,
		crops:      crops,
		cache:      cache,
		timeout:    timeout,
		now:        time.Now,
		logger:     logger,
	}
}

// ProcessDetection runs the full pipeline for one detection event: normalize,
// open or extend the session, store the crop, resolve the owner, append the
// detection row. Failures report the step that broke; steps already committed
// stay committed.
func (m *LifecycleManager) ProcessDetection(ctx context.Context, input DetectionInput) (*DetectionResult, error) {
	plate := NormalizePlate(input.PlateText)
	if plate == "" {
		return nil, ErrEmptyPlate
	}
	camera := input.CameraID
	if camera == "" {
		camera = defaultCameraID
	}
	now := m.now().UTC()

	session, err := m.sessions.OpenOrTouch(ctx, plate, now)
	if err != nil {
		return nil, &ProcessingError{Step: StepResolveSession, Err: err}
	}
	opened := session.EntryTime.Equal(session.LastSeen)

	imagePath := input.ImagePath
	if imagePath == "" && len(input.Image) > 0 {
		imagePath, err = m.crops.Save(camera, plate, input.Image, now)
		if err != nil {
			return nil, &ProcessingError{Step: StepStoreImage, Err: err}
		}
	}

	owner, err := m.owners.Resolve(ctx, plate)
	if err != nil {
		return nil, &ProcessingError{Step: StepResolveOwner, Err: err}
	}
	if err := m.sessions.SetOwner(ctx, session.ID, owner.ID); err != nil {
		return nil, &ProcessingError{Step: StepResolveOwner, Err: err}
	}
	session.OwnerID = &owner.ID

	detection := &models.Detection{
		SessionID:  &session.ID,
		Timestamp:  now,
		OCRText:    plate,
		Confidence: input.Confidence,
		ImagePath:  imagePath,
		CameraID:   camera,
	}
	if _, err := m.detections.Append(ctx, detection); err != nil {
		return nil, &ProcessingError{Step: StepAppendDetection, Err: err}
	}

	if m.cache != nil {
		cacheErr := m.cache.Save(ctx, redisstore.ActiveSession{
			SessionID: session.ID,
			Plate:     plate,
			EntryTime: session.EntryTime,
			LastSeen:  session.LastSeen,
		})
		if cacheErr != nil {
			m.logger.Warn("failed to cache active session", zap.Error(cacheErr))
		}
	}

	m.logger.Info("processed detection",
		zap.String("plate", plate),
		zap.Int64("session_id", session.ID),
		zap.Bool("session_opened", opened),
		zap.Float64("confidence", input.Confidence),
		zap.String("camera_id", camera))

	return &DetectionResult{
		SessionID: session.ID,
		Plate:     plate,
		Owner:     owner.Info(),
	}, nil
}

// Sweep closes every active session whose last detection is older than the
// timeout, stamping exit_time with the sweep instant. Running it again with
// no intervening detections changes nothing.
func (m *LifecycleManager) Sweep(ctx context.Context) (int, error) {
	now := m.now().UTC()
	closed, err := m.sessions.CloseStale(ctx, now.Add(-m.timeout), now)
	if err != nil {
		return 0, err
	}

	for _, session := range closed {
		if m.cache != nil {
			if err := m.cache.Delete(ctx, session.PlateNumber); err != nil {
				m.logger.Warn("failed to evict active session cache", zap.Error(err))
			}
		}
		m.logger.Info("session exited by timeout",
			zap.String("plate", session.PlateNumber),
			zap.Int64("session_id", session.ID))
	}
	return len(closed), nil
}

// CurrentSession returns the open session for a plate, trying the cache
// before the store. It reports repository.ErrSessionNotFound when the vehicle
// is not on premises.
func (m *LifecycleManager) CurrentSession(ctx context.Context, rawPlate string) (*models.AccessSession, error) {
	plate := NormalizePlate(rawPlate)
	if plate == "" {
		return nil, ErrEmptyPlate
	}

	if m.cache != nil {
		if cached, err := m.cache.Get(ctx, plate); err == nil {
			return &models.AccessSession{
				ID:          cached.SessionID,
				PlateNumber: cached.Plate,
				EntryTime:   cached.EntryTime,
				LastSeen:    cached.LastSeen,
				Status:      models.SessionStatusActive,
			}, nil
		} else if !errors.Is(err, redisstore.ErrCacheMiss) {
			m.logger.Warn("active session cache read failed", zap.Error(err))
		}
	}
	return m.sessions.FindActiveByPlate(ctx, plate)
}

// ListSessions returns recent sessions, most recently seen first.
func (m *LifecycleManager) ListSessions(ctx context.Context, activeOnly bool, limit int) ([]models.AccessSession, error) {
	return m.sessions.List(ctx, activeOnly, limit)
}

// ListDetections returns recent detections, most recent first.
func (m *LifecycleManager) ListDetections(ctx context.Context, limit int) ([]models.Detection, error) {
	return m.detections.List(ctx, limit)
}
