// Package store persists UserProgress. Update is the single entry point for
// read-modify-write: it serializes same-user writers with a cache lock and
// commits with a version compare-and-swap, retrying on conflict.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/skillbridge/skillbridge/server/apperr"
	"github.com/skillbridge/skillbridge/server/cache"
	"github.com/skillbridge/skillbridge/server/config"
	"github.com/skillbridge/skillbridge/server/db"
	"github.com/skillbridge/skillbridge/server/model"
	"github.com/skillbridge/skillbridge/server/progression"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProfileStore reads and writes user progress.
type ProfileStore interface {
	// Get returns the stored progress or an apperr.ErrNotFound error.
	Get(ctx context.Context, userID string) (progression.Progress, error)
	// Put writes p if the stored version still equals expectedVersion
	// (0 means "must not exist yet"). It returns p with its new version.
	Put(ctx context.Context, p progression.Progress, expectedVersion int64) (progression.Progress, error)
	// Update applies fn to the current progress (a fresh profile when none
	// is stored) and persists the result. Version races are retried.
	Update(ctx context.Context, userID string, fn UpdateFunc, opts ...UpdateOption) (progression.Progress, error)
}

// UpdateFunc computes the next progress from the current one. Returning an
// error aborts the update with nothing written.
type UpdateFunc func(cur progression.Progress) (progression.Progress, error)

// TxFunc runs extra writes in the same transaction as the profile write.
// next carries the version being committed.
type TxFunc func(tx *gorm.DB, next progression.Progress) error

type updateOptions struct {
	txFuncs []TxFunc
}

type UpdateOption func(*updateOptions)

// WithTx attaches writes that must commit atomically with the profile.
func WithTx(fn TxFunc) UpdateOption {
	return func(o *updateOptions) { o.txFuncs = append(o.txFuncs, fn) }
}

// GormStore is the gorm-backed ProfileStore.
type GormStore struct {
	db     *gorm.DB
	cache  cache.Cache // nil disables the distributed lock
	cfg    config.StoreConfig
	logger *zap.Logger
}

// New creates a GormStore.
func New(gdb *gorm.DB, c cache.Cache, cfg config.StoreConfig, logger *zap.Logger) *GormStore {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Second
	}
	if cfg.LockWait <= 0 {
		cfg.LockWait = 3 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormStore{db: gdb, cache: c, cfg: cfg, logger: logger}
}

func (s *GormStore) Get(ctx context.Context, userID string) (progression.Progress, error) {
	const op = "store.Get"
	p, err := get(s.db.WithContext(ctx), userID)
	if err != nil {
		return progression.Progress{}, wrapDB(op, err)
	}
	return p, nil
}

func (s *GormStore) Put(ctx context.Context, p progression.Progress, expectedVersion int64) (progression.Progress, error) {
	const op = "store.Put"
	out, err := put(s.db.WithContext(ctx), p, expectedVersion)
	if err != nil {
		return progression.Progress{}, wrapDB(op, err)
	}
	return out, nil
}

func (s *GormStore) Update(ctx context.Context, userID string, fn UpdateFunc, opts ...UpdateOption) (progression.Progress, error) {
	const op = "store.Update"
	if userID == "" {
		return progression.Progress{}, apperr.InvalidInput(op, "user id is required")
	}
	var o updateOptions
	for _, opt := range opts {
		opt(&o)
	}

	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			s.logger.Debug("retrying progress update",
				zap.String("user_id", userID), zap.Int("attempt", attempt), zap.Error(lastErr))
		}
		next, err := s.updateOnce(ctx, userID, fn, &o)
		if err == nil {
			return next, nil
		}
		// Only a lost version race is worth another read-modify-write.
		// Conflicts raised by fn or a WithTx write are final.
		if !errors.Is(err, errVersionMismatch) {
			return progression.Progress{}, err
		}
		lastErr = err
	}
	s.logger.Warn("progress update gave up after retries",
		zap.String("user_id", userID), zap.Int("retries", s.cfg.MaxRetries))
	return progression.Progress{}, apperr.Conflict(op, lastErr)
}

func (s *GormStore) updateOnce(ctx context.Context, userID string, fn UpdateFunc, o *updateOptions) (progression.Progress, error) {
	const op = "store.Update"
	release, err := s.lock(ctx, userID)
	if err != nil {
		return progression.Progress{}, err
	}
	defer release()

	var next progression.Progress
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := get(tx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			cur = progression.NewProgress(userID)
		} else if err != nil {
			return err
		}
		expected := cur.Version

		computed, err := fn(cur)
		if err != nil {
			return err
		}
		computed.UserID = userID
		next, err = put(tx, computed, expected)
		if err != nil {
			return err
		}
		for _, extra := range o.txFuncs {
			if err := extra(tx, next); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return progression.Progress{}, wrapDB(op, err)
	}
	return next, nil
}

// lock takes lock:progress:<uid>, polling with backoff until LockWait
// elapses. The returned release only deletes the key while it still holds
// this caller's token.
func (s *GormStore) lock(ctx context.Context, userID string) (func(), error) {
	const op = "store.lock"
	if s.cache == nil {
		return func() {}, nil
	}
	key := "lock:progress:" + userID
	token := uuid.NewString()
	deadline := time.Now().Add(s.cfg.LockWait)
	backoff := 5 * time.Millisecond

	for {
		ok, err := s.cache.SetNX(ctx, key, token, s.cfg.LockTTL)
		if err != nil {
			return nil, apperr.Wrap(op, apperr.ErrUnavailable, "lock service unavailable", err)
		}
		if ok {
			return func() {
				// Release on a fresh context so a cancelled request still
				// frees the lock.
				rctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if _, err := s.cache.DelIfEquals(rctx, key, token); err != nil {
					s.logger.Warn("release progress lock", zap.String("user_id", userID), zap.Error(err))
				}
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, apperr.Conflict(op, fmt.Errorf("lock %s held by another writer", key))
		}
		select {
		case <-ctx.Done():
			return nil, apperr.Wrap(op, apperr.ErrTimeout, "waiting for profile lock", ctx.Err())
		case <-time.After(backoff):
		}
		if backoff < 100*time.Millisecond {
			backoff *= 2
		}
	}
}

var errVersionMismatch = errors.New("version mismatch")

func get(tx *gorm.DB, userID string) (progression.Progress, error) {
	var row model.UserProgress
	if err := tx.Where("user_id = ?", userID).First(&row).Error; err != nil {
		return progression.Progress{}, err
	}
	return row.ToProgress(), nil
}

func put(tx *gorm.DB, p progression.Progress, expected int64) (progression.Progress, error) {
	if p.UserID == "" {
		return progression.Progress{}, apperr.InvalidInput("store.Put", "user id is required")
	}
	p.Version = expected + 1
	row := model.FromProgress(p)

	if expected == 0 {
		if err := tx.Create(row).Error; err != nil {
			if db.IsUniqueViolation(err) {
				return progression.Progress{}, errVersionMismatch
			}
			return progression.Progress{}, err
		}
		return p, nil
	}

	res := tx.Model(&model.UserProgress{}).
		Where("user_id = ? AND version = ?", p.UserID, expected).
		Updates(map[string]interface{}{
			"total_xp":           row.TotalXP,
			"current_streak":     row.CurrentStreak,
			"best_streak":        row.BestStreak,
			"last_activity_date": row.LastActivityDate,
			"completed_lessons":  row.CompletedLessons,
			"current_phase":      row.CurrentPhase,
			"readiness_score":    row.ReadinessScore,
			"recent_scores":      row.RecentScores,
			"credits":            row.Credits,
			"skill_credits":      row.SkillCredits,
			"phase_lessons":      row.PhaseLessons,
			"phase_simulations":  row.PhaseSimulations,
			"interests":          row.Interests,
			"version":            row.Version,
		})
	if res.Error != nil {
		return progression.Progress{}, res.Error
	}
	if res.RowsAffected == 0 {
		return progression.Progress{}, errVersionMismatch
	}
	return p, nil
}

// wrapDB maps store-level failures onto apperr kinds. Errors that already
// carry a kind pass through.
func wrapDB(op string, err error) error {
	var ae *apperr.Error
	switch {
	case errors.As(err, &ae):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound(op, "profile")
	case errors.Is(err, errVersionMismatch):
		return apperr.Conflict(op, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apperr.Wrap(op, apperr.ErrTimeout, "store timed out", err)
	default:
		return apperr.Wrap(op, apperr.ErrExternal, "store failed", err)
	}
}
