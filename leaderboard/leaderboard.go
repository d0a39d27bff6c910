// Package leaderboard ranks users by total XP in a cache sorted set,
// rebuilding it from the profile table when the set is empty.
package leaderboard

import (
	"context"
	"fmt"

	"github.com/skillbridge/skillbridge/server/cache"
	"github.com/skillbridge/skillbridge/server/hook"
	"github.com/skillbridge/skillbridge/server/model"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const Key = "leaderboard:xp"

// Entry is one ranked user.
type Entry struct {
	Rank   int    `json:"rank"`
	UserID string `json:"uid"`
	XP     int64  `json:"xp"`
}

type Board struct {
	db     *gorm.DB
	cache  cache.Cache
	size   int
	logger *zap.Logger
	group  singleflight.Group
}

func New(gdb *gorm.DB, c cache.Cache, size int, logger *zap.Logger) *Board {
	if size <= 0 {
		size = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Board{db: gdb, cache: c, size: size, logger: logger}
}

// Record updates the user's score after a committed progression event.
func (b *Board) Record(ctx context.Context, ev *hook.ProgressEvent) error {
	if ev.Progress.UserID == "" || ev.Progress.TotalXP <= 0 {
		return nil
	}
	return b.cache.ZAdd(ctx, Key, float64(ev.Progress.TotalXP), ev.Progress.UserID)
}

// Top returns up to the configured number of users, highest XP first. Ties
// rank by user id.
func (b *Board) Top(ctx context.Context) ([]Entry, error) {
	zs, err := b.cache.ZRevRangeWithScores(ctx, Key, 0, int64(b.size-1))
	if err != nil {
		return nil, fmt.Errorf("leaderboard read: %w", err)
	}
	if len(zs) == 0 {
		if _, err := b.rebuild(ctx); err != nil {
			return nil, err
		}
		if zs, err = b.cache.ZRevRangeWithScores(ctx, Key, 0, int64(b.size-1)); err != nil {
			return nil, fmt.Errorf("leaderboard read: %w", err)
		}
	}
	out := make([]Entry, 0, len(zs))
	for i, z := range zs {
		out = append(out, Entry{Rank: i + 1, UserID: z.Member, XP: int64(z.Score)})
	}
	return out, nil
}

// Refresh reloads the set from the database. Concurrent refreshes share one
// load.
func (b *Board) Refresh(ctx context.Context) (int, error) {
	return b.rebuild(ctx)
}

func (b *Board) rebuild(ctx context.Context) (int, error) {
	v, err, shared := b.group.Do(Key, func() (interface{}, error) {
		var rows []model.UserProgress
		err := b.db.WithContext(ctx).
			Select("user_id", "total_xp").
			Where("total_xp > 0").
			Order("total_xp DESC").
			Find(&rows).Error
		if err != nil {
			return 0, fmt.Errorf("leaderboard rebuild: %w", err)
		}
		for _, r := range rows {
			if err := b.cache.ZAdd(ctx, Key, float64(r.TotalXP), r.UserID); err != nil {
				return 0, fmt.Errorf("leaderboard rebuild: %w", err)
			}
		}
		return len(rows), nil
	})
	if err != nil {
		return 0, err
	}
	n := v.(int)
	b.logger.Debug("leaderboard rebuilt", zap.Int("users", n), zap.Bool("shared", shared))
	return n, nil
}

// Rank returns the 1-based rank of userID, or 0 when unranked.
func (b *Board) Rank(ctx context.Context, userID string) (int, error) {
	e, err := b.Position(ctx, userID)
	return e.Rank, err
}

// Position returns userID's own entry. An unranked user gets Rank 0.
func (b *Board) Position(ctx context.Context, userID string) (Entry, error) {
	e := Entry{UserID: userID}
	r, err := b.cache.ZRevRank(ctx, Key, userID)
	if cache.IsNotFound(err) {
		return e, nil
	}
	if err != nil {
		return e, err
	}
	xp, err := b.cache.ZScore(ctx, Key, userID)
	if cache.IsNotFound(err) {
		// Removed between the two reads.
		return e, nil
	}
	if err != nil {
		return e, err
	}
	e.Rank = int(r) + 1
	e.XP = int64(xp)
	return e, nil
}
