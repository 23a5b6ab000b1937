package repository

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/keepsake-app/keepsake/internal/model"
)

// IFollowGraph reads the social graph. Exists is directional; IsFriend
// accepts a follow relationship in either direction, which is the
// invitation-eligibility rule.
type IFollowGraph interface {
	Exists(ctx context.Context, followerID, followingID string) (bool, error)
	IsFriend(ctx context.Context, userID, otherID string) (bool, error)
}

// FollowRepository implements IFollowGraph on the follows table.
type FollowRepository struct {
	db *gorm.DB
}

// NewFollowRepository creates a new IFollowGraph instance
func NewFollowRepository(db *gorm.DB) IFollowGraph {
	return &FollowRepository{db: db}
}

// Exists reports whether followerID follows followingID.
func (r *FollowRepository) Exists(ctx context.Context, followerID, followingID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// IsFriend reports whether a follow edge exists in either direction.
func (r *FollowRepository) IsFriend(ctx context.Context, userID, otherID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Follow{}).
		Where("(follower_id = ? AND following_id = ?) OR (follower_id = ? AND following_id = ?)",
			userID, otherID, otherID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CachedFollowGraph decorates an IFollowGraph with a short-TTL redis cache.
// Staleness is bounded by the TTL; there is no invalidation path because
// follow edges change outside this subsystem.
type CachedFollowGraph struct {
	inner IFollowGraph
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCachedFollowGraph wraps inner with a redis cache.
func NewCachedFollowGraph(inner IFollowGraph, rdb *redis.Client, ttl time.Duration) *CachedFollowGraph {
	return &CachedFollowGraph{inner: inner, rdb: rdb, ttl: ttl}
}

// Exists answers from cache when possible, falling through to the inner
// graph on miss or on any redis error.
func (c *CachedFollowGraph) Exists(ctx context.Context, followerID, followingID string) (bool, error) {
	key := fmt.Sprintf("follow:%s:%s", followerID, followingID)
	if cached, err := c.rdb.Get(ctx, key).Result(); err == nil {
		return cached == "1", nil
	}

	exists, err := c.inner.Exists(ctx, followerID, followingID)
	if err != nil {
		return false, err
	}

	val := "0"
	if exists {
		val = "1"
	}
	// Best effort; a failed cache write only costs the next lookup.
	c.rdb.Set(ctx, key, val, c.ttl)
	return exists, nil
}

// IsFriend combines the two cached directional lookups.
func (c *CachedFollowGraph) IsFriend(ctx context.Context, userID, otherID string) (bool, error) {
	forward, err := c.Exists(ctx, userID, otherID)
	if err != nil {
		return false, err
	}
	if forward {
		return true, nil
	}
	return c.Exists(ctx, otherID, userID)
}
