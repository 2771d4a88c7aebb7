package storage

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"kanban-api/domain"
)

// DefaultTTL bounds how long a cache entry is trusted without invalidation.
const DefaultTTL = time.Hour

type backend interface {
	BoardByID(ctx context.Context, id primitive.ObjectID) (*domain.Board, error)
	BoardsByMember(ctx context.Context, userID primitive.ObjectID) ([]domain.MemberBoard, error)
	CreateBoard(ctx context.Context, b *domain.Board) error
	RenameBoard(ctx context.Context, id primitive.ObjectID, name string) (*domain.Board, error)
	AddBoardMember(ctx context.Context, boardID, invitedID primitive.ObjectID) error
	CreateTask(ctx context.Context, t *domain.Task) error
	TasksByBoard(ctx context.Context, boardID primitive.ObjectID) ([]domain.Task, error)
	TaskByID(ctx context.Context, id primitive.ObjectID) (*domain.Task, error)
	UpdateTask(ctx context.Context, id primitive.ObjectID, upd domain.TaskUpdate) (*domain.Task, error)
	DeleteTask(ctx context.Context, id primitive.ObjectID) error
}

// Cache wraps a Storage with Redis-backed read-through caching for board and
// task reads, and evicts the affected keys after every mutation. The cache is
// an optimization only: any Redis failure degrades to a miss and the request
// proceeds against the backing store.
type Cache struct {
	*Storage
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	c := &Cache{base: base, redis: client, ttl: ttl}
	if s, ok := base.(*Storage); ok {
		c.Storage = s
	}
	return c
}

// BoardByID returns the board and whether it was served from the cache, so
// the caller can skip miss-path side effects on a hit.
func (c *Cache) BoardByID(ctx context.Context, id primitive.ObjectID) (*domain.Board, bool, error) {
	if b, ok := loadCached[domain.Board](ctx, c, boardKey(id)); ok {
		return &b, true, nil
	}
	b, err := c.base.BoardByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	storeCached(ctx, c, boardKey(id), b)
	return b, false, nil
}

func (c *Cache) BoardsByMember(ctx context.Context, userID primitive.ObjectID) ([]domain.MemberBoard, error) {
	if boards, ok := loadCached[[]domain.MemberBoard](ctx, c, boardsKey(userID)); ok {
		return boards, nil
	}
	boards, err := c.base.BoardsByMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	storeCached(ctx, c, boardsKey(userID), boards)
	return boards, nil
}

func (c *Cache) CreateBoard(ctx context.Context, b *domain.Board) error {
	if err := c.base.CreateBoard(ctx, b); err != nil {
		return err
	}
	c.evict(ctx, boardsKey(b.CreatedBy))
	return nil
}

func (c *Cache) RenameBoard(ctx context.Context, id primitive.ObjectID, name string) (*domain.Board, error) {
	b, err := c.base.RenameBoard(ctx, id, name)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, boardKey(id))
	return b, nil
}

// AddBoardMember grows the member set and evicts the single-board view plus
// both membership lists that now show a stale picture.
func (c *Cache) AddBoardMember(ctx context.Context, boardID, inviterID, invitedID primitive.ObjectID) error {
	if err := c.base.AddBoardMember(ctx, boardID, invitedID); err != nil {
		return err
	}
	c.evict(ctx, boardKey(boardID), boardsKey(inviterID), boardsKey(invitedID))
	return nil
}

func (c *Cache) CreateTask(ctx context.Context, t *domain.Task) error {
	if err := c.base.CreateTask(ctx, t); err != nil {
		return err
	}
	c.evict(ctx, tasksKey(t.BoardID))
	return nil
}

func (c *Cache) TasksByBoard(ctx context.Context, boardID primitive.ObjectID) ([]domain.Task, error) {
	if tasks, ok := loadCached[[]domain.Task](ctx, c, tasksKey(boardID)); ok {
		return tasks, nil
	}
	tasks, err := c.base.TasksByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	storeCached(ctx, c, tasksKey(boardID), tasks)
	return tasks, nil
}

func (c *Cache) TaskByID(ctx context.Context, id primitive.ObjectID) (*domain.Task, error) {
	if t, ok := loadCached[domain.Task](ctx, c, taskKey(id)); ok {
		return &t, nil
	}
	t, err := c.base.TaskByID(ctx, id)
	if err != nil {
		return nil, err
	}
	storeCached(ctx, c, taskKey(id), t)
	return t, nil
}

func (c *Cache) UpdateTask(ctx context.Context, id primitive.ObjectID, upd domain.TaskUpdate) (*domain.Task, error) {
	t, err := c.base.UpdateTask(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, taskKey(id), tasksKey(t.BoardID))
	return t, nil
}

func (c *Cache) DeleteTask(ctx context.Context, id, boardID primitive.ObjectID) error {
	if err := c.base.DeleteTask(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, taskKey(id), tasksKey(boardID))
	return nil
}

func loadCached[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var zero T
	if c.redis == nil {
		return zero, false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return zero, false
	}
	var v T
	if err := sonic.Unmarshal(data, &v); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return zero, false
	}
	return v, true
}

func storeCached[T any](ctx context.Context, c *Cache, key string, v T) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(v)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, keys ...string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, keys...).Result()
}

func boardKey(id primitive.ObjectID) string { return "board:" + id.Hex() }

func boardsKey(id primitive.ObjectID) string { return "boards:" + id.Hex() }

func taskKey(id primitive.ObjectID) string { return "task:" + id.Hex() }

func tasksKey(boardID primitive.ObjectID) string { return "tasks:" + boardID.Hex() }
