package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"kanban-api/domain"
)

type stubBackend struct {
	boardByIDFn      func(ctx context.Context, id primitive.ObjectID) (*domain.Board, error)
	boardsByMemberFn func(ctx context.Context, userID primitive.ObjectID) ([]domain.MemberBoard, error)
	createBoardFn    func(ctx context.Context, b *domain.Board) error
	renameBoardFn    func(ctx context.Context, id primitive.ObjectID, name string) (*domain.Board, error)
	addMemberFn      func(ctx context.Context, boardID, invitedID primitive.ObjectID) error
	createTaskFn     func(ctx context.Context, t *domain.Task) error
	tasksByBoardFn   func(ctx context.Context, boardID primitive.ObjectID) ([]domain.Task, error)
	taskByIDFn       func(ctx context.Context, id primitive.ObjectID) (*domain.Task, error)
	updateTaskFn     func(ctx context.Context, id primitive.ObjectID, upd domain.TaskUpdate) (*domain.Task, error)
	deleteTaskFn     func(ctx context.Context, id primitive.ObjectID) error
}

func (s *stubBackend) BoardByID(ctx context.Context, id primitive.ObjectID) (*domain.Board, error) {
	if s.boardByIDFn == nil {
		return nil, errors.New("unexpected BoardByID call")
	}
	return s.boardByIDFn(ctx, id)
}

func (s *stubBackend) BoardsByMember(ctx context.Context, userID primitive.ObjectID) ([]domain.MemberBoard, error) {
	if s.boardsByMemberFn == nil {
		return nil, errors.New("unexpected BoardsByMember call")
	}
	return s.boardsByMemberFn(ctx, userID)
}

func (s *stubBackend) CreateBoard(ctx context.Context, b *domain.Board) error {
	if s.createBoardFn == nil {
		return errors.New("unexpected CreateBoard call")
	}
	return s.createBoardFn(ctx, b)
}

func (s *stubBackend) RenameBoard(ctx context.Context, id primitive.ObjectID, name string) (*domain.Board, error) {
	if s.renameBoardFn == nil {
		return nil, errors.New("unexpected RenameBoard call")
	}
	return s.renameBoardFn(ctx, id, name)
}

func (s *stubBackend) AddBoardMember(ctx context.Context, boardID, invitedID primitive.ObjectID) error {
	if s.addMemberFn == nil {
		return errors.New("unexpected AddBoardMember call")
	}
	return s.addMemberFn(ctx, boardID, invitedID)
}

func (s *stubBackend) CreateTask(ctx context.Context, t *domain.Task) error {
	if s.createTaskFn == nil {
		return errors.New("unexpected CreateTask call")
	}
	return s.createTaskFn(ctx, t)
}

func (s *stubBackend) TasksByBoard(ctx context.Context, boardID primitive.ObjectID) ([]domain.Task, error) {
	if s.tasksByBoardFn == nil {
		return nil, errors.New("unexpected TasksByBoard call")
	}
	return s.tasksByBoardFn(ctx, boardID)
}

func (s *stubBackend) TaskByID(ctx context.Context, id primitive.ObjectID) (*domain.Task, error) {
	if s.taskByIDFn == nil {
		return nil, errors.New("unexpected TaskByID call")
	}
	return s.taskByIDFn(ctx, id)
}

func (s *stubBackend) UpdateTask(ctx context.Context, id primitive.ObjectID, upd domain.TaskUpdate) (*domain.Task, error) {
	if s.updateTaskFn == nil {
		return nil, errors.New("unexpected UpdateTask call")
	}
	return s.updateTaskFn(ctx, id, upd)
}

func (s *stubBackend) DeleteTask(ctx context.Context, id primitive.ObjectID) error {
	if s.deleteTaskFn == nil {
		return errors.New("unexpected DeleteTask call")
	}
	return s.deleteTaskFn(ctx, id)
}

func newTestCache(t *testing.T, base backend) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewCache(base, client, time.Minute), mr
}

func TestCacheBoardByIDMissThenHit(t *testing.T) {
	ctx := context.Background()
	boardID := primitive.NewObjectID()
	want := domain.Board{ID: boardID, Name: "Sprint 1", CreatedBy: primitive.NewObjectID()}
	want.Members = []primitive.ObjectID{want.CreatedBy}

	var calls int
	cache, mr := newTestCache(t, &stubBackend{
		boardByIDFn: func(ctx context.Context, id primitive.ObjectID) (*domain.Board, error) {
			calls++
			if id != boardID {
				t.Fatalf("unexpected board id: %s", id.Hex())
			}
			b := want
			return &b, nil
		},
	})

	b, cached, err := cache.BoardByID(ctx, boardID)
	if err != nil {
		t.Fatalf("fetch board: %v", err)
	}
	if cached {
		t.Fatalf("first fetch should be a miss")
	}
	if b.Name != want.Name {
		t.Fatalf("unexpected board: %#v", b)
	}
	if calls != 1 {
		t.Fatalf("expected 1 backend call, got %d", calls)
	}
	if ttl := mr.TTL(boardKey(boardID)); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected TTL: %v", ttl)
	}

	b, cached, err = cache.BoardByID(ctx, boardID)
	if err != nil {
		t.Fatalf("fetch cached board: %v", err)
	}
	if !cached {
		t.Fatalf("second fetch should be a hit")
	}
	if b.Name != want.Name || b.ID != want.ID {
		t.Fatalf("unexpected cached board: %#v", b)
	}
	if calls != 1 {
		t.Fatalf("expected cached fetch to avoid backend, calls=%d", calls)
	}
}

func TestCacheBoardByIDRedisDownFallsBack(t *testing.T) {
	ctx := context.Background()
	boardID := primitive.NewObjectID()

	var calls int
	cache, mr := newTestCache(t, &stubBackend{
		boardByIDFn: func(ctx context.Context, id primitive.ObjectID) (*domain.Board, error) {
			calls++
			return &domain.Board{ID: id, Name: "offline"}, nil
		},
	})
	mr.Close()

	b, cached, err := cache.BoardByID(ctx, boardID)
	if err != nil {
		t.Fatalf("fetch with redis down: %v", err)
	}
	if cached {
		t.Fatalf("redis failure must degrade to a miss")
	}
	if b.Name != "offline" || calls != 1 {
		t.Fatalf("expected backend fallback, board=%#v calls=%d", b, calls)
	}
}

func TestCacheCorruptEntryTreatedAsMiss(t *testing.T) {
	ctx := context.Background()
	boardID := primitive.NewObjectID()

	var calls int
	cache, mr := newTestCache(t, &stubBackend{
		boardByIDFn: func(ctx context.Context, id primitive.ObjectID) (*domain.Board, error) {
			calls++
			return &domain.Board{ID: id, Name: "fresh"}, nil
		},
	})
	mr.Set(boardKey(boardID), "{not json")

	b, cached, err := cache.BoardByID(ctx, boardID)
	if err != nil {
		t.Fatalf("fetch past corrupt entry: %v", err)
	}
	if cached || b.Name != "fresh" || calls != 1 {
		t.Fatalf("corrupt entry should fall through to backend, cached=%v calls=%d", cached, calls)
	}
}

func TestCacheRenameBoardReadAfterWrite(t *testing.T) {
	ctx := context.Background()
	boardID := primitive.NewObjectID()
	name := "Sprint 1"

	cache, mr := newTestCache(t, &stubBackend{
		boardByIDFn: func(ctx context.Context, id primitive.ObjectID) (*domain.Board, error) {
			return &domain.Board{ID: id, Name: name}, nil
		},
		renameBoardFn: func(ctx context.Context, id primitive.ObjectID, newName string) (*domain.Board, error) {
			name = newName
			return &domain.Board{ID: id, Name: name}, nil
		},
	})

	if _, _, err := cache.BoardByID(ctx, boardID); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	if !mr.Exists(boardKey(boardID)) {
		t.Fatalf("expected board cached after fetch")
	}

	if _, err := cache.RenameBoard(ctx, boardID, "Sprint 2"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if mr.Exists(boardKey(boardID)) {
		t.Fatalf("board key should be evicted after rename")
	}

	b, cached, err := cache.BoardByID(ctx, boardID)
	if err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if cached {
		t.Fatalf("refetch after eviction should miss")
	}
	if b.Name != "Sprint 2" {
		t.Fatalf("read after write returned stale name %q", b.Name)
	}
}

func TestCacheRenameBoardErrorPreservesCache(t *testing.T) {
	ctx := context.Background()
	boardID := primitive.NewObjectID()

	cache, mr := newTestCache(t, &stubBackend{
		renameBoardFn: func(context.Context, primitive.ObjectID, string) (*domain.Board, error) {
			return nil, errors.New("boom")
		},
	})
	mr.Set(boardKey(boardID), `{"name":"Sprint 1"}`)

	if _, err := cache.RenameBoard(ctx, boardID, "Sprint 2"); err == nil {
		t.Fatalf("expected rename error")
	}
	if !mr.Exists(boardKey(boardID)) {
		t.Fatalf("cache should remain on write error")
	}
}

func TestCacheCreateBoardEvictsCreatorList(t *testing.T) {
	ctx := context.Background()
	creator := primitive.NewObjectID()

	cache, mr := newTestCache(t, &stubBackend{
		createBoardFn: func(ctx context.Context, b *domain.Board) error {
			b.ID = primitive.NewObjectID()
			return nil
		},
	})
	mr.Set(boardsKey(creator), "[]")

	b := domain.NewBoard("Sprint 1", creator)
	if err := cache.CreateBoard(ctx, &b); err != nil {
		t.Fatalf("create board: %v", err)
	}
	if mr.Exists(boardsKey(creator)) {
		t.Fatalf("creator board list should be evicted")
	}
}

func TestCacheAddBoardMemberEvictsBoardAndLists(t *testing.T) {
	ctx := context.Background()
	boardID := primitive.NewObjectID()
	inviter := primitive.NewObjectID()
	invited := primitive.NewObjectID()

	cache, mr := newTestCache(t, &stubBackend{
		addMemberFn: func(ctx context.Context, bid, uid primitive.ObjectID) error {
			if bid != boardID || uid != invited {
				t.Fatalf("unexpected add: board=%s user=%s", bid.Hex(), uid.Hex())
			}
			return nil
		},
	})
	mr.Set(boardKey(boardID), "{}")
	mr.Set(boardsKey(inviter), "[]")
	mr.Set(boardsKey(invited), "[]")

	if err := cache.AddBoardMember(ctx, boardID, inviter, invited); err != nil {
		t.Fatalf("add member: %v", err)
	}
	for _, key := range []string{boardKey(boardID), boardsKey(inviter), boardsKey(invited)} {
		if mr.Exists(key) {
			t.Fatalf("key %s should be evicted", key)
		}
	}
}

func TestCacheTasksByBoardMissThenHit(t *testing.T) {
	ctx := context.Background()
	boardID := primitive.NewObjectID()
	want := []domain.Task{{ID: primitive.NewObjectID(), BoardID: boardID, Title: "Fix bug", Category: domain.CategoryUnassigned}}

	var calls int
	cache, mr := newTestCache(t, &stubBackend{
		tasksByBoardFn: func(ctx context.Context, id primitive.ObjectID) ([]domain.Task, error) {
			calls++
			return append([]domain.Task(nil), want...), nil
		},
	})

	tasks, err := cache.TasksByBoard(ctx, boardID)
	if err != nil {
		t.Fatalf("fetch tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "Fix bug" {
		t.Fatalf("unexpected tasks: %#v", tasks)
	}
	if !mr.Exists(tasksKey(boardID)) {
		t.Fatalf("task list should be cached")
	}

	cached, err := cache.TasksByBoard(ctx, boardID)
	if err != nil {
		t.Fatalf("fetch cached tasks: %v", err)
	}
	if !reflect.DeepEqual(cached[0].ID, want[0].ID) || calls != 1 {
		t.Fatalf("expected cached fetch to avoid backend, calls=%d", calls)
	}
}

func TestCacheCreateTaskEvictsBoardList(t *testing.T) {
	ctx := context.Background()
	boardID := primitive.NewObjectID()

	cache, mr := newTestCache(t, &stubBackend{
		createTaskFn: func(ctx context.Context, task *domain.Task) error {
			task.ID = primitive.NewObjectID()
			return nil
		},
	})
	mr.Set(tasksKey(boardID), "[]")

	task := domain.Task{BoardID: boardID, Title: "Fix bug"}
	if err := cache.CreateTask(ctx, &task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if mr.Exists(tasksKey(boardID)) {
		t.Fatalf("board task list should be evicted")
	}
}

func TestCacheUpdateTaskEvictsTaskAndBoardList(t *testing.T) {
	ctx := context.Background()
	boardID := primitive.NewObjectID()
	taskID := primitive.NewObjectID()

	cache, mr := newTestCache(t, &stubBackend{
		updateTaskFn: func(ctx context.Context, id primitive.ObjectID, upd domain.TaskUpdate) (*domain.Task, error) {
			return &domain.Task{ID: id, BoardID: boardID, Category: *upd.Category}, nil
		},
	})
	mr.Set(taskKey(taskID), "{}")
	mr.Set(tasksKey(boardID), "[]")

	done := domain.CategoryDone
	updated, err := cache.UpdateTask(ctx, taskID, domain.TaskUpdate{Category: &done})
	if err != nil {
		t.Fatalf("update task: %v", err)
	}
	if updated.Category != domain.CategoryDone {
		t.Fatalf("unexpected category: %s", updated.Category)
	}
	if mr.Exists(taskKey(taskID)) {
		t.Fatalf("task key should be evicted")
	}
	if mr.Exists(tasksKey(boardID)) {
		t.Fatalf("board task list should be evicted alongside the task")
	}
}

// TestCacheBoardTaskLifecycle walks create board -> create task -> update ->
// read with every read going through the cache, checking each stage observes
// the preceding write.
func TestCacheBoardTaskLifecycle(t *testing.T) {
	ctx := context.Background()
	creator := primitive.NewObjectID()

	var (
		board *domain.Board
		tasks []domain.Task
	)
	cache, _ := newTestCache(t, &stubBackend{
		createBoardFn: func(ctx context.Context, b *domain.Board) error {
			b.ID = primitive.NewObjectID()
			board = b
			return nil
		},
		boardByIDFn: func(ctx context.Context, id primitive.ObjectID) (*domain.Board, error) {
			if board == nil || board.ID != id {
				return nil, domain.ErrNotFound
			}
			b := *board
			return &b, nil
		},
		createTaskFn: func(ctx context.Context, task *domain.Task) error {
			task.ID = primitive.NewObjectID()
			tasks = append(tasks, *task)
			return nil
		},
		tasksByBoardFn: func(ctx context.Context, boardID primitive.ObjectID) ([]domain.Task, error) {
			return append([]domain.Task(nil), tasks...), nil
		},
		updateTaskFn: func(ctx context.Context, id primitive.ObjectID, upd domain.TaskUpdate) (*domain.Task, error) {
			for i := range tasks {
				if tasks[i].ID == id {
					if upd.Category != nil {
						tasks[i].Category = *upd.Category
					}
					out := tasks[i]
					return &out, nil
				}
			}
			return nil, domain.ErrNotFound
		},
		taskByIDFn: func(ctx context.Context, id primitive.ObjectID) (*domain.Task, error) {
			for i := range tasks {
				if tasks[i].ID == id {
					out := tasks[i]
					return &out, nil
				}
			}
			return nil, domain.ErrNotFound
		},
	})

	b := domain.NewBoard("Sprint 1", creator)
	if err := cache.CreateBoard(ctx, &b); err != nil {
		t.Fatalf("create board: %v", err)
	}
	got, _, err := cache.BoardByID(ctx, b.ID)
	if err != nil || got.Name != "Sprint 1" {
		t.Fatalf("board after create: %#v err=%v", got, err)
	}

	// Warm the (empty) list, then make sure the create punches through it.
	if _, err := cache.TasksByBoard(ctx, b.ID); err != nil {
		t.Fatalf("warm task list: %v", err)
	}
	task := domain.Task{BoardID: b.ID, Title: "Fix bug", Category: domain.CategoryUnassigned}
	if err := cache.CreateTask(ctx, &task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	list, err := cache.TasksByBoard(ctx, b.ID)
	if err != nil || len(list) != 1 || list[0].Title != "Fix bug" {
		t.Fatalf("task list after create: %#v err=%v", list, err)
	}

	done := domain.CategoryDone
	if _, err := cache.UpdateTask(ctx, task.ID, domain.TaskUpdate{Category: &done}); err != nil {
		t.Fatalf("update task: %v", err)
	}
	read, err := cache.TaskByID(ctx, task.ID)
	if err != nil || read.Category != domain.CategoryDone {
		t.Fatalf("task after update: %#v err=%v", read, err)
	}
	list, err = cache.TasksByBoard(ctx, b.ID)
	if err != nil || list[0].Category != domain.CategoryDone {
		t.Fatalf("list after update: %#v err=%v", list, err)
	}
}

func TestCacheDeleteTaskEvictsTaskAndBoardList(t *testing.T) {
	ctx := context.Background()
	boardID := primitive.NewObjectID()
	taskID := primitive.NewObjectID()

	cache, mr := newTestCache(t, &stubBackend{
		deleteTaskFn: func(ctx context.Context, id primitive.ObjectID) error { return nil },
	})
	mr.Set(taskKey(taskID), "{}")
	mr.Set(tasksKey(boardID), "[]")

	if err := cache.DeleteTask(ctx, taskID, boardID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if mr.Exists(taskKey(taskID)) || mr.Exists(tasksKey(boardID)) {
		t.Fatalf("delete should evict both the task and the board list")
	}
}
