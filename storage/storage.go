package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"kanban-api/domain"
)

// Storage provides access to the MongoDB collections backing the service.
type Storage struct {
	client *mongo.Client
	users  *mongo.Collection
	boards *mongo.Collection
	tasks  *mongo.Collection
}

// New connects to MongoDB and returns a Storage bound to the given database.
func New(ctx context.Context, uri, database string) (*Storage, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	db := client.Database(database)
	return &Storage{
		client: client,
		users:  db.Collection("users"),
		boards: db.Collection("boards"),
		tasks:  db.Collection("tasks"),
	}, nil
}

// Close disconnects the underlying client.
func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Storage) UserByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	var u domain.User
	err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Storage) UserByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	var u domain.User
	err := s.users.FindOne(ctx, bson.M{"googleId": googleID}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// InsertUser persists a new user and fills in its generated id.
func (s *Storage) InsertUser(ctx context.Context, u *domain.User) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.RecentlyVisited == nil {
		u.RecentlyVisited = []primitive.ObjectID{}
	}
	res, err := s.users.InsertOne(ctx, u)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = id
	}
	return nil
}

// RecordBoardVisit moves boardID to the front of the user's recently-visited
// list and persists the result.
func (s *Storage) RecordBoardVisit(ctx context.Context, userID, boardID primitive.ObjectID) error {
	u, err := s.UserByID(ctx, userID)
	if err != nil {
		return err
	}
	u.Visit(boardID)
	_, err = s.users.UpdateByID(ctx, userID, bson.M{"$set": bson.M{
		"recentlyVisitedBoards": u.RecentlyVisited,
		"updatedAt":             time.Now().UTC(),
	}})
	return err
}

// HomeBoards returns id+name for the user's recently-visited boards, most
// recent first. Boards deleted since the visit are silently skipped.
func (s *Storage) HomeBoards(ctx context.Context, userID primitive.ObjectID) ([]domain.BoardRef, error) {
	u, err := s.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(u.RecentlyVisited) == 0 {
		return []domain.BoardRef{}, nil
	}
	cur, err := s.boards.Find(ctx,
		bson.M{"_id": bson.M{"$in": u.RecentlyVisited}},
		options.Find().SetProjection(bson.M{"name": 1}))
	if err != nil {
		return nil, err
	}
	var found []domain.BoardRef
	if err := cur.All(ctx, &found); err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]domain.BoardRef, len(found))
	for _, b := range found {
		byID[b.ID] = b
	}
	// $in does not preserve order; reapply the visit order.
	refs := make([]domain.BoardRef, 0, len(u.RecentlyVisited))
	for _, id := range u.RecentlyVisited {
		if b, ok := byID[id]; ok {
			refs = append(refs, b)
		}
	}
	return refs, nil
}

func (s *Storage) BoardByID(ctx context.Context, id primitive.ObjectID) (*domain.Board, error) {
	var b domain.Board
	err := s.boards.FindOne(ctx, bson.M{"_id": id}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// BoardsByMember lists every board the user belongs to, with the creator's
// id+name resolved.
func (s *Storage) BoardsByMember(ctx context.Context, userID primitive.ObjectID) ([]domain.MemberBoard, error) {
	cur, err := s.boards.Find(ctx, bson.M{"members": userID})
	if err != nil {
		return nil, err
	}
	var boards []domain.Board
	if err := cur.All(ctx, &boards); err != nil {
		return nil, err
	}
	if len(boards) == 0 {
		return []domain.MemberBoard{}, nil
	}

	creatorIDs := make([]primitive.ObjectID, 0, len(boards))
	seen := make(map[primitive.ObjectID]bool, len(boards))
	for _, b := range boards {
		if !seen[b.CreatedBy] {
			seen[b.CreatedBy] = true
			creatorIDs = append(creatorIDs, b.CreatedBy)
		}
	}
	ucur, err := s.users.Find(ctx,
		bson.M{"_id": bson.M{"$in": creatorIDs}},
		options.Find().SetProjection(bson.M{"name": 1}))
	if err != nil {
		return nil, err
	}
	var creators []domain.UserRef
	if err := ucur.All(ctx, &creators); err != nil {
		return nil, err
	}
	names := make(map[primitive.ObjectID]domain.UserRef, len(creators))
	for _, c := range creators {
		names[c.ID] = c
	}

	out := make([]domain.MemberBoard, 0, len(boards))
	for _, b := range boards {
		out = append(out, domain.MemberBoard{
			ID:        b.ID,
			Name:      b.Name,
			CreatedBy: names[b.CreatedBy],
		})
	}
	return out, nil
}

// CreateBoard persists a new board, enforcing the one-board-per-creator rule,
// and fills in the generated id.
func (s *Storage) CreateBoard(ctx context.Context, b *domain.Board) error {
	err := s.boards.FindOne(ctx, bson.M{"createdBy": b.CreatedBy}).Err()
	if err == nil {
		return domain.ErrBoardExists
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	res, err := s.boards.InsertOne(ctx, b)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		b.ID = id
	}
	return nil
}

// RenameBoard updates the board's name and returns the updated board.
func (s *Storage) RenameBoard(ctx context.Context, id primitive.ObjectID, name string) (*domain.Board, error) {
	var b domain.Board
	err := s.boards.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"name": name, "updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// AddBoardMember adds invitedID to the board's member set. Adding an existing
// member is a no-op.
func (s *Storage) AddBoardMember(ctx context.Context, boardID, invitedID primitive.ObjectID) error {
	res, err := s.boards.UpdateByID(ctx, boardID, bson.M{
		"$addToSet": bson.M{"members": invitedID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CreateTask persists a new task and fills in the generated id.
func (s *Storage) CreateTask(ctx context.Context, t *domain.Task) error {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	res, err := s.tasks.InsertOne(ctx, t)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		t.ID = id
	}
	return nil
}

func (s *Storage) TasksByBoard(ctx context.Context, boardID primitive.ObjectID) ([]domain.Task, error) {
	cur, err := s.tasks.Find(ctx, bson.M{"board": boardID})
	if err != nil {
		return nil, err
	}
	tasks := []domain.Task{}
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *Storage) TaskByID(ctx context.Context, id primitive.ObjectID) (*domain.Task, error) {
	var t domain.Task
	err := s.tasks.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTask applies the non-nil fields of upd and returns the updated task.
func (s *Storage) UpdateTask(ctx context.Context, id primitive.ObjectID, upd domain.TaskUpdate) (*domain.Task, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Category != nil {
		set["category"] = *upd.Category
	}
	if upd.AssignedTo != nil {
		set["assignedTo"] = *upd.AssignedTo
	}
	if upd.Deadline != nil {
		set["deadline"] = *upd.Deadline
	}
	var t domain.Task
	err := s.tasks.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTask removes the task. Deleting an absent task is not an error.
func (s *Storage) DeleteTask(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.tasks.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
