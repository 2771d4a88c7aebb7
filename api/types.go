package api

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"kanban-api/domain"
)

// Storage abstracts persistence and caching for handlers.
type Storage interface {
	UserByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	UserByGoogleID(ctx context.Context, googleID string) (*domain.User, error)
	InsertUser(ctx context.Context, u *domain.User) error
	RecordBoardVisit(ctx context.Context, userID, boardID primitive.ObjectID) error
	HomeBoards(ctx context.Context, userID primitive.ObjectID) ([]domain.BoardRef, error)

	// BoardByID reports whether the board was served from the cache so the
	// caller can skip miss-path side effects on a hit.
	BoardByID(ctx context.Context, id primitive.ObjectID) (*domain.Board, bool, error)
	BoardsByMember(ctx context.Context, userID primitive.ObjectID) ([]domain.MemberBoard, error)
	CreateBoard(ctx context.Context, b *domain.Board) error
	RenameBoard(ctx context.Context, id primitive.ObjectID, name string) (*domain.Board, error)
	AddBoardMember(ctx context.Context, boardID, inviterID, invitedID primitive.ObjectID) error

	CreateTask(ctx context.Context, t *domain.Task) error
	TasksByBoard(ctx context.Context, boardID primitive.ObjectID) ([]domain.Task, error)
	TaskByID(ctx context.Context, id primitive.ObjectID) (*domain.Task, error)
	UpdateTask(ctx context.Context, id primitive.ObjectID, upd domain.TaskUpdate) (*domain.Task, error)
	DeleteTask(ctx context.Context, id, boardID primitive.ObjectID) error
}

// SessionService mints and verifies session tokens.
type SessionService interface {
	Issue(userID, accessToken string) (string, error)
	Verify(token string) (Identity, error)
}

// Profile is the identity asserted by the external provider after a
// successful code exchange.
type Profile struct {
	Subject string
	Email   string
	Name    string
}

// IdentityProvider abstracts the external OAuth provider so the login flow
// can be tested without network access.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for a verified profile and the
	// delegated access token.
	Exchange(ctx context.Context, code string) (Profile, string, error)
	Revoke(ctx context.Context, accessToken string) error
}
