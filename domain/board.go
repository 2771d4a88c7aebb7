package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Board is a kanban board. Each user may create at most one, and the creator
// is always part of the member set.
type Board struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name      string               `bson:"name" json:"name"`
	CreatedBy primitive.ObjectID   `bson:"createdBy" json:"createdBy"`
	Members   []primitive.ObjectID `bson:"members" json:"members"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// NewBoard creates a board owned by creator, with creator as the sole member.
func NewBoard(name string, creator primitive.ObjectID) Board {
	return Board{
		Name:      name,
		CreatedBy: creator,
		Members:   []primitive.ObjectID{creator},
	}
}

// HasMember reports whether id belongs to the board's member set.
func (b *Board) HasMember(id primitive.ObjectID) bool {
	for _, m := range b.Members {
		if m == id {
			return true
		}
	}
	return false
}

// AddMember adds id to the member set and reports whether the set changed.
func (b *Board) AddMember(id primitive.ObjectID) bool {
	if b.HasMember(id) {
		return false
	}
	b.Members = append(b.Members, id)
	return true
}

// BoardRef is the id+name projection used for the home board listing.
type BoardRef struct {
	ID   primitive.ObjectID `bson:"_id" json:"id"`
	Name string             `bson:"name" json:"name"`
}

// MemberBoard is a row of the all-boards listing with its creator resolved.
type MemberBoard struct {
	ID        primitive.ObjectID `json:"id"`
	Name      string             `json:"name"`
	CreatedBy UserRef            `json:"createdBy"`
}
