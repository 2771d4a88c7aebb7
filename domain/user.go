package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxRecentBoards bounds the recently-visited list kept per user.
const MaxRecentBoards = 3

// User is an account created on first Google sign-in.
type User struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	GoogleID        string               `bson:"googleId" json:"googleId"`
	Name            string               `bson:"name" json:"name"`
	Email           string               `bson:"email" json:"email"`
	Avatar          string               `bson:"avatar,omitempty" json:"avatar,omitempty"`
	RecentlyVisited []primitive.ObjectID `bson:"recentlyVisitedBoards" json:"recentlyVisitedBoards"`
	CreatedAt       time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// Visit moves boardID to the front of the recently-visited list. The list
// never contains duplicates and never grows beyond MaxRecentBoards.
func (u *User) Visit(boardID primitive.ObjectID) {
	visited := make([]primitive.ObjectID, 0, MaxRecentBoards)
	visited = append(visited, boardID)
	for _, id := range u.RecentlyVisited {
		if id == boardID {
			continue
		}
		if len(visited) == MaxRecentBoards {
			break
		}
		visited = append(visited, id)
	}
	u.RecentlyVisited = visited
}

// UserRef is the id+name projection embedded in board listings.
type UserRef struct {
	ID   primitive.ObjectID `bson:"_id" json:"id"`
	Name string             `bson:"name" json:"name"`
}
