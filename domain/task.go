package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category enumerates the kanban columns a task can sit in.
type Category string

const (
	CategoryUnassigned    Category = "Unassigned"
	CategoryInDevelopment Category = "In Development"
	CategoryPendingReview Category = "Pending Review"
	CategoryDone          Category = "Done"
)

// Valid reports whether c is one of the known columns.
func (c Category) Valid() bool {
	switch c {
	case CategoryUnassigned, CategoryInDevelopment, CategoryPendingReview, CategoryDone:
		return true
	}
	return false
}

// Task is a single board item.
type Task struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BoardID     primitive.ObjectID `bson:"board" json:"board"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Category    Category           `bson:"category" json:"category"`
	AssignedTo  primitive.ObjectID `bson:"assignedTo" json:"assignedTo"`
	Deadline    time.Time          `bson:"deadline" json:"deadline"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// TaskUpdate carries partial updates for a task. Nil fields are left untouched.
type TaskUpdate struct {
	Title       *string             `json:"title,omitempty"`
	Description *string             `json:"description,omitempty"`
	Category    *Category           `json:"category,omitempty"`
	AssignedTo  *primitive.ObjectID `json:"assignedTo,omitempty"`
	Deadline    *time.Time          `json:"deadline,omitempty"`
}

// Empty reports whether the update carries no fields.
func (u TaskUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Category == nil &&
		u.AssignedTo == nil && u.Deadline == nil
}
