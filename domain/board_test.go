package domain

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNewBoardIncludesCreatorAsMember(t *testing.T) {
	creator := primitive.NewObjectID()
	b := NewBoard("Sprint 1", creator)

	if b.CreatedBy != creator {
		t.Fatalf("unexpected creator: %s", b.CreatedBy.Hex())
	}
	if !b.HasMember(creator) {
		t.Fatalf("creator missing from members: %v", b.Members)
	}
}

func TestAddMemberIsIdempotent(t *testing.T) {
	creator := primitive.NewObjectID()
	invited := primitive.NewObjectID()
	b := NewBoard("Sprint 1", creator)

	if !b.AddMember(invited) {
		t.Fatalf("expected first add to change the member set")
	}
	if b.AddMember(invited) {
		t.Fatalf("expected second add to be a no-op")
	}
	if len(b.Members) != 2 {
		t.Fatalf("unexpected member count: %d", len(b.Members))
	}
}
