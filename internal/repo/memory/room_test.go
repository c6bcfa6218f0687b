package memory

import (
	"context"
	"testing"
	"time"

	"github.com/lair-chat/lair-chat-server/internal/domain"
	"github.com/lair-chat/lair-chat-server/internal/repo"
)

func mustRoomName(t *testing.T, raw string) domain.RoomName {
	t.Helper()
	name, err := domain.NewRoomName(raw)
	if err != nil {
		t.Fatalf("NewRoomName(%q): %v", raw, err)
	}
	return name
}

func TestRoomRepositoryCreateEnforcesUniqueName(t *testing.T) {
	t.Parallel()

	repoRoom := NewRoomRepository()
	ctx := context.Background()
	owner := domain.NewUserID()
	name := mustRoomName(t, "general")

	room := domain.Room{ID: domain.NewRoomID(), Name: name, OwnerID: owner, CreatedAt: time.Now()}
	if _, err := repoRoom.Create(ctx, room, owner); err != nil {
		t.Fatalf("Create: %v", err)
	}

	dup := domain.Room{ID: domain.NewRoomID(), Name: mustRoomName(t, "General"), OwnerID: owner, CreatedAt: time.Now()}
	_, err := repoRoom.Create(ctx, dup, owner)
	if !repo.IsConflict(err) {
		t.Fatalf("Create duplicate name: err = %v, want conflict", err)
	}
}

func TestRoomRepositoryRefusesToRemoveLastOwner(t *testing.T) {
	t.Parallel()

	repoRoom := NewRoomRepository()
	ctx := context.Background()
	owner := domain.NewUserID()
	name := mustRoomName(t, "lobby")

	room := domain.Room{ID: domain.NewRoomID(), Name: name, OwnerID: owner, CreatedAt: time.Now()}
	created, err := repoRoom.Create(ctx, room, owner)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repoRoom.RemoveMember(ctx, created.ID, owner); err == nil {
		t.Fatal("RemoveMember of the last owner: want error, got nil")
	}

	other := domain.NewUserID()
	if _, err := repoRoom.AddMember(ctx, created.ID, other, domain.RoomRoleOwner); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if err := repoRoom.RemoveMember(ctx, created.ID, owner); err != nil {
		t.Fatalf("RemoveMember after second owner added: %v", err)
	}
}

func TestRoomRepositoryRefusesToDemoteLastOwner(t *testing.T) {
	t.Parallel()

	repoRoom := NewRoomRepository()
	ctx := context.Background()
	owner := domain.NewUserID()
	name := mustRoomName(t, "ops")

	room := domain.Room{ID: domain.NewRoomID(), Name: name, OwnerID: owner, CreatedAt: time.Now()}
	created, err := repoRoom.Create(ctx, room, owner)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repoRoom.ChangeMemberRole(ctx, created.ID, owner, domain.RoomRoleMember); err == nil {
		t.Fatal("ChangeMemberRole demoting the last owner: want error, got nil")
	}
}

func TestRoomRepositoryListPublicPagination(t *testing.T) {
	t.Parallel()

	repoRoom := NewRoomRepository()
	ctx := context.Background()
	owner := domain.NewUserID()

	base := time.Now()
	for i := 0; i < 3; i++ {
		name := mustRoomName(t, []string{"alpha", "beta", "gamma"}[i])
		room := domain.Room{
			ID:        domain.NewRoomID(),
			Name:      name,
			OwnerID:   owner,
			Settings:  domain.RoomSettings{Public: true},
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if _, err := repoRoom.Create(ctx, room, owner); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}

	rooms, err := repoRoom.ListPublic(ctx, repo.Pagination{Limit: 2})
	if err != nil {
		t.Fatalf("ListPublic: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("ListPublic returned %d rooms, want 2", len(rooms))
	}
	if rooms[0].Name.String() != "gamma" {
		t.Errorf("first room = %q, want newest-first order (gamma)", rooms[0].Name.String())
	}
}
