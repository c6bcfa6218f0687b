package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/lair-chat/lair-chat-server/internal/domain"
	"github.com/lair-chat/lair-chat-server/internal/repo"
)

type membershipKey struct {
	room domain.RoomID
	user domain.UserID
}

// RoomRepository is an in-memory repo.RoomRepository. It enforces the
// "every room keeps at least one owner" invariant directly: RemoveMember and
// ChangeMemberRole refuse to strip the last owner.
type RoomRepository struct {
	mu          sync.RWMutex
	rooms       map[domain.RoomID]*domain.Room
	byName      map[string]domain.RoomID // keyed on RoomName.Fold()
	memberships map[membershipKey]*domain.RoomMembership
	// membersByRoom indexes membershipKey entries per room for ListMembers
	// and owner-counting without a full scan.
	membersByRoom map[domain.RoomID]map[domain.UserID]struct{}
}

func NewRoomRepository() *RoomRepository {
	return &RoomRepository{
		rooms:         make(map[domain.RoomID]*domain.Room),
		byName:        make(map[string]domain.RoomID),
		memberships:   make(map[membershipKey]*domain.RoomMembership),
		membersByRoom: make(map[domain.RoomID]map[domain.UserID]struct{}),
	}
}

func (r *RoomRepository) Create(ctx context.Context, room domain.Room, owner domain.UserID) (*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[room.Name.Fold()]; ok {
		return nil, repo.NewError(repo.ErrKindConflict, "room_name", errConflict)
	}

	cp := room
	r.rooms[room.ID] = &cp
	r.byName[room.Name.Fold()] = room.ID
	r.membersByRoom[room.ID] = map[domain.UserID]struct{}{owner: {}}
	r.memberships[membershipKey{room.ID, owner}] = &domain.RoomMembership{
		RoomID: room.ID, UserID: owner, Role: domain.RoomRoleOwner, JoinedAt: room.CreatedAt,
	}

	out := cp
	return &out, nil
}

func (r *RoomRepository) GetByID(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[id]
	if !ok {
		return nil, repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	out := *room
	return &out, nil
}

func (r *RoomRepository) GetByName(ctx context.Context, name domain.RoomName) (*domain.Room, error) {
	r.mu.RLock()
	id, ok := r.byName[name.Fold()]
	r.mu.RUnlock()
	if !ok {
		return nil, repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	return r.GetByID(context.Background(), id)
}

func (r *RoomRepository) Update(ctx context.Context, id domain.RoomID, settings domain.RoomSettings, description string) (*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok {
		return nil, repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	room.Settings = settings
	room.Description = description
	out := *room
	return &out, nil
}

func (r *RoomRepository) Delete(ctx context.Context, id domain.RoomID, archiveMessages bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok {
		return repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	delete(r.byName, room.Name.Fold())
	delete(r.rooms, id)
	for user := range r.membersByRoom[id] {
		delete(r.memberships, membershipKey{id, user})
	}
	delete(r.membersByRoom, id)
	return nil
}

func (r *RoomRepository) ListPublic(ctx context.Context, page repo.Pagination) ([]domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Room
	for _, room := range r.rooms {
		if room.Settings.Public {
			out = append(out, *room)
		}
	}
	return paginateRooms(out, page), nil
}

func (r *RoomRepository) ListForUser(ctx context.Context, userID domain.UserID, page repo.Pagination) ([]domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Room
	for roomID, members := range r.membersByRoom {
		if _, ok := members[userID]; ok {
			out = append(out, *r.rooms[roomID])
		}
	}
	return paginateRooms(out, page), nil
}

func paginateRooms(rooms []domain.Room, page repo.Pagination) []domain.Room {
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].CreatedAt.After(rooms[j].CreatedAt) })
	limit := repo.ClampLimit(page.Limit)
	start := 0
	if page.Before != nil {
		for i, rm := range rooms {
			if rm.ID.String() == *page.Before {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(rooms) {
		end = len(rooms)
	}
	if start > len(rooms) {
		return nil
	}
	return rooms[start:end]
}

func (r *RoomRepository) AddMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID, role domain.RoomRole) (*domain.RoomMembership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[roomID]; !ok {
		return nil, repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	key := membershipKey{roomID, userID}
	if _, ok := r.memberships[key]; ok {
		return nil, repo.NewError(repo.ErrKindConflict, "membership", errConflict)
	}
	m := &domain.RoomMembership{RoomID: roomID, UserID: userID, Role: role}
	r.memberships[key] = m
	if r.membersByRoom[roomID] == nil {
		r.membersByRoom[roomID] = make(map[domain.UserID]struct{})
	}
	r.membersByRoom[roomID][userID] = struct{}{}
	out := *m
	return &out, nil
}

func (r *RoomRepository) RemoveMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := membershipKey{roomID, userID}
	m, ok := r.memberships[key]
	if !ok {
		return repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	if m.Role == domain.RoomRoleOwner && r.countOwnersLocked(roomID) <= 1 {
		return repo.NewError(repo.ErrKindConflict, "last_owner", errLastOwner)
	}
	delete(r.memberships, key)
	delete(r.membersByRoom[roomID], userID)
	return nil
}

func (r *RoomRepository) ChangeMemberRole(ctx context.Context, roomID domain.RoomID, userID domain.UserID, role domain.RoomRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := membershipKey{roomID, userID}
	m, ok := r.memberships[key]
	if !ok {
		return repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	if m.Role == domain.RoomRoleOwner && role != domain.RoomRoleOwner && r.countOwnersLocked(roomID) <= 1 {
		return repo.NewError(repo.ErrKindConflict, "last_owner", errLastOwner)
	}
	m.Role = role
	return nil
}

func (r *RoomRepository) GetMembership(ctx context.Context, roomID domain.RoomID, userID domain.UserID) (*domain.RoomMembership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.memberships[membershipKey{roomID, userID}]
	if !ok {
		return nil, repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	out := *m
	return &out, nil
}

func (r *RoomRepository) ListMembers(ctx context.Context, roomID domain.RoomID) ([]domain.RoomMembership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.RoomMembership
	for user := range r.membersByRoom[roomID] {
		out = append(out, *r.memberships[membershipKey{roomID, user}])
	}
	return out, nil
}

func (r *RoomRepository) CountMembers(ctx context.Context, roomID domain.RoomID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.membersByRoom[roomID]), nil
}

func (r *RoomRepository) RoomIDsForUser(ctx context.Context, userID domain.UserID) ([]domain.RoomID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.RoomID
	for roomID, members := range r.membersByRoom {
		if _, ok := members[userID]; ok {
			out = append(out, roomID)
		}
	}
	return out, nil
}

func (r *RoomRepository) countOwnersLocked(roomID domain.RoomID) int {
	n := 0
	for user := range r.membersByRoom[roomID] {
		if r.memberships[membershipKey{roomID, user}].Role == domain.RoomRoleOwner {
			n++
		}
	}
	return n
}
