package infra_memory_room

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/planpoker/core/internal/model"
	usecase_room "github.com/planpoker/core/internal/usecase/room"
)

// Driver is an in-process room registry used when no database is
// configured. Every mutating call locks the target room, which gives the
// same per-room atomicity the postgres driver gets from row locks.
type Driver struct {
	mu     sync.RWMutex
	rooms  map[int64]*entry
	roles  []model.Role
	nextID int64
}

type entry struct {
	mu           sync.Mutex
	room         model.Room
	participants map[int64]*model.Participant
}

func New(roles []model.Role) *Driver {
	return &Driver{
		rooms: make(map[int64]*entry),
		roles: roles,
	}
}

func (d *Driver) Create(_ context.Context, room model.Room, creator model.Participant) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	room.ID = d.nextID
	creator.RoomID = room.ID

	d.rooms[room.ID] = &entry{
		room: room,
		participants: map[int64]*model.Participant{
			creator.UserID: &creator,
		},
	}
	return room.ID, nil
}

func (d *Driver) ByID(_ context.Context, roomID int64) (model.Room, error) {
	e, err := d.entry(roomID)
	if err != nil {
		return model.Room{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.room, nil
}

func (d *Driver) ByUser(_ context.Context, userID int64) ([]model.Room, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	now := time.Now()
	var rooms []model.Room
	for _, e := range d.rooms {
		e.mu.Lock()
		if _, ok := e.participants[userID]; ok && !e.room.ExpiredAt(now) {
			rooms = append(rooms, e.room)
		}
		e.mu.Unlock()
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms, nil
}

func (d *Driver) Participants(_ context.Context, roomID int64) ([]model.Participant, error) {
	e, err := d.entry(roomID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	participants := make([]model.Participant, 0, len(e.participants))
	for _, p := range e.participants {
		participants = append(participants, *p)
	}
	sort.Slice(participants, func(i, j int) bool { return participants[i].UserID < participants[j].UserID })
	return participants, nil
}

func (d *Driver) ParticipantsCount(_ context.Context, roomID int64) (int, error) {
	e, err := d.entry(roomID)
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.participants), nil
}

func (d *Driver) UpsertParticipant(_ context.Context, p model.Participant) error {
	e, err := d.entry(p.RoomID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if existing, ok := e.participants[p.UserID]; ok {
		existing.RoleID = p.RoleID
		existing.DisplayName = p.DisplayName
		return nil
	}
	participant := p
	e.participants[p.UserID] = &participant
	return nil
}

func (d *Driver) RemoveParticipant(_ context.Context, roomID, userID int64) error {
	e, err := d.entry(roomID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.participants[userID]; !ok {
		return usecase_room.ErrResourceNotFound
	}
	delete(e.participants, userID)
	return nil
}

func (d *Driver) CastVote(_ context.Context, roomID, userID int64, score string) error {
	e, err := d.entry(roomID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.room.Voting {
		return usecase_room.ErrVotingClosed
	}
	p, ok := e.participants[userID]
	if !ok {
		return usecase_room.ErrNotParticipant
	}
	p.Score = &score
	return nil
}

func (d *Driver) SetVoting(_ context.Context, roomID int64, voting bool) error {
	e, err := d.entry(roomID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.room.Voting = voting
	if voting {
		for _, p := range e.participants {
			p.Score = nil
		}
	}
	return nil
}

func (d *Driver) Roles(_ context.Context) ([]model.Role, error) {
	return d.roles, nil
}

func (d *Driver) DeleteExpired(_ context.Context) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	var removed int64
	for id, e := range d.rooms {
		if e.room.ExpiredAt(now) {
			delete(d.rooms, id)
			removed++
		}
	}
	return removed, nil
}

func (d *Driver) entry(roomID int64) (*entry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.rooms[roomID]
	if !ok {
		return nil, usecase_room.ErrResourceNotFound
	}
	return e, nil
}
