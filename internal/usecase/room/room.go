package usecase_room

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/planpoker/core/internal/model"
)

var (
	ErrInternal         = errors.New("internal error")
	ErrResourceNotFound = errors.New("no such resource")
	ErrNotAllowed       = errors.New("not allowed")
	ErrNotParticipant   = errors.New("not a participant")
	ErrWrongSecretCode  = errors.New("wrong secret code")
	ErrRoleNotAllowed   = errors.New("role not allowed in room")
	ErrBadScore         = errors.New("score is not in the deck")
	ErrVotingClosed     = errors.New("voting is closed")
)

//go:generate mockery --name=RoomRepository --output=./mocks/repository --filename=repository.go
type RoomRepository interface {
	Create(ctx context.Context, room model.Room, creator model.Participant) (int64, error)
	ByID(ctx context.Context, roomID int64) (model.Room, error)
	ByUser(ctx context.Context, userID int64) ([]model.Room, error)
	Participants(ctx context.Context, roomID int64) ([]model.Participant, error)
	ParticipantsCount(ctx context.Context, roomID int64) (int, error)
	UpsertParticipant(ctx context.Context, p model.Participant) error
	RemoveParticipant(ctx context.Context, roomID, userID int64) error
	CastVote(ctx context.Context, roomID, userID int64, score string) error
	SetVoting(ctx context.Context, roomID int64, voting bool) error
	Roles(ctx context.Context) ([]model.Role, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type Usecase struct {
	roomRepository RoomRepository

	now func() time.Time
}

func New(roomRepository RoomRepository) *Usecase {
	return &Usecase{
		roomRepository: roomRepository,
		now:            time.Now,
	}
}

type CreateParams struct {
	Name       string
	RoleIDs    []int
	RoleID     int
	Days       int
	SecretCode string
}

// Create persists a room with the author as its first participant.
// A fresh room starts with voting closed, the author opens a round explicitly.
func (u *Usecase) Create(ctx context.Context, user model.User, params CreateParams) (int64, error) {
	catalog, err := u.roomRepository.Roles(ctx)
	if err != nil {
		return 0, errors.Join(ErrInternal, err)
	}

	roles := make([]model.Role, 0, len(params.RoleIDs))
	for _, id := range params.RoleIDs {
		role, ok := findRole(catalog, id)
		if !ok {
			return 0, ErrResourceNotFound
		}
		roles = append(roles, role)
	}
	if _, ok := findRole(roles, params.RoleID); !ok {
		return 0, ErrRoleNotAllowed
	}

	created := u.now()
	room := model.Room{
		Name:     params.Name,
		AuthorID: user.ID,
		Roles:    roles,
		Secret:   params.SecretCode,
		Voting:   false,
		Created:  created,
		Expired:  created.AddDate(0, 0, params.Days),
	}
	creator := model.Participant{
		UserID:      user.ID,
		RoleID:      params.RoleID,
		DisplayName: user.DisplayName(),
	}

	roomID, err := u.roomRepository.Create(ctx, room, creator)
	if err != nil {
		return 0, errors.Join(ErrInternal, err)
	}
	return roomID, nil
}

// Get returns a visibility-filtered snapshot for a room member.
func (u *Usecase) Get(ctx context.Context, user model.User, roomID int64) (RoomInfo, error) {
	room, err := u.fetchAlive(ctx, roomID)
	if err != nil {
		return RoomInfo{}, err
	}

	participants, err := u.roomRepository.Participants(ctx, roomID)
	if err != nil {
		return RoomInfo{}, errors.Join(ErrInternal, err)
	}
	if !isParticipant(participants, user.ID) {
		return RoomInfo{}, ErrNotParticipant
	}

	return BuildRoomInfo(room, participants, user.ID), nil
}

// Join adds the user to the room, or updates the stored role when the
// user is already a member. Membership count never grows on re-join.
func (u *Usecase) Join(ctx context.Context, user model.User, roomID int64, roleID int, secretCode string) (RoomInfo, error) {
	room, err := u.fetchAlive(ctx, roomID)
	if err != nil {
		return RoomInfo{}, err
	}

	if room.Secret != "" && subtle.ConstantTimeCompare([]byte(room.Secret), []byte(secretCode)) != 1 {
		return RoomInfo{}, ErrWrongSecretCode
	}
	if !room.HasRole(roleID) {
		return RoomInfo{}, ErrRoleNotAllowed
	}

	p := model.Participant{
		RoomID:      roomID,
		UserID:      user.ID,
		RoleID:      roleID,
		DisplayName: user.DisplayName(),
	}
	if err := u.roomRepository.UpsertParticipant(ctx, p); err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return RoomInfo{}, ErrResourceNotFound
		}
		return RoomInfo{}, errors.Join(ErrInternal, err)
	}

	return u.Get(ctx, user, roomID)
}

func (u *Usecase) Leave(ctx context.Context, user model.User, roomID int64) error {
	if _, err := u.fetchAlive(ctx, roomID); err != nil {
		return err
	}
	if err := u.roomRepository.RemoveParticipant(ctx, roomID, user.ID); err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return ErrResourceNotFound
		}
		return errors.Join(ErrInternal, err)
	}
	return nil
}

// Vote records the user's score for the open round. A vote against a
// closed round is rejected, the participant waits for the next one.
func (u *Usecase) Vote(ctx context.Context, user model.User, roomID int64, score string) error {
	if !model.IsScoreCard(score) {
		return ErrBadScore
	}
	if _, err := u.fetchAlive(ctx, roomID); err != nil {
		return err
	}

	err := u.roomRepository.CastVote(ctx, roomID, user.ID, score)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrResourceNotFound),
		errors.Is(err, ErrVotingClosed),
		errors.Is(err, ErrNotParticipant):
		return err
	default:
		return errors.Join(ErrInternal, err)
	}
}

// SetVoting switches the round state. Only the room author may switch.
// Opening a round clears every participant's score in the same critical
// section, so a vote cast after the clear lands in the new round.
func (u *Usecase) SetVoting(ctx context.Context, user model.User, roomID int64, voting bool) (RoomInfo, error) {
	room, err := u.fetchAlive(ctx, roomID)
	if err != nil {
		return RoomInfo{}, err
	}
	if room.AuthorID != user.ID {
		return RoomInfo{}, ErrNotAllowed
	}

	if err := u.roomRepository.SetVoting(ctx, roomID, voting); err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return RoomInfo{}, ErrResourceNotFound
		}
		return RoomInfo{}, errors.Join(ErrInternal, err)
	}

	return u.Get(ctx, user, roomID)
}

type RoomSummary struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Voting       bool   `json:"voting"`
	Participants int    `json:"participants"`
}

// Rooms lists alive rooms the user participates in, for the lobby page.
func (u *Usecase) Rooms(ctx context.Context, user model.User) ([]RoomSummary, error) {
	rooms, err := u.roomRepository.ByUser(ctx, user.ID)
	if err != nil {
		return nil, errors.Join(ErrInternal, err)
	}

	summaries := make([]RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		count, err := u.roomRepository.ParticipantsCount(ctx, room.ID)
		if err != nil {
			return nil, errors.Join(ErrInternal, err)
		}
		summaries = append(summaries, RoomSummary{
			ID:           room.ID,
			Name:         room.Name,
			Voting:       room.Voting,
			Participants: count,
		})
	}
	return summaries, nil
}

func (u *Usecase) Roles(ctx context.Context) ([]model.Role, error) {
	roles, err := u.roomRepository.Roles(ctx)
	if err != nil {
		return nil, errors.Join(ErrInternal, err)
	}
	return roles, nil
}

// fetchAlive treats an expired room the same as a missing one.
func (u *Usecase) fetchAlive(ctx context.Context, roomID int64) (model.Room, error) {
	room, err := u.roomRepository.ByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return model.Room{}, ErrResourceNotFound
		}
		return model.Room{}, errors.Join(ErrInternal, err)
	}
	if room.ExpiredAt(u.now()) {
		return model.Room{}, ErrResourceNotFound
	}
	return room, nil
}

func findRole(roles []model.Role, id int) (model.Role, bool) {
	for _, role := range roles {
		if role.ID == id {
			return role, true
		}
	}
	return model.Role{}, false
}

func isParticipant(participants []model.Participant, userID int64) bool {
	for _, p := range participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}
