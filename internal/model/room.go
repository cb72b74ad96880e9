package model

import "time"

type Role struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Room struct {
	ID       int64
	Name     string
	AuthorID int64
	Roles    []Role
	// Secret is the shared join code. Empty means the room is not gated.
	Secret  string
	Voting  bool
	Created time.Time
	Expired time.Time
}

func (r Room) HasRole(roleID int) bool {
	for _, role := range r.Roles {
		if role.ID == roleID {
			return true
		}
	}
	return false
}

func (r Room) ExpiredAt(now time.Time) bool {
	return !now.Before(r.Expired)
}

type Participant struct {
	RoomID      int64
	UserID      int64
	RoleID      int
	DisplayName string
	// Score is nil until the participant votes in the current round.
	Score *string
}

func (p Participant) Voted() bool {
	return p.Score != nil
}
