package usecase_room

import "github.com/planpoker/core/internal/model"

type ParticipantInfo struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Voted bool    `json:"voted"`
	Score *string `json:"score,omitempty"`
}

type GroupInfo struct {
	Name         string            `json:"name"`
	Participants []ParticipantInfo `json:"participants"`
}

type RoomInfo struct {
	ID     int64       `json:"id"`
	Name   string      `json:"name"`
	Voting bool        `json:"voting"`
	Author bool        `json:"author"`
	Score  *string     `json:"score,omitempty"`
	Groups []GroupInfo `json:"groups"`
}

// BuildRoomInfo projects room state into its externally visible shape.
// While a round is open, only the requester's own score is exposed, every
// other participant shows just the voted flag. Once the round closes all
// scores become visible. Groups follow the room's role order, empty
// groups are dropped.
func BuildRoomInfo(room model.Room, participants []model.Participant, requesterID int64) RoomInfo {
	info := RoomInfo{
		ID:     room.ID,
		Name:   room.Name,
		Voting: room.Voting,
		Author: room.AuthorID == requesterID,
	}

	for _, role := range room.Roles {
		group := GroupInfo{Name: role.Name}
		for _, p := range participants {
			if p.RoleID != role.ID {
				continue
			}
			pi := ParticipantInfo{
				ID:    p.UserID,
				Name:  p.DisplayName,
				Voted: p.Voted(),
			}
			if !room.Voting || p.UserID == requesterID {
				pi.Score = p.Score
			}
			group.Participants = append(group.Participants, pi)
		}
		if len(group.Participants) > 0 {
			info.Groups = append(info.Groups, group)
		}
	}

	for _, p := range participants {
		if p.UserID == requesterID {
			info.Score = p.Score
			break
		}
	}
	return info
}
