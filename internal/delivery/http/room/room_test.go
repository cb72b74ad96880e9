package http_room

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	http_init "github.com/planpoker/core/internal/delivery/http/init"
	http_session_middleware "github.com/planpoker/core/internal/delivery/http/middleware/session"
	http_user "github.com/planpoker/core/internal/delivery/http/user"
	infra_memory_room "github.com/planpoker/core/internal/infra/memory/room"
	infra_memory_session "github.com/planpoker/core/internal/infra/memory/session"
	infra_memory_user "github.com/planpoker/core/internal/infra/memory/user"
	"github.com/planpoker/core/internal/model"
	session_auth "github.com/planpoker/core/internal/service/auth/session"
	usecase_room "github.com/planpoker/core/internal/usecase/room"
	usecase_user "github.com/planpoker/core/internal/usecase/user"
)

type noopNotifier struct{}

func (noopNotifier) NotifyRoomUpdated(int64) {}

type testStack struct {
	engine *gin.Engine
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	roles := []model.Role{
		{ID: 1, Name: "Developer"},
		{ID: 2, Name: "QA"},
	}

	sessions := session_auth.New(infra_memory_session.New(), time.Hour)
	userUC := usecase_user.New(infra_memory_user.New(), sessions)
	roomUC := usecase_room.New(infra_memory_room.New(roles))

	middleware := http_session_middleware.New(sessions, userUC)

	pool := http_init.NewControllerPool()
	pool.Add(http_user.New(userUC, middleware))
	pool.Add(New(roomUC, middleware, noopNotifier{}))
	pool.Register()

	return &testStack{engine: pool.Engine()}
}

func (s *testStack) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(http_session_middleware.HeaderSessionID, token)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testStack) registerUser(t *testing.T, login string) string {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/user/registration", "", gin.H{
		"login":     login,
		"password":  "password123",
		"firstName": "Ivan",
		"lastName":  "Petrov",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ok", resultCode(t, w))

	token := w.Header().Get(http_session_middleware.HeaderSessionID)
	require.NotEmpty(t, token)
	return token
}

func (s *testStack) createRoom(t *testing.T, token string, body gin.H) int64 {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/room/createRoom", token, body)
	require.Equal(t, "Ok", resultCode(t, w))

	var resp struct {
		RoomID int64 `json:"roomId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotZero(t, resp.RoomID)
	return resp.RoomID
}

func resultCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var resp struct {
		ResultCode string `json:"resultCode"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.ResultCode
}

func TestRoomRequiresSession(t *testing.T) {
	s := newTestStack(t)

	w := s.do(t, http.MethodPost, "/api/room/getRoom", "", gin.H{"roomId": 1})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Unauthorized", resultCode(t, w))
}

func TestCreateAndGetRoom(t *testing.T) {
	s := newTestStack(t)
	token := s.registerUser(t, "author@example.com")

	roomID := s.createRoom(t, token, gin.H{
		"name":   "sprint planning",
		"roles":  []int{1, 2},
		"days":   7,
		"roleId": 1,
	})

	w := s.do(t, http.MethodPost, "/api/room/getRoom", token, gin.H{"roomId": roomID})
	require.Equal(t, "Ok", resultCode(t, w))

	var resp struct {
		RoomInfo usecase_room.RoomInfo `json:"roomInfo"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, roomID, resp.RoomInfo.ID)
	assert.True(t, resp.RoomInfo.Author)
	assert.False(t, resp.RoomInfo.Voting)
	require.Len(t, resp.RoomInfo.Groups, 1)
	assert.Equal(t, "Developer", resp.RoomInfo.Groups[0].Name)
}

func TestJoinWithSecretCode(t *testing.T) {
	s := newTestStack(t)
	authorToken := s.registerUser(t, "author@example.com")
	guestToken := s.registerUser(t, "guest1@example.com")

	roomID := s.createRoom(t, authorToken, gin.H{
		"name":       "gated room",
		"secretCode": "s3cret",
		"roles":      []int{1, 2},
		"days":       7,
		"roleId":     1,
	})

	w := s.do(t, http.MethodPost, "/api/room/join", guestToken, gin.H{
		"roomId": roomID, "roleId": 2, "secretCode": "wrong",
	})
	assert.Equal(t, "WrongSecretCode", resultCode(t, w))

	w = s.do(t, http.MethodPost, "/api/room/join", guestToken, gin.H{
		"roomId": roomID, "roleId": 2, "secretCode": "s3cret",
	})
	assert.Equal(t, "Ok", resultCode(t, w))
}

func TestVotingFlowHidesAndReveals(t *testing.T) {
	s := newTestStack(t)
	authorToken := s.registerUser(t, "author@example.com")
	guestToken := s.registerUser(t, "guest1@example.com")

	roomID := s.createRoom(t, authorToken, gin.H{
		"name":   "estimation",
		"roles":  []int{1},
		"days":   7,
		"roleId": 1,
	})
	w := s.do(t, http.MethodPost, "/api/room/join", guestToken, gin.H{"roomId": roomID, "roleId": 1})
	require.Equal(t, "Ok", resultCode(t, w))

	// Votes are rejected until the author opens a round.
	w = s.do(t, http.MethodPost, "/api/room/vote", guestToken, gin.H{"roomId": roomID, "score": "5"})
	assert.Equal(t, "NotAllowed", resultCode(t, w))

	// Only the author can open it.
	w = s.do(t, http.MethodPost, "/api/room/setVoting", guestToken, gin.H{"roomId": roomID, "voting": true})
	assert.Equal(t, "NotAllowed", resultCode(t, w))

	w = s.do(t, http.MethodPost, "/api/room/setVoting", authorToken, gin.H{"roomId": roomID, "voting": true})
	require.Equal(t, "Ok", resultCode(t, w))

	w = s.do(t, http.MethodPost, "/api/room/vote", guestToken, gin.H{"roomId": roomID, "score": "5"})
	require.Equal(t, "Ok", resultCode(t, w))

	// The author sees the voted flag, not the card.
	var resp struct {
		RoomInfo usecase_room.RoomInfo `json:"roomInfo"`
	}
	w = s.do(t, http.MethodPost, "/api/room/getRoom", authorToken, gin.H{"roomId": roomID})
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	guest := resp.RoomInfo.Groups[0].Participants[1]
	assert.True(t, guest.Voted)
	assert.Nil(t, guest.Score)

	// Reveal.
	w = s.do(t, http.MethodPost, "/api/room/setVoting", authorToken, gin.H{"roomId": roomID, "voting": false})
	require.Equal(t, "Ok", resultCode(t, w))

	w = s.do(t, http.MethodPost, "/api/room/getRoom", authorToken, gin.H{"roomId": roomID})
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	guest = resp.RoomInfo.Groups[0].Participants[1]
	require.NotNil(t, guest.Score)
	assert.Equal(t, "5", *guest.Score)
}

func TestVoteOutsideDeckIsValidationError(t *testing.T) {
	s := newTestStack(t)
	token := s.registerUser(t, "author@example.com")

	roomID := s.createRoom(t, token, gin.H{
		"name":   "estimation",
		"roles":  []int{1},
		"days":   7,
		"roleId": 1,
	})
	w := s.do(t, http.MethodPost, "/api/room/setVoting", token, gin.H{"roomId": roomID, "voting": true})
	require.Equal(t, "Ok", resultCode(t, w))

	w = s.do(t, http.MethodPost, "/api/room/vote", token, gin.H{"roomId": roomID, "score": "7"})
	assert.Equal(t, "ValidationError", resultCode(t, w))

	w = s.do(t, http.MethodPost, "/api/room/vote", token, gin.H{"roomId": roomID, "score": "13"})
	assert.Equal(t, "Ok", resultCode(t, w))
}

func TestGetRoomFailureCodes(t *testing.T) {
	s := newTestStack(t)
	authorToken := s.registerUser(t, "author@example.com")
	strangerToken := s.registerUser(t, "stranger@example.com")

	roomID := s.createRoom(t, authorToken, gin.H{
		"name":   "private planning",
		"roles":  []int{1},
		"days":   7,
		"roleId": 1,
	})

	// A valid session that is not a member gets Unauthorized, not NotAllowed.
	w := s.do(t, http.MethodPost, "/api/room/getRoom", strangerToken, gin.H{"roomId": roomID})
	assert.Equal(t, "Unauthorized", resultCode(t, w))

	w = s.do(t, http.MethodPost, "/api/room/getRoom", authorToken, gin.H{"roomId": roomID + 1000})
	assert.Equal(t, "NotFound", resultCode(t, w))

	// Other room mutations keep NotAllowed for the non-member.
	w = s.do(t, http.MethodPost, "/api/room/setVoting", authorToken, gin.H{"roomId": roomID, "voting": true})
	require.Equal(t, "Ok", resultCode(t, w))

	w = s.do(t, http.MethodPost, "/api/room/vote", strangerToken, gin.H{"roomId": roomID, "score": "5"})
	assert.Equal(t, "NotAllowed", resultCode(t, w))
}

func TestLeaveRoom(t *testing.T) {
	s := newTestStack(t)
	authorToken := s.registerUser(t, "author@example.com")
	guestToken := s.registerUser(t, "guest1@example.com")

	roomID := s.createRoom(t, authorToken, gin.H{
		"name":   "planning",
		"roles":  []int{1},
		"days":   7,
		"roleId": 1,
	})
	w := s.do(t, http.MethodPost, "/api/room/join", guestToken, gin.H{"roomId": roomID, "roleId": 1})
	require.Equal(t, "Ok", resultCode(t, w))

	w = s.do(t, http.MethodPost, "/api/room/leave", guestToken, gin.H{"roomId": roomID})
	assert.Equal(t, "Ok", resultCode(t, w))

	w = s.do(t, http.MethodPost, "/api/room/getRoom", guestToken, gin.H{"roomId": roomID})
	assert.Equal(t, "Unauthorized", resultCode(t, w))
}

func TestRoomsAndRolesListing(t *testing.T) {
	s := newTestStack(t)
	token := s.registerUser(t, "author@example.com")

	s.createRoom(t, token, gin.H{
		"name":   "planning one",
		"roles":  []int{1, 2},
		"days":   7,
		"roleId": 1,
	})

	w := s.do(t, http.MethodGet, "/api/room/rooms", token, nil)
	require.Equal(t, "Ok", resultCode(t, w))

	var roomsResp struct {
		Rooms []usecase_room.RoomSummary `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &roomsResp))
	require.Len(t, roomsResp.Rooms, 1)
	assert.Equal(t, 1, roomsResp.Rooms[0].Participants)

	w = s.do(t, http.MethodGet, "/api/room/roles", token, nil)
	require.Equal(t, "Ok", resultCode(t, w))

	var rolesResp struct {
		Roles []model.Role `json:"roles"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rolesResp))
	assert.Len(t, rolesResp.Roles, 2)
}

func TestCreateRoomValidation(t *testing.T) {
	s := newTestStack(t)
	token := s.registerUser(t, "author@example.com")

	w := s.do(t, http.MethodPost, "/api/room/createRoom", token, gin.H{
		"name":   "abc",
		"roles":  []int{1},
		"days":   7,
		"roleId": 1,
	})
	assert.Equal(t, "ValidationError", resultCode(t, w))
}
