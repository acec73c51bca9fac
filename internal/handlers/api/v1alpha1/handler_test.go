package v1alpha1_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/vtt-api/internal/dice"
	"github.com/KirkDiggler/vtt-api/internal/entities"
	v1alpha1 "github.com/KirkDiggler/vtt-api/internal/handlers/api/v1alpha1"
	"github.com/KirkDiggler/vtt-api/internal/identity"
	"github.com/KirkDiggler/vtt-api/internal/orchestrators/session"
	"github.com/KirkDiggler/vtt-api/internal/pkg/clock"
	"github.com/KirkDiggler/vtt-api/internal/pkg/idgen"
	"github.com/KirkDiggler/vtt-api/internal/realtime"
	"github.com/KirkDiggler/vtt-api/internal/repositories/chatmessage"
	"github.com/KirkDiggler/vtt-api/internal/repositories/diceroll"
	"github.com/KirkDiggler/vtt-api/internal/repositories/gamesession"
	"github.com/KirkDiggler/vtt-api/internal/repositories/initiativeorder"
	"github.com/KirkDiggler/vtt-api/internal/repositories/participant"
	"github.com/KirkDiggler/vtt-api/internal/testutils"
)

type HandlerTestSuite struct {
	suite.Suite
	server  *httptest.Server
	tokens  *identity.TokenService
	token   string
	cleanup func()
}

func (s *HandlerTestSuite) SetupTest() {
	client, cleanup := testutils.CreateTestRedisClient(s.T())
	s.cleanup = cleanup

	clk := clock.NewFixed(time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC))

	tokens, err := identity.NewTokenService(&identity.TokenConfig{
		SigningSecret: "test-secret",
		Issuer:        "vtt-api-test",
		Clock:         clk,
	})
	s.Require().NoError(err)
	s.tokens = tokens
	s.token, err = tokens.Issue(&identity.User{ID: "user_gm", DisplayName: "The GM"})
	s.Require().NoError(err)

	sessionRepo, err := gamesession.NewRedisRepository(&gamesession.Config{Client: client})
	s.Require().NoError(err)
	chatRepo, err := chatmessage.NewRedisRepository(&chatmessage.Config{Client: client})
	s.Require().NoError(err)
	diceRepo, err := diceroll.NewRedisRepository(&diceroll.Config{Client: client})
	s.Require().NoError(err)
	initiativeRepo, err := initiativeorder.NewRedisRepository(&initiativeorder.Config{Client: client})
	s.Require().NoError(err)
	participantRepo, err := participant.NewRedisRepository(&participant.Config{Client: client})
	s.Require().NoError(err)

	channelFactory := func(handlers realtime.Handlers) (realtime.Channel, error) {
		return realtime.NewRedisChannel(&realtime.Config{Client: client}, handlers)
	}

	orch, err := session.New(&session.Config{
		SessionRepo:     sessionRepo,
		ChatRepo:        chatRepo,
		DiceRepo:        diceRepo,
		InitiativeRepo:  initiativeRepo,
		ParticipantRepo: participantRepo,
		NewChannel:      channelFactory,
		Roller:          dice.NewSeededRoller(7),
		IDGenerator:     idgen.NewSequential("id"),
		Clock:           clk,
	})
	s.Require().NoError(err)

	handler, err := v1alpha1.New(&v1alpha1.Config{
		Service:    orch,
		Tokens:     tokens,
		NewChannel: channelFactory,
	})
	s.Require().NoError(err)

	s.server = httptest.NewServer(handler.Routes())
}

func (s *HandlerTestSuite) TearDownTest() {
	s.server.Close()
	s.cleanup()
}

func (s *HandlerTestSuite) request(method, path string, body interface{}) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, s.server.URL+path, &buf)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *HandlerTestSuite) decodeSession(resp *http.Response) *entities.GameSession {
	defer resp.Body.Close() //nolint:errcheck
	var got entities.GameSession
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&got))
	return &got
}

func (s *HandlerTestSuite) createSession() *entities.GameSession {
	resp := s.request(http.MethodPost, "/sessions", map[string]string{
		"campaign_id": "camp_1",
		"name":        "Night at the Yawning Portal",
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	return s.decodeSession(resp)
}

func (s *HandlerTestSuite) TestMissingToken() {
	resp, err := s.server.Client().Get(s.server.URL + "/sessions")
	s.Require().NoError(err)
	defer resp.Body.Close() //nolint:errcheck
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *HandlerTestSuite) TestCreateAndGetSession() {
	created := s.createSession()
	s.Equal(entities.SessionStatusScheduled, created.Status)

	resp := s.request(http.MethodGet, "/sessions/"+created.ID, nil)
	got := s.decodeSession(resp)
	s.Equal(created.ID, got.ID)
	s.Equal("Night at the Yawning Portal", got.Name)
}

func (s *HandlerTestSuite) TestGetUnknownSession() {
	resp := s.request(http.MethodGet, "/sessions/missing", nil)
	defer resp.Body.Close() //nolint:errcheck
	s.Equal(http.StatusNotFound, resp.StatusCode)

	var errResp struct {
		Code string `json:"code"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&errResp))
	s.Equal("NOT_FOUND", errResp.Code)
}

func (s *HandlerTestSuite) TestLifecycleVerbs() {
	created := s.createSession()

	resp := s.request(http.MethodPost, "/sessions/"+created.ID+"/start", nil)
	got := s.decodeSession(resp)
	s.Equal(entities.SessionStatusActive, got.Status)

	// scheduled -> paused would be illegal; active -> paused is fine
	resp = s.request(http.MethodPost, "/sessions/"+created.ID+"/pause", nil)
	got = s.decodeSession(resp)
	s.Equal(entities.SessionStatusPaused, got.Status)

	resp = s.request(http.MethodPost, "/sessions/"+created.ID+"/end", nil)
	got = s.decodeSession(resp)
	s.Equal(entities.SessionStatusCompleted, got.Status)

	// Terminal: starting again is a precondition failure
	resp = s.request(http.MethodPost, "/sessions/"+created.ID+"/start", nil)
	defer resp.Body.Close() //nolint:errcheck
	s.Equal(http.StatusPreconditionFailed, resp.StatusCode)
}

func (s *HandlerTestSuite) TestSendMessage() {
	created := s.createSession()

	resp := s.request(http.MethodPost, "/sessions/"+created.ID+"/messages", map[string]string{
		"body": "The door creaks open.",
	})
	defer resp.Body.Close() //nolint:errcheck
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var msg entities.ChatMessage
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&msg))
	s.Equal("user_gm", msg.AuthorID)
	s.Equal(entities.MessageKindMessage, msg.Kind)
}

func (s *HandlerTestSuite) TestRollDice() {
	created := s.createSession()

	resp := s.request(http.MethodPost, "/sessions/"+created.ID+"/rolls", map[string]interface{}{
		"expression": "2d6+3",
		"purpose":    "Damage",
	})
	defer resp.Body.Close() //nolint:errcheck
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var out session.RollDiceOutput
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))
	s.Require().NotNil(out.Roll)
	s.Equal("2d6+3", out.Roll.Result.Expression)
	s.GreaterOrEqual(out.Roll.Result.Total, int32(5))
	s.LessOrEqual(out.Roll.Result.Total, int32(15))
	s.Equal(entities.MessageKindDice, out.Message.Kind)
}

func (s *HandlerTestSuite) TestRollDiceBadExpression() {
	created := s.createSession()

	resp := s.request(http.MethodPost, "/sessions/"+created.ID+"/rolls", map[string]string{
		"expression": "0d6",
	})
	defer resp.Body.Close() //nolint:errcheck
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *HandlerTestSuite) TestInitiativeRoutes() {
	created := s.createSession()

	resp := s.request(http.MethodPost, "/sessions/"+created.ID+"/initiative", map[string]interface{}{
		"display_name": "Grog",
		"score":        15,
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var addOut session.AddToInitiativeOutput
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&addOut))
	resp.Body.Close() //nolint:errcheck
	s.Require().NotNil(addOut.Entry)

	resp = s.request(http.MethodPatch, "/sessions/"+created.ID+"/initiative/"+addOut.Entry.ID, map[string]interface{}{
		"conditions": []string{"prone"},
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var updateOut session.UpdateInitiativeOutput
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&updateOut))
	resp.Body.Close() //nolint:errcheck
	s.Require().Len(updateOut.Entries, 1)
	s.Equal([]string{"prone"}, updateOut.Entries[0].Conditions)

	resp = s.request(http.MethodPost, "/sessions/"+created.ID+"/initiative/next", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var turnOut session.NextTurnOutput
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&turnOut))
	resp.Body.Close() //nolint:errcheck
	s.Require().NotNil(turnOut.Active)
	s.Equal("Grog", turnOut.Active.DisplayName)

	resp = s.request(http.MethodDelete, "/sessions/"+created.ID+"/initiative/"+addOut.Entry.ID, nil)
	resp.Body.Close() //nolint:errcheck
	s.Equal(http.StatusOK, resp.StatusCode)

	resp = s.request(http.MethodPost, "/sessions/"+created.ID+"/initiative/reset", nil)
	resp.Body.Close() //nolint:errcheck
	s.Equal(http.StatusNoContent, resp.StatusCode)
}

func (s *HandlerTestSuite) TestJoinAndLeave() {
	created := s.createSession()

	resp := s.request(http.MethodPost, "/sessions/"+created.ID+"/join", map[string]string{
		"character_id": "char_1",
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var p entities.SessionParticipant
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&p))
	resp.Body.Close() //nolint:errcheck
	s.Equal(entities.RolePlayer, p.Role)

	resp = s.request(http.MethodPost, "/sessions/"+created.ID+"/leave", nil)
	resp.Body.Close() //nolint:errcheck
	s.Equal(http.StatusNoContent, resp.StatusCode)
}

func (s *HandlerTestSuite) TestDeleteSession() {
	created := s.createSession()

	resp := s.request(http.MethodDelete, "/sessions/"+created.ID, nil)
	resp.Body.Close() //nolint:errcheck
	s.Equal(http.StatusNoContent, resp.StatusCode)

	resp = s.request(http.MethodGet, "/sessions/"+created.ID, nil)
	resp.Body.Close() //nolint:errcheck
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

// dialWebsocket opens the session's event socket, passing the token as a
// query parameter the way a browser client has to
func (s *HandlerTestSuite) dialWebsocket(sessionID, token string) (*websocket.Conn, *http.Response, error) {
	wsURL := "ws" + strings.TrimPrefix(s.server.URL, "http")
	return websocket.DefaultDialer.Dial(wsURL+"/sessions/"+sessionID+"/ws?token="+token, nil)
}

// waitForEvent reads frames until one of the wanted type arrives, skipping
// interleaved presence traffic
func (s *HandlerTestSuite) waitForEvent(conn *websocket.Conn, eventType realtime.EventType) *realtime.Event {
	for i := 0; i < 10; i++ {
		s.Require().NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
		var event realtime.Event
		s.Require().NoError(conn.ReadJSON(&event))
		if event.Type == eventType {
			return &event
		}
	}
	s.Require().FailNowf("event never arrived", "wanted %s", eventType)
	return nil
}

func (s *HandlerTestSuite) decodePresence(event *realtime.Event) realtime.PresenceState {
	var state realtime.PresenceState
	s.Require().NoError(json.Unmarshal(event.Payload, &state))
	return state
}

func (s *HandlerTestSuite) TestWebsocketRequiresToken() {
	created := s.createSession()

	conn, resp, err := s.dialWebsocket(created.ID, "")
	s.Require().Error(err)
	s.Nil(conn)
	s.Require().NotNil(resp)
	defer resp.Body.Close() //nolint:errcheck
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *HandlerTestSuite) TestWebsocketUnknownSession() {
	conn, resp, err := s.dialWebsocket("missing", s.token)
	s.Require().Error(err)
	s.Nil(conn)
	s.Require().NotNil(resp)
	defer resp.Body.Close() //nolint:errcheck
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *HandlerTestSuite) TestWebsocketStreamsSessionEvents() {
	created := s.createSession()

	conn, _, err := s.dialWebsocket(created.ID, s.token)
	s.Require().NoError(err)
	defer conn.Close() //nolint:errcheck

	// Connecting announces our own presence
	joined := s.decodePresence(s.waitForEvent(conn, realtime.EventPresenceJoin))
	s.Equal("user_gm", joined.UserID)
	s.Equal(entities.PresenceOnline, joined.Status)

	// A REST write shows up on the socket
	resp := s.request(http.MethodPost, "/sessions/"+created.ID+"/messages", map[string]string{
		"body": "Roll for perception.",
	})
	resp.Body.Close() //nolint:errcheck
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	event := s.waitForEvent(conn, realtime.EventChatMessage)
	var msg entities.ChatMessage
	s.Require().NoError(json.Unmarshal(event.Payload, &msg))
	s.Equal(created.ID, msg.SessionID)
	s.Equal("user_gm", msg.AuthorID)
	s.Equal("Roll for perception.", msg.Body)

	// A client presence frame updates our status and echoes back
	s.Require().NoError(conn.WriteJSON(map[string]string{"type": "presence", "status": "away"}))
	for {
		state := s.decodePresence(s.waitForEvent(conn, realtime.EventPresenceJoin))
		if state.Status == entities.PresenceAway {
			s.Equal("user_gm", state.UserID)
			break
		}
	}
}

func (s *HandlerTestSuite) TestWebsocketWithdrawsPresenceOnClose() {
	created := s.createSession()

	observer, _, err := s.dialWebsocket(created.ID, s.token)
	s.Require().NoError(err)
	defer observer.Close() //nolint:errcheck

	playerToken, err := s.tokens.Issue(&identity.User{ID: "user_player", DisplayName: "Vex"})
	s.Require().NoError(err)
	player, _, err := s.dialWebsocket(created.ID, playerToken)
	s.Require().NoError(err)

	// The observer sees the player arrive, then leave when their socket drops
	for {
		state := s.decodePresence(s.waitForEvent(observer, realtime.EventPresenceJoin))
		if state.UserID == "user_player" {
			break
		}
	}

	s.Require().NoError(player.Close())

	left := s.decodePresence(s.waitForEvent(observer, realtime.EventPresenceLeave))
	s.Equal("user_player", left.UserID)
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}
