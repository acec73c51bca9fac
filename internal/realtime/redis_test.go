package realtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/vtt-api/internal/entities"
	"github.com/KirkDiggler/vtt-api/internal/errors"
	"github.com/KirkDiggler/vtt-api/internal/realtime"
	"github.com/KirkDiggler/vtt-api/internal/repositories/diceroll"
	"github.com/KirkDiggler/vtt-api/internal/testutils"
)

const (
	testSessionID = "sess_1"
	waitTimeout   = 2 * time.Second
)

type RedisChannelTestSuite struct {
	suite.Suite
	channel realtime.Channel
	cleanup func()
	ctx     context.Context

	chatMessages chan *entities.ChatMessage
	diceRolls    chan *diceroll.Roll
	initiative   chan struct{}
	participants chan struct{}
	joins        chan realtime.PresenceState
	leaves       chan realtime.PresenceState
	syncs        chan []realtime.PresenceState
	connections  chan bool
}

func (s *RedisChannelTestSuite) SetupTest() {
	client, cleanup := testutils.CreateTestRedisClient(s.T())
	s.cleanup = cleanup
	s.ctx = context.Background()

	s.chatMessages = make(chan *entities.ChatMessage, 8)
	s.diceRolls = make(chan *diceroll.Roll, 8)
	s.initiative = make(chan struct{}, 8)
	s.participants = make(chan struct{}, 8)
	s.joins = make(chan realtime.PresenceState, 8)
	s.leaves = make(chan realtime.PresenceState, 8)
	s.syncs = make(chan []realtime.PresenceState, 8)
	s.connections = make(chan bool, 8)

	channel, err := realtime.NewRedisChannel(
		&realtime.Config{Client: client},
		realtime.Handlers{
			OnChatMessage:         func(msg *entities.ChatMessage) { s.chatMessages <- msg },
			OnDiceRoll:            func(roll *diceroll.Roll) { s.diceRolls <- roll },
			OnInitiativeChanged:   func() { s.initiative <- struct{}{} },
			OnParticipantsChanged: func() { s.participants <- struct{}{} },
			OnPresenceJoin:        func(st realtime.PresenceState) { s.joins <- st },
			OnPresenceLeave:       func(st realtime.PresenceState) { s.leaves <- st },
			OnPresenceSync:        func(st []realtime.PresenceState) { s.syncs <- st },
			OnConnectionChange:    func(connected bool) { s.connections <- connected },
		},
	)
	s.Require().NoError(err)
	s.channel = channel
}

func (s *RedisChannelTestSuite) TearDownTest() {
	s.channel.Disconnect()
	s.cleanup()
}

func (s *RedisChannelTestSuite) TestConnect() {
	err := s.channel.Connect(s.ctx, testSessionID)
	s.NoError(err)
	s.True(s.channel.Connected())
	s.Equal(testSessionID, s.channel.SessionID())

	select {
	case connected := <-s.connections:
		s.True(connected)
	case <-time.After(waitTimeout):
		s.Fail("no connection change callback")
	}
}

func (s *RedisChannelTestSuite) TestConnectEmptySessionID() {
	err := s.channel.Connect(s.ctx, "")
	s.True(errors.IsInvalidArgument(err))
	s.False(s.channel.Connected())
}

func (s *RedisChannelTestSuite) TestChatMessageRoundTrip() {
	s.Require().NoError(s.channel.Connect(s.ctx, testSessionID))

	sent := &entities.ChatMessage{
		ID:        "msg_1",
		SessionID: testSessionID,
		AuthorID:  "user_1",
		Kind:      entities.MessageKindMessage,
		Body:      "roll for perception",
		SentAt:    time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC),
	}
	event, err := realtime.NewChatMessageEvent(sent)
	s.Require().NoError(err)
	s.Require().NoError(s.channel.Publish(s.ctx, event))

	select {
	case got := <-s.chatMessages:
		s.Equal("msg_1", got.ID)
		s.Equal("roll for perception", got.Body)
		s.Equal(entities.MessageKindMessage, got.Kind)
	case <-time.After(waitTimeout):
		s.Fail("chat message was not delivered")
	}
}

func (s *RedisChannelTestSuite) TestInvalidationSignals() {
	s.Require().NoError(s.channel.Connect(s.ctx, testSessionID))

	s.Require().NoError(s.channel.Publish(s.ctx, realtime.NewInitiativeChangedEvent(testSessionID)))
	select {
	case <-s.initiative:
	case <-time.After(waitTimeout):
		s.Fail("initiative signal was not delivered")
	}

	s.Require().NoError(s.channel.Publish(s.ctx, realtime.NewParticipantsChangedEvent(testSessionID)))
	select {
	case <-s.participants:
	case <-time.After(waitTimeout):
		s.Fail("participants signal was not delivered")
	}
}

func (s *RedisChannelTestSuite) TestTrackAnnouncesJoin() {
	s.Require().NoError(s.channel.Connect(s.ctx, testSessionID))

	err := s.channel.Track(s.ctx, "user_1", entities.PresenceOnline)
	s.NoError(err)

	select {
	case st := <-s.joins:
		s.Equal("user_1", st.UserID)
		s.Equal(entities.PresenceOnline, st.Status)
	case <-time.After(waitTimeout):
		s.Fail("presence join was not delivered")
	}
}

func (s *RedisChannelTestSuite) TestTrackWhileDisconnected() {
	err := s.channel.Track(s.ctx, "user_1", entities.PresenceOnline)
	s.True(errors.IsFailedPrecondition(err))
}

func (s *RedisChannelTestSuite) TestPublishValidation() {
	err := s.channel.Publish(s.ctx, nil)
	s.True(errors.IsInvalidArgument(err))

	err = s.channel.Publish(s.ctx, &realtime.Event{Type: realtime.EventChatMessage})
	s.True(errors.IsInvalidArgument(err))
}

func (s *RedisChannelTestSuite) TestDisconnectIsIdempotent() {
	s.Require().NoError(s.channel.Connect(s.ctx, testSessionID))

	s.channel.Disconnect()
	s.False(s.channel.Connected())
	s.Empty(s.channel.SessionID())

	// Second disconnect is a no-op
	s.channel.Disconnect()
	s.False(s.channel.Connected())
}

func (s *RedisChannelTestSuite) TestReconnectSwitchesSessions() {
	s.Require().NoError(s.channel.Connect(s.ctx, testSessionID))
	s.Require().NoError(s.channel.Connect(s.ctx, "sess_2"))

	s.True(s.channel.Connected())
	s.Equal("sess_2", s.channel.SessionID())

	// Events for the old session no longer arrive
	msg := &entities.ChatMessage{ID: "msg_old", SessionID: testSessionID, Body: "stale"}
	event, err := realtime.NewChatMessageEvent(msg)
	s.Require().NoError(err)
	s.Require().NoError(s.channel.Publish(s.ctx, event))

	select {
	case got := <-s.chatMessages:
		s.Failf("unexpected delivery", "got message %s", got.ID)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRedisChannelTestSuite(t *testing.T) {
	suite.Run(t, new(RedisChannelTestSuite))
}
