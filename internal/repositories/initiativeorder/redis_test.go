package initiativeorder_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/vtt-api/internal/entities"
	"github.com/KirkDiggler/vtt-api/internal/errors"
	"github.com/KirkDiggler/vtt-api/internal/repositories/initiativeorder"
	"github.com/KirkDiggler/vtt-api/internal/testutils"
)

const testSessionID = "sess_1"

type RedisRepositoryTestSuite struct {
	suite.Suite
	repo    initiativeorder.Repository
	cleanup func()
	ctx     context.Context
}

func (s *RedisRepositoryTestSuite) SetupTest() {
	client, cleanup := testutils.CreateTestRedisClient(s.T())
	s.cleanup = cleanup
	s.ctx = context.Background()

	repo, err := initiativeorder.NewRedisRepository(&initiativeorder.Config{Client: client})
	s.Require().NoError(err)
	s.repo = repo
}

func (s *RedisRepositoryTestSuite) TearDownTest() {
	s.cleanup()
}

func (s *RedisRepositoryTestSuite) TestGetEmptySession() {
	out, err := s.repo.Get(s.ctx, initiativeorder.GetInput{SessionID: testSessionID})
	s.NoError(err)
	s.Empty(out.Entries)
}

func (s *RedisRepositoryTestSuite) TestReplaceAndGet() {
	entries := []entities.InitiativeEntry{
		{
			ID:          "entry_1",
			SessionID:   testSessionID,
			DisplayName: "Grog",
			Score:       18,
			IsActive:    true,
			Conditions:  []string{"raging"},
			HitPoints:   &entities.HitPoints{Current: 40, Max: 45},
		},
		{
			ID:          "entry_2",
			SessionID:   testSessionID,
			DisplayName: "Vex",
			Score:       22,
		},
	}

	_, err := s.repo.Replace(s.ctx, initiativeorder.ReplaceInput{
		SessionID: testSessionID,
		Entries:   entries,
	})
	s.NoError(err)

	out, err := s.repo.Get(s.ctx, initiativeorder.GetInput{SessionID: testSessionID})
	s.NoError(err)
	s.Require().Len(out.Entries, 2)
	s.Equal("entry_1", out.Entries[0].ID)
	s.True(out.Entries[0].IsActive)
	s.Equal([]string{"raging"}, out.Entries[0].Conditions)
	s.Require().NotNil(out.Entries[0].HitPoints)
	s.Equal(int32(40), out.Entries[0].HitPoints.Current)
	s.Equal(int32(22), out.Entries[1].Score)
}

func (s *RedisRepositoryTestSuite) TestReplaceOverwrites() {
	_, err := s.repo.Replace(s.ctx, initiativeorder.ReplaceInput{
		SessionID: testSessionID,
		Entries:   []entities.InitiativeEntry{{ID: "entry_1", SessionID: testSessionID, Score: 10}},
	})
	s.Require().NoError(err)

	_, err = s.repo.Replace(s.ctx, initiativeorder.ReplaceInput{
		SessionID: testSessionID,
		Entries:   []entities.InitiativeEntry{{ID: "entry_2", SessionID: testSessionID, Score: 15}},
	})
	s.Require().NoError(err)

	out, err := s.repo.Get(s.ctx, initiativeorder.GetInput{SessionID: testSessionID})
	s.NoError(err)
	s.Require().Len(out.Entries, 1)
	s.Equal("entry_2", out.Entries[0].ID)
}

func (s *RedisRepositoryTestSuite) TestReplaceNilClearsToEmpty() {
	_, err := s.repo.Replace(s.ctx, initiativeorder.ReplaceInput{
		SessionID: testSessionID,
		Entries:   nil,
	})
	s.NoError(err)

	out, err := s.repo.Get(s.ctx, initiativeorder.GetInput{SessionID: testSessionID})
	s.NoError(err)
	s.Empty(out.Entries)
}

func (s *RedisRepositoryTestSuite) TestValidation() {
	_, err := s.repo.Get(s.ctx, initiativeorder.GetInput{})
	s.True(errors.IsInvalidArgument(err))

	_, err = s.repo.Replace(s.ctx, initiativeorder.ReplaceInput{})
	s.True(errors.IsInvalidArgument(err))
}

func (s *RedisRepositoryTestSuite) TestClear() {
	_, err := s.repo.Replace(s.ctx, initiativeorder.ReplaceInput{
		SessionID: testSessionID,
		Entries:   []entities.InitiativeEntry{{ID: "entry_1", SessionID: testSessionID, Score: 10}},
	})
	s.Require().NoError(err)

	_, err = s.repo.Clear(s.ctx, initiativeorder.ClearInput{SessionID: testSessionID})
	s.NoError(err)

	out, err := s.repo.Get(s.ctx, initiativeorder.GetInput{SessionID: testSessionID})
	s.NoError(err)
	s.Empty(out.Entries)
}

func TestRedisRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RedisRepositoryTestSuite))
}
