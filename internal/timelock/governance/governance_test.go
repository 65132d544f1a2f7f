package governance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"aurum/internal/timelock/engine"
	"aurum/internal/timelock/models"
	"aurum/internal/timelock/store/actions"
	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/testutil"
)

const day = 24 * time.Hour

var approvals = []string{"sig-a", "sig-b"}

// recordingDispatcher records dispatched targets and can fail a named target
// a configured number of times.
type recordingDispatcher struct {
	dispatched []string
	failTarget string
	failures   int
}

func (d *recordingDispatcher) Dispatch(_ context.Context, call Call) error {
	if call.Target == d.failTarget && d.failures > 0 {
		d.failures--
		return errors.New("target unavailable")
	}
	d.dispatched = append(d.dispatched, call.Target)
	return nil
}

type GovernanceSuite struct {
	suite.Suite
	dispatcher *recordingDispatcher
	service    *Service
	now        time.Time
}

func TestGovernanceSuite(t *testing.T) {
	suite.Run(t, new(GovernanceSuite))
}

func (s *GovernanceSuite) SetupTest() {
	eng, err := engine.New("governance", actions.NewInMemory(), models.Policy{
		Delay:          2 * day,
		Window:         5 * day,
		EmergencyDelay: 12 * time.Hour,
		MinApprovals:   2,
	})
	s.Require().NoError(err)
	s.dispatcher = &recordingDispatcher{}
	s.service, err = New(eng, s.dispatcher, nil)
	s.Require().NoError(err)
	s.now = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
}

func (s *GovernanceSuite) propose(calls ...Call) domain.ActionID {
	action, err := s.service.Propose(testutil.ContextAtAs(s.now, domain.Caller{ID: "proposer-1"}), calls, approvals)
	s.Require().NoError(err)
	return action.ID
}

func (s *GovernanceSuite) TestPropose() {
	s.Run("derives distinct ids for identical content at different times", func() {
		calls := []Call{{Target: "fee-config", Value: domain.ZeroAmount}}
		first, err := s.service.Propose(testutil.ContextAtAs(s.now, domain.Caller{ID: "proposer-1"}), calls, approvals)
		s.Require().NoError(err)
		second, err := s.service.Propose(testutil.ContextAtAs(s.now.Add(time.Second), domain.Caller{ID: "proposer-1"}), calls, approvals)
		s.Require().NoError(err)
		s.NotEqual(first.ID, second.ID)
	})

	s.Run("rejects an empty proposal", func() {
		_, err := s.service.Propose(testutil.ContextAt(s.now), nil, approvals)
		s.True(dErrors.Has(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects a call without a target", func() {
		_, err := s.service.Propose(testutil.ContextAt(s.now), []Call{{}}, approvals)
		s.True(dErrors.Has(err, dErrors.CodeInvalidInput))
	})

	s.Run("enforces the approval threshold", func() {
		_, err := s.service.Propose(testutil.ContextAt(s.now), []Call{{Target: "t"}}, []string{"sig-a"})
		s.True(dErrors.Is(err, models.KindInsufficientApprovals))
	})
}

func (s *GovernanceSuite) TestExecuteDispatchesInOrder() {
	id := s.propose(
		Call{Target: "pause-module"},
		Call{Target: "fee-config", Data: []byte(`{"bps":30}`)},
		Call{Target: "unpause-module"},
	)

	err := s.service.Execute(testutil.ContextAt(s.now.Add(3*day)), id)
	s.Require().NoError(err)
	s.Equal([]string{"pause-module", "fee-config", "unpause-module"}, s.dispatcher.dispatched)
}

func (s *GovernanceSuite) TestFirstFailingCallAborts() {
	id := s.propose(
		Call{Target: "pause-module"},
		Call{Target: "fee-config"},
		Call{Target: "unpause-module"},
	)
	s.dispatcher.failTarget = "fee-config"
	s.dispatcher.failures = 1

	at := testutil.ContextAt(s.now.Add(3 * day))
	err := s.service.Execute(at, id)
	s.Require().Error(err)
	s.True(dErrors.Has(err, dErrors.CodeInternal))

	// Calls before the failure ran; the one after it never did.
	s.Equal([]string{"pause-module"}, s.dispatcher.dispatched)

	proposal, getErr := s.service.Proposal(context.Background(), id)
	s.Require().NoError(getErr)
	s.False(proposal.Executed)

	// A retry within the window runs the full list again.
	s.dispatcher.dispatched = nil
	s.Require().NoError(s.service.Execute(at, id))
	s.Equal([]string{"pause-module", "fee-config", "unpause-module"}, s.dispatcher.dispatched)
}

func (s *GovernanceSuite) TestEmergencyExecute() {
	id := s.propose(Call{Target: "pause-module"})

	err := s.service.ExecuteEmergency(testutil.ContextAt(s.now.Add(time.Hour)), id, "exploit in flight")
	s.True(dErrors.Is(err, models.KindTooEarly))

	err = s.service.ExecuteEmergency(testutil.ContextAt(s.now.Add(12*time.Hour)), id, "exploit in flight")
	s.Require().NoError(err)
	s.Equal([]string{"pause-module"}, s.dispatcher.dispatched)
}
