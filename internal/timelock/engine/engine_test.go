package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"aurum/internal/timelock/models"
	"aurum/internal/timelock/store/actions"
	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/audit"
	auditmemory "aurum/pkg/platform/audit/store/memory"
	"aurum/pkg/testutil"
)

const day = 24 * time.Hour

var testPolicy = models.Policy{
	Delay:          2 * day,
	Window:         5 * day,
	EmergencyDelay: 12 * time.Hour,
	MinApprovals:   2,
}

type EngineSuite struct {
	suite.Suite
	store  *actions.InMemoryActionStore
	events *auditmemory.Store
	engine *Engine
	now    time.Time
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.store = actions.NewInMemory()
	s.events = auditmemory.New()
	var err error
	s.engine, err = New("governance", s.store, testPolicy,
		WithAuditPublisher(audit.NewPublisher(s.events)),
	)
	s.Require().NoError(err)
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *EngineSuite) schedule(id domain.ActionID) *models.TimelockedAction {
	action, err := s.engine.Schedule(testutil.ContextAt(s.now), id, json.RawMessage(`{}`), []string{"sig-a", "sig-b"})
	s.Require().NoError(err)
	return action
}

func noop(context.Context, *models.TimelockedAction) error { return nil }

func (s *EngineSuite) TestSchedule() {
	s.Run("stamps the execution window from the policy", func() {
		action := s.schedule("act-1")
		s.Equal(s.now, action.RequestedAt)
		s.Equal(s.now.Add(2*day), action.ScheduledAt)
		s.Equal(s.now.Add(7*day), action.Deadline)
		s.False(action.Executed)
	})

	s.Run("rescheduling the same id fails", func() {
		_, err := s.engine.Schedule(testutil.ContextAt(s.now), "act-1", json.RawMessage(`{}`), []string{"sig-a", "sig-b"})
		s.True(dErrors.Is(err, models.KindAlreadyScheduled))
	})

	s.Run("duplicate approvals count once", func() {
		_, err := s.engine.Schedule(testutil.ContextAt(s.now), "act-2", json.RawMessage(`{}`), []string{"sig-a", "sig-a", ""})
		s.Require().Error(err)
		s.True(dErrors.Is(err, models.KindInsufficientApprovals))
		s.Equal(2, dErrors.DetailsOf(err)["required"])
	})
}

func (s *EngineSuite) TestExecuteWindow() {
	s.schedule("act-1")

	s.Run("before the delay elapses execution is refused", func() {
		err := s.engine.Execute(testutil.ContextAt(s.now.Add(day)), "act-1", noop)
		s.True(dErrors.Is(err, models.KindTooEarly))
		s.Equal(s.now.Add(2*day).Format(time.RFC3339), dErrors.DetailsOf(err)["scheduled_at"])
	})

	s.Run("inside the window the payload runs once", func() {
		ran := 0
		err := s.engine.Execute(testutil.ContextAt(s.now.Add(3*day)), "act-1", func(context.Context, *models.TimelockedAction) error {
			ran++
			return nil
		})
		s.Require().NoError(err)
		s.Equal(1, ran)

		err = s.engine.Execute(testutil.ContextAt(s.now.Add(3*day)), "act-1", noop)
		s.True(dErrors.Is(err, models.KindAlreadyExecuted))
	})

	s.Run("past the deadline an unexecuted action expires", func() {
		s.schedule("act-2")
		err := s.engine.Execute(testutil.ContextAt(s.now.Add(8*day)), "act-2", noop)
		s.True(dErrors.Is(err, models.KindTooLate))
	})

	s.Run("window boundaries are inclusive", func() {
		s.schedule("act-3")
		s.NoError(s.engine.Execute(testutil.ContextAt(s.now.Add(2*day)), "act-3", noop))
		s.schedule("act-4")
		s.NoError(s.engine.Execute(testutil.ContextAt(s.now.Add(7*day)), "act-4", noop))
	})

	s.Run("unknown actions are not scheduled", func() {
		err := s.engine.Execute(testutil.ContextAt(s.now), "missing", noop)
		s.True(dErrors.Is(err, models.KindNotScheduled))
	})
}

func (s *EngineSuite) TestFailedPayloadRollsBack() {
	s.schedule("act-1")
	at := testutil.ContextAt(s.now.Add(3 * day))

	err := s.engine.Execute(at, "act-1", func(context.Context, *models.TimelockedAction) error {
		return errors.New("target reverted")
	})
	s.Require().Error(err)
	s.True(dErrors.Has(err, dErrors.CodeInternal))

	action, getErr := s.engine.Action(context.Background(), "act-1")
	s.Require().NoError(getErr)
	s.False(action.Executed)

	// The action stays executable within its window.
	s.NoError(s.engine.Execute(at, "act-1", noop))
}

func (s *EngineSuite) TestExecuteEmergency() {
	s.schedule("act-1")

	s.Run("requires a reason", func() {
		err := s.engine.ExecuteEmergency(testutil.ContextAt(s.now.Add(day)), "act-1", "", noop)
		s.True(dErrors.Has(err, dErrors.CodeInvalidInput))
	})

	s.Run("gated by the emergency delay from the request time", func() {
		err := s.engine.ExecuteEmergency(testutil.ContextAt(s.now.Add(time.Hour)), "act-1", "pool drained", noop)
		s.True(dErrors.Is(err, models.KindTooEarly))
	})

	s.Run("bypasses the normal window once its delay passed", func() {
		err := s.engine.ExecuteEmergency(testutil.ContextAt(s.now.Add(12*time.Hour)), "act-1", "pool drained", noop)
		s.Require().NoError(err)

		action, getErr := s.engine.Action(context.Background(), "act-1")
		s.Require().NoError(getErr)
		s.True(action.Executed)
	})

	s.Run("ignores the deadline entirely", func() {
		s.schedule("act-2")
		err := s.engine.ExecuteEmergency(testutil.ContextAt(s.now.Add(30*day)), "act-2", "stale but required", noop)
		s.NoError(err)
	})

	s.Run("records the reason in the security audit trail", func() {
		var found bool
		for _, event := range s.events.All() {
			if event.Action == audit.ActionEmergencyExecuted && event.Reason == "pool drained" {
				s.Equal(audit.CategorySecurity, event.Category)
				found = true
			}
		}
		s.True(found)
	})
}
