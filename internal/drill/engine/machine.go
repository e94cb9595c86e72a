package engine

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DonTee-Why/algo-drill-sub000/internal/common/db"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/event"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/model"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/repository"
	appErr "github.com/DonTee-Why/algo-drill-sub000/pkg/errors"
	"github.com/DonTee-Why/algo-drill-sub000/pkg/utils/logger"
)

// Machine processes stage submissions. Each Process call is one atomic
// unit: the session row is locked, the attempt is appended, and the
// stage advances (or not) in a single transaction, so two concurrent
// submissions for the same session cannot both advance it.
type Machine struct {
	db       db.Database
	sessions repository.SessionRepository
	attempts repository.AttemptRepository
	factory  *Factory
	events   event.Publisher
}

// NewMachine creates the stage machine. The event publisher is
// optional; advancement events are best effort.
func NewMachine(database db.Database, sessions repository.SessionRepository, attempts repository.AttemptRepository, factory *Factory, events event.Publisher) (*Machine, error) {
	if database == nil {
		return nil, errors.New("database is required")
	}
	if sessions == nil {
		return nil, errors.New("session repository is required")
	}
	if attempts == nil {
		return nil, errors.New("attempt repository is required")
	}
	if factory == nil {
		return nil, errors.New("handler factory is required")
	}
	return &Machine{
		db:       database,
		sessions: sessions,
		attempts: attempts,
		factory:  factory,
		events:   events,
	}, nil
}

// Process evaluates one submission against the session's current stage.
// A completed session is the only condition that errors before an
// attempt is recorded; every other failure is committed as a failing
// StageResult.
func (m *Machine) Process(ctx context.Context, sessionID string, payload json.RawMessage) (*model.StageResult, error) {
	if sessionID == "" {
		return nil, appErr.ValidationError("session_id", "required")
	}

	var (
		result  *model.StageResult
		session *model.Session
		from    model.Stage
		to      model.Stage
	)

	err := m.db.Transaction(ctx, func(tx db.Transaction) error {
		var err error
		session, err = m.sessions.GetForUpdate(ctx, tx, sessionID)
		if err != nil {
			if errors.Is(err, repository.ErrSessionNotFound) {
				return appErr.New(appErr.SessionNotFound)
			}
			return appErr.Wrap(err, appErr.DatabaseError)
		}

		// Reserved extension points (expiry, attempt limits) slot in
		// alongside this check.
		if session.Completed() {
			return appErr.New(appErr.SessionCompleted)
		}

		handler, err := m.factory.For(session.Stage)
		if err != nil {
			return err
		}

		from = session.Stage
		result = safeEvaluate(ctx, tx, handler, session, payload)

		attempt := &model.Attempt{
			AttemptID:    uuid.NewString(),
			SessionID:    session.SessionID,
			Stage:        from,
			Payload:      payload,
			RubricScores: result.RubricScores,
			CoachMsg:     result.CoachMsg,
			CreatedAt:    time.Now(),
		}
		if err := m.attempts.Create(ctx, tx, attempt); err != nil {
			return appErr.Wrap(err, appErr.AttemptCreateFailed)
		}

		if session.Scores == nil {
			session.Scores = make(map[model.Stage]model.ScoreMap)
		}
		session.Scores[from] = result.RubricScores.Clone()
		m.recordElapsed(session, from, payload)

		if result.Passed && result.NextStage != nil {
			session.Stage = *result.NextStage
		}
		to = session.Stage

		if err := m.sessions.Update(ctx, tx, session); err != nil {
			return appErr.Wrap(err, appErr.SessionUpdateFailed)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if to != from {
		m.publishAdvanced(ctx, session, from, to, result.RubricScores.Total())
	}
	return result, nil
}

// recordElapsed accumulates per-stage working time when the payload
// carries it.
func (m *Machine) recordElapsed(session *model.Session, stage model.Stage, payload json.RawMessage) {
	var meta model.PayloadMeta
	if len(payload) == 0 || json.Unmarshal(payload, &meta) != nil {
		return
	}
	if meta.ElapsedMs <= 0 {
		return
	}
	if session.Timers == nil {
		session.Timers = make(map[model.Stage]int64)
	}
	session.Timers[stage] += meta.ElapsedMs
}

// publishAdvanced emits the advancement event after commit. Publish
// failures are logged, never surfaced to the learner.
func (m *Machine) publishAdvanced(ctx context.Context, session *model.Session, from, to model.Stage, total int) {
	if m.events == nil {
		return
	}
	if err := m.events.PublishStageAdvanced(ctx, session, from, to, total); err != nil {
		logger.Warn(ctx, "publish stage advanced event failed",
			zap.String("session_id", session.SessionID),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.Error(err))
	}
}
