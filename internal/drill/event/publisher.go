// Package event publishes drill lifecycle events for downstream
// consumers (progress dashboards, spaced-repetition scheduling).
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/DonTee-Why/algo-drill-sub000/internal/common/mq"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/model"
	appErr "github.com/DonTee-Why/algo-drill-sub000/pkg/errors"
)

// DefaultStageAdvancedTopic is the topic stage advancement events are
// published to.
const DefaultStageAdvancedTopic = "drill.stage.advanced"

// StageAdvancedEvent announces that a session moved forward one stage.
type StageAdvancedEvent struct {
	SessionID string `json:"session_id"`
	UserID    int64  `json:"user_id"`
	ProblemID int64  `json:"problem_id"`
	FromStage string `json:"from_stage"`
	ToStage   string `json:"to_stage"`
	Total     int    `json:"total"` // rubric total at advancement
	CreatedAt int64  `json:"created_at"`
}

// Publisher publishes drill events.
type Publisher interface {
	PublishStageAdvanced(ctx context.Context, session *model.Session, from, to model.Stage, total int) error
}

// MQPublisher publishes drill events to a message queue.
type MQPublisher struct {
	queue mq.Producer
	topic string
}

// NewMQPublisher creates a message queue backed publisher.
func NewMQPublisher(queue mq.Producer, topic string) *MQPublisher {
	if topic == "" {
		topic = DefaultStageAdvancedTopic
	}
	return &MQPublisher{queue: queue, topic: topic}
}

// PublishStageAdvanced publishes a stage advancement event.
func (p *MQPublisher) PublishStageAdvanced(ctx context.Context, session *model.Session, from, to model.Stage, total int) error {
	if p == nil || p.queue == nil {
		return appErr.New(appErr.ServiceUnavailable).WithMessage("event publisher is not configured")
	}
	if session == nil || session.SessionID == "" {
		return appErr.ValidationError("session_id", "required")
	}

	event := StageAdvancedEvent{
		SessionID: session.SessionID,
		UserID:    session.UserID,
		ProblemID: session.ProblemID,
		FromStage: from.String(),
		ToStage:   to.String(),
		Total:     total,
		CreatedAt: time.Now().Unix(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal stage advanced event failed: %w", err)
	}

	message := &mq.Message{
		ID:        session.SessionID,
		Body:      payload,
		Timestamp: time.Now(),
	}
	if err := p.queue.Publish(ctx, p.topic, message); err != nil {
		return appErr.Wrapf(err, appErr.ServiceUnavailable, "publish stage advanced event failed")
	}
	return nil
}
