package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment/internal/models"
)

// Result event types.
const (
	EventResultUpdated   = "assessment_result.updated"
	EventResultSubmitted = "assessment_result.submitted"
)

// ResultEvent is the payload broadcast when a result changes.
type ResultEvent struct {
	ID               string    `json:"id"`
	Type             string    `json:"type"`
	Source           string    `json:"source"`
	ResultID         uint      `json:"assessment_result_id"`
	StudentID        uint      `json:"student_id"`
	AssessmentPlanID uint      `json:"assessment_plan_id"`
	TotalScore       float64   `json:"total_score"`
	MaximumScore     float64   `json:"maximum_score"`
	Grade            string    `json:"grade"`
	Status           string    `json:"status"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// ResultEventPublisher broadcasts result changes to other services.
type ResultEventPublisher interface {
	Publish(ctx context.Context, eventType string, result models.AssessmentResult)
}

type resultEventPublisher struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	nodeID       string
	now          func() time.Time
}

// NewResultEventPublisher creates a publisher; either transport may be nil.
func NewResultEventPublisher(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) ResultEventPublisher {
	redisChannel := ""
	natsSubject := ""
	if channelBase != "" {
		redisChannel = channelBase + ":assessment_results"
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".assessment_results"
	}

	return &resultEventPublisher{
		redis:        redisClient,
		redisChannel: redisChannel,
		nats:         natsConn,
		natsSubject:  natsSubject,
		logger:       logger.With().Str("component", "result_event_publisher").Logger(),
		nodeID:       uuid.NewString(),
		now:          time.Now,
	}
}

// Publish is fire-and-forget: delivery failures are logged, never returned.
func (p *resultEventPublisher) Publish(ctx context.Context, eventType string, result models.AssessmentResult) {
	event := ResultEvent{
		ID:               uuid.NewString(),
		Type:             eventType,
		Source:           p.nodeID,
		ResultID:         result.ID,
		StudentID:        result.StudentID,
		AssessmentPlanID: result.AssessmentPlanID,
		TotalScore:       result.TotalScore,
		MaximumScore:     result.MaximumScore,
		Grade:            result.Grade,
		Status:           result.Status,
		OccurredAt:       p.now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to encode result event")
		return
	}

	if p.redis != nil && p.redisChannel != "" {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			p.logger.Warn().Err(err).Str("event", eventType).Uint("assessment_result_id", result.ID).Msg("failed to publish result event to redis")
		}
	}

	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.natsSubject, payload); err != nil {
			p.logger.Warn().Err(err).Str("event", eventType).Uint("assessment_result_id", result.ID).Msg("failed to publish result event to nats")
		}
	}
}
