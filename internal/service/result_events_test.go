package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-assessment/internal/models"
)

func TestResultEventPublisherBroadcastsToRedis(t *testing.T) {
	_, client := newTestRedis(t)
	ctx := context.Background()

	subscription := client.Subscribe(ctx, "gema:assessment:assessment_results")
	defer subscription.Close()
	_, err := subscription.Receive(ctx)
	require.NoError(t, err)

	publisher := NewResultEventPublisher(client, "gema:assessment", nil, testLogger())
	publisher.Publish(ctx, EventResultSubmitted, models.AssessmentResult{
		ID:               12,
		StudentID:        4,
		AssessmentPlanID: 7,
		TotalScore:       80,
		MaximumScore:     100,
		Grade:            "A",
		Status:           models.ResultStatusSubmitted,
	})

	select {
	case message := <-subscription.Channel():
		var event ResultEvent
		require.NoError(t, json.Unmarshal([]byte(message.Payload), &event))
		require.Equal(t, EventResultSubmitted, event.Type)
		require.Equal(t, uint(12), event.ResultID)
		require.Equal(t, 80.0, event.TotalScore)
		require.Equal(t, "A", event.Grade)
		require.NotEmpty(t, event.ID)
		require.NotEmpty(t, event.Source)
	case <-time.After(2 * time.Second):
		t.Fatal("result event was not published")
	}
}

func TestResultEventPublisherToleratesMissingTransports(t *testing.T) {
	publisher := NewResultEventPublisher(nil, "gema:assessment", nil, testLogger())
	require.NotPanics(t, func() {
		publisher.Publish(context.Background(), EventResultUpdated, models.AssessmentResult{ID: 1})
	})

	server, client := newTestRedis(t)
	server.Close()
	failing := NewResultEventPublisher(client, "gema:assessment", nil, testLogger())
	require.NotPanics(t, func() {
		failing.Publish(context.Background(), EventResultUpdated, models.AssessmentResult{ID: 1})
	})
}
