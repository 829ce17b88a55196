package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"

	"slidebanai-backend/internal/pipeline"
)

type byIDProcessor map[string]error

func (p byIDProcessor) ProcessFinalize(_ context.Context, id string) (pipeline.State, error) {
	if err := p[id]; err != nil {
		return pipeline.StateExpandingSlides, err
	}
	return pipeline.StateDone, nil
}

func TestProcessBatchReportsOnlyRetryableFailures(t *testing.T) {
	proc := byIDProcessor{"p2": errors.New("db down")}
	event := events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "m1", Body: `{"presentationId":"p1","version":1}`},
		{MessageId: "m2", Body: `{"presentationId":"p2","version":1}`},
		{MessageId: "m3", Body: `not json`},
		{MessageId: "m4", Body: `{"version":1}`},
	}}

	resp := processBatch(context.Background(), proc, event)

	assert.Equal(t, []events.SQSBatchItemFailure{{ItemIdentifier: "m2"}}, resp.BatchItemFailures)
}
