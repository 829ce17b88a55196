package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"slidebanai-backend/internal/bootstrap"
	"slidebanai-backend/internal/shared/config"
	"slidebanai-backend/internal/shared/metrics"
	"slidebanai-backend/internal/shared/telemetry"
	"slidebanai-backend/internal/workerproc"
)

var (
	initOnce sync.Once
	initErr  error
	app      *bootstrap.App
)

func initApp() {
	cfg := config.Load()
	built, err := bootstrap.Build(cfg)
	if err != nil {
		initErr = err
		return
	}
	app = built
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda.worker.bootstrap_failed", map[string]any{"error": initErr.Error()})
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}

	return processBatch(ctx, app.FinalizeProcessor, event), nil
}

// processBatch reports only retryable failures; malformed messages are dropped.
func processBatch(ctx context.Context, proc workerproc.Processor, event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		state, err := workerproc.HandleMessage(ctx, proc, record.Body)
		fields := map[string]any{"sqs_message_id": record.MessageId, "state": string(state)}
		switch {
		case err == nil:
			metrics.RecordWorkerJob(string(state))
		case workerproc.Unrecoverable(err):
			fields["error"] = err.Error()
			telemetry.Error("lambda.worker.invalid_message", fields)
			metrics.RecordWorkerJob("dropped")
		default:
			fields["error"] = err.Error()
			telemetry.Error("lambda.worker.retry", fields)
			metrics.RecordWorkerJob("retry")
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
