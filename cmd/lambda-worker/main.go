package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"docflow-backend/internal/bootstrap"
	"docflow-backend/internal/shared/config"
	"docflow-backend/internal/shared/telemetry"
	"docflow-backend/internal/workerproc"
)

var (
	initOnce sync.Once
	initErr  error
	app      *bootstrap.App
)

func initApp() {
	cfg, err := config.Load()
	if err != nil {
		initErr = err
		return
	}
	_ = telemetry.SetLevel(cfg.LogLevel)
	built, err := bootstrap.Build(context.Background(), cfg)
	if err != nil {
		initErr = err
		return
	}
	app = built
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda_worker.bootstrap_failed", map[string]any{"error": initErr.Error()})
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}
	return processBatch(ctx, app.SignaturesService, app.Metrics.IncAuditJob, event), nil
}

// processBatch audits each record. Only transient failures are reported back
// so SQS redelivers them; malformed records are dropped.
func processBatch(ctx context.Context, v workerproc.Verifier, count func(string), event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		count("received")
		res, err := workerproc.HandleMessage(ctx, v, record.Body)
		fields := map[string]any{"sqs_message_id": record.MessageId, "signature_id": res.Message.SignatureID}
		switch {
		case err != nil && workerproc.Unrecoverable(err):
			fields["error"] = err.Error()
			telemetry.Error("lambda_worker.audit.unrecoverable", fields)
			count("unrecoverable")
		case err != nil:
			fields["error"] = err.Error()
			telemetry.Error("lambda_worker.audit.failed", fields)
			count("failed")
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		case res.Valid:
			count("valid")
		default:
			telemetry.Warn("lambda_worker.audit.tampered", fields)
			count("tampered")
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
