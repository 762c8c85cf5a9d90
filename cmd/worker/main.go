package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"docflow-backend/internal/bootstrap"
	"docflow-backend/internal/shared/config"
	"docflow-backend/internal/shared/metrics"
	"docflow-backend/internal/shared/telemetry"
	"docflow-backend/internal/workerproc"
)

func main() {
	if err := run(); err != nil {
		telemetry.Error("worker.exit", map[string]any{"error": err.Error()})
		telemetry.Sync()
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := telemetry.SetLevel(cfg.LogLevel); err != nil {
		return err
	}
	defer telemetry.Sync()

	queueURL := strings.TrimSpace(cfg.AuditQueueURL)
	if queueURL == "" {
		return errors.New("AUDIT_QUEUE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if cfg.AWSRegion != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWSRegion))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return err
	}

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	w := &worker{
		client:     sqs.NewFromConfig(awsCfg),
		queueURL:   queueURL,
		verifier:   app.SignaturesService,
		metrics:    app.Metrics,
		visibility: cfg.AuditVisibilityTimeout,
	}
	w.run(ctx, max(1, cfg.WorkerConcurrency), cfg.ShutdownTimeout)
	return nil
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

type worker struct {
	client     sqsAPI
	queueURL   string
	verifier   workerproc.Verifier
	metrics    *metrics.Metrics
	visibility time.Duration
}

// run polls until ctx is cancelled. Audits already received keep running on a
// context that outlives ctx and is cancelled once shutdownTimeout expires.
func (w *worker) run(ctx context.Context, concurrency int, shutdownTimeout time.Duration) {
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	jobCtx, cancelJobs := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelJobs()

	telemetry.Info("worker.started", map[string]any{
		"queue":       w.queueURL,
		"concurrency": concurrency,
		"visibility":  w.visibility.String(),
	})

pollLoop:
	for {
		select {
		case <-ctx.Done():
			break pollLoop
		default:
		}

		resp, err := w.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(w.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   int32(w.visibility / time.Second),
			MessageSystemAttributeNames: []sqstypes.MessageSystemAttributeName{
				sqstypes.MessageSystemAttributeNameApproximateReceiveCount,
			},
		})
		if err != nil {
			if ctx.Err() != nil {
				break pollLoop
			}
			telemetry.Warn("worker.receive_failed", map[string]any{"error": err.Error()})
			continue
		}

		for _, msg := range resp.Messages {
			sem <- struct{}{}
			w.metrics.IncAuditJob("received")
			wg.Add(1)
			go func(m sqstypes.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				w.handleMessage(jobCtx, m)
			}(msg)
		}
	}

	telemetry.Info("worker.shutdown", map[string]any{"timeout": shutdownTimeout.String()})
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(shutdownTimeout):
		telemetry.Warn("worker.shutdown_timeout", nil)
		cancelJobs()
	}
}

// handleMessage audits one message. Parsed messages are deleted whatever the
// verdict; transient failures are left for redelivery.
func (w *worker) handleMessage(ctx context.Context, msg sqstypes.Message) {
	res, err := workerproc.HandleMessage(ctx, w.verifier, aws.ToString(msg.Body))
	if err != nil {
		fields := baseFields(msg, res.Message.SignatureID, res.Message.RequestID)
		fields["error"] = err.Error()
		if workerproc.Unrecoverable(err) {
			telemetry.Error("worker.audit.unrecoverable", fields)
			if w.deleteMessage(ctx, msg, fields) {
				w.metrics.IncAuditJob("unrecoverable")
			}
			return
		}
		telemetry.Error("worker.audit.failed", fields)
		w.metrics.IncAuditJob("failed")
		return
	}

	fields := baseFields(msg, res.Message.SignatureID, res.Message.RequestID)
	fields["valid"] = res.Valid
	if !w.deleteMessage(ctx, msg, fields) {
		return
	}
	if res.Valid {
		telemetry.Info("worker.audit.completed", fields)
		w.metrics.IncAuditJob("valid")
		return
	}
	telemetry.Warn("worker.audit.tampered", fields)
	w.metrics.IncAuditJob("tampered")
}

func (w *worker) deleteMessage(ctx context.Context, msg sqstypes.Message, fields map[string]any) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		telemetry.Error("worker.audit.delete_failed", withError(fields, "missing receipt handle"))
		return false
	}
	if _, err := w.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(w.queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		telemetry.Error("worker.audit.delete_failed", withError(fields, err.Error()))
		return false
	}
	return true
}

func withError(fields map[string]any, msg string) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["error"] = msg
	return out
}

func baseFields(msg sqstypes.Message, signatureID, requestID string) map[string]any {
	fields := map[string]any{
		"signature_id":   signatureID,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	raw := msg.Attributes[string(sqstypes.MessageSystemAttributeNameApproximateReceiveCount)]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}
