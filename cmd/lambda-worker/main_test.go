package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow-backend/internal/queue"
)

type fakeVerifier map[string]bool

func (f fakeVerifier) Check(ctx context.Context, signatureID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return f[signatureID], nil
}

type downVerifier struct{ err error }

func (d downVerifier) Check(context.Context, string) (bool, error) { return false, d.err }

func record(t *testing.T, id, signatureID string) events.SQSMessage {
	t.Helper()
	body, err := queue.EncodeMessage(queue.NewMessage(signatureID, "", time.Now()))
	require.NoError(t, err)
	return events.SQSMessage{MessageId: id, Body: string(body)}
}

func TestProcessBatchOutcomes(t *testing.T) {
	counts := map[string]int{}
	event := events.SQSEvent{Records: []events.SQSMessage{
		record(t, "m1", "sig-ok"),
		record(t, "m2", "sig-bad"),
		{MessageId: "m3", Body: "not json"},
	}}

	resp := processBatch(context.Background(), fakeVerifier{"sig-ok": true}, func(o string) { counts[o]++ }, event)

	assert.Empty(t, resp.BatchItemFailures)
	assert.Equal(t, 3, counts["received"])
	assert.Equal(t, 1, counts["valid"])
	assert.Equal(t, 1, counts["tampered"])
	assert.Equal(t, 1, counts["unrecoverable"])
}

func TestProcessBatchReportsTransientFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	event := events.SQSEvent{Records: []events.SQSMessage{record(t, "m1", "sig-ok")}}

	resp := processBatch(ctx, fakeVerifier{"sig-ok": true}, func(string) {}, event)

	require.Len(t, resp.BatchItemFailures, 1)
	assert.Equal(t, "m1", resp.BatchItemFailures[0].ItemIdentifier)
}

func TestProcessBatchRetriesStorageFaults(t *testing.T) {
	counts := map[string]int{}
	event := events.SQSEvent{Records: []events.SQSMessage{record(t, "m1", "sig-1")}}

	resp := processBatch(context.Background(), downVerifier{err: errors.New("connection refused")}, func(o string) { counts[o]++ }, event)

	require.Len(t, resp.BatchItemFailures, 1)
	assert.Equal(t, "m1", resp.BatchItemFailures[0].ItemIdentifier)
	assert.Equal(t, 1, counts["failed"])
	assert.Zero(t, counts["tampered"])
}
