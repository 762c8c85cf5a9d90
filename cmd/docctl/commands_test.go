package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow-backend/internal/queue"
	"docflow-backend/internal/signatures"
	"docflow-backend/internal/users"
)

func captured() (*cobra.Command, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	return cmd, buf
}

func withOutput(t *testing.T, format string) {
	t.Helper()
	prev := output
	output = format
	t.Cleanup(func() { output = prev })
}

func TestRenderFormats(t *testing.T) {
	list := []users.User{{ID: "u-1", Email: "sup@example.com", Role: users.RoleSupervisor, IsActive: true}}

	withOutput(t, "")
	cmd, buf := captured()
	require.NoError(t, printUsers(cmd, list))
	assert.Contains(t, buf.String(), "EMAIL")
	assert.Contains(t, buf.String(), "sup@example.com")

	withOutput(t, "json")
	cmd, buf = captured()
	require.NoError(t, printUsers(cmd, list))
	assert.Contains(t, buf.String(), `"email": "sup@example.com"`)

	withOutput(t, "yaml")
	cmd, buf = captured()
	require.NoError(t, printUsers(cmd, list))
	assert.True(t, strings.Contains(buf.String(), "email: sup@example.com"), buf.String())
}

func TestRenderRejectsUnknownFormat(t *testing.T) {
	withOutput(t, "xml")
	cmd, _ := captured()
	err := render(cmd, nil, func() table.Writer { return newTable() })
	require.Error(t, err)
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"users", "add"},
		{"users", "ls"},
		{"token", "issue"},
		{"documents", "history"},
		{"signatures", "verify"},
		{"signatures", "rm"},
		{"signatures", "audit"},
		{"migrate"},
	} {
		found, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], found.Name())
	}
}

type recordingQueue struct {
	sent   []queue.Message
	failAt int
}

func (q *recordingQueue) Send(ctx context.Context, msg queue.Message) error {
	if q.failAt > 0 && len(q.sent)+1 == q.failAt {
		return errors.New("throttled")
	}
	q.sent = append(q.sent, msg)
	return nil
}

func TestEnqueueAudits(t *testing.T) {
	q := &recordingQueue{}
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	n, err := enqueueAudits(context.Background(), q, []string{"sig-1", "sig-2"}, now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, q.sent, 2)
	assert.Equal(t, "sig-2", q.sent[1].SignatureID)
	assert.Equal(t, "2026-05-04T10:00:00Z", q.sent[0].EnqueuedAt)
	assert.Equal(t, queue.MessageVersion, q.sent[0].Version)

	q = &recordingQueue{failAt: 2}
	n, err = enqueueAudits(context.Background(), q, []string{"sig-1", "sig-2", "sig-3"}, now)
	require.Error(t, err)
	assert.Equal(t, 1, n)
}

type pagedLister struct {
	total int
	calls int
}

func (p *pagedLister) List(ctx context.Context, filter signatures.ListFilter) ([]signatures.Signature, error) {
	p.calls++
	var out []signatures.Signature
	for i := filter.Offset; i < p.total && i < filter.Offset+filter.Limit; i++ {
		out = append(out, signatures.Signature{ID: fmt.Sprintf("sig-%d", i)})
	}
	return out, nil
}

func TestAllSignatureIDsPages(t *testing.T) {
	l := &pagedLister{total: auditPageSize + 3}

	ids, err := allSignatureIDs(context.Background(), l)
	require.NoError(t, err)
	assert.Len(t, ids, auditPageSize+3)
	assert.Equal(t, 2, l.calls)
}
