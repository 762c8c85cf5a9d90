package main

import (
	"context"
	"errors"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"docflow-backend/internal/documents"
	"docflow-backend/internal/queue"
	"docflow-backend/internal/signatures"
	"docflow-backend/internal/users"
)

func newSignaturesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signatures",
		Short: "Inspect, verify and remove signatures",
	}
	cmd.AddCommand(newSignaturesListCommand(), newSignaturesVerifyCommand(), newSignaturesRemoveCommand(), newSignaturesAuditCommand())
	return cmd
}

func newSignaturesListCommand() *cobra.Command {
	var (
		signer   string
		document string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List signatures, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			var list []signatures.Signature
			if document != "" {
				list, err = app.SignaturesService.ListByDocument(cmd.Context(), document)
			} else {
				list, err = app.SignaturesService.List(cmd.Context(), signatures.ListFilter{SignerID: signer, Limit: limit})
			}
			if err != nil {
				return err
			}
			return render(cmd, list, func() table.Writer {
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "DOCUMENT", "SIGNER", "VALIDATED AT", "HASH"})
				for _, s := range list {
					tw.AppendRow(table.Row{s.ID, s.DocumentID, s.SignerEmail, signatures.FormatTimestamp(s.ValidatedAt), s.SignatureHash})
				}
				return tw
			})
		},
	}
	cmd.Flags().StringVar(&signer, "signer", "", "Filter by signer user id")
	cmd.Flags().StringVar(&document, "document", "", "List the signatures of one document")
	cmd.Flags().IntVar(&limit, "limit", 50, "Page size")
	return cmd
}

func newSignaturesVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [signature id]...",
		Short: "Recompute signature hashes from stored state",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			results := make([]signatures.VerifyResponse, 0, len(args))
			for _, id := range args {
				results = append(results, signatures.VerifyResponse{SignatureID: id, Valid: app.SignaturesService.Verify(cmd.Context(), id)})
			}
			return render(cmd, results, func() table.Writer {
				tw := newTable()
				tw.AppendHeader(table.Row{"SIGNATURE", "VALID"})
				for _, r := range results {
					tw.AppendRow(table.Row{r.SignatureID, r.Valid})
				}
				return tw
			})
		},
	}
}

func newSignaturesRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm [signature id]",
		Short: "Delete a signature record; the document status is unchanged",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := app.SignaturesService.Remove(cmd.Context(), documents.Actor{ID: "docctl", Email: "docctl", Role: string(users.RoleAdmin)}, args[0])
			if err != nil {
				return err
			}
			cmd.Printf("%s: %s\n", res.Message, res.Deleted.ID)
			return nil
		},
	}
}

func newSignaturesAuditCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "audit [signature id]...",
		Short: "Queue signatures for background integrity re-verification",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return errors.New("pass signature ids or --all, not both")
			}
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			if app.Queue == nil {
				return errors.New("AUDIT_QUEUE_URL is required")
			}

			ids := args
			if all {
				if ids, err = allSignatureIDs(cmd.Context(), app.SignaturesService); err != nil {
					return err
				}
			}
			n, err := enqueueAudits(cmd.Context(), app.Queue, ids, time.Now())
			cmd.Printf("queued %d of %d signatures\n", n, len(ids))
			return err
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Queue every stored signature")
	return cmd
}

type signatureLister interface {
	List(ctx context.Context, filter signatures.ListFilter) ([]signatures.Signature, error)
}

const auditPageSize = 200

func allSignatureIDs(ctx context.Context, l signatureLister) ([]string, error) {
	var ids []string
	for offset := 0; ; offset += auditPageSize {
		page, err := l.List(ctx, signatures.ListFilter{Limit: auditPageSize, Offset: offset})
		if err != nil {
			return ids, err
		}
		for _, s := range page {
			ids = append(ids, s.ID)
		}
		if len(page) < auditPageSize {
			return ids, nil
		}
	}
}

func enqueueAudits(ctx context.Context, q queue.Client, ids []string, now time.Time) (int, error) {
	msgs := make([]queue.Message, 0, len(ids))
	for _, id := range ids {
		msgs = append(msgs, queue.NewMessage(id, "", now))
	}
	return queue.SendAll(ctx, q, msgs)
}
