package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"docflow-backend/internal/documents"
)

func newDocumentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "Inspect documents",
	}
	cmd.AddCommand(newDocumentsListCommand(), newDocumentsHistoryCommand(), newDocumentsCheckCommand())
	return cmd
}

func newDocumentsListCommand() *cobra.Command {
	var (
		status string
		limit  int
		offset int
	)
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := documents.ListFilter{Limit: limit, Offset: offset}
			if status != "" {
				parsed, ok := documents.ParseStatus(status)
				if !ok {
					return fmt.Errorf("unknown status %q", status)
				}
				filter.Status = parsed
			}

			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			list, err := app.DocumentsService.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return render(cmd, list, func() table.Writer {
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "NAME", "STATUS", "SIZE", "PAGES", "UPLOADED BY", "CREATED AT"})
				for _, d := range list {
					tw.AppendRow(table.Row{d.ID, d.Name, d.Status, d.SizeBytes, d.PageCount, d.UploadedBy, d.CreatedAt.Format("2006-01-02 15:04")})
				}
				return tw
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	cmd.Flags().IntVar(&limit, "limit", 20, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Page offset")
	return cmd
}

func newDocumentsHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history [document id]",
		Short: "Show the status history of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			entries, err := app.DocumentsService.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, entries, func() table.Writer {
				tw := newTable()
				tw.AppendHeader(table.Row{"AT", "STATUS", "ACTOR", "COMMENT"})
				for _, e := range entries {
					tw.AppendRow(table.Row{e.CreatedAt.Format("2006-01-02 15:04:05"), e.Status, e.ActorEmail, e.Comment})
				}
				return tw
			})
		},
	}
}

func newDocumentsCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check [document id]",
		Short: "Re-hash stored bytes and compare them with the recorded hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			doc, err := app.DocumentsService.FindByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			intact := app.DocumentsService.VerifyFileIntegrity(cmd.Context(), doc)
			cmd.Printf("%s\t%s\tintact=%t\n", doc.ID, doc.ContentHash, intact)
			return nil
		},
	}
}
