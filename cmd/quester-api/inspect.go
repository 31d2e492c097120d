package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/PabloGalante/quester-agent/internal/domain"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "sessions", Short: "Inspect stored sessions"}
	cmd.AddCommand(sessionsListCmd())
	cmd.AddCommand(sessionsLatestCmd())
	return cmd
}

func sessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildServices(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			list, err := svc.conv.ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			renderSessions(os.Stdout, list)
			return nil
		},
	}
}

func sessionsLatestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Show the most recent session and its topics",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildServices(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			session, err := svc.conv.LatestSession(cmd.Context())
			if errors.Is(err, domain.ErrNotFound) {
				fmt.Println("no sessions yet")
				return nil
			}
			if err != nil {
				return err
			}
			renderSession(os.Stdout, session)
			return nil
		},
	}
}

func draftsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "drafts", Short: "Inspect generated drafts"}
	cmd.AddCommand(draftsListCmd())
	cmd.AddCommand(draftsShowCmd())
	return cmd
}

func draftsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <sessionID>",
		Short: "List the drafts of a session, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildServices(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			list, err := svc.drafts.ListDrafts(cmd.Context(), domain.SessionID(args[0]))
			if err != nil {
				return err
			}
			renderDrafts(os.Stdout, list)
			return nil
		},
	}
}

func draftsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <sessionID> <topicID>",
		Short: "Print a draft as Markdown",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildServices(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			out, err := svc.drafts.GetDraft(cmd.Context(), domain.SessionID(args[0]), domain.TopicID(args[1]))
			if err != nil {
				return err
			}
			if !out.Exists {
				return fmt.Errorf("draft %s/%s: %w", args[0], args[1], domain.ErrNotFound)
			}
			renderDraft(os.Stdout, *out.Draft)
			return nil
		},
	}
}

func renderSessions(w io.Writer, list []domain.SessionSummary) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Title", "Updated"})
	for _, s := range list {
		tw.AppendRow(table.Row{s.ID, s.Title, s.UpdatedAt.Local().Format("2006-01-02 15:04")})
	}
	tw.Render()
}

func renderSession(w io.Writer, s *domain.Session) {
	fmt.Fprintf(w, "%s  %s\n%d messages, updated %s\n\n", s.ID, s.Title, len(s.Messages), s.UpdatedAt.Local().Format("2006-01-02 15:04"))

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Topic", "Title", "Status", "Messages"})
	for _, t := range s.Topics {
		tw.AppendRow(table.Row{t.ID, t.Title, t.Status, len(domain.MessagesForTopic(s.Messages, t.ID))})
	}
	tw.Render()
}

func renderDrafts(w io.Writer, list []domain.DraftMetadata) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Topic", "Title", "Completeness", "Updated"})
	for _, d := range list {
		tw.AppendRow(table.Row{d.TopicID, d.TopicTitle, fmt.Sprintf("%d%%", d.Completeness), d.UpdatedAt.Local().Format("2006-01-02 15:04")})
	}
	tw.Render()
}

func renderDraft(w io.Writer, d domain.Draft) {
	fmt.Fprintf(w, "# %s\n\n", d.TopicTitle)
	for _, s := range d.Sections {
		fmt.Fprintf(w, "## %s\n\n%s\n\n", s.Title, s.Content)
	}
	fmt.Fprintf(w, "_%d%% complete_\n", d.Completeness)
	if len(d.MissingAspects) > 0 {
		fmt.Fprintf(w, "\nStill missing:\n- %s\n", strings.Join(d.MissingAspects, "\n- "))
	}
}
