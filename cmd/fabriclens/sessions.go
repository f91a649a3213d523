package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSessionsCommand() *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage preference sessions",
	}

	sessionsCmd.AddCommand(
		&cobra.Command{
			Use:           "list",
			Short:         "List live sessions",
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE:          listSessions,
		},
		&cobra.Command{
			Use:           "create [session-id]",
			Short:         "Create a session (daemon picks an ID when omitted)",
			Args:          cobra.MaximumNArgs(1),
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE:          createSession,
		},
		&cobra.Command{
			Use:           "remove [session-id]",
			Short:         "Remove a session and discard its preferences",
			Args:          cobra.ExactArgs(1),
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE:          removeSession,
		},
	)

	return sessionsCmd
}

func listSessions(cmd *cobra.Command, args []string) error {
	formatter := newOutputFormatter(cmd)

	ctx, cancel := requestContext()
	defer cancel()

	c, err := newClient(ctx)
	if err != nil {
		return err
	}

	sessions, err := c.ListSessions(ctx)
	if err != nil {
		return err
	}

	if formatter.jsonMode {
		return formatter.Print(sessions)
	}

	if len(sessions) == 0 {
		fmt.Println("No live sessions.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tCREATED\tLAST ACCESS")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			s.ID,
			s.CreatedAt.Format("2006-01-02 15:04:05"),
			s.LastAccess.Format("2006-01-02 15:04:05"),
		)
	}
	return w.Flush()
}

func createSession(cmd *cobra.Command, args []string) error {
	formatter := newOutputFormatter(cmd)

	ctx, cancel := requestContext()
	defer cancel()

	c, err := newClient(ctx)
	if err != nil {
		return err
	}

	sessionID := ""
	if len(args) == 1 {
		sessionID = args[0]
	}

	dto, err := c.CreateSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if formatter.jsonMode {
		return formatter.Print(dto)
	}
	fmt.Printf("Session %s ready (page size %d)\n", dto.SessionID, dto.PageSize)
	return nil
}

func removeSession(cmd *cobra.Command, args []string) error {
	formatter := newOutputFormatter(cmd)

	ctx, cancel := requestContext()
	defer cancel()

	c, err := newClient(ctx)
	if err != nil {
		return err
	}

	if err := c.RemoveSession(ctx, args[0]); err != nil {
		return err
	}
	return formatter.Success(fmt.Sprintf("Session %s removed", args[0]), map[string]any{
		"session_id": args[0],
	})
}
