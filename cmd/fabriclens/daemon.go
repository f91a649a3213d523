package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fabriclens/fabriclens/internal/config"
	"github.com/fabriclens/fabriclens/internal/daemon"
	"github.com/fabriclens/fabriclens/internal/procutil"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "status",
		Short:         "Show daemon status",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          showStatus,
	}
}

func newStopCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "stop",
		Short:         "Stop the running daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          stopDaemon,
	}
}

func showStatus(cmd *cobra.Command, args []string) error {
	formatter := newOutputFormatter(cmd)

	ctx, cancel := requestContext()
	defer cancel()

	c, err := newClient(ctx)
	if err != nil {
		return err
	}

	status, err := c.Status(ctx)
	if err != nil {
		return fmt.Errorf("is fabriclensd running? %w", err)
	}

	if formatter.jsonMode {
		return formatter.Print(status)
	}

	fmt.Printf("Daemon version: %s\n", status.Version)
	fmt.Printf("Port:           %d\n", status.Port)
	fmt.Printf("Sessions:       %d\n", status.Sessions)
	fmt.Printf("UI clients:     %d\n", status.WSClients)
	if !status.StartedAt.IsZero() {
		fmt.Printf("Started at:     %s\n", status.StartedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func stopDaemon(cmd *cobra.Command, args []string) error {
	formatter := newOutputFormatter(cmd)

	pid := daemon.RunningPID(config.DefaultInstance)
	if pid == 0 {
		return fmt.Errorf("daemon is not running")
	}

	if err := procutil.TerminateByPID(pid); err != nil {
		return fmt.Errorf("failed to stop daemon (PID %d): %w", pid, err)
	}

	return formatter.Success(fmt.Sprintf("Sent stop signal to daemon (PID %d)", pid), map[string]any{
		"pid": pid,
	})
}
