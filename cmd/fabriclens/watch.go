package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fabriclens/fabriclens/internal/api"
)

func newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "watch",
		Short:         "Stream preference and session events from the daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          watchEvents,
	}
}

func watchEvents(cmd *cobra.Command, args []string) error {
	formatter := newOutputFormatter(cmd)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c, err := newClient(ctx)
	if err != nil {
		return err
	}

	if !formatter.jsonMode {
		fmt.Println("Watching events (Ctrl+C to stop)...")
	}

	err = c.WatchEvents(ctx, func(event api.EventDTO) {
		printEvent(formatter, event)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printEvent(formatter *OutputFormatter, event api.EventDTO) {
	if formatter.jsonMode {
		line, err := json.Marshal(event)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to encode event: %v\n", err)
			return
		}
		fmt.Println(string(line))
		return
	}

	timestamp := event.Timestamp.Format("15:04:05")
	switch {
	case event.SessionID != "" && event.Data != nil:
		data, _ := json.Marshal(event.Data)
		fmt.Printf("%s  %-20s session=%s %s\n", timestamp, event.Type, event.SessionID, data)
	case event.SessionID != "":
		fmt.Printf("%s  %-20s session=%s\n", timestamp, event.Type, event.SessionID)
	case event.Data != nil:
		data, _ := json.Marshal(event.Data)
		fmt.Printf("%s  %-20s %s\n", timestamp, event.Type, data)
	default:
		fmt.Printf("%s  %s\n", timestamp, event.Type)
	}
}
