package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fabriclens/fabriclens/internal/client"
	fabriclensversion "github.com/fabriclens/fabriclens/internal/version"
)

const defaultRequestTimeout = 30 * time.Second

var rootCmd *cobra.Command

// OutputFormatter handles output in JSON or human-readable format.
type OutputFormatter struct {
	jsonMode bool
}

// newOutputFormatter creates a new formatter based on the command's --json flag.
func newOutputFormatter(cmd *cobra.Command) *OutputFormatter {
	jsonMode, _ := cmd.Flags().GetBool("json")
	return &OutputFormatter{jsonMode: jsonMode}
}

// Print outputs data in the appropriate format.
func (f *OutputFormatter) Print(data any) error {
	if f.jsonMode {
		jsonBytes, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(jsonBytes))
		return nil
	}

	switch v := data.(type) {
	case string:
		fmt.Println(v)
	default:
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	}
	return nil
}

// Success outputs a success message.
func (f *OutputFormatter) Success(message string, data map[string]any) error {
	if f.jsonMode {
		output := map[string]any{
			"success": true,
			"message": message,
		}
		for k, v := range data {
			output[k] = v
		}
		return f.Print(output)
	}
	fmt.Println(message)
	return nil
}

// newClient builds an API client and warns on daemon/CLI version skew.
func newClient(ctx context.Context) (*client.Client, error) {
	c, err := client.New()
	if err != nil {
		return nil, err
	}

	if status, err := c.Status(ctx); err == nil {
		if msg := fabriclensversion.CheckVersionMismatch(status.Version); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
	}

	return c, nil
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), defaultRequestTimeout)
}

func main() {
	rootCmd = &cobra.Command{
		Use:           "fabriclens",
		Short:         "FabricLens CLI - manage endpoint browser sessions and their preferences",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")

	rootCmd.AddCommand(
		newStatusCommand(),
		newStopCommand(),
		newSessionsCommand(),
		newPrefsCommand(),
		newDefaultsCommand(),
		newWatchCommand(),
		newLoginCommand(),
		newVersionCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
