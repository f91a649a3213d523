package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newDefaultsCommand() *cobra.Command {
	defaultsCmd := &cobra.Command{
		Use:   "defaults",
		Short: "Manage the seed values applied to new sessions",
	}

	getCmd := &cobra.Command{
		Use:           "get",
		Short:         "Show the current defaults",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          getDefaults,
	}

	setCmd := &cobra.Command{
		Use:           "set",
		Short:         "Update one or more defaults",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          setDefaults,
	}
	setCmd.Flags().Int("page-size", 0, "Default page size for new sessions")
	setCmd.Flags().String("timezone", "", "Default timezone for new sessions")
	setCmd.Flags().String("fabric", "", "Default fabric name for new sessions")
	setCmd.Flags().String("idle-timeout", "", "Session idle timeout (e.g. 30m, 1h)")

	defaultsCmd.AddCommand(getCmd, setCmd)
	return defaultsCmd
}

func getDefaults(cmd *cobra.Command, args []string) error {
	formatter := newOutputFormatter(cmd)

	ctx, cancel := requestContext()
	defer cancel()

	c, err := newClient(ctx)
	if err != nil {
		return err
	}

	defaults, err := c.GetDefaults(ctx)
	if err != nil {
		return err
	}

	if formatter.jsonMode {
		return formatter.Print(defaults)
	}

	fmt.Printf("Page size:    %d\n", defaults.PageSize)
	fmt.Printf("Timezone:     %s\n", defaults.Timezone)
	fmt.Printf("Fabric:       %s\n", formatFabricName(defaults.FabricName))
	fmt.Printf("Idle timeout: %s\n", defaults.SessionIdleTimeout)
	return nil
}

func setDefaults(cmd *cobra.Command, args []string) error {
	formatter := newOutputFormatter(cmd)

	ctx, cancel := requestContext()
	defer cancel()

	c, err := newClient(ctx)
	if err != nil {
		return err
	}

	// The daemon replaces the whole record, so overlay the flags onto the
	// current values.
	defaults, err := c.GetDefaults(ctx)
	if err != nil {
		return err
	}

	touched := false
	flags := cmd.Flags()

	if flags.Changed("page-size") {
		pageSize, _ := flags.GetInt("page-size")
		if pageSize <= 0 {
			return fmt.Errorf("page-size must be a positive integer")
		}
		defaults.PageSize = pageSize
		touched = true
	}
	if flags.Changed("timezone") {
		defaults.Timezone, _ = flags.GetString("timezone")
		touched = true
	}
	if flags.Changed("fabric") {
		defaults.FabricName, _ = flags.GetString("fabric")
		touched = true
	}
	if flags.Changed("idle-timeout") {
		timeout, _ := flags.GetString("idle-timeout")
		if _, err := time.ParseDuration(timeout); err != nil {
			return fmt.Errorf("invalid idle-timeout: %w", err)
		}
		defaults.SessionIdleTimeout = timeout
		touched = true
	}

	if !touched {
		return fmt.Errorf("no defaults to update, pass at least one flag")
	}

	updated, err := c.SetDefaults(ctx, defaults)
	if err != nil {
		return err
	}

	if formatter.jsonMode {
		return formatter.Print(updated)
	}
	fmt.Printf("Defaults updated (page size %d, timezone %s, idle timeout %s)\n",
		updated.PageSize, updated.Timezone, updated.SessionIdleTimeout)
	return nil
}
