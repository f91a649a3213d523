package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fabriclens/fabriclens/internal/api"
)

func newPrefsCommand() *cobra.Command {
	prefsCmd := &cobra.Command{
		Use:   "prefs",
		Short: "Inspect and update session preferences",
	}

	prefsCmd.AddCommand(
		&cobra.Command{
			Use:           "get [session-id]",
			Short:         "Show a session's preferences",
			Args:          cobra.ExactArgs(1),
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE:          getPreferences,
		},
		&cobra.Command{
			Use:           "set [session-id] [field=value ...]",
			Short:         "Update preference fields (JSON values for structured fields)",
			Args:          cobra.MinimumNArgs(2),
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE:          setPreferences,
		},
	)

	return prefsCmd
}

func getPreferences(cmd *cobra.Command, args []string) error {
	formatter := newOutputFormatter(cmd)

	ctx, cancel := requestContext()
	defer cancel()

	c, err := newClient(ctx)
	if err != nil {
		return err
	}

	dto, err := c.GetPreferences(ctx, args[0])
	if err != nil {
		return err
	}

	if formatter.jsonMode {
		return formatter.Print(dto)
	}

	fmt.Printf("Session:               %s\n", dto.SessionID)
	fmt.Printf("Page size:             %d\n", dto.PageSize)
	fmt.Printf("Selected endpoint:     %s\n", formatMapping(dto.SelectedEndpoint))
	fmt.Printf("Endpoint details:      %s\n", formatOptionalJSON(dto.EndpointDetails))
	fmt.Printf("Fabric:                %s\n", formatFabricName(dto.Fabric.Name))
	fmt.Printf("Timezone:              %s\n", dto.FabricSettings.Timezone)
	fmt.Printf("Checked thread status: %v\n", dto.CheckedThreadStatus)
	return nil
}

func setPreferences(cmd *cobra.Command, args []string) error {
	formatter := newOutputFormatter(cmd)

	sessionID := args[0]
	patch, err := buildPatch(args[1:])
	if err != nil {
		return err
	}
	if patch.IsEmpty() {
		return fmt.Errorf("no fields to update")
	}

	ctx, cancel := requestContext()
	defer cancel()

	c, err := newClient(ctx)
	if err != nil {
		return err
	}

	dto, err := c.UpdatePreferences(ctx, sessionID, patch)
	if err != nil {
		return err
	}

	if formatter.jsonMode {
		return formatter.Print(dto)
	}
	fmt.Printf("Preferences updated for session %s\n", dto.SessionID)
	return nil
}

// buildPatch turns field=value arguments into a partial update. Scalar
// fields take plain values; structured fields take JSON.
func buildPatch(assignments []string) (api.PreferencesPatch, error) {
	var patch api.PreferencesPatch

	for _, assignment := range assignments {
		field, value, found := strings.Cut(assignment, "=")
		if !found {
			return patch, fmt.Errorf("invalid assignment %q, expected field=value", assignment)
		}

		switch field {
		case "page_size":
			size, err := strconv.Atoi(value)
			if err != nil {
				return patch, fmt.Errorf("page_size must be an integer: %w", err)
			}
			patch.PageSize = &size

		case "checked_thread_status":
			checked, err := strconv.ParseBool(value)
			if err != nil {
				return patch, fmt.Errorf("checked_thread_status must be a boolean: %w", err)
			}
			patch.CheckedThreadStatus = &checked

		case "selected_endpoint":
			var sel map[string]string
			if err := json.Unmarshal([]byte(value), &sel); err != nil {
				return patch, fmt.Errorf("selected_endpoint must be a JSON object of strings: %w", err)
			}
			patch.SelectedEndpoint = &sel

		case "endpoint_details":
			if !json.Valid([]byte(value)) {
				return patch, fmt.Errorf("endpoint_details must be valid JSON")
			}
			patch.EndpointDetails = json.RawMessage(value)

		case "fabric_settings":
			if err := json.Unmarshal([]byte(value), &patch.FabricSettings); err != nil {
				return patch, fmt.Errorf("fabric_settings must be a JSON object: %w", err)
			}

		case "fabric":
			if err := json.Unmarshal([]byte(value), &patch.Fabric); err != nil {
				return patch, fmt.Errorf("fabric must be a JSON object: %w", err)
			}

		default:
			return patch, fmt.Errorf("unknown preference field %q", field)
		}
	}

	return patch, nil
}

func formatMapping(m map[string]string) string {
	if len(m) == 0 {
		return "(none)"
	}
	data, _ := json.Marshal(m)
	return string(data)
}

func formatOptionalJSON(v any) string {
	if v == nil {
		return "(unset)"
	}
	data, _ := json.Marshal(v)
	return string(data)
}

func formatFabricName(name string) string {
	if name == "" {
		return "(unset)"
	}
	return name
}
