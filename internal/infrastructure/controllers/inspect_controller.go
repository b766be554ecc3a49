package controllers

import (
	"context"
	"fmt"
	"io"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/gitrouter/internal/domain/commands"
	"github.com/rios0rios0/gitrouter/internal/domain/entities"
)

// InspectController handles the "inspect" subcommand.
type InspectController struct {
	command commands.Inspect
}

// NewInspectController creates a new InspectController.
func NewInspectController(command commands.Inspect) *InspectController {
	return &InspectController{command: command}
}

// GetBind returns the Cobra command metadata for the inspect controller.
func (it *InspectController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "inspect [path]",
		Short: "Show how a repository is routed",
		Long: `Open the repository containing a path and print its provider, visibility,
ranked remotes, and feature access.`,
	}
}

// AddFlags adds inspect-specific flags to the given command.
func (it *InspectController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("feature", nil,
		"Feature to check access for (worktrees, graph, visual-history, launchpad)")
}

// Execute runs the inspection and prints the report.
func (it *InspectController) Execute(cmd *cobra.Command, args []string) {
	features, _ := cmd.Flags().GetStringSlice("feature")

	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	opts := commands.InspectOptions{Path: path}
	for _, feature := range features {
		opts.Features = append(opts.Features, entities.Feature(feature))
	}

	report, err := it.command.Execute(context.Background(), opts)
	if err != nil {
		logger.Errorf("Inspection failed: %v", err)
		return
	}
	printReport(cmd.OutOrStdout(), report)
}

func printReport(out io.Writer, report *commands.InspectReport) {
	_, _ = fmt.Fprintf(out, "Repository:  %s\n", report.Path)
	_, _ = fmt.Fprintf(out, "Provider:    %s\n", report.ProviderID)
	_, _ = fmt.Fprintf(out, "Visibility:  %s\n", report.Visibility)
	_, _ = fmt.Fprintf(out, "Starred:     %t\n", report.Starred)
	if !report.LastFetched.IsZero() {
		_, _ = fmt.Fprintf(out, "Last fetch:  %s\n", report.LastFetched.Format("2006-01-02 15:04:05"))
	}

	_, _ = fmt.Fprintln(out, "Remotes:")
	for _, remote := range report.Remotes {
		marker := " "
		if report.Integration != nil && report.Integration.Name == remote.Name {
			marker = ">"
		}
		_, _ = fmt.Fprintf(out, "  %s %-12s %5d  %s\n", marker, remote.Name, remote.Weight, remote.URL())
	}

	if len(report.Access) > 0 {
		_, _ = fmt.Fprintln(out, "Access:")
		for _, access := range report.Access {
			_, _ = fmt.Fprintf(out, "  %-16s %s (plan: %s)\n", access.Feature, access.Allowed, access.Plan)
		}
	}
}
