package controllers

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/gitrouter/internal/domain/commands"
	"github.com/rios0rios0/gitrouter/internal/domain/entities"
)

// DiscoverController handles the "discover" subcommand.
type DiscoverController struct {
	command commands.Discover
}

// NewDiscoverController creates a new DiscoverController.
func NewDiscoverController(command commands.Discover) *DiscoverController {
	return &DiscoverController{command: command}
}

// GetBind returns the Cobra command metadata for the discover controller.
func (it *DiscoverController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "discover [roots...]",
		Short: "Discover the repositories under workspace roots",
		Long: `Scan workspace roots for Git repositories through every registered provider.

Roots default to the configured ones, then to the current directory.`,
	}
}

// AddFlags adds discover-specific flags to the given command.
func (it *DiscoverController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("force", "f", false, "Rescan roots that were already discovered")
}

// Execute runs the discovery and prints one repository per line.
func (it *DiscoverController) Execute(cmd *cobra.Command, args []string) {
	force, _ := cmd.Flags().GetBool("force")
	verbose, _ := cmd.Flags().GetBool("verbose")

	repos, err := it.command.Execute(context.Background(), commands.DiscoverOptions{
		Roots:   args,
		Force:   force,
		Verbose: verbose,
	})
	if err != nil {
		logger.Errorf("Discovery failed: %v", err)
		return
	}

	for _, repo := range repos {
		star := " "
		if repo.Starred() {
			star = "*"
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\t%s\n", star, repo.Path(), repo.ProviderID())
	}
}
