package controllers

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/gitrouter/internal/domain/commands"
	"github.com/rios0rios0/gitrouter/internal/domain/entities"
)

// WatchController handles the "watch" subcommand.
type WatchController struct {
	command commands.Watch
}

// NewWatchController creates a new WatchController.
func NewWatchController(command commands.Watch) *WatchController {
	return &WatchController{command: command}
}

// GetBind returns the Cobra command metadata for the watch controller.
func (it *WatchController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "watch [roots...]",
		Short: "Watch repositories and report their changes",
		Long: `Discover the workspace roots, then report the coalesced change events of every
repository until interrupted.`,
	}
}

// AddFlags adds watch-specific flags to the given command.
func (it *WatchController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	cmd.Flags().Duration("fs-delay", 0, "Working-tree change debounce (default: configured value)")
}

// Execute watches until SIGINT or SIGTERM.
func (it *WatchController) Execute(cmd *cobra.Command, args []string) {
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	fsDelay, _ := cmd.Flags().GetDuration("fs-delay")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := it.command.Execute(ctx, commands.WatchOptions{
		Roots:           args,
		FileSystemDelay: fsDelay,
		MetricsAddr:     metricsAddr,
	}); err != nil {
		logger.Errorf("Watch failed: %v", err)
	}
}
