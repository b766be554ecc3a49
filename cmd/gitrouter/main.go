package main

import (
	"os"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rios0rios0/gitrouter/internal"
	"github.com/rios0rios0/gitrouter/internal/domain/entities"
)

// flagged is implemented by controllers that declare their own flags.
type flagged interface {
	AddFlags(cmd *cobra.Command)
}

func buildRootCommand() *cobra.Command {
	//nolint:exhaustruct // Minimal Command initialization with required fields only
	cmd := &cobra.Command{
		Use:   "gitrouter",
		Short: "Route Git workspaces to their providers",
		Long: `Discover the Git repositories of a workspace, route each one to the provider
owning it, and answer questions about them: visibility, feature access, and the
best remote to integrate with.

Usage modes:
  gitrouter discover ~/src     List the repositories under a root
  gitrouter inspect .          Show how the current repository is routed
  gitrouter watch              Report repository changes until interrupted`,
		SilenceUsage: true,
		PersistentPreRun: func(command *cobra.Command, _ []string) {
			if verbose, _ := command.Flags().GetBool("verbose"); verbose {
				logger.SetLevel(logger.DebugLevel)
			}
		},
	}

	// Global persistent flags
	cmd.PersistentFlags().StringP("config", "c", "",
		"Path to config file (default: auto-detect)")
	cmd.PersistentFlags().BoolP("verbose", "v", false,
		"Enable verbose output")

	return cmd
}

func addSubcommands(rootCmd *cobra.Command, appContext *internal.AppInternal) {
	for _, controller := range appContext.GetControllers() {
		bind := controller.GetBind()
		ctrl := controller
		//nolint:exhaustruct // Minimal Command initialization with required fields only
		subCmd := &cobra.Command{
			Use:   bind.Use,
			Short: bind.Short,
			Long:  bind.Long,
			Run: func(command *cobra.Command, arguments []string) {
				ctrl.Execute(command, arguments)
			},
		}

		if withFlags, ok := ctrl.(flagged); ok {
			withFlags.AddFlags(subCmd)
		}

		rootCmd.AddCommand(subCmd)
	}
}

// applyConfigFlag exports --config before the container loads the settings.
func applyConfigFlag(args []string) {
	flags := pflag.NewFlagSet("config", pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.Usage = func() {}
	configPath := flags.StringP("config", "c", "", "")
	_ = flags.Parse(args)

	if *configPath != "" {
		_ = os.Setenv(entities.ConfigEnvVar, *configPath)
	}
}

func main() {
	//nolint:exhaustruct // Minimal TextFormatter initialization with required fields only
	logger.SetFormatter(&logger.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})
	if os.Getenv("DEBUG") == "true" {
		logger.SetLevel(logger.DebugLevel)
	}

	applyConfigFlag(os.Args[1:])
	cobraRoot := buildRootCommand()

	appContext := injectAppContext()
	addSubcommands(cobraRoot, appContext)

	if err := cobraRoot.Execute(); err != nil {
		logger.Fatalf("Error executing 'gitrouter': %s", err)
	}
}
