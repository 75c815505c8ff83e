package cmd

import (
	"github.com/spf13/cobra"

	"github.com/daedaleanai/vbt/builder"
	"github.com/daedaleanai/vbt/config"
	"github.com/daedaleanai/vbt/log"
	"github.com/daedaleanai/vbt/sdk"
)

var platformXSA string
var platformWorkspace string
var platformName string

var platformCmd = &cobra.Command{
	Use:   "platform",
	Args:  cobra.NoArgs,
	Short: "Builds a platform component from a hardware description",
	Long: `Creates a platform component for the processor and operating system given in
the configuration from a hardware description (.xsa) file and builds it.`,
	Run: runPlatform,
}

func init() {
	platformCmd.Flags().StringVar(&platformXSA, "xsa", "", "Hardware description (.xsa) file")
	platformCmd.Flags().StringVar(&platformWorkspace, "workspace", "", "Vitis workspace directory, created if missing")
	platformCmd.Flags().StringVar(&platformName, "name", "", "Name of the platform component")
	platformCmd.Flags().String("cpu", "", "Processor instance of the platform (default from configuration)")
	platformCmd.Flags().String("os", "", "Operating system of the platform (default from configuration)")
	requireFlags(platformCmd, "xsa", "workspace", "name")
	rootCmd.AddCommand(platformCmd)
}

func runPlatform(cmd *cobra.Command, args []string) {
	bindFlags(cmd, map[string]string{"cpu": config.CPU, "os": config.OS})
	cfg := config.Get(config.Viper)

	platformCfg := builder.PlatformConfig{
		XSA:       absPath("xsa", platformXSA),
		Workspace: absPath("workspace", platformWorkspace),
		Name:      platformName,
		CPU:       cfg.CPU,
		OS:        cfg.OS,
	}

	ctx, stop := commandContext()
	defer stop()

	result, err := builder.BuildPlatform(ctx, sdk.NewVitis(cfg.Vitis), platformCfg)
	if err != nil {
		fail("PLATFORM BUILD FAILED", err)
	}

	log.Log("\n")
	log.Banner("PLATFORM BUILD SUCCESSFUL",
		"Platform: "+result.Name,
		"Location: "+result.Path,
	)
}
