package cmd

import (
	"github.com/spf13/cobra"

	"github.com/daedaleanai/vbt/builder"
	"github.com/daedaleanai/vbt/config"
	"github.com/daedaleanai/vbt/log"
	"github.com/daedaleanai/vbt/sdk"
	"github.com/daedaleanai/vbt/sign"
	"github.com/daedaleanai/vbt/util"
)

var appWorkspace string
var appPlatformDir string
var appCLICoreDir string
var appSources []string
var appName string
var appManifest bool

var appCmd = &cobra.Command{
	Use:   "app",
	Args:  cobra.NoArgs,
	Short: "Builds an application component against a platform",
	Long: `Creates the application component from scratch, imports its sources, injects
the version information of the source tree and builds it. The build only succeeds
if it produced an executable.`,
	Run: runApp,
}

func init() {
	appCmd.Flags().StringVar(&appWorkspace, "workspace", "", "Vitis workspace directory, created if missing")
	appCmd.Flags().StringVar(&appPlatformDir, "platform-dir", "", "Directory of the platform; its base name is the platform name")
	appCmd.Flags().StringVar(&appCLICoreDir, "cli-core-dir", "", "CLI core tree whose headers and platform adapters are imported")
	appCmd.Flags().StringArrayVar(&appSources, "src", nil, "Application source directory (repeatable)")
	appCmd.Flags().StringVar(&appName, "name", "", "Name of the application component")
	appCmd.Flags().BoolVar(&appManifest, "manifest", false, "Write the build info next to the executable")
	appCmd.Flags().String("sign-key", "", "OpenPGP private key to sign the executable with")
	appCmd.Flags().String("vcs", "", "Source control backend: gogit or cli (default from configuration)")
	requireFlags(appCmd, "workspace", "platform-dir", "src", "name")
	rootCmd.AddCommand(appCmd)
}

func runApp(cmd *cobra.Command, args []string) {
	bindFlags(cmd, map[string]string{"sign-key": config.SignKey, "vcs": config.VCS})
	cfg := config.Get(config.Viper)

	sources, err := util.ExpandPaths(appSources)
	if err != nil {
		log.Fatal("Invalid --src: %s.\n", err)
	}
	appCfg := builder.AppConfig{
		Workspace:   absPath("workspace", appWorkspace),
		PlatformDir: absPath("platform-dir", appPlatformDir),
		CLICoreDir:  absPath("cli-core-dir", appCLICoreDir),
		Sources:     sources,
		Name:        appName,
		Generator:   newGenerator(cfg, sources[0]),
		Manifest:    appManifest,
	}

	if cfg.SignKey != "" {
		signer, err := sign.NewSigner(absPath("sign-key", cfg.SignKey), []byte(cfg.SignPassphrase))
		if err != nil {
			log.Fatal("%s.\n", err)
		}
		log.Debug("Signing with key %s.\n", signer.KeyID())
		appCfg.Signer = signer
	}

	ctx, stop := commandContext()
	defer stop()

	result, err := builder.BuildApplication(ctx, sdk.NewVitis(cfg.Vitis), appCfg)
	if err != nil {
		fail("BUILD FAILED", err)
	}

	lines := []string{
		"ELF File: " + result.Executable,
		"Version:  " + result.Record.Version,
	}
	if result.Manifest != "" {
		lines = append(lines, "Manifest: "+result.Manifest)
	}
	if result.Signature != "" {
		lines = append(lines, "Signature: "+result.Signature)
	}
	log.Log("\n")
	log.Banner("BUILD SUCCESSFUL", lines...)
}
