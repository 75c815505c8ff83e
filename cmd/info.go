package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/daedaleanai/vbt/buildinfo"
	"github.com/daedaleanai/vbt/config"
	"github.com/daedaleanai/vbt/log"
	"github.com/daedaleanai/vbt/runner"
)

const (
	vcsGoGit = "gogit"
	vcsCLI   = "cli"
)

var infoDir string
var infoYAML bool

var infoCmd = &cobra.Command{
	Use:   "info",
	Args:  cobra.NoArgs,
	Short: "Prints the build info of a source tree",
	Long: `Prints the version information that 'vbt app' injects into application builds
for the source tree in the given directory.`,
	Run: runInfo,
}

func init() {
	infoCmd.Flags().StringVar(&infoDir, "dir", ".", "Directory inside the source tree")
	infoCmd.Flags().String("vcs", "", "Source control backend: gogit or cli (default from configuration)")
	infoCmd.Flags().BoolVar(&infoYAML, "yaml", false, "Print the complete record as YAML")
	rootCmd.AddCommand(infoCmd)
}

// newGenerator returns a build-info generator for the source tree containing `dir`.
func newGenerator(cfg config.Config, dir string) *buildinfo.Generator {
	var vcs buildinfo.VCS
	switch cfg.VCS {
	case vcsCLI:
		vcs = buildinfo.GitCLI{Program: cfg.Git, Dir: dir, Runner: runner.Exec{}}
	case vcsGoGit:
		repo, err := buildinfo.OpenGitRepo(dir)
		if err != nil {
			log.Debug("%s.\n", err)
			vcs = buildinfo.Unavailable{Err: err}
		} else {
			vcs = repo
		}
	default:
		log.Fatal("Unknown source control backend '%s'. Use '%s' or '%s'.\n", cfg.VCS, vcsGoGit, vcsCLI)
	}
	return &buildinfo.Generator{VCS: vcs, Timeout: cfg.MetadataTimeout}
}

func runInfo(cmd *cobra.Command, args []string) {
	bindFlags(cmd, map[string]string{"vcs": config.VCS})
	cfg := config.Get(config.Viper)

	ctx, stop := commandContext()
	defer stop()

	record := newGenerator(cfg, absPath("dir", infoDir)).Generate(ctx)
	if !infoYAML {
		buildinfo.Print(record)
		for _, definition := range record.Definitions() {
			log.Debug("%s\n", definition)
		}
		return
	}

	data, err := yaml.Marshal(record)
	if err != nil {
		log.Fatal("Failed to encode build info: %s.\n", err)
	}
	os.Stdout.Write(data)
}
