package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/daedaleanai/vbt/config"
	"github.com/daedaleanai/vbt/log"
	"github.com/daedaleanai/vbt/util"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "vbt",
	Short: "The Vitis bring-up tool (vbt)",
	Long: `The Vitis bring-up tool (vbt) drives the Vitis embedded toolchain for RISC-V
designs on FPGA boards: it builds platforms from hardware descriptions, builds
applications against those platforms and brings them up on the board through xsdb.`,
	PersistentPreRun: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.PersistentFlags().BoolVarP(&log.Verbose, "verbose", "v", false, "Print debug output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file (default is config.yaml in $VBT_CONFIG_DIR, $XDG_CONFIG_HOME/vbt or ~/.config/vbt)")
	if rootCmd.Execute() != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, args []string) {
	if err := config.Load(config.Viper, configFile); err != nil {
		log.Fatal("%s.\n", err)
	}
}

// bindFlags makes the flags of `cmd` override the configuration. `flags` maps flag
// names to configuration keys.
func bindFlags(cmd *cobra.Command, flags map[string]string) {
	for name, key := range flags {
		if err := config.Viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			log.Fatal("Failed to bind flag '--%s': %s.\n", name, err)
		}
	}
}

// commandContext returns a context that is cancelled when the user interrupts vbt.
// A second interrupt terminates immediately.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-signals:
		case <-ctx.Done():
			return
		}
		log.Warning("Interrupted. Cleaning up...\n")
		cancel()
		<-signals
		log.Error("Interrupted again. Exiting immediately.\n")
		os.Exit(1)
	}()

	return ctx, func() {
		signal.Stop(signals)
		cancel()
	}
}

// absPath expands `path` given for `--flag`, failing on error.
func absPath(flag, path string) string {
	if path == "" {
		return ""
	}
	expanded, err := util.ExpandPath(path)
	if err != nil {
		log.Fatal("Invalid path for --%s '%s': %s.\n", flag, path, err)
	}
	return expanded
}

func requireFlags(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
}

// fail prints the failure banner and exits.
func fail(title string, err error) {
	log.Log("\n")
	log.Banner(title, "Error: "+err.Error())
	log.Fatal("%s.\n", err)
}
