package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/daedaleanai/vbt/config"
	"github.com/daedaleanai/vbt/debugger"
	"github.com/daedaleanai/vbt/log"
)

var runXSA string
var runELF string
var runBitstream string
var runNoStart bool
var runStrict bool

// runConfigFlags maps the flags of `vbt run` overriding the configuration to their keys.
var runConfigFlags = map[string]string{
	"url":            config.HwServerURL,
	"cable":          config.CableName,
	"serial":         config.CableSerial,
	"processor":      config.Processor,
	"target-timeout": config.TargetTimeout,
	"run-for":        config.RunFor,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Args:  cobra.NoArgs,
	Short: "Programs the FPGA and runs an executable on it",
	Long: `Connects to the hardware server through xsdb, programs the FPGA, loads the
hardware description, downloads the executable to the processor and starts it.

xsdb does not acknowledge commands. Errors it prints are reported as warnings,
or fail the run with --strict.`,
	Run: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runXSA, "xsa", "", "Hardware description (.xsa) file")
	runCmd.Flags().StringVar(&runELF, "elf", "", "Executable to download")
	runCmd.Flags().StringVar(&runBitstream, "bitstream", "", "Bitstream to program (default is the one embedded in the XSA)")
	addRunConfigFlags(runCmd.Flags())
	runCmd.Flags().BoolVar(&runNoStart, "no-start", false, "Stop after downloading the executable")
	runCmd.Flags().BoolVar(&runStrict, "strict", false, "Fail when xsdb reports an error")
	requireFlags(runCmd, "xsa", "elf")
	rootCmd.AddCommand(runCmd)
}

func addRunConfigFlags(flags *pflag.FlagSet) {
	flags.String("url", "", "URL of the hardware server (default from configuration)")
	flags.String("cable", "", "Name of the JTAG cable (default from configuration)")
	flags.String("serial", "", "Serial number of the JTAG cable")
	flags.String("processor", "", "Pattern matching the processor target (default from configuration)")
	flags.Duration("target-timeout", 0, "Time to wait for the processor target, 0 waits forever (default from configuration)")
	flags.Duration("run-for", 0, "Time the processor is left running before disconnecting (default from configuration)")
}

func runRun(cmd *cobra.Command, args []string) {
	bindFlags(cmd, runConfigFlags)
	cfg := config.Get(config.Viper)

	plan := debugger.Plan{
		XSA:       absPath("xsa", runXSA),
		ELF:       absPath("elf", runELF),
		Bitstream: absPath("bitstream", runBitstream),
		URL:       cfg.HwServerURL,
		Cable:     cfg.CableName,
		Serial:    cfg.CableSerial,
		Processor: cfg.Processor,
		NoStart:   runNoStart,
	}

	log.Log("Loading and running application:\n")
	log.IndentationLevel++
	log.Log("XSA:       %s\n", plan.XSA)
	log.Log("ELF:       %s\n", plan.ELF)
	if plan.Bitstream != "" {
		log.Log("Bitstream: %s\n", plan.Bitstream)
	}
	log.Log("Server:    %s\n", plan.URL)
	log.IndentationLevel--

	channel := debugger.NewXSDB(cfg.Xsdb)
	if log.Verbose {
		channel.Echo = os.Stderr
	}
	opts := debugger.Options{
		TargetInterval: cfg.TargetInterval,
		TargetTimeout:  cfg.TargetTimeout,
		RunFor:         cfg.RunFor,
		Strict:         runStrict,
	}

	ctx, stop := commandContext()
	defer stop()

	report, err := debugger.NewSequencer(channel, opts).Run(ctx, plan)
	if err != nil {
		log.Log("\n")
		log.Banner("RUN FAILED",
			fmt.Sprintf("Reached:  %s", report.Reached),
			"Error:    "+err.Error(),
		)
		log.Fatal("%s.\n", err)
	}

	lines := []string{fmt.Sprintf("State:    %s", report.State)}
	if len(report.Warnings) > 0 {
		lines = append(lines, fmt.Sprintf("Warnings: %d (run with --strict to fail on them)", len(report.Warnings)))
	}
	log.Log("\n")
	log.Banner("RUN COMPLETE", lines...)
	if report.State == debugger.ExecutableDownloaded {
		log.Log("The processor was left halted after the download.\n")
	}
}
