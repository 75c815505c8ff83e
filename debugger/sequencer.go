package debugger

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/daedaleanai/vbt/log"
	"github.com/daedaleanai/vbt/util"
)

// State is the progress of a bring-up sequence.
type State int

const (
	Idle State = iota
	SessionStarted
	Connected
	BreakpointsCleared
	DeviceSelected
	BitstreamProgrammed
	ProcessorTargetSelected
	HardwareDescriptionLoaded
	SystemReset
	ProcessorReset
	ExecutableDownloaded
	ExecutionResumed
	Failed
)

var stateNames = []string{
	"idle",
	"session-started",
	"connected",
	"breakpoints-cleared",
	"device-selected",
	"bitstream-programmed",
	"processor-target-selected",
	"hardware-description-loaded",
	"system-reset",
	"processor-reset",
	"executable-downloaded",
	"execution-resumed",
	"failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Time the debugger is given after each command. It does not acknowledge commands, so
// these were found empirically.
const (
	connectDelay      = 1 * time.Second
	breakpointDelay   = 1 * time.Second
	selectDeviceDelay = 2 * time.Second
	programDelay      = 5 * time.Second
	selectTargetDelay = 1 * time.Second
	loadHwDelay       = 2 * time.Second
	systemResetDelay  = 3 * time.Second
	resetSettleDelay  = 3 * time.Second
	processResetDelay = 2 * time.Second
	downloadDelay     = 3 * time.Second
	resumeDelay       = 1 * time.Second
	statusDelay       = 1 * time.Second
	probeDelay        = 1 * time.Second
)

// Defaults of Options.
const (
	DefaultTargetInterval = 1 * time.Second
	DefaultTargetTimeout  = 60 * time.Second
	DefaultRunFor         = 5 * time.Second
)

// Plan describes what to bring up and where.
type Plan struct {
	XSA string
	ELF string

	// Bitstream programs the FPGA. Empty means the bitstream embedded in XSA.
	Bitstream string

	// URL of the hardware server, e.g. tcp:127.0.0.1:3121.
	URL string

	// Cable and Serial select the JTAG cable. Serial may be empty.
	Cable  string
	Serial string

	// Processor is a glob matched against target names, e.g. *Hart*#0.
	Processor string

	// NoStart stops the sequence once the executable is downloaded.
	NoStart bool
}

// Options tune a Sequencer.
type Options struct {
	// TargetInterval is the time between two attempts to find the processor target.
	TargetInterval time.Duration

	// TargetTimeout bounds the search for the processor target. Zero waits forever.
	TargetTimeout time.Duration

	// RunFor is the time the processor is left running before the session ends.
	RunFor time.Duration

	// Strict fails the sequence when the debugger prints an error after a command.
	Strict bool

	// Sleep replaces time.Sleep for the fixed delays.
	Sleep func(time.Duration)
}

// DefaultOptions returns the options used by `vbt run`.
func DefaultOptions() Options {
	return Options{
		TargetInterval: DefaultTargetInterval,
		TargetTimeout:  DefaultTargetTimeout,
		RunFor:         DefaultRunFor,
	}
}

// Report summarizes a bring-up sequence.
type Report struct {
	// State is the final state; Reached is the last state reached before failing.
	State   State
	Reached State

	// Attempts is the number of probes needed to find the processor target.
	Attempts int

	// Warnings are the error lines the debugger printed in non-strict mode.
	Warnings []string

	// Status is the output of the status queries after resuming execution.
	Status string
}

// CommandError is returned in strict mode when the debugger reports an error.
type CommandError struct {
	Command string
	Lines   []string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("debugger reported an error for '%s': %s", e.Command, strings.Join(e.Lines, "; "))
}

// Lines of debugger output that indicate a failed command.
var errorLineRegexp = regexp.MustCompile(`(?i)^(error\b|invalid command name|wrong # args|no targets? found|can't |cannot |failed to )`)

// ErrorLines returns the lines of `output` that report an error.
func ErrorLines(output string) []string {
	lines := []string{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		for strings.HasPrefix(line, prompt) {
			line = strings.TrimSpace(strings.TrimPrefix(line, prompt))
		}
		if errorLineRegexp.MatchString(line) {
			lines = append(lines, line)
		}
	}
	return lines
}

// Sequencer runs the bring-up sequence over a Channel. A Sequencer runs once.
type Sequencer struct {
	channel   Channel
	opts      Options
	report    Report
	connected bool
}

// NewSequencer returns a Sequencer sending its commands over `channel`.
func NewSequencer(channel Channel, opts Options) *Sequencer {
	if opts.TargetInterval <= 0 {
		opts.TargetInterval = DefaultTargetInterval
	}
	return &Sequencer{channel: channel, opts: opts}
}

func (s *Sequencer) advance(state State) {
	s.report.State = state
	s.report.Reached = state
	log.Debug("Debug session: %s.\n", state)
}

// wait sleeps for `d` unless `ctx` is done first.
func (s *Sequencer) wait(ctx context.Context, d time.Duration) error {
	if s.opts.Sleep != nil {
		s.opts.Sleep(d)
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// send writes `command`, waits `delay` and checks the output for errors.
func (s *Sequencer) send(ctx context.Context, command string, delay time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	log.Debug("xsdb%% %s\n", command)
	if err := s.channel.Send(command); err != nil {
		return "", fmt.Errorf("failed to send '%s': %w", command, err)
	}
	if err := s.wait(ctx, delay); err != nil {
		return "", err
	}

	output := s.channel.Drain()
	errorLines := ErrorLines(output)
	if len(errorLines) == 0 {
		return output, nil
	}
	if s.opts.Strict {
		return output, &CommandError{Command: command, Lines: errorLines}
	}
	for _, line := range errorLines {
		log.Warning("'%s': %s\n", command, line)
	}
	s.report.Warnings = append(s.report.Warnings, errorLines...)
	return output, nil
}

// Command strings of the bring-up sequence.

var tclEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	`$`, `\$`,
	`[`, `\[`,
	`]`, `\]`,
	`{`, `\{`,
	`}`, `\}`,
)

// tclQuote returns `s` as a double-quoted Tcl word that xsdb takes literally.
func tclQuote(s string) string {
	return `"` + tclEscaper.Replace(s) + `"`
}

func connectCommand(url string) string {
	return fmt.Sprintf("connect -url %s", url)
}

func selectCableCommand(cable, serial string) string {
	pattern := cable + "*"
	if serial != "" {
		pattern = cable + " " + serial
	}
	return fmt.Sprintf(`targets -set -filter {jtag_cable_name =~ %s && level==0}`, tclQuote(pattern))
}

func programCommand(bitstream string) string {
	return "fpga -file " + tclQuote(bitstream)
}

func selectTargetCommand(processor string) string {
	return fmt.Sprintf(`targets -set -nocase -filter {name =~ %s}`, tclQuote(processor))
}

func loadHwCommand(xsa string) string {
	return fmt.Sprintf("loadhw -hw %s -regs", tclQuote(xsa))
}

func downloadCommand(elf string) string {
	return "dow " + tclQuote(elf)
}

func (plan Plan) validate() error {
	checks := []util.PathCheck{
		util.File("XSA file", plan.XSA),
		util.File("ELF file", plan.ELF),
	}
	if plan.Bitstream != "" {
		checks = append(checks, util.File("Bitstream file", plan.Bitstream))
	}
	if err := util.RequirePaths(checks...); err != nil {
		return err
	}
	if plan.URL == "" || plan.Cable == "" || plan.Processor == "" {
		return fmt.Errorf("hardware server URL, cable name and processor must be set")
	}
	return nil
}

// Run brings up the board described by `plan`. The debug session is torn down before
// Run returns, whether the sequence succeeded or not.
func (s *Sequencer) Run(ctx context.Context, plan Plan) (report Report, err error) {
	defer func() {
		if err != nil {
			s.report.State = Failed
		}
		report = s.report
	}()

	if err := plan.validate(); err != nil {
		return report, err
	}
	if err := CheckExecutable(plan.ELF); err != nil {
		log.Warning("%s\n", err)
	}
	if plan.Bitstream == "" {
		dir, err := os.MkdirTemp("", "vbt-bitstream-")
		if err != nil {
			return report, err
		}
		defer os.RemoveAll(dir)
		if plan.Bitstream, err = ExtractBitstream(plan.XSA, dir); err != nil {
			return report, err
		}
		log.Log("Using bitstream embedded in %s.\n", plan.XSA)
	}

	log.Log("Starting debug session...\n")
	if err := s.channel.Start(ctx); err != nil {
		return report, fmt.Errorf("failed to start debug session: %w", err)
	}
	s.advance(SessionStarted)
	defer s.teardown()

	return report, s.run(ctx, plan)
}

func (s *Sequencer) run(ctx context.Context, plan Plan) error {
	log.Log("Connecting to hardware server at %s...\n", plan.URL)
	if _, err := s.send(ctx, connectCommand(plan.URL), connectDelay); err != nil {
		return err
	}
	s.connected = true
	s.advance(Connected)

	if _, err := s.send(ctx, "bpremove -all", breakpointDelay); err != nil {
		return err
	}
	s.advance(BreakpointsCleared)

	log.Log("Selecting JTAG cable '%s'...\n", plan.Cable)
	if _, err := s.send(ctx, selectCableCommand(plan.Cable, plan.Serial), selectDeviceDelay); err != nil {
		return err
	}
	s.advance(DeviceSelected)

	log.Log("Programming FPGA with %s...\n", plan.Bitstream)
	if err := util.RequirePaths(util.File("Bitstream file", plan.Bitstream)); err != nil {
		return err
	}
	if _, err := s.send(ctx, programCommand(plan.Bitstream), programDelay); err != nil {
		return err
	}
	log.Success("FPGA programmed.\n")
	s.advance(BitstreamProgrammed)

	log.Log("Waiting for processor target '%s'...\n", plan.Processor)
	if err := s.selectProcessor(ctx, plan.Processor); err != nil {
		return err
	}
	log.Success("Processor target found after %d attempt(s).\n", s.report.Attempts)
	s.advance(ProcessorTargetSelected)

	log.Log("Loading hardware description %s...\n", plan.XSA)
	if _, err := s.send(ctx, loadHwCommand(plan.XSA), loadHwDelay); err != nil {
		return err
	}
	s.advance(HardwareDescriptionLoaded)

	log.Log("Resetting system...\n")
	if _, err := s.send(ctx, "rst -system", systemResetDelay); err != nil {
		return err
	}
	if err := s.wait(ctx, resetSettleDelay); err != nil {
		return err
	}
	// The system reset drops the target selection.
	if _, err := s.send(ctx, selectTargetCommand(plan.Processor), selectTargetDelay); err != nil {
		return err
	}
	s.advance(SystemReset)

	if _, err := s.send(ctx, "rst -processor", processResetDelay); err != nil {
		return err
	}
	s.advance(ProcessorReset)

	log.Log("Downloading %s...\n", plan.ELF)
	if _, err := s.send(ctx, downloadCommand(plan.ELF), downloadDelay); err != nil {
		return err
	}
	log.Success("Executable downloaded.\n")
	s.advance(ExecutableDownloaded)

	if plan.NoStart {
		log.Log("Not starting execution.\n")
		return nil
	}

	log.Log("Starting execution...\n")
	if _, err := s.send(ctx, "con", resumeDelay); err != nil {
		return err
	}
	s.advance(ExecutionResumed)

	return s.readStatus(ctx)
}

// selectProcessor waits for the processor target to appear and selects it.
func (s *Sequencer) selectProcessor(ctx context.Context, processor string) error {
	probe := func(ctx context.Context) (bool, error) {
		if err := s.channel.Send("targets"); err != nil {
			return false, err
		}
		if err := s.wait(ctx, probeDelay); err != nil {
			return false, err
		}
		target, found := FindTarget(ParseTargets(s.channel.Drain()), processor)
		if found {
			log.Debug("Found target %d: %s.\n", target.ID, target.Name)
		}
		return found, nil
	}

	stop := log.Spin("Waiting for " + processor)
	attempts, err := WaitForTarget(ctx, probe, s.opts.TargetInterval, s.opts.TargetTimeout)
	stop()
	s.report.Attempts = attempts
	if err != nil {
		return fmt.Errorf("processor target '%s' not found: %w", processor, err)
	}

	_, err = s.send(ctx, selectTargetCommand(processor), selectTargetDelay)
	return err
}

func (s *Sequencer) readStatus(ctx context.Context) error {
	status := []string{}
	for _, command := range []string{"state", "rrd pc"} {
		output, err := s.send(ctx, command, statusDelay)
		if err != nil {
			return err
		}
		if output = strings.TrimSpace(output); output != "" {
			status = append(status, output)
		}
	}
	s.report.Status = strings.Join(status, "\n")
	if s.report.Status != "" {
		log.Log("Processor status:\n")
		log.IndentationLevel++
		for _, line := range strings.Split(s.report.Status, "\n") {
			log.Log("%s\n", line)
		}
		log.IndentationLevel--
	}

	if s.opts.RunFor > 0 {
		log.Log("Running for %s...\n", s.opts.RunFor)
		return s.wait(ctx, s.opts.RunFor)
	}
	return nil
}

// teardown ends the debug session. Errors are only reported since the session is
// going away regardless.
func (s *Sequencer) teardown() {
	log.Log("Cleaning up debug session...\n")
	if s.connected {
		if err := s.channel.Send("disconnect"); err != nil {
			log.Warning("Failed to disconnect: %s.\n", err)
		}
		s.connected = false
	}
	if err := s.channel.Send("exit"); err != nil {
		log.Debug("Failed to send exit: %s.\n", err)
	}
	if err := s.channel.Close(); err != nil {
		log.Warning("Failed to close debug session: %s.\n", err)
	}
}
