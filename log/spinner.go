package log

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
)

// Spinner animates long-running waits. It stays silent when stderr is not a terminal.
var Spinner = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))

// Spin starts the spinner with `suffix` and returns a function that stops it again.
func Spin(suffix string) func() {
	Spinner.Suffix = " " + suffix
	Spinner.Start()
	return Spinner.Stop
}
