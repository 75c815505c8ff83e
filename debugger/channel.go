// Package debugger drives the hardware bring-up of an FPGA board through the xsdb
// debugger: program the bitstream, load the hardware description, download the
// executable and start the processor.
package debugger

import "context"

// Channel is a text command channel to a live debugger process.
//
// Commands are not acknowledged. Whatever the debugger prints is collected in the
// background and handed out by Drain.
type Channel interface {
	Start(ctx context.Context) error
	Send(command string) error

	// Drain returns the output collected since the previous call.
	Drain() string
	Close() error
}
