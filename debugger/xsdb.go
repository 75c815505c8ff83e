package debugger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// Time granted to xsdb to exit on its own before it is killed.
const exitGracePeriod = 5 * time.Second

// outputBuffer collects the output of the debugger. It is written to by the copying
// goroutines of os/exec and read by Drain.
type outputBuffer struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	echo io.Writer
}

func (b *outputBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Write(p)
	if b.echo != nil {
		b.echo.Write(p)
	}
	return len(p), nil
}

func (b *outputBuffer) drain() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	output := b.buf.String()
	b.buf.Reset()
	return output
}

// XSDB is a Channel to an interactive xsdb process reading commands from its stdin.
type XSDB struct {
	Program string
	Args    []string

	// Echo, if set, receives a copy of everything the debugger prints.
	Echo io.Writer

	cmd     *exec.Cmd
	stdin   io.WriteCloser
	output  outputBuffer
	exited  chan struct{}
	waitErr error
	closed  bool
}

// NewXSDB returns a channel to the xsdb executable `program`.
func NewXSDB(program string) *XSDB {
	return &XSDB{Program: program}
}

func (x *XSDB) Start(ctx context.Context) error {
	if x.cmd != nil {
		return errors.New("debug session already started")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	// Not bound to ctx: an interrupt must still let the session disconnect and exit.
	// Close terminates the process.
	cmd := exec.Command(x.Program, x.Args...)
	x.output.echo = x.Echo
	cmd.Stdout = &x.output
	cmd.Stderr = &x.output
	cmd.WaitDelay = exitGracePeriod
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdin of %s: %w", x.Program, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", x.Program, err)
	}

	x.cmd = cmd
	x.stdin = stdin
	x.exited = make(chan struct{})
	go func() {
		x.waitErr = cmd.Wait()
		close(x.exited)
	}()
	return nil
}

func (x *XSDB) exitError() error {
	select {
	case <-x.exited:
		if x.waitErr != nil {
			return fmt.Errorf("%s exited: %w", x.Program, x.waitErr)
		}
		return fmt.Errorf("%s exited", x.Program)
	default:
		return nil
	}
}

func (x *XSDB) Send(command string) error {
	if x.cmd == nil || x.closed {
		return errors.New("no debug session")
	}
	if err := x.exitError(); err != nil {
		return err
	}
	if _, err := io.WriteString(x.stdin, command+"\n"); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}
	return nil
}

func (x *XSDB) Drain() string {
	return x.output.drain()
}

// Close closes the command stream and waits for the process to exit, killing it if
// it does not exit within a grace period.
func (x *XSDB) Close() error {
	if x.cmd == nil || x.closed {
		return nil
	}
	x.closed = true
	x.stdin.Close()

	select {
	case <-x.exited:
		return nil
	case <-time.After(exitGracePeriod):
	}

	if err := x.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to terminate %s: %w", x.Program, err)
	}
	<-x.exited
	return nil
}
