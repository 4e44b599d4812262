package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// console owns where log lines go. While a terminal screen is up and no log
// file was given, output is discarded; fatal errors always reach stderr once
// the screen is restored.
type console struct {
	logger *log.Logger
	out    io.Writer
	stderr io.Writer
	exit   func(int)

	mu   sync.Mutex
	fini func()
}

func newConsole(out, stderr io.Writer) *console {
	c := &console{out: out, stderr: stderr, exit: os.Exit}
	c.logger = log.New(out, "[coliseum] ", log.LstdFlags|log.Lmicroseconds)
	return c
}

// attach hands the terminal to a screen. fini restores it.
func (c *console) attach(fini func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fini = fini
	if c.out == c.stderr {
		c.logger.SetOutput(io.Discard)
	}
}

// detach restores the terminal and routes logging back to its destination.
// It is safe to call more than once.
func (c *console) detach() {
	c.mu.Lock()
	fini := c.fini
	c.fini = nil
	c.mu.Unlock()
	if fini != nil {
		fini()
	}
	c.logger.SetOutput(c.out)
}

func (c *console) fatalf(format string, args ...any) {
	c.detach()
	msg := fmt.Sprintf(format, args...)
	if c.out != c.stderr {
		c.logger.Print(msg)
	}
	fmt.Fprintln(c.stderr, "coliseum: "+msg)
	c.exit(1)
}
