// Package actuator sends power levels to a pump over a byte-per-command link.
package actuator

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
)

// Off is the power level that stops the actuator.
const Off byte = 0

// ErrClosed is returned by Push after the channel has been closed.
var ErrClosed = errors.New("actuator channel closed")

// ChannelError reports a failed transmission.
type ChannelError struct {
	Power byte
	Err   error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("push %d: %v", e.Power, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }

// Channel writes one power byte per command to an underlying link.
// Transmission faults are logged and returned, never panicked on.
type Channel struct {
	link   io.WriteCloser
	logger *log.Logger

	mu       sync.Mutex
	closed   bool
	last     int // -1 until the first successful push
	pushes   int
	once     sync.Once
	closeErr error
}

// NewChannel wraps an open link. A nil logger discards log output.
func NewChannel(link io.WriteCloser, logger *log.Logger) *Channel {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Channel{
		link:   link,
		logger: logger,
		last:   -1,
	}
}

// Open opens the configured link and wraps it in a Channel.
func Open(cfg LinkConfig, logger *log.Logger) (*Channel, error) {
	link, err := OpenLink(cfg)
	if err != nil {
		return nil, err
	}
	return NewChannel(link, logger), nil
}

// Push sends a single power level.
func (c *Channel) Push(power byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pushes++
	if c.closed {
		err := &ChannelError{Power: power, Err: ErrClosed}
		c.logger.Printf("Warning: actuator: %v", err)
		return err
	}

	n, err := c.link.Write([]byte{power})
	if err == nil && n != 1 {
		err = io.ErrShortWrite
	}
	if err != nil {
		cerr := &ChannelError{Power: power, Err: err}
		c.logger.Printf("Warning: actuator: %v", cerr)
		return cerr
	}

	c.last = int(power)
	return nil
}

// Last returns the most recent power level written successfully.
func (c *Channel) Last() (byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last < 0 {
		return 0, false
	}
	return byte(c.last), true
}

// Pushes returns the number of Push calls, including failed ones.
func (c *Channel) Pushes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pushes
}

// Close closes the link. Further calls return the first result.
func (c *Channel) Close() error {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		if err := c.link.Close(); err != nil {
			c.closeErr = fmt.Errorf("close link: %w", err)
		}
	})
	return c.closeErr
}
