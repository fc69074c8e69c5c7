// Package arduino drives the pointer through a microcontroller acting as a
// USB mouse. Every command is one text line answered by "received".
package arduino

import (
	"fmt"
	"io"
	"sync"
	"time"

	"webomatic/internal/config"
	"webomatic/internal/logger"
)

// Ack is the line the board answers every command with
const Ack = "received"

// Driver sends move and click commands over a serial link
type Driver struct {
	mu     sync.Mutex
	port   io.ReadWriter
	logger *logger.LoggerManager
}

// NewDriver wraps an open port
func NewDriver(port io.ReadWriter, log *logger.LoggerManager) *Driver {
	return &Driver{port: port, logger: log}
}

// Open opens the configured serial port and returns a driver on it
var Open = func(cfg config.ArduinoConfig, log *logger.LoggerManager) (*Driver, error) {
	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	port, err := InitializePort(cfg.Port, cfg.BaudRate, timeout)
	if err != nil {
		return nil, err
	}
	log.Info("arduino connected on %s at %d baud", cfg.Port, cfg.BaudRate)
	return NewDriver(port, log), nil
}

// MoveTo moves the pointer without clicking
func (d *Driver) MoveTo(x, y int) error {
	return d.command("move", x, y)
}

// Click moves to (x, y) and presses the left button
func (d *Driver) Click(x, y int) error {
	return d.command("click", x, y)
}

// Close closes the port when it supports closing
func (d *Driver) Close() error {
	if c, ok := d.port.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (d *Driver) command(name string, x, y int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := ProcessAndWait(
		func() error { return SendCommand(d.port, name, x, y) },
		func(expected string) (string, error) { return WaitForArduinoResponse(d.port, expected) },
		nil,
	)
	if err != nil {
		d.logger.LogError(err, fmt.Sprintf("arduino %s:%d,%d", name, x, y))
		return err
	}
	return nil
}
