package arduino

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tarm/serial"
)

// InitializePort opens the serial connection to the board
func InitializePort(name string, baud int, readTimeout time.Duration) (*serial.Port, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: readTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	return port, nil
}

// FormatCommand renders a protocol line such as "click:10,20\n"
func FormatCommand(name string, args ...int) string {
	if len(args) == 0 {
		return name + "\n"
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = strconv.Itoa(a)
	}
	return name + ":" + strings.Join(parts, ",") + "\n"
}

// SendCommand writes one protocol line to the board
func SendCommand(w io.Writer, name string, args ...int) error {
	if _, err := io.WriteString(w, FormatCommand(name, args...)); err != nil {
		return fmt.Errorf("error writing to Arduino: %v", err)
	}
	return nil
}

// WaitForArduinoResponse reads one line and checks it equals expectedResponse
func WaitForArduinoResponse(r io.Reader, expectedResponse string) (string, error) {
	var response []byte
	buf := make([]byte, 128)
	for {
		n, err := r.Read(buf)
		response = append(response, buf[:n]...)

		if i := bytes.IndexByte(response, '\n'); i >= 0 {
			line := string(bytes.TrimSpace(response[:i]))
			if line == expectedResponse {
				return line, nil
			}
			return "", fmt.Errorf("unexpected response: '%s'", line)
		}
		if err != nil {
			return "", fmt.Errorf("error reading from Arduino: %v", err)
		}
		if n == 0 {
			// tarm/serial returns 0, nil when the read timeout expires
			return "", fmt.Errorf("error reading from Arduino: timeout waiting for '%s'", expectedResponse)
		}
	}
}
