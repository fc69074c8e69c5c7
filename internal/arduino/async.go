package arduino

import (
	"fmt"
)

// ProcessAndWait sends a command, waits for the board's acknowledgement and
// then runs callback, if any.
func ProcessAndWait(
	send func() error,
	waitForArduinoResponse func(expected string) (string, error),
	callback func(),
) error {
	if err := send(); err != nil {
		return err
	}

	if _, err := waitForArduinoResponse(Ack); err != nil {
		return fmt.Errorf("error waiting for Arduino response: %v", err)
	}

	if callback != nil {
		callback()
	}
	return nil
}
