// Package pointer drives and reads the OS pointer through robotgo.
package pointer

import (
	"github.com/go-vgo/robotgo"
)

var moveMouse = func(x, y int) { robotgo.Move(x, y) }

var clickMouse = func() { robotgo.Click("left", false) }

var mouseLocation = func() (int, int) { return robotgo.Location() }

// RobotDriver is a replay driver on top of robotgo
type RobotDriver struct{}

// NewRobotDriver returns the OS pointer driver
func NewRobotDriver() *RobotDriver {
	return &RobotDriver{}
}

// MoveTo warps the pointer to (x, y)
func (RobotDriver) MoveTo(x, y int) error {
	moveMouse(x, y)
	return nil
}

// Click moves to (x, y) and clicks the left button
func (RobotDriver) Click(x, y int) error {
	moveMouse(x, y)
	clickMouse()
	return nil
}

// Position returns the current pointer position
func (RobotDriver) Position() (int, int, error) {
	x, y := mouseLocation()
	return x, y, nil
}

// Sample reports the pointer position as floats, for the movement recorder
func (RobotDriver) Sample() (float64, float64, error) {
	x, y := mouseLocation()
	return float64(x), float64(y), nil
}
