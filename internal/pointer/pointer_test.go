package pointer

import (
	"image"
	"testing"
)

func TestRobotDriverUsesPrimitives(t *testing.T) {
	var moves []image.Point
	clicks := 0

	origMove, origClick, origLoc := moveMouse, clickMouse, mouseLocation
	t.Cleanup(func() { moveMouse, clickMouse, mouseLocation = origMove, origClick, origLoc })

	moveMouse = func(x, y int) { moves = append(moves, image.Pt(x, y)) }
	clickMouse = func() { clicks++ }
	mouseLocation = func() (int, int) { return 42, 24 }

	d := NewRobotDriver()
	if err := d.MoveTo(1, 2); err != nil {
		t.Fatal(err)
	}
	if err := d.Click(3, 4); err != nil {
		t.Fatal(err)
	}
	if len(moves) != 2 || moves[1] != image.Pt(3, 4) || clicks != 1 {
		t.Errorf("moves=%v clicks=%d", moves, clicks)
	}

	x, y, err := d.Position()
	if err != nil || x != 42 || y != 24 {
		t.Errorf("position = (%d, %d), %v", x, y, err)
	}
	fx, fy, _ := d.Sample()
	if fx != 42 || fy != 24 {
		t.Errorf("sample = (%v, %v)", fx, fy)
	}
}
