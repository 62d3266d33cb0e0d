package scene

import "github.com/spaghettifunk/glacier/engine/core"

// UserControl turns arrow key transitions into a direction. Dx is positive
// to the right, Dy positive up.
type UserControl struct {
	dx float32
	dy float32
}

func NewUserControl() *UserControl {
	return &UserControl{}
}

func (c *UserControl) ProcessKeyboardEvent(key core.KeyCode, state core.KeyState) {
	var amount float32
	if state == core.KeyPressed {
		amount = 1
	}
	switch key {
	case core.KEY_LEFT:
		c.dx = -amount
	case core.KEY_RIGHT:
		c.dx = amount
	case core.KEY_UP:
		c.dy = amount
	case core.KEY_DOWN:
		c.dy = -amount
	}
}

func (c *UserControl) Dx() float32 {
	return c.dx
}

func (c *UserControl) Dy() float32 {
	return c.dy
}
