// Package input samples the viewer's mouse and keyboard once per frame.
package input

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Key repeat timing, in ticks.
const (
	repeatDelay    = 20
	repeatInterval = 4
)

// State tracks mouse and keyboard state per frame
type State struct {
	MouseX, MouseY   int
	MouseDX, MouseDY int // delta since last frame
	prevMouseX       int
	prevMouseY       int
	LeftPressed      bool
	LeftJustPressed  bool
	ScrollY          float64

	// Drag pans the preview once the cursor leaves the threshold.
	DragStartX, DragStartY int
	Dragging               bool
	DragThreshold          int

	Ctrl  bool
	Shift bool
}

func NewState() *State {
	return &State{DragThreshold: 5}
}

// Update should be called every frame
func (s *State) Update() {
	s.prevMouseX = s.MouseX
	s.prevMouseY = s.MouseY
	s.MouseX, s.MouseY = ebiten.CursorPosition()
	s.MouseDX = s.MouseX - s.prevMouseX
	s.MouseDY = s.MouseY - s.prevMouseY

	leftDown := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	s.LeftJustPressed = inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft)
	s.LeftPressed = leftDown

	_, s.ScrollY = ebiten.Wheel()

	if s.LeftJustPressed {
		s.DragStartX = s.MouseX
		s.DragStartY = s.MouseY
		s.Dragging = false
	}
	if leftDown && !s.Dragging {
		dx := s.MouseX - s.DragStartX
		dy := s.MouseY - s.DragStartY
		if dx*dx+dy*dy > s.DragThreshold*s.DragThreshold {
			s.Dragging = true
		}
	}
	if !leftDown {
		s.Dragging = false
	}

	s.Ctrl = ebiten.IsKeyPressed(ebiten.KeyControl) || ebiten.IsKeyPressed(ebiten.KeyMeta)
	s.Shift = ebiten.IsKeyPressed(ebiten.KeyShift)
}

// JustPressed returns true if key was just pressed this frame
func (s *State) JustPressed(key ebiten.Key) bool {
	return inpututil.IsKeyJustPressed(key)
}

// Repeat reports a press on the first frame and then at a fixed rate while
// the key is held, for list navigation.
func (s *State) Repeat(key ebiten.Key) bool {
	d := inpututil.KeyPressDuration(key)
	if d == 1 {
		return true
	}
	return d >= repeatDelay && (d-repeatDelay)%repeatInterval == 0
}
