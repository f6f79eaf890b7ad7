// Package render holds the viewer's preview geometry.
package render

import "math"

// Camera maps a sprite preview into the preview pane.
type Camera struct {
	X, Y    float64 // image point shown at the pane centre
	Zoom    float64 // screen pixels per image pixel
	MinZoom float64
	MaxZoom float64
	ScreenW int // pane width in pixels
	ScreenH int // pane height in pixels
	ImageW  int
	ImageH  int
}

// NewCamera creates a camera for a pane of the given size.
func NewCamera(screenW, screenH int) *Camera {
	return &Camera{
		Zoom:    1.0,
		MinZoom: 0.25,
		MaxZoom: 8.0,
		ScreenW: screenW,
		ScreenH: screenH,
	}
}

// SetImage centres a new image and zooms it to fit.
func (c *Camera) SetImage(w, h int) {
	c.ImageW, c.ImageH = w, h
	c.X, c.Y = float64(w)/2, float64(h)/2
	c.Fit()
}

// Fit picks the largest zoom that shows the whole image. Zooms above 1 are
// rounded down to whole numbers so pixel art stays crisp.
func (c *Camera) Fit() {
	if c.ImageW <= 0 || c.ImageH <= 0 {
		c.SetZoom(1)
		return
	}
	z := math.Min(float64(c.ScreenW)/float64(c.ImageW), float64(c.ScreenH)/float64(c.ImageH))
	if z >= 1 {
		z = math.Floor(z)
	}
	c.SetZoom(z)
	c.X, c.Y = float64(c.ImageW)/2, float64(c.ImageH)/2
}

// Pan moves the view by a screen pixel delta.
func (c *Camera) Pan(dx, dy float64) {
	c.X += dx / c.Zoom
	c.Y += dy / c.Zoom
	c.clamp()
}

// SetZoom sets zoom level with clamping
func (c *Camera) SetZoom(z float64) {
	c.Zoom = math.Max(c.MinZoom, math.Min(c.MaxZoom, z))
}

// ZoomAt zooms toward a screen point
func (c *Camera) ZoomAt(delta float64, screenX, screenY int) {
	ix, iy := c.ScreenToImage(screenX, screenY)
	c.SetZoom(c.Zoom + delta)
	ix2, iy2 := c.ScreenToImage(screenX, screenY)
	c.X += ix - ix2
	c.Y += iy - iy2
	c.clamp()
}

// ImageToScreen converts an image position to pane pixels.
func (c *Camera) ImageToScreen(ix, iy float64) (float64, float64) {
	sx := (ix-c.X)*c.Zoom + float64(c.ScreenW)/2
	sy := (iy-c.Y)*c.Zoom + float64(c.ScreenH)/2
	return sx, sy
}

// ScreenToImage converts pane pixels to an image position.
func (c *Camera) ScreenToImage(sx, sy int) (float64, float64) {
	ix := (float64(sx)-float64(c.ScreenW)/2)/c.Zoom + c.X
	iy := (float64(sy)-float64(c.ScreenH)/2)/c.Zoom + c.Y
	return ix, iy
}

// Transform returns the scale and translation that draw the image's
// top-left corner at its pane position.
func (c *Camera) Transform() (scale, tx, ty float64) {
	tx, ty = c.ImageToScreen(0, 0)
	return c.Zoom, tx, ty
}

// clamp keeps the pane centre over the image.
func (c *Camera) clamp() {
	c.X = math.Max(0, math.Min(float64(c.ImageW), c.X))
	c.Y = math.Max(0, math.Min(float64(c.ImageH), c.Y))
}
