package dispatch

import "github.com/KarpelesLab/x11anywhere/internal/backend"

// toRect converts a window/pixmap geometry into the backend's device-
// independent rectangle shape.
func toRect(x, y int16, width, height uint16) backend.Rect {
	return backend.Rect{X: x, Y: y, W: width, H: height}
}
