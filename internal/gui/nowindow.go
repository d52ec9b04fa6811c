//go:build !raylib

package gui

import "errors"

// ErrNoWindow is returned by OpenWindow in builds without the raylib tag.
var ErrNoWindow = errors.New("window frontend not built in (build with -tags raylib)")

func OpenWindow(width, height int, title string) (Frontend, error) {
	return nil, ErrNoWindow
}
