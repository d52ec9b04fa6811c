// Package viz renders the smoke density volume to an RGBA image.
//
//   - [Viewer]: owns a copy of the density, fed from the solver or a recording
//   - [Camera]: orbit camera shared by the ray marcher and the outline overlay
//   - [Palette]: density colour ramps, also used by the terminal views
//
// # Controls
//
// The main loop maps input onto the viewer: pointer drags call
// [Viewer.Rotate] and [Viewer.RotateLight] after [Viewer.SetAnchor], the
// wheel calls [Viewer.Dolly], and the c, s and i keys toggle the cube
// outline, the slice outline and the info overlay.
//
// A Viewer is not safe for concurrent use; it belongs to the main loop.
package viz
