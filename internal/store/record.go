// Package store implements the recording format shared by simulate+record
// runs and playback.
//
// A recording is a 12-byte header of three little-endian int32 values
// (width, height, frameCount) followed by frameCount raw density dumps of
// width*height*width little-endian float32 values each. The header is
// written with a zero frame count first and patched when the recording is
// finalized. Sinks that cannot seek get a 16-byte trailer instead: the
// magic "FVTR" followed by the final header.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/san-kum/fluidviz/internal/dynamo"
)

const (
	HeaderSize  = 12
	TrailerSize = 16
)

var trailerMagic = [4]byte{'F', 'V', 'T', 'R'}

var (
	ErrBadHeader   = errors.New("store: malformed header")
	ErrUnfinalized = errors.New("store: recording was never finalized")
	ErrFrameSize   = errors.New("store: frame size does not match header")
	ErrEndOfData   = errors.New("store: end of recorded data")
	ErrFinalized   = errors.New("store: recording already finalized")
	ErrTruncated   = errors.New("store: recording shorter than its header claims")
	ErrNotSeekable = errors.New("store: source is not seekable")
)

// Header is the fixed record at the start of every recording.
type Header struct {
	Width  int32
	Height int32
	Frames int32
}

// FrameLen is the number of float32 values per frame.
func (h Header) FrameLen() int { return int(h.Width) * int(h.Height) * int(h.Width) }

// FrameBytes is the encoded size of one frame.
func (h Header) FrameBytes() int64 { return int64(h.FrameLen()) * 4 }

func (h Header) IsZero() bool { return h == Header{} }

// Grid returns the interior grid the header describes.
func (h Header) Grid() dynamo.Grid { return dynamo.NewGrid(int(h.Width) - 2) }

// validate accepts cubes of side 3 up to dynamo.MaxGrid plus the boundary.
func (h Header) validate() error {
	if h.Width < 3 || h.Width > dynamo.MaxGrid+2 || h.Height != h.Width || h.Frames < 0 {
		return fmt.Errorf("%w: %dx%d, %d frames", ErrBadHeader, h.Width, h.Height, h.Frames)
	}
	return nil
}

// HeaderFor returns the header of a finished recording of frames dumps on g.
func HeaderFor(g dynamo.Grid, frames int) Header {
	return Header{Width: int32(g.Side()), Height: int32(g.Side()), Frames: int32(frames)}
}

func (h Header) encode(b []byte) {
	binary.LittleEndian.PutUint32(b[0:4], uint32(h.Width))
	binary.LittleEndian.PutUint32(b[4:8], uint32(h.Height))
	binary.LittleEndian.PutUint32(b[8:12], uint32(h.Frames))
}

func decodeHeader(b []byte) Header {
	return Header{
		Width:  int32(binary.LittleEndian.Uint32(b[0:4])),
		Height: int32(binary.LittleEndian.Uint32(b[4:8])),
		Frames: int32(binary.LittleEndian.Uint32(b[8:12])),
	}
}

// EncodeField writes f as little-endian float32 values, reusing buf when it
// is large enough. It returns the buffer for the next call.
func EncodeField(w io.Writer, f dynamo.Field, buf []byte) ([]byte, error) {
	n := len(f) * 4
	if cap(buf) < n {
		buf = make([]byte, n)
	}
	buf = buf[:n]
	for i, v := range f {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	_, err := w.Write(buf)
	return buf, err
}

// DecodeField fills f from little-endian float32 bytes.
func DecodeField(b []byte, f dynamo.Field) error {
	if len(b) != len(f)*4 {
		return fmt.Errorf("%w: %d bytes for %d values", ErrFrameSize, len(b), len(f))
	}
	for i := range f {
		f[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return nil
}

// Writer appends frames to a recording.
type Writer struct {
	w      io.Writer
	closer io.Closer
	frames int
	size   int
	bytes  int64
	buf    []byte
	done   bool
}

// Create truncates path and writes the provisional header.
func Create(path string) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	w.closer = file
	return w, nil
}

// NewWriter writes the provisional zero header to w.
func NewWriter(w io.Writer) (*Writer, error) {
	var hdr [HeaderSize]byte
	if _, err := w.Write(hdr[:]); err != nil {
		return nil, fmt.Errorf("write provisional header: %w", err)
	}
	return &Writer{w: w, bytes: HeaderSize}, nil
}

func (w *Writer) Frames() int { return w.frames }

// Size is the number of bytes written so far.
func (w *Writer) Size() int64 { return w.bytes }

// WriteFrame appends one density dump. Every frame must have the length of
// the first.
func (w *Writer) WriteFrame(f dynamo.Field) error {
	if w.done {
		return ErrFinalized
	}
	if w.frames == 0 {
		w.size = len(f)
	} else if len(f) != w.size {
		return fmt.Errorf("%w: %d values, want %d", ErrFrameSize, len(f), w.size)
	}
	var err error
	w.buf, err = EncodeField(w.w, f, w.buf)
	if err != nil {
		return fmt.Errorf("write frame %d: %w", w.frames, err)
	}
	w.frames++
	w.bytes += int64(len(f)) * 4
	return nil
}

// Finalize records the true header: in place when the sink can seek,
// as a trailer otherwise. The underlying file, if any, is closed.
func (w *Writer) Finalize(g dynamo.Grid) (Header, error) {
	if w.done {
		return Header{}, ErrFinalized
	}
	w.done = true
	h := HeaderFor(g, w.frames)
	if w.frames > 0 && w.size != h.FrameLen() {
		err := fmt.Errorf("%w: frames of %d values on a %s grid", ErrFrameSize, w.size, g)
		if w.closer != nil {
			w.closer.Close()
		}
		return h, err
	}

	err := w.patch(h)
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return h, err
}

func (w *Writer) patch(h Header) error {
	ws, ok := w.w.(io.WriteSeeker)
	if ok {
		if _, err := ws.Seek(0, io.SeekStart); err != nil {
			ok = false
		}
	}
	if !ok {
		var tr [TrailerSize]byte
		copy(tr[:4], trailerMagic[:])
		h.encode(tr[4:])
		if _, err := w.w.Write(tr[:]); err != nil {
			return fmt.Errorf("write trailer: %w", err)
		}
		w.bytes += TrailerSize
		return nil
	}

	var hdr [HeaderSize]byte
	h.encode(hdr[:])
	if _, err := ws.Write(hdr[:]); err != nil {
		return fmt.Errorf("patch header: %w", err)
	}
	_, err := ws.Seek(0, io.SeekEnd)
	return err
}

// Close releases the sink without patching the header.
func (w *Writer) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}
