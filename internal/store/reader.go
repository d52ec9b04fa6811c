package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/san-kum/fluidviz/internal/dynamo"
)

// Reader yields the frames of a recording one at a time.
type Reader struct {
	r      io.Reader
	closer io.Closer
	hdr    Header
	raw    []byte
	frame  dynamo.Field
	next   int
}

// Open reads the header of the recording at path.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.closer = file
	return r, nil
}

// NewReader reads the header from r. A zero header is resolved through the
// trailer when r can seek; otherwise ErrUnfinalized is returned.
func NewReader(r io.Reader) (*Reader, error) {
	var b [HeaderSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	h := decodeHeader(b[:])

	if h.IsZero() {
		rs, ok := r.(io.ReadSeeker)
		if !ok {
			return nil, ErrUnfinalized
		}
		var err error
		if h, err = readTrailer(rs); err != nil {
			return nil, err
		}
	}
	if err := h.validate(); err != nil {
		return nil, err
	}
	if rs, ok := r.(io.ReadSeeker); ok {
		if err := checkSize(rs, h); err != nil {
			return nil, err
		}
	}

	return &Reader{
		r:     r,
		hdr:   h,
		raw:   make([]byte, h.FrameBytes()),
		frame: make(dynamo.Field, h.FrameLen()),
	}, nil
}

func readTrailer(rs io.ReadSeeker) (Header, error) {
	end, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return Header{}, err
	}
	if end < HeaderSize+TrailerSize {
		return Header{}, ErrUnfinalized
	}
	if _, err := rs.Seek(end-TrailerSize, io.SeekStart); err != nil {
		return Header{}, err
	}
	var tr [TrailerSize]byte
	if _, err := io.ReadFull(rs, tr[:]); err != nil {
		return Header{}, err
	}
	if !bytes.Equal(tr[:4], trailerMagic[:]) {
		return Header{}, ErrUnfinalized
	}
	if _, err := rs.Seek(HeaderSize, io.SeekStart); err != nil {
		return Header{}, err
	}
	return decodeHeader(tr[4:]), nil
}

// checkSize rejects a header claiming frames when the data after it cannot
// hold even one. A recording cut short later in the file still opens and
// fails with ErrTruncated at the missing frame.
func checkSize(rs io.ReadSeeker, h Header) error {
	if h.Frames == 0 {
		return nil
	}
	end, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if _, err := rs.Seek(HeaderSize, io.SeekStart); err != nil {
		return err
	}
	if end-HeaderSize < h.FrameBytes() {
		return fmt.Errorf("%w: %dx%d frames in %d bytes", ErrBadHeader, h.Width, h.Height, end)
	}
	return nil
}

func (r *Reader) Header() Header { return r.hdr }

// Position is the index of the next frame Next will return.
func (r *Reader) Position() int { return r.next }

// Next decodes the next frame into a buffer owned by the reader; the
// returned field is overwritten by the following call.
func (r *Reader) Next() (dynamo.Field, error) {
	if r.next >= int(r.hdr.Frames) {
		return nil, ErrEndOfData
	}
	if _, err := io.ReadFull(r.r, r.raw); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("frame %d of %d: %w", r.next, r.hdr.Frames, ErrTruncated)
		}
		return nil, err
	}
	if err := DecodeField(r.raw, r.frame); err != nil {
		return nil, err
	}
	r.next++
	return r.frame, nil
}

// Rewind moves back to the first frame.
func (r *Reader) Rewind() error {
	rs, ok := r.r.(io.Seeker)
	if !ok {
		return ErrNotSeekable
	}
	if _, err := rs.Seek(HeaderSize, io.SeekStart); err != nil {
		return err
	}
	r.next = 0
	return nil
}

// Seek moves to frame i, so the next call to Next returns it.
func (r *Reader) Seek(i int) error {
	if i < 0 || i >= int(r.hdr.Frames) {
		return fmt.Errorf("frame %d of %d: %w", i, r.hdr.Frames, ErrEndOfData)
	}
	rs, ok := r.r.(io.Seeker)
	if !ok {
		return ErrNotSeekable
	}
	if _, err := rs.Seek(HeaderSize+int64(i)*r.hdr.FrameBytes(), io.SeekStart); err != nil {
		return err
	}
	r.next = i
	return nil
}

func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// Repair rewrites the header of a recording that was never finalized,
// deriving the frame count from the file size for a grid of interior size n.
// A partial trailing frame is cut off.
func Repair(path string, n int) (Header, error) {
	if n < 1 || n > dynamo.MaxGrid {
		return Header{}, fmt.Errorf("%w: %d", dynamo.ErrGridSize, n)
	}
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return Header{}, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Header{}, err
	}
	if info.Size() < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrBadHeader, info.Size())
	}

	h := HeaderFor(dynamo.NewGrid(n), 0)
	frames := (info.Size() - HeaderSize) / h.FrameBytes()
	h.Frames = int32(frames)

	var b [HeaderSize]byte
	h.encode(b[:])
	if _, err := file.WriteAt(b[:], 0); err != nil {
		return Header{}, err
	}
	if err := file.Truncate(HeaderSize + frames*h.FrameBytes()); err != nil {
		return Header{}, err
	}
	return h, nil
}
