// Package capture stores presented frames as a zstd stream for offline video
// encoding. A capture is a JSON header line followed by one record per
// frame: a little-endian uint32 frame index and the raw RGBA rows.
package capture

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
)

const (
	Magic   = "CLSF"
	Version = 1
)

var ErrCorrupt = errors.New("corrupt capture")

type Header struct {
	Magic   string `json:"magic"`
	Version int    `json:"version"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	FPS     int    `json:"fps"`
}

// Writer is a render.FrameSink. It is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	hdr    Header
	f      io.Closer
	enc    *zstd.Encoder
	w      *bufio.Writer
	frames uint32
	err    error
}

// Create writes a new capture file, creating parent directories.
func Create(path string, width, height, fps int) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f, width, height, fps)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w.f = f
	return w, nil
}

// NewWriter writes a capture to dst. Closing the Writer does not close dst.
func NewWriter(dst io.Writer, width, height, fps int) (*Writer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("capture: bad frame size %dx%d", width, height)
	}
	enc, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, err
	}
	w := &Writer{
		hdr: Header{Magic: Magic, Version: Version, Width: width, Height: height, FPS: fps},
		enc: enc,
		w:   bufio.NewWriterSize(enc, 256*1024),
	}
	hb, _ := json.Marshal(w.hdr)
	if _, err := w.w.Write(hb); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return nil, err
	}
	return w, nil
}

func (w *Writer) Header() Header { return w.hdr }

// Frames returns the number of frames written so far.
func (w *Writer) Frames() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return int(w.frames)
}

// WriteFrame appends frame. After the first error every call returns it.
func (w *Writer) WriteFrame(frame *image.RGBA) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	if w.w == nil {
		return errors.New("capture: writer closed")
	}
	b := frame.Bounds()
	if b.Dx() != w.hdr.Width || b.Dy() != w.hdr.Height {
		return fmt.Errorf("capture: frame is %dx%d, capture is %dx%d", b.Dx(), b.Dy(), w.hdr.Width, w.hdr.Height)
	}

	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], w.frames)
	if _, err := w.w.Write(idx[:]); err != nil {
		w.err = err
		return err
	}
	row := b.Dx() * 4
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := frame.PixOffset(b.Min.X, y)
		if _, err := w.w.Write(frame.Pix[off : off+row]); err != nil {
			w.err = err
			return err
		}
	}
	w.frames++
	return nil
}

// Close flushes the stream and closes the file opened by Create.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var errs []error
	if w.w != nil {
		errs = append(errs, w.w.Flush())
		w.w = nil
	}
	if w.enc != nil {
		errs = append(errs, w.enc.Close())
		w.enc = nil
	}
	if w.f != nil {
		errs = append(errs, w.f.Close())
		w.f = nil
	}
	return errors.Join(errs...)
}

// Reader decodes a capture frame by frame.
type Reader struct {
	hdr  Header
	f    io.Closer
	dec  *zstd.Decoder
	r    *bufio.Reader
	next uint32
}

func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.f = f
	return r, nil
}

func NewReader(src io.Reader) (*Reader, error) {
	dec, err := zstd.NewReader(src)
	if err != nil {
		return nil, err
	}
	r := &Reader{dec: dec, r: bufio.NewReaderSize(dec, 256*1024)}
	line, err := r.r.ReadBytes('\n')
	if err != nil {
		dec.Close()
		return nil, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}
	if err := json.Unmarshal(line, &r.hdr); err != nil {
		dec.Close()
		return nil, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}
	if r.hdr.Magic != Magic || r.hdr.Version != Version {
		dec.Close()
		return nil, fmt.Errorf("%w: magic %q version %d", ErrCorrupt, r.hdr.Magic, r.hdr.Version)
	}
	if r.hdr.Width <= 0 || r.hdr.Height <= 0 {
		dec.Close()
		return nil, fmt.Errorf("%w: frame size %dx%d", ErrCorrupt, r.hdr.Width, r.hdr.Height)
	}
	return r, nil
}

func (r *Reader) Header() Header { return r.hdr }

// Next returns the next frame, or io.EOF after the last one.
func (r *Reader) Next() (*image.RGBA, error) {
	var idx [4]byte
	if _, err := io.ReadFull(r.r, idx[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: frame %d index: %v", ErrCorrupt, r.next, err)
	}
	if got := binary.LittleEndian.Uint32(idx[:]); got != r.next {
		return nil, fmt.Errorf("%w: frame index %d, want %d", ErrCorrupt, got, r.next)
	}
	img := image.NewRGBA(image.Rect(0, 0, r.hdr.Width, r.hdr.Height))
	if _, err := io.ReadFull(r.r, img.Pix); err != nil {
		return nil, fmt.Errorf("%w: frame %d pixels: %v", ErrCorrupt, r.next, err)
	}
	r.next++
	return img, nil
}

func (r *Reader) Close() error {
	r.dec.Close()
	if r.f != nil {
		return r.f.Close()
	}
	return nil
}
