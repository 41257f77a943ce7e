package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	// SampleRate is the capture rate every recognizer backend expects.
	SampleRate = 16000
	// FrameBytes is 20ms of 16kHz mono s16le.
	FrameBytes  = 640
	chunkBuffer = 128
)

// framer regroups arbitrary PCM writes into FrameBytes frames.
type framer struct {
	size    int
	pending []byte
}

// push appends b and returns every complete frame now available.
func (f *framer) push(b []byte) [][]byte {
	f.pending = append(f.pending, b...)
	var frames [][]byte
	for len(f.pending) >= f.size {
		frame := make([]byte, f.size)
		copy(frame, f.pending)
		f.pending = f.pending[f.size:]
		frames = append(frames, frame)
	}
	return frames
}

// flush returns the partial frame left over, if any.
func (f *framer) flush() []byte {
	if len(f.pending) == 0 {
		return nil
	}
	rest := append([]byte(nil), f.pending...)
	f.pending = nil
	return rest
}

// Capture records one Pulse source for the lifetime of a listening session.
type Capture struct {
	device Device

	client *pulse.Client
	stream *pulse.RecordStream

	chunks chan []byte
	done   chan struct{}

	mu      sync.Mutex
	frames  framer
	tap     io.Writer
	tapErr  error
	stopped bool

	inflight sync.WaitGroup
	bytes    atomic.Int64
}

func newCapture(device Device, tap io.Writer) *Capture {
	return &Capture{
		device: device,
		chunks: make(chan []byte, chunkBuffer),
		done:   make(chan struct{}),
		frames: framer{size: FrameBytes},
		tap:    tap,
	}
}

// StartCapture opens a 16kHz mono s16 record stream on device. A non-nil
// tap receives a copy of every captured byte. The capture stops when ctx ends.
func StartCapture(ctx context.Context, device Device, tap io.Writer) (*Capture, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(device.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", device.ID, err)
	}

	c := newCapture(device, tap)
	c.client = client

	stream, err := client.NewRecord(
		pulse.NewWriter(writerFunc(c.onPCM), pulseproto.FormatInt16LE),
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordBufferFragmentSize(FrameBytes),
		pulse.RecordMediaName("tempest voice control"),
	)
	if err != nil {
		_ = c.Stop()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}
	c.stream = stream
	stream.Start()

	context.AfterFunc(ctx, func() { _ = c.Stop() })
	return c, nil
}

// Device returns the source being recorded.
func (c *Capture) Device() Device {
	return c.device
}

// Chunks yields FrameBytes frames; the last one may be shorter. It is closed by Stop.
func (c *Capture) Chunks() <-chan []byte {
	return c.chunks
}

// BytesCaptured reports total bytes accepted from Pulse.
func (c *Capture) BytesCaptured() int64 {
	return c.bytes.Load()
}

// TapErr reports the first tap write failure. The tap is dropped after it
// fails; capture continues.
func (c *Capture) TapErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tapErr
}

// Stop ends the stream, delivers any partial frame, and closes Chunks. It is
// safe to call more than once.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.done)
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}
	c.inflight.Wait()

	c.mu.Lock()
	rest := c.frames.flush()
	c.mu.Unlock()
	if rest != nil {
		select {
		case c.chunks <- rest:
		default:
		}
	}

	close(c.chunks)
	return nil
}

// onPCM is the Pulse writer callback.
func (c *Capture) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return 0, io.EOF
	}
	// Add under mu so Stop's Wait cannot race it.
	c.inflight.Add(1)
	defer c.inflight.Done()

	if c.tap != nil {
		if _, err := c.tap.Write(buffer); err != nil {
			c.tapErr = err
			c.tap = nil
		}
	}
	frames := c.frames.push(buffer)
	c.mu.Unlock()

	c.bytes.Add(int64(len(buffer)))
	for _, frame := range frames {
		select {
		case <-c.done:
			return 0, io.EOF
		case c.chunks <- frame:
		}
	}
	return len(buffer), nil
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
