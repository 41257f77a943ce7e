// Package daemon serves authenticated key-chord requests on a local socket
// and provides the client used by the recognizer to send them.
package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/rbright/tempest/internal/dictionary"
	"github.com/rbright/tempest/internal/keys"
	"github.com/rbright/tempest/internal/secure"
)

// maxFrameBytes bounds one hex frame; longer lines are discarded.
const maxFrameBytes = 8192

var errFrameTooLong = errors.New("frame exceeds size limit")

// Injector emits key events on a virtual input device.
type Injector interface {
	Press(keys.Code) error
	Release(keys.Code) error
}

// Stats counts frame outcomes since the server started.
type Stats struct {
	Executed int64
	Rejected int64
	Ignored  int64
}

// Server accepts one connection at a time and executes the key chords it is
// asked for. Frames from a connection are handled strictly in order, so
// chords never interleave.
type Server struct {
	logger   *slog.Logger
	cipher   *secure.Cipher
	injector Injector
	dict     atomic.Pointer[dictionary.Dictionary]

	mu     sync.Mutex
	active net.Conn

	executed atomic.Int64
	rejected atomic.Int64
	ignored  atomic.Int64
}

// NewServer builds a server that resolves identifiers against dict.
func NewServer(logger *slog.Logger, cipher *secure.Cipher, injector Injector, dict *dictionary.Dictionary) *Server {
	s := &Server{logger: logger, cipher: cipher, injector: injector}
	s.dict.Store(dict)
	return s
}

// SetDictionary swaps the dictionary used for subsequent frames.
func (s *Server) SetDictionary(dict *dictionary.Dictionary) {
	if dict == nil {
		return
	}
	s.dict.Store(dict)
}

// Dictionary returns the dictionary currently in use.
func (s *Server) Dictionary() *dictionary.Dictionary {
	return s.dict.Load()
}

// Stats returns a snapshot of frame counters.
func (s *Server) Stats() Stats {
	return Stats{
		Executed: s.executed.Load(),
		Rejected: s.rejected.Load(),
		Ignored:  s.ignored.Load(),
	}
}

// Serve accepts connections until ctx is cancelled or the listener closes.
// Each connection is read to end of stream before the next is accepted.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		_ = listener.Close()
		s.closeActive()
	})
	defer stop()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept daemon connection: %w", err)
		}

		s.setActive(conn)
		s.serveConn(ctx, conn)
		s.setActive(nil)
		_ = conn.Close()
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	s.logDebug("client connected")
	reader := bufio.NewReaderSize(conn, 4096)

	for {
		frame, err := readFrame(reader)
		if errors.Is(err, errFrameTooLong) {
			s.rejected.Add(1)
			s.logWarn("discarding oversized frame", "limit", maxFrameBytes)
			continue
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && ctx.Err() == nil {
				s.logWarn("read frame failed", "error", err.Error())
			}
			s.logDebug("client disconnected")
			return
		}
		if len(frame) == 0 {
			continue
		}
		s.HandleFrame(frame)
	}
}

// HandleFrame authenticates one frame and runs the chord it names.
// Every failure is logged and absorbed.
func (s *Server) HandleFrame(frame []byte) {
	plaintext, err := s.cipher.Open(frame)
	if err != nil {
		s.rejected.Add(1)
		s.logWarn("failed to decrypt frame sent by client", "error", err.Error())
		return
	}
	if !utf8.Valid(plaintext) {
		s.rejected.Add(1)
		s.logWarn("decrypted identifier is not valid utf-8")
		return
	}

	identifier := string(plaintext)
	dict := s.dict.Load()
	if dict == nil {
		s.ignored.Add(1)
		return
	}
	action, ok := dict.Action(identifier)
	if !ok || action.Kind != dictionary.ActionKeyChord {
		s.ignored.Add(1)
		s.logDebug("ignoring identifier", "phrase", identifier)
		return
	}

	Chord(s.injector, action.Keys, s.logger)
	s.executed.Add(1)
	s.logInfo("executed key chord", "phrase", identifier)
}

// Chord presses every key in order and releases them in reverse order.
// Individual key failures are logged and do not stop the sequence.
func Chord(injector Injector, codes []keys.Code, logger *slog.Logger) {
	if injector == nil {
		return
	}
	for _, code := range codes {
		if err := injector.Press(code); err != nil && logger != nil {
			logger.Error("key press failed", "key", keys.Name(code), "error", err.Error())
		}
	}
	for i := len(codes) - 1; i >= 0; i-- {
		if err := injector.Release(codes[i]); err != nil && logger != nil {
			logger.Error("key release failed", "key", keys.Name(codes[i]), "error", err.Error())
		}
	}
}

func readFrame(r *bufio.Reader) ([]byte, error) {
	var frame []byte
	tooLong := false
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			return nil, err
		}
		if !tooLong {
			frame = append(frame, chunk...)
			if len(frame) > maxFrameBytes {
				tooLong = true
				frame = nil
			}
		}
		if !isPrefix {
			break
		}
	}
	if tooLong {
		return nil, errFrameTooLong
	}
	return frame, nil
}

func (s *Server) setActive(conn net.Conn) {
	s.mu.Lock()
	s.active = conn
	s.mu.Unlock()
}

func (s *Server) closeActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		_ = s.active.Close()
	}
}

func (s *Server) logInfo(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Server) logWarn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func (s *Server) logDebug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
