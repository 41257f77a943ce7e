package pipeline

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const wavHeaderSize = 44

// wavDump streams PCM16 mono audio to a WAV file. The RIFF sizes are written
// as zero up front and patched on Close.
type wavDump struct {
	mu   sync.Mutex
	file *os.File
	size int64
}

func createWAVDump(sampleRate int) (*wavDump, error) {
	file, err := createDebugFile("audio", "wav")
	if err != nil {
		return nil, err
	}
	if _, err := file.Write(wavHeader(0, sampleRate, 1)); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("write wav header: %w", err)
	}
	return &wavDump{file: file}, nil
}

func (w *wavDump) Write(pcm []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, err := w.file.Write(pcm)
	w.size += int64(n)
	return n, err
}

// Close patches the header sizes and closes the file.
func (w *wavDump) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	sizes := make([]byte, 4)
	binary.LittleEndian.PutUint32(sizes, uint32(36+w.size))
	if _, err := w.file.WriteAt(sizes, 4); err != nil {
		_ = w.file.Close()
		return err
	}
	binary.LittleEndian.PutUint32(sizes, uint32(w.size))
	if _, err := w.file.WriteAt(sizes, 40); err != nil {
		_ = w.file.Close()
		return err
	}
	return w.file.Close()
}

func (w *wavDump) Name() string {
	return w.file.Name()
}

// wavHeader builds a canonical 44-byte PCM16 WAV header.
func wavHeader(dataLen int64, sampleRate int, channels int) []byte {
	if channels <= 0 {
		channels = 1
	}
	const bitsPerSample = 16
	byteRate := sampleRate * channels * (bitsPerSample / 8)
	blockAlign := channels * (bitsPerSample / 8)

	header := make([]byte, wavHeaderSize)
	copy(header[0:4], []byte("RIFF"))
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataLen))
	copy(header[8:12], []byte("WAVE"))
	copy(header[12:16], []byte("fmt "))
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], []byte("data"))
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataLen))
	return header
}

var _ io.WriteCloser = (*wavDump)(nil)

// createDebugFile creates timestamped debug artifacts under state/tempest/debug.
func createDebugFile(prefix string, extension string) (*os.File, error) {
	stateDir, err := resolveStateDir()
	if err != nil {
		return nil, err
	}
	debugDir := filepath.Join(stateDir, "tempest", "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405.000")
	path := filepath.Join(debugDir, fmt.Sprintf("%s-%s.%s", prefix, timestamp, extension))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open debug file %q: %w", path, err)
	}
	return file, nil
}

// resolveStateDir returns XDG_STATE_HOME fallback path for debug artifacts.
func resolveStateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for state: %w", err)
	}
	return filepath.Join(home, ".local", "state"), nil
}
