package asr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rbright/tempest/internal/transcript"
)

const deepgramWriteTimeout = 5 * time.Second

// Deepgram streams audio to the Deepgram live transcription websocket.
type Deepgram struct {
	URL      string
	APIKey   string
	Model    string
	Language string
	Logger   *slog.Logger
	Dialer   *websocket.Dialer
}

type deepgramResponse struct {
	Type    string `json:"type"`
	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
	IsFinal     bool `json:"is_final"`
	SpeechFinal bool `json:"speech_final"`
}

// Run implements Source.
func (d *Deepgram) Run(ctx context.Context, audio <-chan []byte, events chan<- transcript.Event) error {
	endpoint, err := d.endpoint()
	if err != nil {
		return err
	}

	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	header := http.Header{}
	header.Set("Authorization", "Token "+d.APIKey)

	conn, resp, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial deepgram: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("dial deepgram: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()

	writeDone := make(chan struct{})
	var writeErr error
	go func() {
		defer close(writeDone)
		writeErr = d.writeAudio(ctx, conn, audio)
	}()

	readErr := d.readResults(ctx, conn, events)
	_ = conn.Close()
	<-writeDone

	if ctx.Err() != nil {
		return nil
	}
	if readErr != nil {
		return readErr
	}
	return writeErr
}

func (d *Deepgram) endpoint() (string, error) {
	raw := strings.TrimSpace(d.URL)
	if raw == "" {
		return "", errors.New("deepgram url is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse deepgram url: %w", err)
	}
	q := u.Query()
	q.Set("encoding", "linear16")
	q.Set("sample_rate", "16000")
	q.Set("channels", "1")
	q.Set("interim_results", "true")
	if d.Model != "" {
		q.Set("model", d.Model)
	}
	if d.Language != "" {
		q.Set("language", d.Language)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// writeAudio sends binary PCM frames until audio closes, then asks the
// server to flush with CloseStream.
func (d *Deepgram) writeAudio(ctx context.Context, conn *websocket.Conn, audio <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case chunk, ok := <-audio:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(deepgramWriteTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
					return fmt.Errorf("close deepgram stream: %w", err)
				}
				return nil
			}
			if len(chunk) == 0 {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(deepgramWriteTimeout))
			if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				return fmt.Errorf("send audio to deepgram: %w", err)
			}
		}
	}
}

// readResults folds Deepgram's per-segment results into cumulative
// hypotheses: committed segments plus the live interim segment.
func (d *Deepgram) readResults(ctx context.Context, conn *websocket.Conn, events chan<- transcript.Event) error {
	var h hypothesis
	for {
		var resp deepgramResponse
		if err := conn.ReadJSON(&resp); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if pending := h.text(); pending != "" {
				_ = emit(ctx, events, transcript.Event{Kind: transcript.Final, Text: pending})
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return nil
			}
			return fmt.Errorf("read deepgram result: %w", err)
		}

		if resp.Type != "" && resp.Type != "Results" {
			if resp.Type == "UtteranceEnd" && h.text() != "" {
				if err := emit(ctx, events, transcript.Event{Kind: transcript.Final, Text: h.text()}); err != nil {
					return nil
				}
				h.reset()
			}
			continue
		}

		segment := ""
		if len(resp.Channel.Alternatives) > 0 {
			segment = resp.Channel.Alternatives[0].Transcript
		}

		if resp.IsFinal {
			h.commit(segment)
		} else {
			h.interim = cleanSegment(segment)
		}

		kind := transcript.Partial
		if resp.SpeechFinal {
			kind = transcript.Final
		}
		text := h.text()
		if text == "" && kind == transcript.Partial {
			continue
		}
		if err := emit(ctx, events, transcript.Event{Kind: kind, Text: text}); err != nil {
			return nil
		}
		if kind == transcript.Final {
			h.reset()
		}
	}
}

// hypothesis accumulates one utterance.
type hypothesis struct {
	segments []string
	interim  string
}

func (h *hypothesis) commit(segment string) {
	h.segments = appendSegment(h.segments, segment)
	h.interim = ""
}

func (h *hypothesis) reset() {
	h.segments = nil
	h.interim = ""
}

func (h *hypothesis) text() string {
	parts := append([]string(nil), h.segments...)
	if h.interim != "" {
		parts = appendSegment(parts, h.interim)
	}
	return strings.Join(parts, " ")
}

// appendSegment merges continuation segments to avoid duplicate transcript growth.
func appendSegment(segments []string, segment string) []string {
	segment = cleanSegment(segment)
	if segment == "" {
		return segments
	}
	if len(segments) == 0 {
		return append(segments, segment)
	}

	last := segments[len(segments)-1]
	switch {
	case segment == last:
		return segments
	case strings.HasPrefix(segment, last):
		segments[len(segments)-1] = segment
		return segments
	case strings.HasPrefix(last, segment):
		return segments
	default:
		return append(segments, segment)
	}
}
