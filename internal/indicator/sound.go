package indicator

import (
	"fmt"
	"math"
	"sync"

	"github.com/jfreymuth/pulse"

	"github.com/rbright/tempest/internal/fsm"
)

const (
	chimeRate   = 16000
	chimeVolume = 0.18
	noteGapMS   = 22
	fadeMS      = 5
)

// note is one sine burst of a chime.
type note struct {
	hz float64
	ms int
}

// Rising intervals announce attention, a falling one announces rest.
var motifs = map[fsm.State][]note{
	fsm.StateAwake:     {{hz: 880, ms: 70}, {hz: 1175, ms: 70}},
	fsm.StateAsleep:    {{hz: 480, ms: 75}, {hz: 360, ms: 90}},
	fsm.StateDictating: {{hz: 740, ms: 65}, {hz: 988, ms: 90}, {hz: 1319, ms: 60}},
}

var renderChimes = sync.OnceValue(func() map[fsm.State][]int16 {
	out := make(map[fsm.State][]int16, len(motifs))
	for mode, notes := range motifs {
		out[mode] = renderMotif(notes)
	}
	return out
})

// cueFor returns the rendered chime for mode, or nil when it has none.
func cueFor(mode fsm.State) []int16 {
	return renderChimes()[mode]
}

// renderMotif concatenates notes with a short silence between them.
func renderMotif(notes []note) []int16 {
	var pcm []int16
	for i, n := range notes {
		if i > 0 {
			pcm = append(pcm, make([]int16, msToSamples(noteGapMS))...)
		}
		pcm = append(pcm, renderNote(n)...)
	}
	return pcm
}

// renderNote draws a sine burst whose ends are faded to zero to avoid clicks.
func renderNote(n note) []int16 {
	count := msToSamples(n.ms)
	if count == 0 || n.hz <= 0 {
		return nil
	}
	fade := min(msToSamples(fadeMS), count/2)
	step := 2 * math.Pi * n.hz / chimeRate

	pcm := make([]int16, count)
	phase := 0.0
	for i := range pcm {
		gain := 1.0
		if edge := min(i, count-1-i); edge < fade {
			gain = float64(edge) / float64(fade)
		}
		pcm[i] = int16(math.Round(math.Sin(phase) * gain * chimeVolume * math.MaxInt16))
		phase += step
	}
	return pcm
}

func msToSamples(ms int) int {
	if ms <= 0 {
		return 0
	}
	return ms * chimeRate / 1000
}

// playChime plays samples on the default Pulse sink and waits for them to drain.
func playChime(samples []int16) error {
	client, err := pulse.NewClient(pulse.ClientApplicationName("tempest"))
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	stream, err := client.NewPlayback(
		pulse.Int16Reader(samplesReader(samples)),
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(chimeRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("tempest mode cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue: %w", err)
	}
	return nil
}

// samplesReader feeds samples to Pulse and reports EndOfData with the last batch.
func samplesReader(samples []int16) func([]int16) (int, error) {
	rest := samples
	return func(buf []int16) (int, error) {
		n := copy(buf, rest)
		rest = rest[n:]
		if len(rest) == 0 {
			return n, pulse.EndOfData
		}
		return n, nil
	}
}
