package score

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// ErrRenderFailed wraps failures while writing the MIDI artifact.
var ErrRenderFailed = errors.New("MIDI render failed")

const ticksPerQuarter = 960

// midiEvent is a note boundary at an absolute tick.
type midiEvent struct {
	tick uint32
	off  bool // NoteOff sorts before NoteOn at the same tick
	key  uint8
}

// RenderMIDI writes the score as a standard MIDI file, one track per
// part. A partially written file is removed on failure.
func RenderMIDI(s *Score, path string) error {
	if len(s.Parts) == 0 {
		return fmt.Errorf("%w: score has no parts", ErrRenderFailed)
	}

	doc := smf.New()

	for i, part := range s.Parts {
		var track smf.Track
		if i == 0 {
			tempo := s.Tempo
			if tempo <= 0 {
				tempo = defaultTempo
			}
			track.Add(0, smf.MetaTempo(tempo))
		}

		events := partEvents(part)
		var cursor uint32
		for _, ev := range events {
			delta := ev.tick - cursor
			cursor = ev.tick
			if ev.off {
				track.Add(delta, midi.NoteOff(0, ev.key))
			} else {
				track.Add(delta, midi.NoteOn(0, ev.key, 80))
			}
		}
		track.Close(0)

		if err := doc.Add(track); err != nil {
			return fmt.Errorf("%w: adding track for part %s: %v", ErrRenderFailed, part.ID, err)
		}
	}

	if err := doc.WriteFile(path); err != nil {
		os.Remove(path) // drop any partial artifact
		return fmt.Errorf("%w: writing %s: %v", ErrRenderFailed, path, err)
	}
	return nil
}

// partEvents flattens a part's measures into sorted absolute-tick note
// boundaries. Chord notes share their predecessor's onset.
func partEvents(part Part) []midiEvent {
	var events []midiEvent
	var cursor float64 // quarters from the start of the part

	for _, m := range part.Measures {
		var lastOnset float64
		for _, n := range m.Notes {
			onset := cursor
			if n.Chord {
				onset = lastOnset
			}
			if !n.Rest && n.Quarters > 0 {
				on := uint32(onset * ticksPerQuarter)
				off := uint32((onset + n.Quarters) * ticksPerQuarter)
				events = append(events,
					midiEvent{tick: on, key: n.Key},
					midiEvent{tick: off, off: true, key: n.Key},
				)
			}
			if !n.Chord {
				lastOnset = onset
				cursor = onset + n.Quarters
			}
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].off && !events[j].off
	})
	return events
}
