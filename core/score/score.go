package score

import (
	"encoding/xml"
	"fmt"
	"math"
	"os"
)

// defaultTempo is used when the notation carries no tempo marking.
const defaultTempo = 120.0

// Score is the internal representation of recognized notation, reduced
// to what rendering and duration need.
type Score struct {
	Title string
	Tempo float64 // quarter notes per minute
	Parts []Part
}

// Part is one instrument line.
type Part struct {
	ID       string
	Measures []Measure
}

// Measure holds the notes of one bar plus its repeat markings.
type Measure struct {
	Notes          []Note
	Quarters       float64 // bar length in quarter notes
	RepeatForward  bool
	RepeatBackward bool
}

// Note is a single sounding note or rest.
type Note struct {
	Key      uint8 // MIDI key number, meaningless for rests
	Rest     bool
	Chord    bool // sounds together with the preceding note
	Quarters float64
}

// MusicXML wire structures, limited to the elements we consume.

type xmlScore struct {
	XMLName xml.Name  `xml:"score-partwise"`
	Work    xmlWork   `xml:"work"`
	Parts   []xmlPart `xml:"part"`
}

type xmlWork struct {
	Title string `xml:"work-title"`
}

type xmlPart struct {
	ID       string       `xml:"id,attr"`
	Measures []xmlMeasure `xml:"measure"`
}

type xmlMeasure struct {
	Attributes []xmlAttributes `xml:"attributes"`
	Directions []xmlDirection  `xml:"direction"`
	Sounds     []xmlSound      `xml:"sound"`
	Barlines   []xmlBarline    `xml:"barline"`
	Notes      []xmlNote       `xml:"note"`
}

type xmlAttributes struct {
	Divisions int `xml:"divisions"`
}

type xmlDirection struct {
	Sound *xmlSound `xml:"sound"`
}

type xmlSound struct {
	Tempo float64 `xml:"tempo,attr"`
}

type xmlBarline struct {
	Repeat *xmlRepeat `xml:"repeat"`
}

type xmlRepeat struct {
	Direction string `xml:"direction,attr"`
}

type xmlNote struct {
	Pitch    *xmlPitch `xml:"pitch"`
	Rest     *struct{} `xml:"rest"`
	Chord    *struct{} `xml:"chord"`
	Duration int       `xml:"duration"`
}

type xmlPitch struct {
	Step   string `xml:"step"`
	Alter  int    `xml:"alter"`
	Octave int    `xml:"octave"`
}

// stepSemitones maps a diatonic step letter to its semitone offset
// within the octave.
var stepSemitones = map[string]int{
	"C": 0, "D": 2, "E": 4, "F": 5, "G": 7, "A": 9, "B": 11,
}

// ParseFile reads a MusicXML file into the internal representation.
func ParseFile(path string) (*Score, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading recognized score %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes score-partwise MusicXML.
func Parse(data []byte) (*Score, error) {
	var doc xmlScore
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding MusicXML: %w", err)
	}
	if len(doc.Parts) == 0 {
		return nil, fmt.Errorf("MusicXML document contains no parts")
	}

	s := &Score{
		Title: doc.Work.Title,
		Tempo: defaultTempo,
	}
	tempoSet := false

	for _, xp := range doc.Parts {
		part := Part{ID: xp.ID}
		divisions := 1 // carried forward until restated

		for _, xm := range xp.Measures {
			for _, attrs := range xm.Attributes {
				if attrs.Divisions > 0 {
					divisions = attrs.Divisions
				}
			}
			// The first tempo marking wins; later changes are ignored.
			if !tempoSet {
				for _, dir := range xm.Directions {
					if dir.Sound != nil && dir.Sound.Tempo > 0 {
						s.Tempo = dir.Sound.Tempo
						tempoSet = true
						break
					}
				}
			}
			if !tempoSet {
				for _, snd := range xm.Sounds {
					if snd.Tempo > 0 {
						s.Tempo = snd.Tempo
						tempoSet = true
						break
					}
				}
			}

			m := Measure{}
			for _, bl := range xm.Barlines {
				if bl.Repeat == nil {
					continue
				}
				switch bl.Repeat.Direction {
				case "forward":
					m.RepeatForward = true
				case "backward":
					m.RepeatBackward = true
				}
			}

			for _, xn := range xm.Notes {
				n := Note{
					Rest:     xn.Rest != nil,
					Chord:    xn.Chord != nil,
					Quarters: float64(xn.Duration) / float64(divisions),
				}
				if !n.Rest {
					if xn.Pitch == nil {
						continue // neither pitch nor rest, skip
					}
					semis, ok := stepSemitones[xn.Pitch.Step]
					if !ok {
						continue
					}
					key := (xn.Pitch.Octave+1)*12 + semis + xn.Pitch.Alter
					if key < 0 || key > 127 {
						continue
					}
					n.Key = uint8(key)
				}
				if !n.Chord {
					m.Quarters += n.Quarters
				}
				m.Notes = append(m.Notes, n)
			}

			part.Measures = append(part.Measures, m)
		}
		s.Parts = append(s.Parts, part)
	}

	return s, nil
}

// ExpandRepeats returns a copy of the score with repeat structures
// unrolled. Expansion is best-effort: on malformed repeat structure it
// returns an error and the caller keeps the unexpanded score.
func (s *Score) ExpandRepeats() (*Score, error) {
	out := &Score{Title: s.Title, Tempo: s.Tempo}
	for _, part := range s.Parts {
		expanded, err := expandMeasures(part.Measures)
		if err != nil {
			return nil, fmt.Errorf("part %s: %w", part.ID, err)
		}
		out.Parts = append(out.Parts, Part{ID: part.ID, Measures: expanded})
	}
	return out, nil
}

func expandMeasures(measures []Measure) ([]Measure, error) {
	var out []Measure
	start := 0 // where the current repeat span began
	open := false

	for i, m := range measures {
		if m.RepeatForward {
			if open {
				return nil, fmt.Errorf("nested repeat at measure %d", i+1)
			}
			start = i
			open = true
		}
		out = append(out, m)
		if m.RepeatBackward {
			// A backward repeat without an opening sign repeats from
			// the start of the piece (or the previous closed span).
			out = append(out, measures[start:i+1]...)
			start = i + 1
			open = false
		}
	}
	return out, nil
}

// DurationSeconds is the playing time of the longest part, rounded to
// whole seconds.
func (s *Score) DurationSeconds() int {
	tempo := s.Tempo
	if tempo <= 0 {
		tempo = defaultTempo
	}

	var longest float64
	for _, part := range s.Parts {
		var quarters float64
		for _, m := range part.Measures {
			quarters += m.Quarters
		}
		if quarters > longest {
			longest = quarters
		}
	}

	secs := longest * 60.0 / tempo
	return int(math.Round(secs))
}
