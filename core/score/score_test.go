package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const simpleDoc = `<?xml version="1.0" encoding="UTF-8"?>
<score-partwise version="3.1">
  <work><work-title>Etude</work-title></work>
  <part-list>
    <score-part id="P1"><part-name>Piano</part-name></score-part>
  </part-list>
  <part id="P1">
    <measure number="1">
      <attributes><divisions>2</divisions></attributes>
      <direction><sound tempo="60"/></direction>
      <note><pitch><step>C</step><octave>4</octave></pitch><duration>2</duration></note>
      <note><pitch><step>E</step><octave>4</octave></pitch><duration>2</duration></note>
    </measure>
    <measure number="2">
      <note><pitch><step>G</step><octave>4</octave></pitch><duration>2</duration></note>
      <note><rest/><duration>2</duration></note>
    </measure>
  </part>
</score-partwise>`

func TestParse_SimpleScore(t *testing.T) {
	s, err := Parse([]byte(simpleDoc))
	require.NoError(t, err)

	assert.Equal(t, "Etude", s.Title)
	assert.Equal(t, 60.0, s.Tempo)
	require.Len(t, s.Parts, 1)
	require.Len(t, s.Parts[0].Measures, 2)

	m1 := s.Parts[0].Measures[0]
	require.Len(t, m1.Notes, 2)
	assert.Equal(t, uint8(60), m1.Notes[0].Key) // C4
	assert.Equal(t, uint8(64), m1.Notes[1].Key) // E4
	assert.Equal(t, 2.0, m1.Quarters)

	m2 := s.Parts[0].Measures[1]
	require.Len(t, m2.Notes, 2)
	assert.True(t, m2.Notes[1].Rest)
	assert.Equal(t, 2.0, m2.Quarters)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("not xml at all <<<"))
	assert.Error(t, err)

	_, err = Parse([]byte(`<?xml version="1.0"?><score-partwise version="3.1"></score-partwise>`))
	assert.Error(t, err, "a document without parts is unusable")
}

func TestParse_FirstTempoMarkingWins(t *testing.T) {
	// An explicit marking equal to the fallback tempo still locks in;
	// later markings must not override it.
	const doc = `<?xml version="1.0" encoding="UTF-8"?>
<score-partwise version="3.1">
  <part id="P1">
    <measure number="1">
      <attributes><divisions>1</divisions></attributes>
      <direction><sound tempo="120"/></direction>
      <note><pitch><step>C</step><octave>4</octave></pitch><duration>1</duration></note>
    </measure>
    <measure number="2">
      <direction><sound tempo="90"/></direction>
      <note><pitch><step>D</step><octave>4</octave></pitch><duration>1</duration></note>
    </measure>
  </part>
</score-partwise>`

	s, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, 120.0, s.Tempo)
}

func TestDurationSeconds(t *testing.T) {
	s, err := Parse([]byte(simpleDoc))
	require.NoError(t, err)

	// 4 quarter notes at 60 BPM.
	assert.Equal(t, 4, s.DurationSeconds())
}

const repeatDoc = `<?xml version="1.0" encoding="UTF-8"?>
<score-partwise version="3.1">
  <part id="P1">
    <measure number="1">
      <attributes><divisions>1</divisions></attributes>
      <barline location="left"><repeat direction="forward"/></barline>
      <note><pitch><step>C</step><octave>4</octave></pitch><duration>1</duration></note>
    </measure>
    <measure number="2">
      <barline location="right"><repeat direction="backward"/></barline>
      <note><pitch><step>D</step><octave>4</octave></pitch><duration>1</duration></note>
    </measure>
    <measure number="3">
      <note><pitch><step>E</step><octave>4</octave></pitch><duration>1</duration></note>
    </measure>
  </part>
</score-partwise>`

func TestExpandRepeats(t *testing.T) {
	s, err := Parse([]byte(repeatDoc))
	require.NoError(t, err)
	require.Len(t, s.Parts[0].Measures, 3)

	expanded, err := s.ExpandRepeats()
	require.NoError(t, err)

	// Measures 1-2 play twice, measure 3 once.
	assert.Len(t, expanded.Parts[0].Measures, 5)

	// The original score is untouched.
	assert.Len(t, s.Parts[0].Measures, 3)
}

func TestExpandRepeats_BackwardWithoutForward(t *testing.T) {
	measures := []Measure{
		{Quarters: 1},
		{Quarters: 1, RepeatBackward: true},
		{Quarters: 1},
	}

	out, err := expandMeasures(measures)
	require.NoError(t, err)
	// Repeats from the start of the piece.
	assert.Len(t, out, 5)
}

func TestExpandRepeats_MalformedNesting(t *testing.T) {
	measures := []Measure{
		{RepeatForward: true},
		{RepeatForward: true},
		{RepeatBackward: true},
	}

	_, err := expandMeasures(measures)
	assert.Error(t, err)
}

func TestRenderMIDI_WritesFile(t *testing.T) {
	s, err := Parse([]byte(simpleDoc))
	require.NoError(t, err)

	path := t.TempDir() + "/out.mid"
	require.NoError(t, RenderMIDI(s, path))
	assert.FileExists(t, path)
}

func TestRenderMIDI_EmptyScore(t *testing.T) {
	err := RenderMIDI(&Score{Tempo: 120}, t.TempDir()+"/out.mid")
	assert.ErrorIs(t, err, ErrRenderFailed)
}
