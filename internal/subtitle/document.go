package subtitle

import "fmt"

// ErrCueNotFound is returned when no cue carries the requested sequence number.
var ErrCueNotFound = fmt.Errorf("cue not found")

// Find returns the position of the first cue with the given sequence number.
func (d *Document) Find(index int) (int, bool) {
	for i := range d.Cues {
		if d.Cues[i].Index == index {
			return i, true
		}
	}
	return -1, false
}

// Cue returns a copy of the first cue with the given sequence number.
func (d *Document) Cue(index int) (Cue, bool) {
	pos, ok := d.Find(index)
	if !ok {
		return Cue{}, false
	}
	return d.Cues[pos], true
}

// SetField replaces one field of the first cue numbered index.
// Cues are never inserted, removed or reordered.
func (d *Document) SetField(index int, field Field, value string) (Cue, error) {
	pos, ok := d.Find(index)
	if !ok {
		return Cue{}, fmt.Errorf("%w: %d", ErrCueNotFound, index)
	}

	cue := &d.Cues[pos]
	switch field {
	case FieldText:
		cue.Text = value
	case FieldStartTime:
		cue.StartTime = value
	case FieldEndTime:
		cue.EndTime = value
	default:
		return Cue{}, fmt.Errorf("unknown cue field %q", field)
	}
	return *cue, nil
}

// Text serializes the document's cues.
func (d *Document) Text() string {
	return Serialize(d.Cues)
}

// Clone returns a deep copy safe to read while the original is edited.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	ret := *d
	ret.Cues = make([]Cue, len(d.Cues))
	copy(ret.Cues, d.Cues)
	return &ret
}
