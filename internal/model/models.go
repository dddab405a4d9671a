package model

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// StateSlots is the number of review marks every VocabItem carries.
const StateSlots = 8

// State is one review mark on a VocabItem.
type State string

const (
	StateNone  State = "none"  // unanswered slot
	StateTick  State = "tick"  // answered correctly
	StateCross State = "cross" // answered incorrectly
	StateBoost State = "boost" // inserted by decay to level a page
)

// Valid reports whether s is one of the four known states.
func (s State) Valid() bool {
	switch s {
	case StateNone, StateTick, StateCross, StateBoost:
		return true
	}
	return false
}

// ParseState converts a stored mark into a State. Empty strings are treated
// as StateNone since early clients wrote "" for unanswered slots.
func ParseState(raw string) (State, error) {
	if raw == "" {
		return StateNone, nil
	}
	s := State(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown state %q", raw)
	}
	return s, nil
}

// States is the fixed-size review history of an item.
type States [StateSlots]State

// NewStates returns a States with every slot set to StateNone.
func NewStates() States {
	var s States
	for i := range s {
		s[i] = StateNone
	}
	return s
}

// Filled counts the slots that are not StateNone.
func (s States) Filled() int {
	n := 0
	for _, st := range s {
		if st != StateNone && st != "" {
			n++
		}
	}
	return n
}

// UnmarshalJSON accepts arrays of up to StateSlots entries and pads the rest
// with StateNone. null entries count as StateNone.
func (s *States) UnmarshalJSON(data []byte) error {
	var raw []*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("states: %w", err)
	}
	if len(raw) > StateSlots {
		return fmt.Errorf("states: %d entries, at most %d allowed", len(raw), StateSlots)
	}
	out := NewStates()
	for i, r := range raw {
		if r == nil {
			continue
		}
		st, err := ParseState(*r)
		if err != nil {
			return fmt.Errorf("states[%d]: %w", i, err)
		}
		out[i] = st
	}
	*s = out
	return nil
}

// Timestamp is a point in time stored as RFC 3339. Legacy files stored epoch
// milliseconds; both forms are accepted on read.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t in UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			t.Time = time.Time{}
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("timestamp: %w", err)
		}
		t.Time = parsed.UTC()
		return nil
	}
	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	t.Time = time.UnixMilli(ms).UTC()
	return nil
}

// VocabItem is one flashcard in a course.
type VocabItem struct {
	ID          string    `json:"id" validate:"required,max=128"`
	Word        string    `json:"word" validate:"required,max=500"`
	Answer      string    `json:"answer" validate:"max=2000"`
	States      States    `json:"states" validate:"dive,vocabstate"`
	LastUpdated Timestamp `json:"lastUpdated"`
}

// Course is one entry of a user's course index. Filename is the identity and
// names the vocab file holding the course content.
type Course struct {
	Filename string `json:"filename" validate:"required,max=140"`
	Name     string `json:"name" validate:"required,max=100"`
	PageSize int    `json:"pageSize" validate:"min=0,max=100"`
	Order    int    `json:"order"`
}

// MaintenanceState records when per-user maintenance last ran.
type MaintenanceState struct {
	LastDecay            string `json:"lastDecay"`            // YYYY-MM-DD, empty if never
	LastAutoSnapshotWeek int64  `json:"lastAutoSnapshotWeek"` // epoch weeks, 0 if never
}

// Snapshot is an immutable bundle of a user's course index and content.
type Snapshot struct {
	ID         string                 `json:"id"`
	Date       string                 `json:"date"`
	CreatedAt  time.Time              `json:"createdAt"`
	Note       string                 `json:"note"`
	Courses    []Course               `json:"courses"`
	VocabFiles map[string][]VocabItem `json:"vocabFiles"`
}

// Info returns the lightweight metadata view of s.
func (s *Snapshot) Info() SnapshotInfo {
	return SnapshotInfo{
		ID:          s.ID,
		Date:        s.Date,
		CreatedAt:   s.CreatedAt,
		Note:        s.Note,
		CourseCount: len(s.Courses),
	}
}

// SnapshotInfo is what listing and creation return; never the payload.
type SnapshotInfo struct {
	ID          string    `json:"id"`
	Date        string    `json:"date"`
	CreatedAt   time.Time `json:"createdAt"`
	Note        string    `json:"note"`
	CourseCount int       `json:"courseCount"`
	Sealed      bool      `json:"sealed,omitempty"` // encrypted and not readable in this session
}

// Normalize rewrites empty slots to StateNone.
func (s *States) Normalize() {
	for i := range s {
		if s[i] == "" {
			s[i] = StateNone
		}
	}
}
