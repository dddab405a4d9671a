package vocab

// Metrics receives maintenance outcomes. Storage-level metrics are recorded
// by a Storage decorator instead.
type Metrics interface {
	DecayChecked(run bool, coursesModified int)
	AutoSnapshotChecked(created bool, err error)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) DecayChecked(bool, int)          {}
func (NopMetrics) AutoSnapshotChecked(bool, error) {}
