package vocab

import "vocab-go/internal/model"

// DecayResult is the outcome of ApplyDecay.
type DecayResult struct {
	Items    []model.VocabItem
	Modified bool
}

// ApplyDecay levels review progress within each page of pageSize consecutive
// items. Every item of a page ends up with floor(mean filled) filled slots:
// items above the mean lose their newest marks, items below gain boosts in
// their earliest empty slots. The input slice is not modified.
//
// Running ApplyDecay over its own output reports Modified == false.
func ApplyDecay(items []model.VocabItem, pageSize int) DecayResult {
	out := make([]model.VocabItem, len(items))
	copy(out, items)
	if pageSize < 1 {
		return DecayResult{Items: out}
	}

	modified := false
	for start := 0; start < len(out); start += pageSize {
		end := min(start+pageSize, len(out))
		if levelPage(out[start:end]) {
			modified = true
		}
	}
	return DecayResult{Items: out, Modified: modified}
}

// levelPage rewrites page in place and reports whether any slot changed.
func levelPage(page []model.VocabItem) bool {
	if len(page) == 0 {
		return false
	}

	total := 0
	for i := range page {
		total += page[i].States.Filled()
	}
	avg := total / len(page)

	changed := false
	for i := range page {
		filled := page[i].States.Filled()
		switch {
		case filled > avg:
			clearNewest(&page[i].States, filled-avg)
			changed = true
		case filled < avg:
			boostEarliest(&page[i].States, avg-filled)
			changed = true
		}
	}
	return changed
}

func clearNewest(s *model.States, n int) {
	for i := len(s) - 1; i >= 0 && n > 0; i-- {
		if s[i] == model.StateNone || s[i] == "" {
			continue
		}
		s[i] = model.StateNone
		n--
	}
}

func boostEarliest(s *model.States, n int) {
	for i := 0; i < len(s) && n > 0; i++ {
		if s[i] != model.StateNone && s[i] != "" {
			continue
		}
		s[i] = model.StateBoost
		n--
	}
}
