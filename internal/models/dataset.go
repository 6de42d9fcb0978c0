package models

import "time"

// Dataset is the read-only snapshot fetched once per dashboard session.
type Dataset struct {
	Speakers []SpeakerRecord
	Teams    []TeamRecord
	Judges   []JudgeRecord
	Motions  []MotionRecord
	LoadedAt time.Time
}

// Team returns the team with the given name, or the first team when name is
// empty.
func (d *Dataset) Team(name string) (TeamRecord, bool) {
	if len(d.Teams) == 0 {
		return TeamRecord{}, false
	}
	if name == "" {
		return d.Teams[0], true
	}
	for _, t := range d.Teams {
		if t.Name == name {
			return t, true
		}
	}
	return TeamRecord{}, false
}

// Judge returns the first judge record.
func (d *Dataset) Judge() (JudgeRecord, bool) {
	if len(d.Judges) == 0 {
		return JudgeRecord{}, false
	}
	return d.Judges[0], true
}

// SpeakerByRound returns the first speaker record whose round label matches.
func (d *Dataset) SpeakerByRound(round string) (SpeakerRecord, bool) {
	for _, s := range d.Speakers {
		if s.Round == round {
			return s, true
		}
	}
	return SpeakerRecord{}, false
}

// SpeakerScores returns the recorded scores in array order, skipping records
// without a score.
func (d *Dataset) SpeakerScores() []float64 {
	scores := make([]float64, 0, len(d.Speakers))
	for _, s := range d.Speakers {
		if s.Score != nil {
			scores = append(scores, *s.Score)
		}
	}
	return scores
}
