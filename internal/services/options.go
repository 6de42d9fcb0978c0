package services

import "github.com/latestcomment/tabbycat-dashboard/internal/models"

// Option is one dropdown entry.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// SpeakerRoundOptions returns one option per distinct speaker round label,
// in first-seen order. The option matching selected is marked; an empty
// selected marks the first option.
func SpeakerRoundOptions(speakers []models.SpeakerRecord, selected string) []Option {
	labels := make([]string, 0, len(speakers))
	for _, s := range speakers {
		labels = append(labels, s.Round)
	}
	return distinctOptions(labels, selected)
}

// JudgeRoundOptions returns one option per distinct judged round label, in
// first-seen order.
func JudgeRoundOptions(judge models.JudgeRecord, selected string) []Option {
	labels := make([]string, 0, len(judge.Rounds))
	for _, r := range judge.Rounds {
		labels = append(labels, r.Round)
	}
	return distinctOptions(labels, selected)
}

func distinctOptions(labels []string, selected string) []Option {
	seen := make(map[string]struct{}, len(labels))
	opts := make([]Option, 0, len(labels))
	for _, l := range labels {
		if l == "" {
			continue
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		opts = append(opts, Option{Value: l, Label: l, Selected: l == selected})
	}
	if selected == "" && len(opts) > 0 {
		opts[0].Selected = true
	}
	return opts
}

// DefaultSelection returns the value of the first option, or "".
func DefaultSelection(opts []Option) string {
	if len(opts) == 0 {
		return ""
	}
	return opts[0].Value
}
