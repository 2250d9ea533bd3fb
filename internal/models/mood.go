package models

// Moods is the fixed vocabulary offered by the composer. Users may also pick
// an arbitrary single-word custom mood with its own emoji; custom labels are
// allowed to collide with fixed labels.
var Moods = []struct {
	Label string
	Emoji string
}{
	{"Happy", "😄"},
	{"Calm", "🧘"},
	{"Excited", "🤩"},
	{"Stressed", "😩"},
	{"Lonely", "🥺"},
	{"Overthinking", "🤯"},
}

// MoodEmoji returns the default emoji for a fixed mood label, or empty when
// the label is not part of the fixed vocabulary.
func MoodEmoji(label string) string {
	for _, m := range Moods {
		if m.Label == label {
			return m.Emoji
		}
	}
	return ""
}
