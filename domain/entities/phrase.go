package entities

// Phrase is a single prompt the participant is asked to read aloud.
type Phrase struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category,omitempty"`
	Priority bool   `json:"priority"`
}
