package models

// CandidateWord is a concrete word instance eligible to fill a slot
type CandidateWord struct {
	ID        string         `json:"id" yaml:"id"`
	Text      string         `json:"text" yaml:"text"`
	Lemma     string         `json:"lemma,omitempty" yaml:"lemma,omitempty"`
	POS       []string       `json:"pos" yaml:"pos"`
	Frequency map[string]int `json:"frequency,omitempty" yaml:"frequency,omitempty"`
}

// BaseLemma returns the lemma, or the surface text when no lemma is known
func (w CandidateWord) BaseLemma() string {
	if w.Lemma != "" {
		return w.Lemma
	}
	return w.Text
}

// LogEntry records one strategy invocation when strategy logging is enabled
type LogEntry struct {
	Seq       int                    `json:"seq"`
	Operation string                 `json:"operation"`
	Inputs    map[string]interface{} `json:"inputs,omitempty"`
	Result    interface{}            `json:"result,omitempty"`
}
