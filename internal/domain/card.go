package domain

// Card is the content of one flashcard as written in a deck file.
// Its scheduling state lives separately, keyed by Hash.
type Card struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Context   string `json:"context,omitempty"`
	Hash      string `json:"hash"`
	Suspended bool   `json:"-"` // set by a "!suspend" line; the schedule carries the live flag
}
