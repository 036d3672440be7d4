package models

// AttachedFile is the staged attachment slot. At most one file may be
// staged at a time; the slot is cleared when the user removes it, when a
// send begins, or when the active conversation changes. Only the extracted
// text ever travels to the backend — the raw file does not.
type AttachedFile struct {
	Name          string
	TypeLabel     string
	SizeBytes     int64
	ExtractedText string
	Truncated     bool
}
