package traffic

import "errors"

// ErrUnknownCategory is returned by ParseCategory for names outside the taxonomy.
var ErrUnknownCategory = errors.New("unknown traffic category")

// Record is one classified IP conversation, as found in a capture's
// "ip_conversations" summary.
type Record struct {
	Source   string   `json:"source"`
	Target   string   `json:"target"`
	Category Category `json:"category"`
	Packets  int64    `json:"packets"`
	Port     int      `json:"port"`
}

// FilterByCategory returns the records of one category, preserving order.
func FilterByCategory(records []Record, category Category) []Record {
	out := make([]Record, 0)
	for _, r := range records {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out
}
