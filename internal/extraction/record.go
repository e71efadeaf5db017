// Package extraction turns OCR text into a structured event draft by asking a
// generative model for a fixed-schema JSON object.
package extraction

import (
	"encoding/json"
	"regexp"
)

// Fields are the keys of every Record, in prompt order.
var Fields = []string{"title", "date", "time", "place", "capacity", "description", "age_limit", "event_type"}

// Record holds exactly the keys in Fields. Values are whatever the model
// produced and are not validated; absent values are nil.
type Record map[string]any

func EmptyRecord() Record {
	r := make(Record, len(Fields))
	for _, f := range Fields {
		r[f] = nil
	}
	return r
}

// IsEmpty reports whether every field is nil.
func (r Record) IsEmpty() bool {
	for _, f := range Fields {
		if r[f] != nil {
			return false
		}
	}
	return true
}

// greedy: first '{' to last '}'
var jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)

// ParseResponse pulls the JSON object out of raw model output. ok is false when
// no object could be decoded, in which case the all-null record is returned.
func ParseResponse(raw string) (rec Record, ok bool) {
	match := jsonObjectRe.FindString(raw)
	if match == "" {
		return EmptyRecord(), false
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(match), &decoded); err != nil {
		return EmptyRecord(), false
	}

	rec = EmptyRecord()
	for _, f := range Fields {
		if v, present := decoded[f]; present {
			rec[f] = v
		}
	}
	return rec, true
}
