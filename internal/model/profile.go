package model

import "encoding/json"

// Profile dimension names recognized by strategy matching. Anything else
// supplied by callers is dropped, never mis-parsed.
const (
	DimTechLiteracy        = "tech_literacy"
	DimLanguageProficiency = "language_proficiency"
	DimEmotionalState      = "emotional_state"
)

// Dimension is one profile axis with a discrete level, e.g. {"level":"low"}.
type Dimension struct {
	Level string `json:"level"`
}

// Profile is a partial user profile. Absent dimensions are wildcards.
type Profile struct {
	TechLiteracy        *Dimension `json:"tech_literacy,omitempty"`
	LanguageProficiency *Dimension `json:"language_proficiency,omitempty"`
	EmotionalState      *Dimension `json:"emotional_state,omitempty"`
}

// ParseProfile decodes a JSON profile document, keeping only recognized
// dimensions that carry a non-empty "level". The names of dimensions that
// were present but dropped (unrecognized, malformed, or missing a level)
// are returned so callers can warn about them.
func ParseProfile(raw []byte) (Profile, []string) {
	var p Profile
	var dropped []string
	if len(raw) == 0 {
		return p, nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return p, []string{"<malformed profile document>"}
	}

	parseDim := func(name string, dst **Dimension) {
		rawDim, ok := doc[name]
		if !ok {
			return
		}
		delete(doc, name)
		var d Dimension
		if err := json.Unmarshal(rawDim, &d); err != nil || d.Level == "" {
			dropped = append(dropped, name)
			return
		}
		*dst = &d
	}

	parseDim(DimTechLiteracy, &p.TechLiteracy)
	parseDim(DimLanguageProficiency, &p.LanguageProficiency)
	parseDim(DimEmotionalState, &p.EmotionalState)

	for name := range doc {
		dropped = append(dropped, name)
	}
	return p, dropped
}

// Matches reports whether a stored strategy profile applies to a query
// profile: every dimension present on both sides must have equal levels,
// and a dimension absent on either side always matches.
func (p Profile) Matches(query Profile) bool {
	eq := func(a, b *Dimension) bool {
		if a == nil || b == nil {
			return true
		}
		return a.Level == b.Level
	}
	return eq(p.TechLiteracy, query.TechLiteracy) &&
		eq(p.LanguageProficiency, query.LanguageProficiency) &&
		eq(p.EmotionalState, query.EmotionalState)
}

// IsEmpty reports whether no dimension is set.
func (p Profile) IsEmpty() bool {
	return p.TechLiteracy == nil && p.LanguageProficiency == nil && p.EmotionalState == nil
}
