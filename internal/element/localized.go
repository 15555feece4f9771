package element

import (
	"sort"

	"golang.org/x/text/language"
)

// Localized holds the per-culture texts of a culture-sensitive property
type Localized struct {
	DefaultCulture string            `json:"default_culture,omitempty" yaml:"default_culture,omitempty"`
	Texts          map[string]string `json:"texts,omitempty" yaml:"texts,omitempty"`
}

// NewLocalized creates a localized value holding text for the default culture
func NewLocalized(defaultCulture, text string) Localized {
	return Localized{
		DefaultCulture: defaultCulture,
		Texts:          map[string]string{defaultCulture: text},
	}
}

// With returns a copy with the text for culture replaced
func (l Localized) With(culture, text string) Localized {
	out := Localized{DefaultCulture: l.DefaultCulture, Texts: make(map[string]string, len(l.Texts)+1)}
	for k, v := range l.Texts {
		out.Texts[k] = v
	}
	out.Texts[culture] = text
	if out.DefaultCulture == "" {
		out.DefaultCulture = culture
	}
	return out
}

// IsEmpty reports whether no culture carries text
func (l Localized) IsEmpty() bool {
	for _, t := range l.Texts {
		if t != "" {
			return false
		}
	}
	return true
}

// Cultures lists the culture codes, default culture first, others sorted
func (l Localized) Cultures() []string {
	out := make([]string, 0, len(l.Texts))
	for c := range l.Texts {
		if c != l.DefaultCulture {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	if _, ok := l.Texts[l.DefaultCulture]; ok {
		out = append([]string{l.DefaultCulture}, out...)
	}
	return out
}

// Text selects the text for culture: exact code, then the closest language
// match, then the default culture
func (l Localized) Text(culture string) string {
	if t, ok := l.Texts[culture]; ok {
		return t
	}
	if match := MatchCulture(culture, l.Cultures()); match != "" {
		return l.Texts[match]
	}
	return l.Texts[l.DefaultCulture]
}

// MatchCulture picks the available culture code that best serves the
// requested one. It returns "" when nothing matches.
func MatchCulture(requested string, available []string) string {
	if requested == "" || len(available) == 0 {
		return ""
	}
	want, err := language.Parse(requested)
	if err != nil {
		return ""
	}

	tags := make([]language.Tag, 0, len(available))
	codes := make([]string, 0, len(available))
	for _, code := range available {
		tag, err := language.Parse(code)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		codes = append(codes, code)
	}
	if len(tags) == 0 {
		return ""
	}

	_, idx, conf := language.NewMatcher(tags).Match(want)
	if conf == language.No {
		return ""
	}
	return codes[idx]
}
