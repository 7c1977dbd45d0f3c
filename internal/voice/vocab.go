package voice

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	yaml "gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFiles embed.FS

const DefaultLocale = "ko"

// Vocabulary is the locale data the resolver matches against.
type Vocabulary struct {
	Numerals   map[string]int    `yaml:"numerals"`
	Ten        string            `yaml:"ten"`
	Letters    map[string]string `yaml:"letters"`
	Homophones map[string]int    `yaml:"homophones"`
	Markers    struct {
		Row string `yaml:"row"`
		Col string `yaml:"col"`
	} `yaml:"markers"`

	// letter names, longest first
	letterOrder []string
}

// LoadVocabulary reads the embedded locale file, then merges <dir>/<locale>.yaml
// over it when dir is set and the file exists.
func LoadVocabulary(locale, overrideDir string) (*Vocabulary, error) {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		locale = DefaultLocale
	}
	v := &Vocabulary{}
	raw, err := fs.ReadFile(localeFiles, "locales/"+locale+".yaml")
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, v); err != nil {
			return nil, fmt.Errorf("parse embedded locale %s: %w", locale, err)
		}
	case errors.Is(err, fs.ErrNotExist) && strings.TrimSpace(overrideDir) != "":
		// override-only locale
	default:
		return nil, fmt.Errorf("read embedded locale %s: %w", locale, err)
	}

	if dir := strings.TrimSpace(overrideDir); dir != "" {
		b, err := os.ReadFile(filepath.Join(dir, locale+".yaml"))
		switch {
		case err == nil:
			var over Vocabulary
			if err := yaml.Unmarshal(b, &over); err != nil {
				return nil, fmt.Errorf("parse locale override %s: %w", locale, err)
			}
			v.merge(&over)
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("read locale override %s: %w", locale, err)
		}
	}

	if err := v.validate(); err != nil {
		return nil, fmt.Errorf("locale %s: %w", locale, err)
	}
	v.index()
	return v, nil
}

func (v *Vocabulary) merge(o *Vocabulary) {
	if v.Numerals == nil {
		v.Numerals = map[string]int{}
	}
	if v.Letters == nil {
		v.Letters = map[string]string{}
	}
	if v.Homophones == nil {
		v.Homophones = map[string]int{}
	}
	for k, n := range o.Numerals {
		v.Numerals[k] = n
	}
	for k, l := range o.Letters {
		v.Letters[k] = l
	}
	for k, n := range o.Homophones {
		v.Homophones[strings.ToUpper(k)] = n
	}
	if o.Ten != "" {
		v.Ten = o.Ten
	}
	if o.Markers.Row != "" {
		v.Markers.Row = o.Markers.Row
	}
	if o.Markers.Col != "" {
		v.Markers.Col = o.Markers.Col
	}
}

func (v *Vocabulary) validate() error {
	if v.Markers.Row == "" || v.Markers.Col == "" {
		return errors.New("row/col markers required")
	}
	for word, n := range v.Numerals {
		if n < 1 || n > 9 {
			return fmt.Errorf("numeral %q out of 1..9: %d", word, n)
		}
	}
	for name, l := range v.Letters {
		if utf8.RuneCountInString(l) != 1 || l[0] < 'A' || l[0] > 'Z' {
			return fmt.Errorf("letter name %q maps to %q, want A..Z", name, l)
		}
	}
	return nil
}

func (v *Vocabulary) index() {
	v.letterOrder = make([]string, 0, len(v.Letters))
	for name := range v.Letters {
		v.letterOrder = append(v.letterOrder, name)
	}
	sort.Slice(v.letterOrder, func(i, j int) bool {
		a, b := v.letterOrder[i], v.letterOrder[j]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})
}

// Number parses arabic digits, a numeral word, the ten word alone, or
// ten followed by a numeral word (10+N).
func (v *Vocabulary) Number(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	if n, ok := parseDigits(s); ok {
		return n, true
	}
	if v.Ten != "" && strings.HasPrefix(s, v.Ten) {
		tail := strings.TrimPrefix(s, v.Ten)
		if tail == "" {
			return 10, true
		}
		if n, ok := v.Numerals[tail]; ok {
			return 10 + n, true
		}
		return 0, false
	}
	n, ok := v.Numerals[s]
	return n, ok
}

func parseDigits(s string) (int, bool) {
	if s == "" || len(s) > 3 {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
		n = n*10 + int(s[i]-'0')
	}
	return n, true
}
