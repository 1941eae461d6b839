package openingbook

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

type StyleEntry struct {
	ECO   string `json:"eco"`
	Title string `json:"title"`
}

type StyleGroup struct {
	Key         string       `json:"key"`
	Label       string       `json:"label"`
	Description string       `json:"description"`
	Entries     []StyleEntry `json:"entries"`
}

type stylesFile struct {
	Groups []StyleGroup `json:"groups"`
}

type Styles struct {
	groups []StyleGroup
	byKey  map[string]int
	byECO  map[string][]int
}

func LoadStyles(r io.Reader) (*Styles, error) {
	var payload stylesFile
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode style catalog: %w", err)
	}
	return NewStyles(payload.Groups)
}

func LoadStylesFile(path string) (*Styles, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("style catalog path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open style catalog %q: %w", path, err)
	}
	defer file.Close()

	s, err := LoadStyles(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func NewStyles(groups []StyleGroup) (*Styles, error) {
	s := &Styles{
		groups: make([]StyleGroup, 0, len(groups)),
		byKey:  make(map[string]int, len(groups)),
		byECO:  make(map[string][]int),
	}
	for _, group := range groups {
		key := strings.TrimSpace(group.Key)
		if key == "" {
			return nil, fmt.Errorf("style catalog group missing key")
		}
		g := StyleGroup{
			Key:         key,
			Label:       strings.TrimSpace(group.Label),
			Description: strings.TrimSpace(group.Description),
			Entries:     make([]StyleEntry, 0, len(group.Entries)),
		}
		idx := len(s.groups)
		for _, entry := range group.Entries {
			eco := normalizeECOCode(entry.ECO)
			if eco == "" {
				continue
			}
			g.Entries = append(g.Entries, StyleEntry{ECO: eco, Title: strings.TrimSpace(entry.Title)})
			s.byECO[eco] = append(s.byECO[eco], idx)
		}
		s.groups = append(s.groups, g)
		if token := normalizeToken(key); token != "" {
			s.byKey[token] = idx
		}
	}
	return s, nil
}

func (s *Styles) Groups() []StyleGroup {
	if s == nil {
		return nil
	}
	out := make([]StyleGroup, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g.clone())
	}
	return out
}

func (s *Styles) FindByKey(key string) (StyleGroup, bool) {
	if s == nil {
		return StyleGroup{}, false
	}
	idx, ok := s.byKey[normalizeToken(key)]
	if !ok {
		return StyleGroup{}, false
	}
	return s.groups[idx].clone(), true
}

func (s *Styles) ForECO(eco string) []StyleGroup {
	if s == nil {
		return nil
	}
	idxs := s.byECO[normalizeECOCode(eco)]
	if len(idxs) == 0 {
		return nil
	}
	out := make([]StyleGroup, 0, len(idxs))
	seen := make(map[int]bool, len(idxs))
	for _, idx := range idxs {
		if seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, s.groups[idx].clone())
	}
	return out
}

func (g StyleGroup) clone() StyleGroup {
	g.Entries = append([]StyleEntry(nil), g.Entries...)
	return g
}
