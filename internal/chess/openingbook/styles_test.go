package openingbook

import (
	"strings"
	"testing"
)

const stylesJSON = `{
  "groups": [
    {"key": "sharp", "label": "Sharp", "entries": [{"eco": "b20", "title": "Sicilian"}, {"eco": "C57"}]},
    {"key": "solid", "label": "Solid", "entries": [{"eco": " D30 "}, {"eco": "B20"}]},
    {"key": "empty", "label": "Empty", "entries": [{"eco": ""}]}
  ]
}`

func TestStylesForECO(t *testing.T) {
	styles, err := LoadStyles(strings.NewReader(stylesJSON))
	if err != nil {
		t.Fatalf("LoadStyles: %v", err)
	}
	groups := styles.ForECO("B20")
	if len(groups) != 2 || groups[0].Key != "sharp" || groups[1].Key != "solid" {
		t.Fatalf("groups = %+v", groups)
	}
	if got := styles.ForECO("d30"); len(got) != 1 || got[0].Label != "Solid" {
		t.Fatalf("d30 groups = %+v", got)
	}
	if g, ok := styles.FindByKey("SHARP"); !ok || len(g.Entries) != 2 {
		t.Fatalf("FindByKey = %+v (%v)", g, ok)
	}
	if g, _ := styles.FindByKey("empty"); len(g.Entries) != 0 {
		t.Fatalf("blank eco entries should be dropped")
	}
}

func TestStylesRejectsMissingKey(t *testing.T) {
	if _, err := NewStyles([]StyleGroup{{Label: "x"}}); err == nil {
		t.Fatalf("expected error for group without key")
	}
}
