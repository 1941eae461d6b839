package openingbook

import (
	"strings"
	"sync"

	"github.com/corentings/chess/v2/opening"
)

type Opening struct {
	ECO   string `json:"eco"`
	Title string `json:"title"`
	PGN   string `json:"pgn,omitempty"`
	plies int
}

var (
	ecoOnce  sync.Once
	ecoIndex map[string]Opening
)

// loadECOIndex indexes every named ECO line by the normalized key of its
// final position so a bare FEN can be identified regardless of move order.
func loadECOIndex() map[string]Opening {
	ecoOnce.Do(func() {
		ecoIndex = make(map[string]Opening)
		book := opening.NewBookECO()
		if book == nil {
			return
		}
		for _, o := range book.Possible(nil) {
			if o == nil {
				continue
			}
			game := o.Game()
			if game == nil {
				continue
			}
			key := NormalizeKey(game.FEN())
			if key == "" {
				continue
			}
			entry := Opening{ECO: o.Code(), Title: o.Title(), PGN: o.PGN(), plies: len(game.Moves())}
			// the longest line reaching a position carries the most specific name
			if prev, ok := ecoIndex[key]; ok && prev.plies >= entry.plies {
				continue
			}
			ecoIndex[key] = entry
		}
	})
	return ecoIndex
}

func IdentifyECO(fen string) (Opening, bool) {
	key := NormalizeKey(fen)
	if key == "" {
		return Opening{}, false
	}
	o, ok := loadECOIndex()[key]
	return o, ok
}

func normalizeECOCode(code string) string {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range trimmed {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeToken(s string) string {
	trimmed := strings.ToLower(strings.TrimSpace(s))
	if trimmed == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range trimmed {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
