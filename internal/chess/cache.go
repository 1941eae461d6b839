package chess

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/park285/cheese-engine-bridge/internal/chess/openingbook"
)

// AnalysisCache stores finished analyses. Implementations must treat every
// failure as a miss from the caller's point of view.
type AnalysisCache interface {
	Get(ctx context.Context, key string) (AnalyzeResult, bool, error)
	Set(ctx context.Context, key string, res AnalyzeResult) error
}

// analysisCacheKey identifies a deterministic analysis. The full FEN is
// hashed in because move counters can change engine output near the
// fifty-move horizon.
func analysisCacheKey(fen string, moveTimeMs, multiPV, depth, rating int) string {
	sum := sha1.Sum([]byte(strings.TrimSpace(fen)))
	var b strings.Builder
	b.WriteString(openingbook.NormalizeKey(fen))
	b.WriteString("|")
	b.WriteString(hex.EncodeToString(sum[:8]))
	b.WriteString("|mt=")
	b.WriteString(strconv.Itoa(moveTimeMs))
	b.WriteString("|pv=")
	b.WriteString(strconv.Itoa(multiPV))
	b.WriteString("|d=")
	b.WriteString(strconv.Itoa(depth))
	b.WriteString("|elo=")
	b.WriteString(strconv.Itoa(rating))
	return b.String()
}
