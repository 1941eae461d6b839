package openingbook

import (
	"strconv"
	"strings"
)

// NormalizeKey reduces a FEN to placement, side to move and castling rights.
// The en-passant square and both move counters are dropped so transpositions
// share one key. It returns "" when fen has fewer than three fields.
func NormalizeKey(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) < 3 {
		return ""
	}
	return strings.Join(fields[:3], " ")
}

// FullMoveNumber reads the sixth FEN field. Positions without counters are
// treated as move 1.
func FullMoveNumber(fen string) int {
	fields := strings.Fields(fen)
	if len(fields) < 6 {
		return 1
	}
	n, err := strconv.Atoi(fields[5])
	if err != nil || n < 1 {
		return 1
	}
	return n
}
