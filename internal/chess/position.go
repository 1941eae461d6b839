package chess

import (
	"errors"
	"fmt"
	"strings"

	chesslib "github.com/corentings/chess/v2"
)

var ErrInvalidFEN = errors.New("invalid fen")

func parsePosition(fen string) (*chesslib.Game, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidFEN)
	}
	if fen == "startpos" {
		return chesslib.NewGame(), nil
	}
	if len(strings.Fields(fen)) < 4 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFEN, fen)
	}
	option, err := chesslib.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	return chesslib.NewGame(option), nil
}

func ValidateFEN(fen string) error {
	_, err := parsePosition(fen)
	return err
}

// MoveSAN renders a UCI move in standard algebraic notation. It returns ""
// when the move does not apply to the position.
func MoveSAN(fen, move string) string {
	game, err := parsePosition(fen)
	if err != nil || move == "" {
		return ""
	}
	pos := game.Position()
	mv, err := chesslib.UCINotation{}.Decode(pos, move)
	if err != nil {
		return ""
	}
	return chesslib.AlgebraicNotation{}.Encode(pos, mv)
}
