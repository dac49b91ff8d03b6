package position

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Start is the initial position in FEN.
const Start = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Promotion selects the piece a pawn becomes on the back rank, as the UCI
// suffix character.
type Promotion string

const (
	PromoteQueen  Promotion = "q"
	PromoteRook   Promotion = "r"
	PromoteBishop Promotion = "b"
	PromoteKnight Promotion = "n"
)

var ErrIllegalMove = errors.New("illegal move")

// Validate reports whether fen parses as a position.
func Validate(fen string) error {
	if _, err := nchess.FEN(strings.TrimSpace(fen)); err != nil {
		return fmt.Errorf("invalid position: %w", err)
	}
	return nil
}

// Apply plays the from+to move on the position encoded by fen and returns the
// resulting position plus whether the game reached a terminal outcome. promo
// is only consulted when the plain move is rejected, so non-promoting moves
// never carry a suffix.
func Apply(fen, from, to string, promo Promotion) (next string, ended bool, err error) {
	fenOpt, err := nchess.FEN(strings.TrimSpace(fen))
	if err != nil {
		return "", false, fmt.Errorf("invalid position: %w", err)
	}
	game := nchess.NewGame(fenOpt)
	pos := game.Position()

	uci := strings.ToLower(strings.TrimSpace(from) + strings.TrimSpace(to))
	if len(uci) != 4 {
		return "", false, fmt.Errorf("%w: %q", ErrIllegalMove, uci)
	}
	if promo == "" {
		promo = PromoteQueen
	}

	notation := nchess.UCINotation{}
	mv, derr := notation.Decode(pos, uci)
	if derr != nil {
		mv, derr = notation.Decode(pos, uci+string(promo))
		if derr != nil {
			return "", false, fmt.Errorf("%w: %q", ErrIllegalMove, uci)
		}
	}
	game.Move(mv, nil)

	return game.FEN(), game.Outcome() != nchess.NoOutcome, nil
}
