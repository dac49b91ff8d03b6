package position

import (
	"errors"
	"strings"
	"testing"
)

func TestApplyLegalMove(t *testing.T) {
	next, ended, err := Apply(Start, "e2", "e4", "")
	if err != nil {
		t.Fatalf("Apply e2e4: %v", err)
	}
	if ended {
		t.Fatalf("e2e4 should not end the game")
	}
	if next == Start {
		t.Fatalf("position did not advance")
	}
	if !strings.Contains(next, " b ") {
		t.Fatalf("expected black to move, got %q", next)
	}
}

func TestApplyIllegalMove(t *testing.T) {
	_, _, err := Apply(Start, "e2", "e5", "")
	if !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
}

func TestApplyBadSquares(t *testing.T) {
	if _, _, err := Apply(Start, "e2", "", ""); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove for short move, got %v", err)
	}
}

func TestValidateFEN(t *testing.T) {
	if err := Validate(Start); err != nil {
		t.Fatalf("start position should validate: %v", err)
	}
	if err := Validate("not a position"); err == nil {
		t.Fatalf("expected error for garbage FEN")
	}
	if _, _, err := Apply("not a position", "e2", "e4", ""); err == nil {
		t.Fatalf("expected error applying on garbage FEN")
	}
}

func TestApplyPromotion(t *testing.T) {
	const fen = "8/P6k/8/8/8/8/8/K7 w - - 0 1"

	next, _, err := Apply(fen, "a7", "a8", "")
	if err != nil {
		t.Fatalf("Apply promotion default: %v", err)
	}
	if !strings.HasPrefix(next, "Q") {
		t.Fatalf("expected queen promotion by default, got %q", next)
	}

	next, _, err = Apply(fen, "a7", "a8", PromoteKnight)
	if err != nil {
		t.Fatalf("Apply promotion knight: %v", err)
	}
	if !strings.HasPrefix(next, "N") {
		t.Fatalf("expected knight promotion, got %q", next)
	}
}

func TestApplyTerminalOutcome(t *testing.T) {
	// Fool's mate: 1. f3 e5 2. g4 Qh4#
	fen := Start
	for _, mv := range [][2]string{{"f2", "f3"}, {"e7", "e5"}, {"g2", "g4"}} {
		var err error
		var ended bool
		fen, ended, err = Apply(fen, mv[0], mv[1], "")
		if err != nil {
			t.Fatalf("Apply %s%s: %v", mv[0], mv[1], err)
		}
		if ended {
			t.Fatalf("game ended prematurely after %s%s", mv[0], mv[1])
		}
	}
	_, ended, err := Apply(fen, "d8", "h4", "")
	if err != nil {
		t.Fatalf("Apply d8h4: %v", err)
	}
	if !ended {
		t.Fatalf("expected checkmate to end the game")
	}
}
