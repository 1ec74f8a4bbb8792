package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrRecordNotFound means a terrain, feature, unit, skill or spell id is missing from the database
	ErrRecordNotFound = errors.New("record not found")

	// ErrPlayerNotFound means a unit owner could not be resolved in the player roster
	ErrPlayerNotFound = errors.New("player not found")

	// ErrInvalidStack means the unit stack input is structurally invalid
	ErrInvalidStack = errors.New("invalid unit stack")

	// ErrInvalidQuery means the query or its environment is incomplete or inconsistent
	ErrInvalidQuery = errors.New("invalid movement query")

	// ErrUnreachable means an order targets a cell the stack cannot reach
	ErrUnreachable = errors.New("destination unreachable")

	// ErrNoMovementLeft means the stack has no movement remaining this turn
	ErrNoMovementLeft = errors.New("no movement left")
)

func recordNotFound(kind, id string) error {
	return fmt.Errorf("%w: %s %q", ErrRecordNotFound, kind, id)
}

func playerNotFound(playerID, unitID int) error {
	return fmt.Errorf("%w: player %d owning unit %d", ErrPlayerNotFound, playerID, unitID)
}

func invalidStack(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidStack, fmt.Sprintf(format, args...))
}
