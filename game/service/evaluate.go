package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/overland/game/engine"
)

// EvaluateStacks runs one movement query per stack of the player, in parallel, and
// summarizes each. Every search reads its own clone of the session knowledge.
// A stack whose query fails is reported with its error instead of failing the call.
func (s *gameServiceImpl) EvaluateStacks(ctx context.Context, sessionID string, playerID int) ([]StackEvaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	if !hasPlayer(sess.Engine.Players(), playerID) {
		return nil, fmt.Errorf("%w: %d", engine.ErrPlayerNotFound, playerID)
	}

	stacks := sess.Engine.Stacks(playerID)
	base := sess.Engine.Knowledge()
	evaluations := make([]StackEvaluation, len(stacks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, group := range stacks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			evaluations[i] = evaluateStack(sess.Engine, base.Clone(), playerID, group)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.metrics.stackEvaluations.Add(float64(len(stacks)))
	s.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"player_id":  playerID,
		"stacks":     len(stacks),
	}).Debug("stacks evaluated")

	return evaluations, nil
}

// evaluateStack summarizes the movement options of one stack
func evaluateStack(eng *engine.GameEngine, knowledge *engine.Knowledge, playerID int, group engine.StackGroup) StackEvaluation {
	eval := StackEvaluation{
		Location: group.Location,
		UnitIDs:  group.UnitIDs,
	}

	result, stack, err := eng.CalculateMovementOn(knowledge, playerID, group.UnitIDs)
	if err != nil {
		eval.Error = err.Error()
		return eval
	}

	eval.DoubledMovementRemaining = stack.DoubledMovementRemaining()
	eval.ReachableCount = result.CountReachable()
	eval.ReachableThisTurnCount = result.CountReachableThisTurn()

	rules := engine.NewStandardRules(eng.Database(), knowledge)
	sys := result.System()
	farthest := 0
	for _, entry := range result.Entries() {
		if entry.EdgeKind == engine.EdgeStart || !entry.ReachableThisTurn {
			continue
		}

		attack, err := rules.MoveTriggersAttack(playerID, entry.Coordinate)
		if err != nil {
			eval.Error = err.Error()
			return eval
		}
		if attack {
			eval.CombatTargets = append(eval.CombatTargets, entry.Coordinate)
			continue
		}

		if d := engine.ChebyshevDistance(sys, group.Location, entry.Coordinate); d > farthest {
			farthest = d
			c := entry.Coordinate
			eval.FarthestThisTurn = &c
		}
	}

	return eval
}

func hasPlayer(players []engine.Player, id int) bool {
	for _, p := range players {
		if p.ID == id {
			return true
		}
	}
	return false
}
