// Command scout plays one player of a session through the REST API. Every turn
// it orders each stack towards the least visited cell it can reach, then ends
// the turn, and finally reports how much of the map its stacks have covered.
//
// It exercises the movement endpoints end to end against a running server:
//
//	scout --url http://localhost:8080 --config archipelago --turns 20
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/overland/game/engine"
	"github.com/wricardo/overland/logging"
)

// maxAttemptsPerStack bounds how many refused orders a stack may collect in one turn
const maxAttemptsPerStack = 3

var log = logging.Component("scout")

// Options control one exploration run
type Options struct {
	PlayerID int
	Turns    int
	Delay    time.Duration
}

// Report summarizes an exploration run
type Report struct {
	SessionID string
	Turns     int
	Orders    int
	Refused   int
	Visited   int
	Cells     int
}

// Coverage is the visited share of the map
func (r *Report) Coverage() string {
	if r.Cells == 0 {
		return "0%"
	}
	return humanize.FtoaWithDigits(float64(r.Visited)*100/float64(r.Cells), 1) + "%"
}

// explore plays opts.Turns turns of opts.PlayerID in the client's session
func explore(ctx context.Context, client *Client, strategy *ExploreStrategy, opts Options) (*Report, error) {
	session, err := client.GetSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	report := &Report{SessionID: client.sessionID}
	if cfg := session.GameConfig; cfg != nil {
		report.Cells = cfg.Width * cfg.Height * cfg.Planes
	}
	if state := session.GameState; state != nil {
		for _, u := range state.Units {
			if u.OwnerID == opts.PlayerID && u.Alive() {
				strategy.Visit(u.Location)
			}
		}
	}

	for turn := 0; turn < opts.Turns; turn++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		stacks, err := client.Stacks(ctx, opts.PlayerID)
		if err != nil {
			return report, err
		}

		for _, stack := range stacks {
			if stack.Error != "" || stack.DoubledMovementRemaining <= 0 {
				continue
			}
			moved, refused, err := orderStack(ctx, client, strategy, opts.PlayerID, stack.UnitIDs)
			if err != nil {
				return report, err
			}
			report.Refused += refused
			if moved {
				report.Orders++
			}
			if opts.Delay > 0 {
				time.Sleep(opts.Delay)
			}
		}

		state, err := client.EndTurn(ctx)
		if err != nil {
			return report, err
		}
		report.Turns++
		log.WithFields(logrus.Fields{
			"turn":    state.Turn,
			"orders":  report.Orders,
			"visited": strategy.Visited(),
		}).Debug("turn ended")
	}

	report.Visited = strategy.Visited()
	return report, nil
}

// orderStack tries the best candidate cells of a stack until one order is accepted
func orderStack(ctx context.Context, client *Client, strategy *ExploreStrategy, playerID int, unitIDs []int) (bool, int, error) {
	rng, err := client.MovementRange(ctx, playerID, unitIDs)
	if err != nil {
		return false, 0, err
	}

	refused := 0
	for _, target := range strategy.Candidates(rng) {
		if refused == maxAttemptsPerStack {
			break
		}

		result, err := client.Move(ctx, playerID, unitIDs, target)
		if isRejectedOrder(err) {
			refused++
			strategy.Avoid(target)
			log.WithFields(logrus.Fields{"units": unitIDs, "target": target}).WithError(err).Debug("order refused")
			continue
		}
		if err != nil {
			return false, refused, err
		}

		if o := result.Outcome; o != nil {
			for _, step := range o.Path {
				strategy.Visit(step.Coordinate)
			}
			if o.StopReason == engine.StopCombat {
				strategy.Avoid(o.Requested)
			}
		}
		return true, refused, nil
	}
	return false, refused, nil
}

// startSession resumes the session in sessionFile (or the given id) or creates a new one
func startSession(ctx context.Context, client *Client, sessionID, sessionFile, configID string) error {
	if sessionID == "" && sessionFile != "" {
		if data, err := os.ReadFile(sessionFile); err == nil {
			sessionID = strings.TrimSpace(string(data))
		}
	}

	if sessionID != "" {
		client.sessionID = sessionID
		if _, err := client.GetSession(ctx); err == nil {
			log.WithField("session_id", sessionID).Info("🔄 Resuming session")
			return nil
		}
		log.WithField("session_id", sessionID).Warn("Failed to resume session (may be expired), creating a new one")
	}

	session, err := client.CreateSession(ctx, configID)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"session_id": session.ID, "config": session.ConfigName}).Info("✨ Session created")

	if sessionFile != "" {
		if err := os.WriteFile(sessionFile, []byte(session.ID), 0644); err != nil {
			log.WithError(err).Warn("Failed to save session ID")
		}
	}
	return nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	logging.Init(cmd.Bool("verbose"), false)

	client := NewClient(cmd.String("url"))
	log.WithField("url", cmd.String("url")).Info("Connecting to server")

	if err := startSession(ctx, client, cmd.String("session"), cmd.String("session-file"), cmd.String("config")); err != nil {
		return err
	}

	if !cmd.Bool("keep") {
		if _, err := client.Reset(ctx); err != nil {
			return err
		}
	}

	opts := Options{
		PlayerID: int(cmd.Int("player")),
		Turns:    int(cmd.Int("turns")),
		Delay:    cmd.Duration("delay"),
	}
	report, err := explore(ctx, client, NewExploreStrategy(), opts)
	if report == nil || (err != nil && !errors.Is(err, context.Canceled)) {
		return err
	}

	log.WithFields(logrus.Fields{
		"session_id": report.SessionID,
		"turns":      report.Turns,
		"orders":     report.Orders,
		"refused":    report.Refused,
		"visited":    humanize.Comma(int64(report.Visited)),
		"coverage":   report.Coverage(),
	}).Info("Exploration finished")
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "scout",
		Usage: "explore a scenario through the REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "server URL", Sources: cli.EnvVars("OVERLAND_URL")},
			&cli.StringFlag{Name: "config", Usage: "scenario for a new session"},
			&cli.StringFlag{Name: "session", Usage: "resume this session ID"},
			&cli.StringFlag{Name: "session-file", Value: ".session", Usage: "file remembering the session ID between runs"},
			&cli.IntFlag{Name: "player", Value: 1, Usage: "player to control"},
			&cli.IntFlag{Name: "turns", Value: 10, Usage: "turns to play"},
			&cli.DurationFlag{Name: "delay", Usage: "pause between orders"},
			&cli.BoolFlag{Name: "keep", Usage: "continue from the current state instead of resetting"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "debug logging"},
		},
		Action: run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.WithError(err).Fatal("scout failed")
	}
}
