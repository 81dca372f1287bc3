// Package handlers implements the telnet roll session: a line-oriented
// command loop over a telnet.Conn that rolls dice, explains results and
// lists macros.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/diceroll/internal/command"
	"github.com/cory-johannsen/diceroll/internal/dice"
	"github.com/cory-johannsen/diceroll/internal/frontend/telnet"
	"github.com/cory-johannsen/diceroll/internal/macro"
	"github.com/cory-johannsen/diceroll/internal/observability"
)

// Banner greets a new session.
const Banner = "Dice roller ready. Type help for commands."

// RollHandler serves telnet roll sessions.
// It implements telnet.SessionHandler.
type RollHandler struct {
	roller   *dice.Roller
	macros   *macro.Registry
	commands *command.Registry
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewRollHandler creates a RollHandler.
//
// Precondition: roller, macros and logger must be non-nil. metrics may be nil.
// Postcondition: Returns a RollHandler using the default command registry.
func NewRollHandler(roller *dice.Roller, macros *macro.Registry, metrics *observability.Metrics, logger *zap.Logger) *RollHandler {
	return &RollHandler{
		roller:   roller,
		macros:   macros,
		commands: command.DefaultRegistry(),
		metrics:  metrics,
		logger:   logger,
	}
}

// HandleSession runs the command loop until the client quits, the
// connection fails or ctx is cancelled.
//
// Postcondition: Returns nil on quit, ctx.Err() on cancellation, or a
// wrapped I/O error.
func (h *RollHandler) HandleSession(ctx context.Context, conn *telnet.Conn) error {
	if h.metrics != nil {
		h.metrics.SessionOpened()
		defer h.metrics.SessionClosed()
	}

	if err := conn.WriteLine(telnet.Colorize(telnet.BrightWhite, Banner)); err != nil {
		return fmt.Errorf("writing banner: %w", err)
	}

	for {
		if err := conn.WritePrompt(Prompt); err != nil {
			return fmt.Errorf("writing prompt: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := conn.ReadLine()
		if errors.Is(err, telnet.ErrLineTooLong) {
			h.logger.Debug("discarded long line", zap.Error(err))
			if err := conn.WriteLine(telnet.Colorize(telnet.Red, "Line too long.")); err != nil {
				return fmt.Errorf("writing response: %w", err)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		parsed := command.Parse(line)
		if parsed.Command == "" {
			continue
		}

		out, quit := h.dispatch(parsed)
		if out != "" {
			if err := conn.WriteLines(out); err != nil {
				return fmt.Errorf("writing response: %w", err)
			}
		}
		if quit {
			return nil
		}
	}
}

// dispatch runs one parsed line and returns the text to send back and
// whether the session should end.
func (h *RollHandler) dispatch(parsed command.ParseResult) (string, bool) {
	cmd, ok := h.commands.Resolve(parsed.Command)
	if !ok {
		return h.bare(parsed.Line), false
	}
	if cmd.NeedsArgs && parsed.RawArgs == "" {
		return telnet.Colorf(telnet.Yellow, "Usage: %s", cmd.Usage), false
	}

	switch cmd.Handler {
	case command.HandlerRoll:
		rec, err := h.roll(parsed.RawArgs)
		if err != nil {
			return RenderError(parsed.RawArgs, err), false
		}
		return RenderRoll(rec), false
	case command.HandlerDebug:
		rec, err := h.roll(parsed.RawArgs)
		if err != nil {
			return RenderError(parsed.RawArgs, err), false
		}
		return RenderDebug(rec), false
	case command.HandlerValid:
		return RenderValid(parsed.RawArgs, h.valid(parsed.RawArgs)), false
	case command.HandlerMacros:
		return RenderMacros(h.macros.Current()), false
	case command.HandlerHelp:
		return RenderHelp(h.commands), false
	case command.HandlerQuit:
		return "Goodbye.", true
	default:
		h.logger.Error("command has no session action", zap.String("command", cmd.Name))
		return telnet.Colorf(telnet.Red, "%s is not available", cmd.Name), false
	}
}

// bare rolls a line that is not a command if it reads as an expression.
func (h *RollHandler) bare(line string) string {
	if h.valid(line) || strings.Contains(line, "@") {
		rec, err := h.roll(line)
		if err != nil {
			return RenderError(line, err)
		}
		return RenderRoll(rec)
	}
	word, _, _ := strings.Cut(line, " ")
	return telnet.Colorf(telnet.Yellow, "Unknown command %q. Type help for commands.", word)
}

func (h *RollHandler) valid(text string) bool {
	expanded, err := h.macros.Expand(text)
	return err == nil && h.roller.Valid(expanded)
}

// roll expands macros, rolls and records the outcome in metrics. The
// returned Record keeps the text as typed.
func (h *RollHandler) roll(text string) (dice.Record, error) {
	start := time.Now()
	rec, err := h.expandAndRoll(text)
	if h.metrics != nil {
		h.metrics.ObserveRoll(RollStatus(err), time.Since(start), rec.Value)
	}
	return rec, err
}

func (h *RollHandler) expandAndRoll(text string) (dice.Record, error) {
	expanded, err := h.macros.Expand(text)
	if err != nil {
		return dice.Record{}, err
	}
	rec, err := h.roller.Roll(expanded)
	if err != nil {
		return dice.Record{}, err
	}
	rec.Expression = text
	return rec, nil
}

// RollStatus classifies a roll error for the rolls_total metric: input the
// user can fix is invalid, anything else that went wrong while rolling failed.
func RollStatus(err error) string {
	switch {
	case err == nil:
		return observability.StatusOK
	case errors.Is(err, dice.ErrParse),
		errors.Is(err, dice.ErrInvalidComparison),
		errors.Is(err, dice.ErrInvalidDice),
		errors.Is(err, dice.ErrTooComplex),
		errors.Is(err, macro.ErrUnknownMacro),
		errors.Is(err, macro.ErrExpansionDepth):
		return observability.StatusInvalid
	default:
		return observability.StatusFailed
	}
}
