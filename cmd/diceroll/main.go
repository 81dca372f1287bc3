// Package main provides diceroll, a command-line dice roller.
//
// Usage:
//
//	diceroll [flags] [expr ...]
//
// Each expression is rolled and printed as "<expr> = <value>". With no
// expressions, lines are read from stdin. -debug prints the full result tree
// instead. The exit status is 1 if any expression fails.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/diceroll/internal/config"
	"github.com/cory-johannsen/diceroll/internal/dice"
	"github.com/cory-johannsen/diceroll/internal/macro"
	"github.com/cory-johannsen/diceroll/internal/observability"
	"github.com/cory-johannsen/diceroll/internal/scripting"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit status.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("diceroll", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to configuration file (optional)")
	seed := fs.Int64("seed", 0, "roll with a deterministic source seeded with this value")
	debug := fs.Bool("debug", false, "print the full result tree")
	macrosPath := fs.String("macros", "", "path to a macro YAML file")
	scriptPath := fs.String("script", "", "Lua file defining roll(faces), used as the random source")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "diceroll: loading config: %v\n", err)
		return 1
	}
	if *seed != 0 {
		cfg.Dice.Source = dice.SourceSeeded
		cfg.Dice.Seed = *seed
	}
	if *macrosPath != "" {
		cfg.Macros.Path = *macrosPath
	}

	logger, err := observability.NewLogger(cfg.Logging, "diceroll")
	if err != nil {
		fmt.Fprintf(stderr, "diceroll: initializing logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	roller, macros, cleanup, err := setup(cfg, *scriptPath, logger)
	if err != nil {
		fmt.Fprintf(stderr, "diceroll: %v\n", err)
		return 1
	}
	defer cleanup()

	exprs := fs.Args()
	if len(exprs) == 0 {
		exprs, err = readLines(stdin)
		if err != nil {
			fmt.Fprintf(stderr, "diceroll: reading stdin: %v\n", err)
			return 1
		}
	}

	status := 0
	for _, text := range exprs {
		out, err := rollOne(roller, macros, text, *debug)
		if err != nil {
			fmt.Fprintf(stderr, "diceroll: %s: %v\n", text, err)
			status = 1
			continue
		}
		fmt.Fprint(stdout, out)
	}
	return status
}

// setup builds the roller, honouring a Lua roll script when one is given.
// The returned cleanup must be called when done.
func setup(cfg config.Config, script string, logger *zap.Logger) (*dice.Roller, *macro.Registry, func(), error) {
	parser := dice.NewParser(
		dice.WithMaxDepth(cfg.Dice.MaxDepth),
		dice.WithMaxLength(cfg.Dice.MaxLength),
	)
	src, err := dice.NewNamedSource(cfg.Dice.Source, cfg.Dice.Seed)
	if err != nil {
		return nil, nil, nil, err
	}
	roll := dice.FromSource(src)
	budget := dice.WithMaxRolls(cfg.Dice.MaxRolls)

	macros, err := macro.NewRegistry(cfg.Macros.Path, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading macros: %w", err)
	}

	if script == "" {
		return dice.NewLoggedRoller(parser, roll, logger, budget), macros, func() {}, nil
	}

	if !filepath.IsAbs(script) && cfg.Scripting.ScriptDir != "" {
		script = filepath.Join(cfg.Scripting.ScriptDir, script)
	}
	engine := scripting.NewEngine(dice.NewLoggedRoller(parser, roll, logger, budget), macros, cfg.Scripting.InstructionLimit, logger)
	if err := engine.LoadFile(script); err != nil {
		engine.Close()
		return nil, nil, nil, err
	}
	if !engine.Has("roll") {
		engine.Close()
		return nil, nil, nil, fmt.Errorf("script %s does not define roll(faces)", script)
	}
	return dice.NewLoggedRoller(parser, engine.RollFunc("roll"), logger, budget), macros, engine.Close, nil
}

// rollOne expands, rolls and formats a single expression.
func rollOne(roller *dice.Roller, macros *macro.Registry, text string, debug bool) (string, error) {
	expanded, err := macros.Expand(text)
	if err != nil {
		return "", err
	}
	rec, err := roller.Roll(expanded)
	if err != nil {
		return "", err
	}
	if debug {
		return dice.Debug(rec.Tree), nil
	}
	return fmt.Sprintf("%s = %d\n", text, rec.Value), nil
}

// readLines returns the non-blank lines of r.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}
