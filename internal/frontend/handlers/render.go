package handlers

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/diceroll/internal/command"
	"github.com/cory-johannsen/diceroll/internal/dice"
	"github.com/cory-johannsen/diceroll/internal/frontend/telnet"
	"github.com/cory-johannsen/diceroll/internal/macro"
)

// Prompt is written after every response.
var Prompt = telnet.Colorize(telnet.BrightCyan, "> ")

// RenderRoll formats a successful roll as "<expr> = <value>".
func RenderRoll(rec dice.Record) string {
	return fmt.Sprintf("%s = %s",
		telnet.Colorize(telnet.Cyan, rec.Expression),
		telnet.Colorf(telnet.Bold+telnet.Green, "%d", rec.Value))
}

// RenderDebug formats the full result tree of a roll, one node per line,
// followed by the roll ID.
func RenderDebug(rec dice.Record) string {
	var b strings.Builder
	b.WriteString(dice.Debug(rec.Tree))
	b.WriteString(telnet.Colorf(telnet.Dim, "roll %s", rec.ID))
	b.WriteString("\n")
	return b.String()
}

// RenderError formats a failed command.
func RenderError(text string, err error) string {
	return telnet.Colorf(telnet.Red, "%s: %v", text, err)
}

// RenderValid formats the outcome of a validity check.
func RenderValid(text string, ok bool) string {
	if ok {
		return telnet.Colorf(telnet.Green, "%s is valid", text)
	}
	return telnet.Colorf(telnet.Yellow, "%s is not valid", text)
}

// RenderMacros lists the macros in s, one per line, sorted by name.
func RenderMacros(s *macro.Set) string {
	if s.Len() == 0 {
		return telnet.Colorize(telnet.Dim, "No macros defined.") + "\n"
	}
	var b strings.Builder
	for _, name := range s.Names() {
		m, _ := s.Get(name)
		fmt.Fprintf(&b, "  %s%-12s%s %s", telnet.BrightWhite, "@"+m.Name, telnet.Reset, m.Notation)
		if m.Description != "" {
			fmt.Fprintf(&b, " %s%s%s", telnet.Dim, m.Description, telnet.Reset)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderHelp lists the registered commands grouped by category.
func RenderHelp(r *command.Registry) string {
	var b strings.Builder
	cats := r.CommandsByCategory()
	for _, cat := range []string{command.CategoryRoll, command.CategorySystem} {
		cmds := cats[cat]
		if len(cmds) == 0 {
			continue
		}
		b.WriteString(telnet.Colorize(telnet.Yellow, strings.ToUpper(cat[:1])+cat[1:]+":"))
		b.WriteString("\n")
		for _, cmd := range cmds {
			usage := cmd.Usage
			if usage == "" {
				usage = cmd.Name
			}
			fmt.Fprintf(&b, "  %s%-14s%s %s", telnet.BrightWhite, usage, telnet.Reset, cmd.Help)
			if len(cmd.Aliases) > 0 {
				fmt.Fprintf(&b, " %s(%s)%s", telnet.Dim, strings.Join(cmd.Aliases, ", "), telnet.Reset)
			}
			b.WriteString("\n")
		}
	}
	b.WriteString("A line that is a dice expression is rolled directly. @name expands a macro.\n")
	return b.String()
}
