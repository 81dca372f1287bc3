// Package command provides the session command registry, the line parser and
// the built-in roll session commands.
package command

// Categories for organizing commands.
const (
	CategoryRoll   = "roll"
	CategorySystem = "system"
)

// Handler identifiers mapping commands to session actions.
const (
	HandlerRoll   = "roll"
	HandlerDebug  = "debug"
	HandlerValid  = "valid"
	HandlerMacros = "macros"
	HandlerHelp   = "help"
	HandlerQuit   = "quit"
)

// Command defines a session command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Usage shows the argument form, e.g. "roll <expr>".
	Usage string
	// Help is the short help text displayed to users.
	Help string
	// Category groups the command (roll, system).
	Category string
	// Handler maps to the session action.
	Handler string
	// NeedsArgs marks commands that require an expression argument.
	NeedsArgs bool
}

// BuiltinCommands returns all built-in roll session commands.
func BuiltinCommands() []Command {
	return []Command{
		{Name: "roll", Aliases: []string{"r"}, Usage: "roll <expr>", Help: "Roll a dice expression", Category: CategoryRoll, Handler: HandlerRoll, NeedsArgs: true},
		{Name: "debug", Aliases: []string{"d"}, Usage: "debug <expr>", Help: "Roll and show every step of the result tree", Category: CategoryRoll, Handler: HandlerDebug, NeedsArgs: true},
		{Name: "valid", Aliases: []string{"v"}, Usage: "valid <expr>", Help: "Check an expression without rolling it", Category: CategoryRoll, Handler: HandlerValid, NeedsArgs: true},
		{Name: "macros", Aliases: []string{"m"}, Usage: "macros", Help: "List the named @macros", Category: CategoryRoll, Handler: HandlerMacros},

		{Name: "help", Aliases: []string{"h", "?"}, Usage: "help", Help: "Show available commands", Category: CategorySystem, Handler: HandlerHelp},
		{Name: "quit", Aliases: []string{"exit", "q"}, Usage: "quit", Help: "Disconnect", Category: CategorySystem, Handler: HandlerQuit},
	}
}
