package command

import "strings"

// ParseResult holds the parsed command name and arguments from a text line.
type ParseResult struct {
	// Command is the first word of the input, lowercased.
	Command string
	// Args are the remaining words after the command.
	Args []string
	// RawArgs is the text after the command with its case and inner spacing kept.
	RawArgs string
	// Line is the whole trimmed input, for lines that are a bare expression.
	Line string
}

// Parse splits a text line into a command and arguments.
//
// Postcondition: Returns a ParseResult. If line is blank, Command is empty.
func Parse(line string) ParseResult {
	line = strings.TrimSpace(line)
	if line == "" {
		return ParseResult{}
	}

	cmd, rest, found := strings.Cut(line, " ")
	if !found {
		return ParseResult{Command: strings.ToLower(line), Line: line}
	}

	rest = strings.TrimSpace(rest)
	var args []string
	if rest != "" {
		args = strings.Fields(rest)
	}

	return ParseResult{
		Command: strings.ToLower(cmd),
		Args:    args,
		RawArgs: rest,
		Line:    line,
	}
}
