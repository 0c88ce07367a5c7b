package models

import "strings"

// CommandType enumerates supported chat command categories.
type CommandType string

const (
	CommandLog     CommandType = "log"
	CommandToday   CommandType = "today"
	CommandWeek    CommandType = "week"
	CommandGoal    CommandType = "goal"
	CommandHelp    CommandType = "help"
	CommandUnknown CommandType = "unknown"
)

// Command represents a parsed instruction extracted from a chat message.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
	// MessageID identifies the chat message the command came from, if any.
	MessageID string
}

// ParseCommand derives a Command from free-form text. Messages that do not start
// with a known /command keep their text in Raw with CommandUnknown.
func ParseCommand(message string) Command {
	normalized := strings.TrimSpace(message)
	cmd := Command{Type: CommandUnknown, Raw: message}

	tokens := strings.Fields(normalized)
	if len(tokens) == 0 || !strings.HasPrefix(tokens[0], "/") {
		return cmd
	}

	head := strings.ToLower(strings.TrimPrefix(tokens[0], "/"))
	switch CommandType(head) {
	case CommandLog, CommandToday, CommandWeek, CommandGoal, CommandHelp:
		cmd.Type = CommandType(head)
	default:
		cmd.Type = CommandUnknown
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}

	return cmd
}

// IsFreeText reports whether the message carried no slash command at all.
func (c Command) IsFreeText() bool {
	text := strings.TrimSpace(c.Raw)
	return c.Type == CommandUnknown && text != "" && !strings.HasPrefix(text, "/")
}
