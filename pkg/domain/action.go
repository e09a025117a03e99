package domain

import "strings"

// ActionKind identifies what an Action does when applied to a conversation.
type ActionKind string

const (
	ActionClose                   ActionKind = "close"
	ActionAdvancePage             ActionKind = "next_page"
	ActionNoOp                    ActionKind = "noop"
	ActionNavigate                ActionKind = "navigate"
	ActionRunCommands             ActionKind = "run_commands"
	ActionRunCommandsThenNavigate ActionKind = "run_commands_then_navigate"
)

// CommandMode selects how a command is carried out by the host.
type CommandMode string

const (
	// ModeDirect runs the command as the player.
	ModeDirect CommandMode = "direct"
	// ModeElevated runs the command as the player with temporary operator rights.
	ModeElevated CommandMode = "elevated"
	// ModeConsole runs the command from the server console.
	ModeConsole CommandMode = "console"
	// ModeBroadcast sends the text to every online player.
	ModeBroadcast CommandMode = "broadcast"
	// ModeWhisper sends the text to the player only.
	ModeWhisper CommandMode = "whisper"
)

// ParseCommandMode maps a document mode name to a CommandMode.
// It accepts the canonical names plus the aliases "command", "op" and "tell".
// Anything else falls back to ModeDirect.
func ParseCommandMode(name string) CommandMode {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "elevated", "op":
		return ModeElevated
	case "console":
		return ModeConsole
	case "broadcast":
		return ModeBroadcast
	case "whisper", "tell":
		return ModeWhisper
	default:
		return ModeDirect
	}
}

// RunsCommand reports whether the mode executes a command line (as opposed to sending a message).
func (m CommandMode) RunsCommand() bool {
	return m == ModeDirect || m == ModeElevated || m == ModeConsole
}

// Action is a pure description of an effect. Applying it is the runtime's job.
// A nil *Action means "no action": the choice carrying it is disabled.
type Action struct {
	Kind     ActionKind  `json:"kind"`
	Mode     CommandMode `json:"mode,omitempty"`
	Commands []string    `json:"commands,omitempty"`
	Target   string      `json:"target,omitempty"`
	// CloseAfter closes the conversation once the commands are dispatched.
	CloseAfter bool `json:"close_after,omitempty"`
}

func Close() *Action       { return &Action{Kind: ActionClose} }
func AdvancePage() *Action { return &Action{Kind: ActionAdvancePage} }
func NoOp() *Action        { return &Action{Kind: ActionNoOp} }

// NavigateTo jumps to the page with the given id.
func NavigateTo(pageID string) *Action {
	return &Action{Kind: ActionNavigate, Target: pageID}
}

// RunCommands dispatches commands and keeps the conversation open.
func RunCommands(mode CommandMode, commands []string) *Action {
	return &Action{Kind: ActionRunCommands, Mode: mode, Commands: append([]string(nil), commands...)}
}

// RunCommandsThenNavigate dispatches commands, then jumps to pageID.
func RunCommandsThenNavigate(mode CommandMode, commands []string, pageID string) *Action {
	return &Action{
		Kind:     ActionRunCommandsThenNavigate,
		Mode:     mode,
		Commands: append([]string(nil), commands...),
		Target:   pageID,
	}
}

// RunsCommands reports whether applying the action dispatches commands.
func (a *Action) RunsCommands() bool {
	return a != nil && (a.Kind == ActionRunCommands || a.Kind == ActionRunCommandsThenNavigate)
}

// ThenNavigate combines a with a jump to pageID.
// Only command actions can run before navigating; for every other kind the
// navigation alone is kept.
func (a *Action) ThenNavigate(pageID string) *Action {
	if a.RunsCommands() {
		return RunCommandsThenNavigate(a.Mode, a.Commands, pageID)
	}
	return NavigateTo(pageID)
}

func (a *Action) String() string {
	if a == nil {
		return "none"
	}
	switch a.Kind {
	case ActionNavigate:
		return "navigate(" + a.Target + ")"
	case ActionRunCommands:
		return "run_commands(" + string(a.Mode) + ")"
	case ActionRunCommandsThenNavigate:
		return "run_commands(" + string(a.Mode) + ")+navigate(" + a.Target + ")"
	default:
		return string(a.Kind)
	}
}
