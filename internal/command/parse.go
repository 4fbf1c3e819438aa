package command

import "strings"

// Parsed is a recognized chat/REST command and its raw argument tokens.
type Parsed struct {
	Name string
	Args []string
}

// ParseChat splits a chat message into a command if it begins with prefix. Returns
// ok=false for any message that isn't a command invocation at all.
func ParseChat(text, prefix string) (Parsed, bool) {
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return Parsed{}, false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(text, prefix))
	if rest == "" {
		return Parsed{}, false
	}
	fields := strings.Fields(rest)
	return Parsed{
		Name: strings.ToLower(fields[0]),
		Args: fields[1:],
	}, true
}
