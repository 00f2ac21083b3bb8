package channels

import "strings"

// ParseCommand splits "/cmd@bot arg1 arg2". isCommand is false for plain
// text. A command addressed to a different bot yields cmd "" so callers
// ignore it. The command name is lowercased.
func ParseCommand(text, botUsername string) (cmd string, args []string, isCommand bool) {
	if len(text) == 0 || text[0] != '/' {
		return "", nil, false
	}

	fields := strings.Fields(text)
	head := strings.TrimPrefix(fields[0], "/")
	name, target, addressed := strings.Cut(head, "@")
	if addressed && botUsername != "" && !strings.EqualFold(target, botUsername) {
		return "", nil, true
	}
	return strings.ToLower(name), fields[1:], true
}
