package terminal

import "strings"

const helpText = `Commands:
  /clear, /new      start a new conversation
  /regen            regenerate the last reply
  /copy N           copy message N to the clipboard
  /like N           like reply N
  /prompt [N]       list quick prompts or load prompt N into the input
  /tool [NAME]      list modes or switch mode
  /theme            toggle light/dark colours
  /usage            show usage counters
  /voice FILE       transcribe an audio file into the input
  /quit             leave`

type command struct {
	name string
	arg  string
}

// parseCommand splits "/name rest of line". The name is lower-cased, the
// argument is trimmed but otherwise kept.
func parseCommand(line string) command {
	line = strings.TrimPrefix(strings.TrimSpace(line), "/")
	name, arg, _ := strings.Cut(line, " ")
	return command{
		name: strings.ToLower(name),
		arg:  strings.TrimSpace(arg),
	}
}
