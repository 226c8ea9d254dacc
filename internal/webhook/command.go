package webhook

import "strings"

// parseCommand returns the job kind requested by a comment containing the
// trigger keyword. found is false when the keyword is absent; ok is false for
// an unknown subcommand.
func parseCommand(body, triggerKeyword string) (kind JobKind, found, ok bool) {
	idx := strings.Index(body, triggerKeyword)
	if idx == -1 {
		return "", false, false
	}

	rest := body[idx+len(triggerKeyword):]
	// "/checklistfoo" is not the keyword
	if rest != "" && !isSpace(rest[0]) {
		return "", false, false
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return JobEvaluate, true, true
	}
	switch strings.ToLower(fields[0]) {
	case "toggle":
		return JobToggle, true, true
	case "collapse":
		return JobCollapse, true, true
	case "refresh", "check":
		return JobEvaluate, true, true
	default:
		return "", true, false
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
