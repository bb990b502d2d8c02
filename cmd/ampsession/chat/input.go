package chat

import (
	"strconv"
	"strings"

	"ampsession/internal/approval"
)

var shortcuts = map[string]string{
	"y":   approval.DecisionAllow,
	"yes": approval.DecisionAllow,
	"n":   approval.DecisionDeny,
	"no":  approval.DecisionDeny,
	"a":   approval.DecisionAlwaysAllow,
}

// pickOption maps a typed answer to one of req's options: its 1-based
// number, its name in any case, or a y/n/a shortcut.
func pickOption(req approval.Request, input string) (string, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", false
	}
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(req.Options) {
			return req.Options[n-1], true
		}
		return "", false
	}
	for _, opt := range req.Options {
		if strings.EqualFold(opt, input) {
			return opt, true
		}
	}
	if d, ok := shortcuts[strings.ToLower(input)]; ok {
		for _, opt := range req.Options {
			if opt == d {
				return opt, true
			}
		}
	}
	return "", false
}
