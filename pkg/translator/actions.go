package translator

import (
	"strings"

	"botbridge/pkg/bot"
)

// RenderActions turns actions and global actions into one block of text.
//
// Actions are grouped by type in first-seen order. Postback actions always come
// last. Every rendered line is prefixed with a newline, so a non-empty result
// starts with "\n". Share actions render nothing.
func RenderActions(actions, globalActions []bot.Action) string {
	combined := make([]bot.Action, 0, len(actions)+len(globalActions))
	combined = append(combined, actions...)
	combined = append(combined, globalActions...)
	if len(combined) == 0 {
		return ""
	}

	order := make([]bot.ActionType, 0, 4)
	groups := make(map[bot.ActionType][]bot.Action)
	for _, action := range combined {
		if action == nil {
			continue
		}
		kind := action.Type()
		if _, seen := groups[kind]; !seen {
			order = append(order, kind)
		}
		groups[kind] = append(groups[kind], action)
	}

	var b strings.Builder
	for _, kind := range order {
		if kind == bot.ActionPostback {
			continue
		}
		writeActionLines(&b, groups[kind])
	}
	writeActionLines(&b, groups[bot.ActionPostback])

	return b.String()
}

func writeActionLines(b *strings.Builder, actions []bot.Action) {
	for _, action := range actions {
		line := renderAction(action)
		if line == "" {
			continue
		}
		b.WriteString("\n")
		b.WriteString(line)
	}
}

// renderAction returns the text line for one action, or "" when the action has
// no text representation.
func renderAction(action bot.Action) string {
	switch action.Type() {
	case bot.ActionShare:
		return ""
	case bot.ActionURL:
		if a, ok := action.(bot.URLAction); ok {
			return a.Label + ": " + a.URL
		}
	case bot.ActionCall:
		if a, ok := action.(bot.CallAction); ok {
			return a.Label + ": " + a.PhoneNumber
		}
	}
	return action.ActionLabel()
}
