package translator

import (
	"botbridge/pkg/bot"
	"botbridge/pkg/channel"
)

const cardActionSeparator = "\n\n"

// placeholderAction satisfies the one-action minimum of a list item. It has no
// label, so it renders as an invisible button.
var placeholderAction = channel.Action{Type: "postback", Text: "", Payload: ""}

// buildCard converts one bot card into a list item.
//
// The card's own actions are folded into the description because list item
// buttons cannot carry urls or phone numbers. Slicing is per character and is
// not word-boundary aware.
func buildCard(card bot.Card) channel.Card {
	description := []rune(card.Description)

	item := channel.Card{
		Title:       card.Title,
		Description: string(description),
		MediaURL:    card.ImageURL,
		Size:        channel.SizeLarge,
		Actions:     []channel.Action{placeholderAction},
	}
	if len(description) > channel.MaxTextLength {
		item.Description = string(description[:channel.MaxTextLength-1])
	}

	actions := []bot.Action(card.Actions)
	if len(actions) > channel.MaxCardActions {
		// One slot stays reserved for the placeholder.
		actions = actions[:channel.MaxCardActions-1]
	}

	actionText := []rune(RenderActions(actions, nil))
	if len(actionText) == 0 {
		return item
	}

	if len(actionText) > channel.MaxTextLength {
		actionText = actionText[:channel.MaxTextLength-2]
	}
	block := append([]rune(cardActionSeparator), actionText...)

	allowed := channel.MaxTextLength - len(block) - 1
	item.Description = string(prefix(description, allowed)) + string(block)

	return item
}

// prefix returns at most n leading runes of s; n below zero yields nothing.
func prefix(s []rune, n int) []rune {
	if n <= 0 {
		return nil
	}
	if n > len(s) {
		return s
	}
	return s[:n]
}
