package bot

import (
	"encoding/json"
	"fmt"
)

type ActionType string

const (
	ActionPostback ActionType = "postback"
	ActionURL      ActionType = "url"
	ActionCall     ActionType = "call"
	ActionLocation ActionType = "location"
	ActionShare    ActionType = "share"
)

// Action is one button-like affordance attached to a payload or card.
//
// The set of implementations is closed: PostbackAction, URLAction, CallAction,
// LocationAction and ShareAction.
type Action interface {
	Type() ActionType
	ActionLabel() string
	isAction()
}

type PostbackAction struct {
	Label    string         `json:"label"`
	Postback map[string]any `json:"postback,omitempty"`
}

type URLAction struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

type CallAction struct {
	Label       string `json:"label"`
	PhoneNumber string `json:"phoneNumber"`
}

type LocationAction struct {
	Label string `json:"label"`
}

type ShareAction struct {
	Label string `json:"label"`
}

func (PostbackAction) Type() ActionType { return ActionPostback }
func (URLAction) Type() ActionType      { return ActionURL }
func (CallAction) Type() ActionType     { return ActionCall }
func (LocationAction) Type() ActionType { return ActionLocation }
func (ShareAction) Type() ActionType    { return ActionShare }

func (a PostbackAction) ActionLabel() string { return a.Label }
func (a URLAction) ActionLabel() string      { return a.Label }
func (a CallAction) ActionLabel() string     { return a.Label }
func (a LocationAction) ActionLabel() string { return a.Label }
func (a ShareAction) ActionLabel() string    { return a.Label }

func (PostbackAction) isAction() {}
func (URLAction) isAction()      {}
func (CallAction) isAction()     {}
func (LocationAction) isAction() {}
func (ShareAction) isAction()    {}

func (a PostbackAction) MarshalJSON() ([]byte, error) {
	type alias PostbackAction
	return marshalTagged(string(ActionPostback), alias(a))
}

func (a URLAction) MarshalJSON() ([]byte, error) {
	type alias URLAction
	return marshalTagged(string(ActionURL), alias(a))
}

func (a CallAction) MarshalJSON() ([]byte, error) {
	type alias CallAction
	return marshalTagged(string(ActionCall), alias(a))
}

func (a LocationAction) MarshalJSON() ([]byte, error) {
	type alias LocationAction
	return marshalTagged(string(ActionLocation), alias(a))
}

func (a ShareAction) MarshalJSON() ([]byte, error) {
	type alias ShareAction
	return marshalTagged(string(ActionShare), alias(a))
}

// Actions is a list of actions that decodes each element by its "type" field.
type Actions []Action

func (as *Actions) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*as = nil
		return nil
	}

	decoded := make(Actions, 0, len(raw))
	for i, item := range raw {
		action, err := decodeAction(item)
		if err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
		decoded = append(decoded, action)
	}

	*as = decoded
	return nil
}

func decodeAction(data []byte) (Action, error) {
	kind, err := peekType(data)
	if err != nil {
		return nil, err
	}

	switch ActionType(kind) {
	case ActionPostback:
		var a PostbackAction
		err = json.Unmarshal(data, &a)
		return a, err
	case ActionURL:
		var a URLAction
		err = json.Unmarshal(data, &a)
		return a, err
	case ActionCall:
		var a CallAction
		err = json.Unmarshal(data, &a)
		return a, err
	case ActionLocation:
		var a LocationAction
		err = json.Unmarshal(data, &a)
		return a, err
	case ActionShare:
		var a ShareAction
		err = json.Unmarshal(data, &a)
		return a, err
	default:
		return nil, fmt.Errorf("unsupported action type %q", kind)
	}
}
