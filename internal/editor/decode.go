package editor

import (
	"encoding/json"
	"fmt"

	"formcraft/internal/metadata"
)

// CommandTypes lists the names DecodeCommand accepts.
var CommandTypes = []string{
	"new_form", "set_name", "add_field", "update_field", "delete_field",
	"reorder_field", "save_current", "load_form", "delete_form",
}

// DecodeCommand builds a command from its type name and JSON payload.
// add_field also accepts the shorthand {"type": "number"}.
func DecodeCommand(typ string, raw json.RawMessage) (Command, error) {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}

	var (
		cmd Command
		err error
	)
	switch typ {
	case "new_form":
		cmd = NewForm{}
	case "save_current":
		cmd = SaveCurrent{}
	case "set_name":
		var c SetName
		err = json.Unmarshal(raw, &c)
		cmd = c
	case "add_field":
		var body struct {
			Field *metadata.FormField `json:"field"`
			Type  metadata.FieldType  `json:"type"`
		}
		err = json.Unmarshal(raw, &body)
		switch {
		case body.Field != nil:
			cmd = AddField{Field: *body.Field}
		default:
			cmd = AddField{Field: metadata.FormField{Type: body.Type}}
		}
	case "update_field":
		var c UpdateField
		err = json.Unmarshal(raw, &c)
		cmd = c
	case "delete_field":
		var c DeleteField
		err = json.Unmarshal(raw, &c)
		cmd = c
	case "reorder_field":
		var c ReorderField
		err = json.Unmarshal(raw, &c)
		cmd = c
	case "load_form":
		var c LoadForm
		err = json.Unmarshal(raw, &c)
		cmd = c
	case "delete_form":
		var c DeleteForm
		err = json.Unmarshal(raw, &c)
		cmd = c
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, typ)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", typ, err)
	}
	return cmd, nil
}
