package engine

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"

	"formcraft/internal/editor"
	"formcraft/internal/metadata"
)

type Handler struct {
	runtime  *Runtime
	registry *metadata.Registry
	session  *editor.Session
}

func NewHandler(rt *Runtime, reg *metadata.Registry, sess *editor.Session) *Handler {
	if rt == nil {
		rt = NewRuntime(nil)
	}
	return &Handler{runtime: rt, registry: reg, session: sess}
}

type applyRequest struct {
	Values map[string]any `json:"values"`
}

type validateRequest struct {
	Fields []metadata.FormField `json:"fields"`
	Values map[string]any       `json:"values"`
}

type validateValueRequest struct {
	Value any                      `json:"value"`
	Rules metadata.ValidationRules `json:"rules"`
}

type evaluateRequest struct {
	Formula string               `json:"formula"`
	Parents ParentValues         `json:"parents"`
	Fields  []metadata.FormField `json:"fields"`
}

type fieldsRequest struct {
	Fields []metadata.FormField `json:"fields"`
}

type commandRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ListForms handles GET /api/forms
func (h *Handler) ListForms(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.registry.AllForms()})
}

// GetForm handles GET /api/forms/:id
func (h *Handler) GetForm(c *fiber.Ctx) error {
	form, err := h.resolveForm(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": form})
}

// ApplyForm handles POST /api/forms/:id/apply. Without values the form's
// defaults are used.
func (h *Handler) ApplyForm(c *fiber.Ctx) error {
	form, err := h.resolveForm(c)
	if err != nil {
		return err
	}
	var body applyRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	if body.Values == nil {
		body.Values = DefaultValues(form.Fields)
	}
	return c.JSON(fiber.Map{"data": h.runtime.Apply(c.UserContext(), form.Fields, body.Values)})
}

// Validate handles POST /api/validate
func (h *Handler) Validate(c *fiber.Ctx) error {
	var body validateRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	if err := checkFields(body.Fields); err != nil {
		return err
	}
	details := Compile(body.Fields).Details(body.Values)
	errs := make(map[string]string, len(details))
	for _, d := range details {
		errs[d.Field] = d.Message
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"valid":   len(details) == 0,
		"errors":  errs,
		"details": details,
	}})
}

// ValidateValue handles POST /api/validate/value
func (h *Handler) ValidateValue(c *fiber.Ctx) error {
	var body validateValueRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	d := ValidateFieldValue(body.Value, body.Rules)
	return c.JSON(fiber.Map{"data": fiber.Map{"valid": d == nil, "error": d}})
}

// Evaluate handles POST /api/evaluate
func (h *Handler) Evaluate(c *fiber.Ctx) error {
	var body evaluateRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	if body.Formula == "" {
		return ValidationError([]ErrorDetail{{Field: "formula", Rule: RuleRequired, Message: MsgRequired}})
	}
	v := h.runtime.Evaluator().Evaluate(body.Formula, body.Parents, body.Fields)
	return c.JSON(fiber.Map{"data": fiber.Map{"value": v}})
}

// Diagnostics handles POST /api/diagnostics
func (h *Handler) Diagnostics(c *fiber.Ctx) error {
	var body fieldsRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	diags := DiagnoseDerived(body.Fields, h.runtime.Evaluator())
	if diags == nil {
		diags = []Diagnostic{}
	}
	return c.JSON(fiber.Map{"data": diags})
}

// GetEditor handles GET /api/editor
func (h *Handler) GetEditor(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.session.State()})
}

// EditorCommand handles POST /api/editor/commands
func (h *Handler) EditorCommand(c *fiber.Ctx) error {
	var body commandRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	cmd, err := editor.DecodeCommand(body.Type, body.Payload)
	if err != nil {
		return commandError(err)
	}
	state, err := h.session.Dispatch(c.UserContext(), cmd)
	if err != nil {
		return commandError(err)
	}
	return c.JSON(fiber.Map{"data": state})
}

// EditorApply handles POST /api/editor/apply against the form being edited.
func (h *Handler) EditorApply(c *fiber.Ctx) error {
	var body applyRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	fields := h.session.State().CurrentForm.Fields
	if body.Values == nil {
		body.Values = DefaultValues(fields)
	}
	return c.JSON(fiber.Map{"data": h.runtime.Apply(c.UserContext(), fields, body.Values)})
}

// DeleteForm handles DELETE /api/forms/:id
func (h *Handler) DeleteForm(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := h.session.Dispatch(c.UserContext(), editor.DeleteForm{ID: id}); err != nil {
		return commandError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": id, "deleted": true}})
}

// LoadForm handles POST /api/forms/:id/load: the saved form becomes the
// form being edited.
func (h *Handler) LoadForm(c *fiber.Ctx) error {
	id := c.Params("id")
	form, ok := h.session.State().SavedForm(id)
	if !ok {
		return NotFoundError("Form", id)
	}
	state, err := h.session.Dispatch(c.UserContext(), editor.LoadForm{Form: form})
	if err != nil {
		return commandError(err)
	}
	return c.JSON(fiber.Map{"data": state})
}

func (h *Handler) resolveForm(c *fiber.Ctx) (*metadata.FormSchema, error) {
	id := c.Params("id")
	form := h.registry.GetForm(id)
	if form == nil {
		return nil, NotFoundError("Form", id)
	}
	return form, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return InvalidPayloadError("Invalid request body: " + err.Error())
	}
	return nil
}

func checkFields(fields []metadata.FormField) error {
	schema := metadata.FormSchema{Fields: fields}
	if err := schema.Validate(); err != nil {
		return InvalidPayloadError(err.Error())
	}
	return nil
}

// commandError maps editor and field errors onto API errors.
func commandError(err error) error {
	switch {
	case errors.Is(err, editor.ErrUnknownCommand):
		return InvalidPayloadError(err.Error())
	case errors.Is(err, editor.ErrUnknownField), errors.Is(err, editor.ErrUnknownForm):
		return NewAppError("NOT_FOUND", fiber.StatusNotFound, err.Error())
	case errors.Is(err, editor.ErrDuplicateField), errors.Is(err, metadata.ErrDuplicateFieldID):
		return ConflictError(err.Error())
	case errors.Is(err, editor.ErrIndexOutOfRange),
		errors.Is(err, editor.ErrUnnamedForm),
		errors.Is(err, editor.ErrEmptyForm),
		errors.Is(err, metadata.ErrMissingFieldID),
		errors.Is(err, metadata.ErrUnknownFieldType),
		errors.Is(err, metadata.ErrMissingOptions):
		return NewAppError("INVALID_COMMAND", fiber.StatusUnprocessableEntity, err.Error())
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return InvalidPayloadError(err.Error())
	}
	return err
}
