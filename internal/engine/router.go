package engine

import "github.com/gofiber/fiber/v2"

// RegisterRoutes mounts the public form endpoints and, behind middleware,
// the editor endpoints.
func RegisterRoutes(app *fiber.App, h *Handler, middleware ...fiber.Handler) {
	api := app.Group("/api")

	api.Get("/forms", h.ListForms)
	api.Get("/forms/:id", h.GetForm)
	api.Post("/forms/:id/apply", h.ApplyForm)
	api.Post("/validate", h.Validate)
	api.Post("/validate/value", h.ValidateValue)
	api.Post("/evaluate", h.Evaluate)
	api.Post("/diagnostics", h.Diagnostics)

	protected := func(h fiber.Handler) []fiber.Handler {
		chain := make([]fiber.Handler, 0, len(middleware)+1)
		chain = append(chain, middleware...)
		return append(chain, h)
	}

	api.Get("/editor", protected(h.GetEditor)...)
	api.Post("/editor/commands", protected(h.EditorCommand)...)
	api.Post("/editor/apply", protected(h.EditorApply)...)
	api.Delete("/forms/:id", protected(h.DeleteForm)...)
	api.Post("/forms/:id/load", protected(h.LoadForm)...)
}
