package http

import (
	"log/slog"
	"os"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"
)

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>PartyMap API · Swagger UI</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
  <style>html{box-sizing:border-box}*,*::before,*::after{box-sizing:inherit}body{margin:0;background:#fafafa}</style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: '/docs/openapi.yaml',
      dom_id: '#swagger-ui',
      deepLinking: true,
      displayOperationId: true,
      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
      layout: 'BaseLayout',
    });
  </script>
</body>
</html>`

// DefaultSpecPath is where the OpenAPI document lives relative to the
// repository root.
const DefaultSpecPath = "api/openapi.yaml"

// apiDoc is the OpenAPI document as read from disk and as parsed. doc is nil
// when the file is missing or does not parse.
type apiDoc struct {
	raw []byte
	doc *openapi3.T
}

func loadAPIDoc(path string) apiDoc {
	raw, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("openapi document unavailable, /docs will be empty", "path", path, "error", err)
		return apiDoc{}
	}
	doc, err := openapi3.NewLoader().LoadFromData(raw)
	if err != nil {
		slog.Warn("openapi document does not parse", "path", path, "error", err)
		return apiDoc{raw: raw}
	}
	return apiDoc{raw: raw, doc: doc}
}

// SetupDocs registers Swagger UI at /docs, the YAML document at
// /docs/openapi.yaml and its JSON rendering at /docs/openapi.json. The file
// is read once at startup.
func SetupDocs(app *fiber.App, specPath string) {
	if specPath == "" {
		specPath = DefaultSpecPath
	}
	api := loadAPIDoc(specPath)

	app.Get("/docs", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(swaggerUIHTML)
	})

	app.Get("/docs/openapi.yaml", func(c *fiber.Ctx) error {
		if api.raw == nil {
			return errNotFound(c, "openapi.yaml not found")
		}
		c.Set(fiber.HeaderContentType, "application/yaml")
		return c.Send(api.raw)
	})

	app.Get("/docs/openapi.json", func(c *fiber.Ctx) error {
		if api.doc == nil {
			return errNotFound(c, "openapi document not available")
		}
		return c.JSON(api.doc)
	})
}
