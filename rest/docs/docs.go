package docs

import (
	_ "embed"
	"strings"
)

//go:embed openapi.yaml
var OpenAPIYAML []byte

const swaggerTemplate = `<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>GREEN-API Console Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: "{{OPENAPI_URL}}",
      dom_id: '#swagger-ui',
      deepLinking: true,
      presets: [SwaggerUIBundle.presets.apis],
      layout: "BaseLayout"
    });
  </script>
</body>
</html>`

// SwaggerHTML renders a Swagger UI page pointing at openAPIURL.
func SwaggerHTML(openAPIURL string) string {
	return strings.Replace(swaggerTemplate, "{{OPENAPI_URL}}", openAPIURL, 1)
}
