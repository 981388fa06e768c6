package web

import "embed"

// TemplatesFS embeds the HTML templates used for generated reports.
//
//go:embed templates/*.html
var TemplatesFS embed.FS
