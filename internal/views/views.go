// Package views embeds the dashboard templates.
package views

import (
	"embed"
	"net/http"

	"github.com/gofiber/template/html/v2"
)

//go:embed *.html partials/*.html
var files embed.FS

// NewEngine returns a Fiber view engine over the embedded templates.
// Template names are file paths without the extension, e.g.
// "partials/speaker".
func NewEngine() *html.Engine {
	return html.NewFileSystem(http.FS(files), ".html")
}
