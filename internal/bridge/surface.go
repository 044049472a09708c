package bridge

import (
	_ "embed"
	"html/template"
	"net/http"
	"time"
)

const (
	// EditDebounce is how long a surface waits after the last keystroke
	// before reporting an edit.
	EditDebounce = 350 * time.Millisecond
	// HighlightDuration is how long a focused block stays highlighted.
	HighlightDuration = 900 * time.Millisecond
)

//go:embed editor.html
var surfaceHTML string

var surfaceTmpl = template.Must(template.New("editor").Parse(surfaceHTML))

// ServeSurface writes the editable page that connects to wsPath.
func ServeSurface(w http.ResponseWriter, wsPath string) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return surfaceTmpl.Execute(w, struct {
		WSPath      string
		DebounceMs  int64
		HighlightMs int64
	}{wsPath, EditDebounce.Milliseconds(), HighlightDuration.Milliseconds()})
}
