package invoice

import (
	"regexp"

	"github.com/flosch/pongo2/v6"
)

// DefaultFontLinks requests the heading and body font families.
var DefaultFontLinks = []string{
	"https://fonts.googleapis.com/css2?family=Inter:ital,opsz,wght@0,14..32,100..900;1,14..32,100..900&family=Jockey+One&display=swap",
}

// DefaultOverrides keeps exported documents legible regardless of template styling.
const DefaultOverrides = "body { margin: 0; padding: 20px; background: #ffffff !important; }"

// DefaultTitle is the standalone document title.
const DefaultTitle = "Invoice"

var styleCloser = regexp.MustCompile(`(?i)</style`)

var standaloneShell = pongo2.Must(pongo2.FromString(`<!DOCTYPE html>
<html lang="{{ lang }}">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{ title }}</title>
<link rel="preconnect" href="https://fonts.googleapis.com">
<link rel="preconnect" href="https://fonts.gstatic.com" crossorigin>
{% for href in fonts %}<link href="{{ href }}" rel="stylesheet">
{% endfor %}<style>
{{ stylesheet|safe }}
{{ overrides|safe }}
</style>
</head>
<body>
{{ body|safe }}
</body>
</html>
`))

// DocumentAssembler wraps populated markup into a renderable document.
type DocumentAssembler struct {
	Title     string
	Lang      string
	FontLinks []string
	Overrides string
}

// AssembleStandalone returns a complete document with the stylesheet,
// fixed overrides, and font links inlined around the populated fragment.
func (a DocumentAssembler) AssembleStandalone(populated, stylesheet string) (string, error) {
	title := a.Title
	if title == "" {
		title = DefaultTitle
	}
	lang := a.Lang
	if lang == "" {
		lang = "en"
	}
	fonts := a.FontLinks
	if fonts == nil {
		fonts = DefaultFontLinks
	}
	overrides := a.Overrides
	if overrides == "" {
		overrides = DefaultOverrides
	}

	out, err := standaloneShell.Execute(pongo2.Context{
		"lang":       lang,
		"title":      title,
		"fonts":      fonts,
		"stylesheet": styleCloser.ReplaceAllString(stylesheet, `<\/style`),
		"overrides":  overrides,
		"body":       populated,
	})
	if err != nil {
		return "", NewError(KindInternal, "assemble standalone document", err)
	}
	return out, nil
}

// AssembleFragment returns the populated markup for callers already inside
// a page context.
func (a DocumentAssembler) AssembleFragment(populated string) string {
	return populated
}
