package invoice

import (
	"bytes"
	"regexp"
	"strings"
	"text/template"
)

// DefaultFilenamePattern names artifacts after the invoice number.
const DefaultFilenamePattern = "invoice-{{.InvoiceNumber}}"

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type filenameData struct {
	InvoiceNumber string
	TemplateID    int
	Date          string
}

// ArtifactFilename derives a stable file name for an invoice artifact.
// An empty pattern uses DefaultFilenamePattern.
func ArtifactFilename(pattern string, surface Surface, kind ArtifactKind) (string, error) {
	if pattern == "" {
		pattern = DefaultFilenamePattern
	}

	data := filenameData{
		InvoiceNumber: sanitizeFilenamePart(surface.InvoiceNumber),
		TemplateID:    surface.TemplateID,
	}
	if !surface.RenderedAt.IsZero() {
		data.Date = surface.RenderedAt.UTC().Format("20060102")
	}

	tmpl, err := template.New("filename").Parse(pattern)
	if err != nil {
		return "", NewError(KindValidation, "invalid filename pattern", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", NewError(KindValidation, "render filename", err)
	}

	result := strings.Trim(sanitizeFilenamePart(buf.String()), "-.")
	if result == "" {
		result = "invoice"
	}

	ext := "." + kind.Extension()
	if !strings.HasSuffix(strings.ToLower(result), ext) {
		result += ext
	}
	return result, nil
}

func sanitizeFilenamePart(value string) string {
	value = strings.TrimSpace(value)
	return unsafeFilenameChars.ReplaceAllString(value, "-")
}
