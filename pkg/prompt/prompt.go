// Package prompt assembles task-specific instructions for the upstream model.
package prompt

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/cvforge/cvforge/pkg/models"
)

// ErrMissingField is returned when a required input is empty.
var ErrMissingField = errors.New("missing required field")

// Fields are the caller-supplied values substituted into a template.
type Fields struct {
	ResumeText     string
	JobTitle       string
	JobDescription string
	CompanyName    string
	// Language is an ISO code such as "en" or "pl". Empty means "en".
	Language string
}

var templates = template.Must(template.New("prompts").Funcs(template.FuncMap{
	"orNone": orNone,
}).Parse(templateText))

// Build renders the user prompt for task. Unknown tasks use the generic
// template. The résumé text is required for every task.
func Build(task models.TaskType, f Fields) (string, error) {
	if strings.TrimSpace(f.ResumeText) == "" {
		return "", fmt.Errorf("resume text: %w", ErrMissingField)
	}
	if task == models.TaskCoverLetter && strings.TrimSpace(f.JobTitle) == "" {
		return "", fmt.Errorf("job title: %w", ErrMissingField)
	}

	name := string(task)
	if !task.Known() {
		name = "generic"
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, f); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", name, err)
	}
	return strings.TrimSpace(buf.String()) + "\n", nil
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(not provided)"
	}
	return s
}
