package player

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/aretw0/lessonkit/pkg/domain"
	"github.com/aretw0/lessonkit/pkg/widget"
)

const pageTemplates = `
{{define "content"}}{{range .}}{{if eq .Type "text"}}<p>{{.Value}}</p>{{else if eq .Type "image"}}<img src="{{.Value}}" alt="">{{else if eq .Type "video"}}<iframe src="{{.Value}}" allowfullscreen></iframe>{{end}}{{end}}{{end}}
{{define "feedback"}}{{range .}}<div class="feedback"><p>{{.}}</p></div>{{end}}{{end}}
{{define "TextInput"}}{{if gt .Rows 1}}<textarea name="answer" rows="{{.Rows}}" placeholder="{{.Placeholder}}"></textarea>{{else}}<input type="text" name="answer" placeholder="{{.Placeholder}}">{{end}}{{end}}
{{define "NumericInput"}}<input type="number" name="answer" step="any">{{end}}
{{define "MultipleChoiceInput"}}{{range $i, $c := .Choices}}<label><input type="radio" name="answer" value="{{$i}}"> {{$c}}</label>{{end}}{{end}}
{{define "Continue"}}<button type="submit" name="answer" value="">{{.ButtonText}}</button>{{end}}
{{define "EndExploration"}}{{end}}
`

var templates = template.Must(template.New("page").Parse(pageTemplates))

// renderContent renders content blocks with params interpolated into text.
func renderContent(blocks []domain.ContentBlock, params map[string]any) (string, []domain.WidgetInstance, error) {
	rendered := make([]domain.ContentBlock, len(blocks))
	var widgets []domain.WidgetInstance
	for i, b := range blocks {
		rendered[i] = b
		if b.Type == domain.ContentText {
			rendered[i].Value = Interpolate(b.Value, params)
			continue
		}
		widgets = append(widgets, domain.WidgetInstance{
			BlockIndex: i,
			WidgetID:   b.Type,
			Args:       map[string]any{"src": b.Value},
		})
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "content", rendered); err != nil {
		return "", nil, fmt.Errorf("render content: %w", err)
	}
	if widgets == nil {
		widgets = []domain.WidgetInstance{}
	}
	return buf.String(), widgets, nil
}

func renderFeedback(feedback []string, params map[string]any) (string, error) {
	if len(feedback) == 0 {
		return "", nil
	}
	lines := make([]string, len(feedback))
	for i, f := range feedback {
		lines[i] = Interpolate(f, params)
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "feedback", lines); err != nil {
		return "", fmt.Errorf("render feedback: %w", err)
	}
	return buf.String(), nil
}

// renderWidget renders the interactive widget of a state. Widgets without a
// template render as nothing.
func renderWidget(def *widget.Definition, args map[string]any) (string, error) {
	if templates.Lookup(def.ID) == nil {
		return "", nil
	}

	var data any
	switch def.ID {
	case widget.TextInput:
		var a widget.TextInputArgs
		if err := widget.Decode(def.WithDefaults(args), &a); err != nil {
			return "", err
		}
		data = a
	case widget.MultipleChoiceInput:
		var a widget.MultipleChoiceArgs
		if err := widget.Decode(def.WithDefaults(args), &a); err != nil {
			return "", err
		}
		// Choices are authored HTML, validated against script injection.
		choices := make([]template.HTML, len(a.Choices))
		for i, c := range a.Choices {
			choices[i] = template.HTML(c)
		}
		data = struct{ Choices []template.HTML }{choices}
	case widget.Continue:
		var a widget.ContinueArgs
		if err := widget.Decode(def.WithDefaults(args), &a); err != nil {
			return "", err
		}
		data = a
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, def.ID, data); err != nil {
		return "", fmt.Errorf("render widget %s: %w", def.ID, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
