package prompt

import (
	"fmt"
	"os"
	"strings"
)

// placeholder substituted with the latest user message
const userRequestPlaceholder = "{{USER_REQUEST}}"

// default generation template. The template is data, not code: deployments
// can override it via PROMPT_TEMPLATE_PATH without touching the relay.
const defaultTemplate = `You are an expert web designer generating HTML for a visual website builder.

User request: {{USER_REQUEST}}

Rules:
- Respond with a SINGLE fenced code block containing complete HTML markup. No explanatory prose before or after.
- Use Tailwind CSS utility classes for all styling. Include <script src="https://cdn.tailwindcss.com"></script> in the markup.
- Use https://unpkg.com for any additional libraries; never invent CDN URLs.
- Use https://placehold.co for placeholder images.
- Produce production-quality, semantic, responsive markup.`

// holds the generation prompt template
type Template struct {
	text string
}

// loads the prompt template, preferring the override file when path is set
func Load(path string) (*Template, error) {
	if path == "" {
		return &Template{text: defaultTemplate}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt template: %w", err)
	}

	text := string(data)
	if !strings.Contains(text, userRequestPlaceholder) {
		return nil, fmt.Errorf("prompt template missing %s placeholder", userRequestPlaceholder)
	}

	return &Template{text: text}, nil
}

// substitutes the user message into the template
func (t *Template) Build(userMessage string) string {
	return strings.ReplaceAll(t.text, userRequestPlaceholder, userMessage)
}
