package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompt_template.tmpl
var defaultPromptTemplate string

// Templates are the text/template sources for everything the tool writes
type Templates struct {
	Prompt           string `yaml:"prompt"`
	CommitMessage    string `yaml:"commit_message"`
	PullRequestTitle string `yaml:"pull_request_title"`
	PullRequestBody  string `yaml:"pull_request_body"`
}

// TemplateData is what every template is executed against
type TemplateData struct {
	Repository  string
	IssueNumber int
	IssueTitle  string
	IssueBody   string
	IssueURL    string
	RelatedCode string
	// CommentContent is a pull request review comment. When set, the prompt asks for a revision instead of a fresh fix
	CommentContent string
	Branch         string
	BaseBranch     string
}

// DefaultTemplates returns the built-in templates
func DefaultTemplates() Templates {
	return Templates{
		Prompt:           defaultPromptTemplate,
		CommitMessage:    "Fix from Issue #{{.IssueNumber}}",
		PullRequestTitle: "Auto Fix from Issue #{{.IssueNumber}}",
		PullRequestBody:  "This PR fixes the issue #{{.IssueNumber}} automatically.",
	}
}

// LoadTemplates reads a YAML file of templates. Keys that are absent or empty keep their defaults. An empty path
// returns the defaults
func LoadTemplates(path string) (Templates, error) {
	templates := DefaultTemplates()
	if path == "" {
		return templates, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Templates{}, fmt.Errorf("failed to read templates file: %w", err)
	}

	var overrides Templates
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return Templates{}, fmt.Errorf("failed to parse templates file '%s': %w", path, err)
	}

	if overrides.Prompt != "" {
		templates.Prompt = overrides.Prompt
	}
	if overrides.CommitMessage != "" {
		templates.CommitMessage = overrides.CommitMessage
	}
	if overrides.PullRequestTitle != "" {
		templates.PullRequestTitle = overrides.PullRequestTitle
	}
	if overrides.PullRequestBody != "" {
		templates.PullRequestBody = overrides.PullRequestBody
	}
	return templates, nil
}

// ParsedTemplates are Templates ready to execute
type ParsedTemplates struct {
	prompt           *template.Template
	commitMessage    *template.Template
	pullRequestTitle *template.Template
	pullRequestBody  *template.Template
}

// Parse parses every template, failing on the first syntax error
func (t Templates) Parse() (*ParsedTemplates, error) {
	var pt ParsedTemplates
	for _, tt := range []struct {
		name string
		src  string
		dest **template.Template
	}{
		{"prompt", t.Prompt, &pt.prompt},
		{"commit_message", t.CommitMessage, &pt.commitMessage},
		{"pull_request_title", t.PullRequestTitle, &pt.pullRequestTitle},
		{"pull_request_body", t.PullRequestBody, &pt.pullRequestBody},
	} {
		tmpl, err := template.New(tt.name).Option("missingkey=error").Parse(tt.src)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", tt.name, err)
		}
		*tt.dest = tmpl
	}
	return &pt, nil
}

// MustParseDefaultTemplates parses the built-in templates, which are known to be valid
func MustParseDefaultTemplates() *ParsedTemplates {
	pt, err := DefaultTemplates().Parse()
	if err != nil {
		panic(err)
	}
	return pt
}

func (pt *ParsedTemplates) Prompt(data TemplateData) (string, error) {
	return execute(pt.prompt, data)
}

func (pt *ParsedTemplates) CommitMessage(data TemplateData) (string, error) {
	return execute(pt.commitMessage, data)
}

func (pt *ParsedTemplates) PullRequestTitle(data TemplateData) (string, error) {
	return execute(pt.pullRequestTitle, data)
}

func (pt *ParsedTemplates) PullRequestBody(data TemplateData) (string, error) {
	return execute(pt.pullRequestBody, data)
}

func execute(tmpl *template.Template, data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute %s template: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
