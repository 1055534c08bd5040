package summarizer

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// PromptTemplate drives the summarization request. The user template may
// reference {transcript} and {url} placeholders.
type PromptTemplate struct {
	System      string  `json:"system"`
	User        string  `json:"user"`
	Temperature float64 `json:"temperature"`
}

// defaultTemplate is used when no template file is configured or the file
// cannot be read
var defaultTemplate = PromptTemplate{
	System: "You are a helpful assistant that writes clear, structured summaries of video transcripts.",
	User: "Summarize the following video transcript. Start with a one-paragraph " +
		"overview, then list the key points as bullet points. Keep the summary " +
		"faithful to the transcript and do not invent details.\n\n" +
		"Video URL: {url}\n\nTranscript:\n{transcript}",
	Temperature: 0.3,
}

// LoadPromptTemplate reads a JSON template file. An empty path selects the
// built-in template; a missing or unreadable file is an error so a bad
// deployment is caught at startup rather than mid-run.
func LoadPromptTemplate(path string) (*PromptTemplate, error) {
	if path == "" {
		t := defaultTemplate
		return &t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt template: %w", err)
	}

	t := defaultTemplate
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}
	if strings.TrimSpace(t.User) == "" {
		t.User = defaultTemplate.User
	}
	return &t, nil
}

// Render substitutes the transcript and source URL into the user template
func (t *PromptTemplate) Render(transcript, sourceURL string) string {
	out := strings.ReplaceAll(t.User, "{transcript}", transcript)
	out = strings.ReplaceAll(out, "{url}", sourceURL)
	return out
}
