package tagging

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const promptTemplate = `Generate 3 to 5 short tags in Japanese for the following web page.
Output only the tags, separated by commas, with no explanation.

Title: %s
URL: %s
%s
Tags:`

var errEmptyResponse = errors.New("gemini returned no text")

// AITags asks Gemini for tags using key. Unlike Generate it reports failures:
// transport errors, non-2xx responses, deadline expiry, and responses without
// candidates[0].content.parts[0].text.
func (g *Generator) AITags(ctx context.Context, key, title, rawURL, excerpt string) ([]string, error) {
	if key == "" {
		return nil, errors.New("gemini api key not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	cc := &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	}
	if g.opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: g.opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	resp, err := client.Models.GenerateContent(ctx, g.opts.Model, genai.Text(buildPrompt(title, rawURL, excerpt)),
		&genai.GenerateContentConfig{
			Temperature:     genai.Ptr[float32](0.7),
			MaxOutputTokens: 100,
		})
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	text, err := firstText(resp)
	if err != nil {
		return nil, err
	}
	return ParseTags(text), nil
}

func buildPrompt(title, rawURL, excerpt string) string {
	if title == "" {
		title = "unknown"
	}
	if rawURL == "" {
		rawURL = "unknown"
	}
	var note string
	if excerpt = strings.TrimSpace(excerpt); excerpt != "" {
		note = "Note: " + excerpt + "\n"
	}
	return fmt.Sprintf(promptTemplate, title, rawURL, note)
}

func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errEmptyResponse
	}
	c := resp.Candidates[0]
	if c == nil || c.Content == nil || len(c.Content.Parts) == 0 || c.Content.Parts[0] == nil {
		return "", errEmptyResponse
	}
	return c.Content.Parts[0].Text, nil
}
