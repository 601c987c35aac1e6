package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// scoreVerdict is the structured judgment the grader prompts ask for.
type scoreVerdict struct {
	Score string `json:"score"`
}

// judge issues one structured yes/no judgment call.
func (p *Pipeline) judge(ctx context.Context, system, user string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}

	resp, err := p.model.GenerateContent(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("judgment call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Content, nil
}

// parseScore extracts the "score" key from a model judgment. Any parse
// failure or missing key yields "no": graders fail closed.
func parseScore(raw string) string {
	jsonStr := strings.TrimSpace(raw)

	// Models frequently wrap JSON in markdown code fences.
	if strings.HasPrefix(jsonStr, "```json") {
		jsonStr = strings.TrimPrefix(jsonStr, "```json")
		jsonStr = strings.TrimSuffix(jsonStr, "```")
		jsonStr = strings.TrimSpace(jsonStr)
	} else if strings.HasPrefix(jsonStr, "```") {
		jsonStr = strings.TrimPrefix(jsonStr, "```")
		jsonStr = strings.TrimSuffix(jsonStr, "```")
		jsonStr = strings.TrimSpace(jsonStr)
	}

	var verdict scoreVerdict
	if err := json.Unmarshal([]byte(jsonStr), &verdict); err != nil {
		return "no"
	}
	if verdict.Score == "" {
		return "no"
	}
	return strings.ToLower(verdict.Score)
}
