package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/joescharf/tribunal/internal/models"
	"github.com/joescharf/tribunal/internal/rubric"
)

// Client is an Anthropic-backed scoring worker.
type Client struct {
	api       *anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewClient creates a scoring worker with the given API key and model.
func NewClient(apiKey, model string, maxTokens int64) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Client{
		api:       &client,
		model:     anthropic.Model(model),
		maxTokens: maxTokens,
	}
}

// buildPrompt constructs the system and user prompts for one persona
// scoring one criterion.
func buildPrompt(criterion rubric.Criterion, evidenceSummary string, persona models.Persona) (system string, user string) {
	bias := persona.Bias()

	var sb strings.Builder
	sb.WriteString("You are the ")
	sb.WriteString(strings.ToUpper(string(persona)))
	sb.WriteString(" on an audit tribunal evaluating a software submission.\n\n")
	sb.WriteString("Core philosophy: ")
	sb.WriteString(bias.Philosophy)
	sb.WriteString("\n\nScoring policy: ")
	sb.WriteString(bias.Guidance)
	sb.WriteString("\n\nReturn ONLY a JSON object with these fields:\n")
	sb.WriteString(`- "score": integer 0-5` + "\n")
	sb.WriteString(`- "argument": your reasoning in 2-5 sentences` + "\n")
	sb.WriteString(`- "cited_evidence": array of evidence item names you relied on` + "\n")
	sb.WriteString(`- "confidence": number between 0 and 1` + "\n")
	sb.WriteString("\nRules:\n")
	sb.WriteString("- Cite only evidence items that appear in the evidence summary\n")
	sb.WriteString("- Return valid JSON only, no markdown fencing or explanation\n")
	system = sb.String()

	var ub strings.Builder
	fmt.Fprintf(&ub, "Criterion: %s (%s)\n", criterion.Name, criterion.ID)
	fmt.Fprintf(&ub, "Forensic instruction: %s\n", criterion.ForensicInstruction)
	if hint := personaHint(criterion, persona); hint != "" {
		fmt.Fprintf(&ub, "Your angle: %s\n", hint)
	}
	ub.WriteString("\nForensic evidence:\n")
	ub.WriteString(evidenceSummary)
	user = ub.String()
	return
}

// personaHint returns the rubric's per-persona evaluation hint.
func personaHint(criterion rubric.Criterion, persona models.Persona) string {
	switch persona {
	case models.PersonaProsecutor:
		return criterion.JudicialLogic.Prosecutor
	case models.PersonaDefense:
		return criterion.JudicialLogic.Defense
	default:
		return criterion.JudicialLogic.TechLead
	}
}

// Score asks the model for an opinion on one criterion. Transport
// failures and invalid responses are returned as errors; the pool
// converts them into fallback opinions.
func (c *Client) Score(ctx context.Context, criterion rubric.Criterion, evidenceSummary string, persona models.Persona) (models.Opinion, error) {
	systemPrompt, userPrompt := buildPrompt(criterion, evidenceSummary, persona)

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return models.Opinion{}, fmt.Errorf("anthropic API call: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return models.Opinion{}, fmt.Errorf("no text content in API response")
	}

	return ParseOpinion(text, persona, criterion.ID)
}

// ErrInvalidOpinion marks a worker response that failed schema
// validation. The pool converts these into fallback opinions locally
// instead of recording a run-level judge error.
var ErrInvalidOpinion = errors.New("invalid opinion")

// ParseOpinion validates a raw worker response into an Opinion. The
// persona and criterion are stamped by the caller, never trusted from
// the response.
func ParseOpinion(raw string, persona models.Persona, criterionID string) (models.Opinion, error) {
	text := stripFences(raw)

	var body struct {
		Score         int      `json:"score"`
		Argument      string   `json:"argument"`
		CitedEvidence []string `json:"cited_evidence"`
		Confidence    float64  `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(text), &body); err != nil {
		return models.Opinion{}, fmt.Errorf("%w: parse as JSON: %v", ErrInvalidOpinion, err)
	}

	op := models.Opinion{
		Persona:       persona,
		CriterionID:   criterionID,
		Score:         body.Score,
		Argument:      body.Argument,
		CitedEvidence: body.CitedEvidence,
		Confidence:    body.Confidence,
	}
	if err := op.Validate(); err != nil {
		return models.Opinion{}, fmt.Errorf("%w: %v", ErrInvalidOpinion, err)
	}
	return op, nil
}

// stripFences removes markdown code fencing if present.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}
