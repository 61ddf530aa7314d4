package sourcing

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/hirewire/outreach/pkg/types"
)

const scorePrompt = `You score how well a contractor fits a service request.
Respond with a single integer from 0 to 100 and nothing else.

Required categories: %s
Service area: %s
Contractor capabilities: %s
Contractor size class: %s
Contractor rating (0-5): %.1f`

// GenAIScorer ranks contractors with a Gemini model. Decoding is pinned
// (temperature 0, fixed seed) so identical inputs rank identically within
// a campaign evaluation.
type GenAIScorer struct {
	client *genai.Client
	model  string
}

// NewGenAIScorer creates a Gemini-backed scorer.
func NewGenAIScorer(ctx context.Context, apiKey, model string) (*GenAIScorer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create GenAI client: %w", err)
	}
	return &GenAIScorer{client: client, model: model}, nil
}

// Score implements Scorer.
func (s *GenAIScorer) Score(ctx context.Context, req Requirements, profile *types.CandidateContractor) (int, error) {
	prompt := fmt.Sprintf(scorePrompt,
		strings.Join(req.Categories, ", "),
		req.ServiceArea,
		strings.Join(profile.Capabilities, ", "),
		profile.SizeClass,
		profile.Rating,
	)

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	result, err := s.client.Models.GenerateContent(ctx, s.model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
		Seed:        genai.Ptr[int32](7),
	})
	if err != nil {
		return 0, fmt.Errorf("GenAI score failed: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	score, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("unparseable score %q: %w", text, err)
	}
	if score < 0 || score > 100 {
		return 0, fmt.Errorf("score %d out of range", score)
	}
	return score, nil
}
