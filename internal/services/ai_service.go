package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

var ErrAIUnavailable = errors.New("ai assistant is not configured")

const admissionSystemPrompt = `You are a helpful assistant guiding applicants through the Kerala HSCAP Plus One (higher secondary) admission form, Appendix-8. The form has 13 steps:
1. Qualifying Examination
2. Applicant Details
3. Reservation & Special Categories
4. Residence & Address
5. Grace / Bonus Marks
6. Sports Participation
7. Kalolsavam
8. Scholarships
9. Co-curricular
10. SSLC Attempts & Marks
11. School & Combination Preferences
12. Document Upload
13. Declaration & Preview

Explain form fields, eligibility criteria, and required documents in simple language. Never fill in fields on the applicant's behalf without an explicit request. If the applicant writes in Malayalam, reply in Malayalam. Never invent cutoff marks, seat counts, or dates; direct the applicant to the official HSCAP portal for those. Keep answers under 150 words.`

const panSystemPrompt = `You are a helpful assistant guiding applicants through PAN card application Form 49A (Indian Income Tax permanent account number). The form has 5 steps:
1. Application type & applicant category, applicant's name, father's & mother's name
2. Personal details, contact details, address for communication, source of income
3. Address details (residential/office)
4. AO Code & documents (POI, POA, DOB proof, Aadhaar)
5. Photo, signature & declaration

Be clear about what is mandatory versus optional. Never invent AO codes or business/profession codes; tell the applicant to look them up from the official NSDL/UTIITSL lists. Never fill in fields on the applicant's behalf without an explicit request. If the applicant writes in Malayalam, reply in Malayalam. Keep answers under 150 words.`

const translateSystemPrompt = `You translate English content for a Kerala government-services app into natural Malayalam. Respond with only a JSON object of the form {"titleMl": "...", "contentMl": "..."} and nothing else.`

// AIService answers applicant questions and translates admin content. All
// calls are best-effort; the rest of the app works without it.
type AIService struct {
	client *openai.Client
	model  string
}

func NewAIService(apiKey, model string) *AIService {
	if apiKey == "" {
		return &AIService{model: model}
	}
	return &AIService{client: openai.NewClient(apiKey), model: model}
}

// AdmissionChat answers a question in the context of the admission form.
// currentStep and stepData are included so the model can reference what the
// applicant has already filled in.
func (s *AIService) AdmissionChat(ctx context.Context, message string, currentStep int, stepData map[string]interface{}) (string, error) {
	prompt := admissionSystemPrompt
	if currentStep > 0 {
		prompt += fmt.Sprintf("\n\nThe applicant is currently on step %d.", currentStep)
	}
	if len(stepData) > 0 {
		if b, err := json.Marshal(stepData); err == nil {
			prompt += "\n\nData the applicant has entered so far:\n" + string(b)
		}
	}
	return s.complete(ctx, prompt, message)
}

func (s *AIService) PanChat(ctx context.Context, message string, currentStep int, stepData map[string]interface{}) (string, error) {
	prompt := panSystemPrompt
	if currentStep > 0 {
		prompt += fmt.Sprintf("\n\nThe applicant is currently on step %d.", currentStep)
	}
	if len(stepData) > 0 {
		if b, err := json.Marshal(stepData); err == nil {
			prompt += "\n\nData the applicant has entered so far:\n" + string(b)
		}
	}
	return s.complete(ctx, prompt, message)
}

// Translate produces Malayalam title and content for explore articles.
func (s *AIService) Translate(ctx context.Context, titleEn, contentEn string) (titleMl, contentMl string, err error) {
	payload, _ := json.Marshal(map[string]string{
		"titleEn":   titleEn,
		"contentEn": contentEn,
	})
	raw, err := s.complete(ctx, translateSystemPrompt, string(payload))
	if err != nil {
		return "", "", err
	}

	// Models occasionally wrap the JSON in a code fence.
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var out struct {
		TitleMl   string `json:"titleMl"`
		ContentMl string `json:"contentMl"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &out); err != nil {
		return "", "", fmt.Errorf("failed to parse translation response: %w", err)
	}
	return out.TitleMl, out.ContentMl, nil
}

func (s *AIService) complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	if s.client == nil {
		return "", ErrAIUnavailable
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
		MaxTokens:   500,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
