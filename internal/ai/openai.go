// Package ai talks to OpenAI for transcription, answer analysis and the
// conversation tutor.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/example/hablabot/pkg/models"
	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
)

// SpeechAnalysis is the model's verdict on one spoken answer
type SpeechAnalysis struct {
	PronunciationScore    int      `json:"pronunciationScore"`
	PronunciationIssues   []string `json:"pronunciationIssues"`
	GrammarScore          int      `json:"grammarScore"`
	GrammarIssues         []string `json:"grammarIssues"`
	VocabularyScore       int      `json:"vocabularyScore"`
	VocabularySuggestions []string `json:"vocabularySuggestions"`
	OverallFeedback       string   `json:"overallFeedback"`
	WeakAreasDetected     []string `json:"weakAreasDetected"`
}

// Client wraps the OpenAI SDK client
type Client struct {
	client          oai.Client
	chatModel       string
	transcribeModel string
}

// New creates a client. Extra request options are passed to the SDK (base URL in tests).
func New(apiKey, chatModel, transcribeModel string, opts ...option.RequestOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if chatModel == "" || transcribeModel == "" {
		return nil, fmt.Errorf("openai: models must not be empty")
	}
	reqOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Client{
		client:          oai.NewClient(reqOpts...),
		chatModel:       chatModel,
		transcribeModel: transcribeModel,
	}, nil
}

// Transcribe turns Spanish audio into text
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	resp, err := c.client.Audio.Transcriptions.New(ctx, oai.AudioTranscriptionNewParams{
		File:     oai.File(audio, filename, contentType),
		Model:    oai.AudioModel(c.transcribeModel),
		Language: oai.String("es"),
	})
	if err != nil {
		return "", fmt.Errorf("openai: transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// AnalyzeSpeech grades a transcription against the expected answer
func (c *Client) AnalyzeSpeech(ctx context.Context, transcription, expected, exerciseType string, level models.Level) (*SpeechAnalysis, error) {
	resp, err := c.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.chatModel),
		Messages: []oai.ChatCompletionMessageParamUnion{oai.UserMessage(AnalysisPrompt(transcription, expected, exerciseType, level))},
		ResponseFormat: oai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
		Temperature: param.NewOpt(0.3),
	})
	if err != nil {
		return nil, fmt.Errorf("openai: analysis: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty choices in response")
	}
	return ParseAnalysis(resp.Choices[0].Message.Content)
}

// Reply produces the tutor's next turn of a conversation
func (c *Client) Reply(ctx context.Context, history []models.ConversationMessage, level models.Level, scenario string) (string, error) {
	messages, err := tutorMessages(history, level, scenario)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model:               shared.ChatModel(c.chatModel),
		Messages:            messages,
		Temperature:         param.NewOpt(0.7),
		MaxCompletionTokens: param.NewOpt(int64(200)),
	})
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ParseAnalysis decodes the JSON object returned by the model and clamps scores to 0..100
func ParseAnalysis(content string) (*SpeechAnalysis, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("openai: no response content")
	}
	var a SpeechAnalysis
	if err := json.Unmarshal([]byte(content), &a); err != nil {
		return nil, fmt.Errorf("openai: decode analysis: %w", err)
	}
	a.PronunciationScore = clamp(a.PronunciationScore)
	a.GrammarScore = clamp(a.GrammarScore)
	a.VocabularyScore = clamp(a.VocabularyScore)
	return &a, nil
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func tutorMessages(history []models.ConversationMessage, level models.Level, scenario string) ([]oai.ChatCompletionMessageParamUnion, error) {
	messages := []oai.ChatCompletionMessageParamUnion{oai.SystemMessage(TutorSystemPrompt(level, scenario))}
	for _, m := range history {
		switch m.Role {
		case "user":
			messages = append(messages, oai.UserMessage(m.Content))
		case "assistant":
			messages = append(messages, oai.AssistantMessage(m.Content))
		default:
			return nil, fmt.Errorf("openai: unknown message role %q", m.Role)
		}
	}
	return messages, nil
}

// AnalysisPrompt builds the grading prompt
func AnalysisPrompt(transcription, expected, exerciseType string, level models.Level) string {
	if exerciseType == "" {
		exerciseType = "practice"
	}
	return fmt.Sprintf(`You are a Spanish language tutor. Analyze this student response:

Expected: %q
Student said: %q
Context: %s
Student level: %s

Provide a JSON response with this exact structure:
{
  "pronunciationScore": <number 0-100>,
  "pronunciationIssues": ["<specific issue 1>", ...],
  "grammarScore": <number 0-100>,
  "grammarIssues": ["<specific issue 1>", ...],
  "vocabularyScore": <number 0-100>,
  "vocabularySuggestions": ["<better alternative 1>", ...],
  "overallFeedback": "<encouraging, specific feedback in 1-2 sentences>",
  "weakAreasDetected": ["<area1>", "<area2>"]
}

Be encouraging but honest. Focus on the most important issues.
If the transcription is very different from expected, the student may have said something valid but different.
Return ONLY the JSON, no other text.`, expected, transcription, exerciseType, level)
}

// TutorSystemPrompt sets up the conversation partner
func TutorSystemPrompt(level models.Level, scenario string) string {
	setting := "This is a free conversation."
	if scenario != "" {
		setting = "Scenario: " + scenario
	}
	return fmt.Sprintf(`You are a friendly Spanish language tutor having a conversation with a student.

Student level: %s
%s

Guidelines:
- Respond primarily in Spanish, at a level appropriate for the student
- If they make mistakes, gently correct them by naturally incorporating the correct form in your response
- Keep responses concise (1-3 sentences)
- Be encouraging and supportive
- If they seem stuck, offer a gentle prompt or suggestion
- Include translations of difficult words in parentheses for beginners

Remember: You are simulating a real conversation, not giving a lesson. Be natural.`, level, setting)
}
