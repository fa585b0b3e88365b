// Package openai adapts the OpenAI API to the engine's text, image, and
// speech generation contracts.
package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/fabricworks/fabric/gen"
	"github.com/fabricworks/fabric/retry"
	openaiapi "github.com/openai/openai-go"
)

const (
	DefaultTextModel   = "gpt-4o"
	DefaultImageModel  = "gpt-image-1"
	DefaultSpeechModel = "gpt-4o-mini-tts"
	DefaultVoice       = "alloy"

	DefaultMaxRetries = 3
	DefaultBaseWait   = 2 * time.Second
)

// Provider implements gen.TextGenerator, gen.ImageGenerator, and
// gen.SpeechGenerator against the OpenAI API.
type Provider struct {
	client     *openaiapi.Client
	maxRetries int
	baseWait   time.Duration
}

// Option configures a Provider.
type Option func(*Provider)

func WithMaxRetries(n int) Option {
	return func(p *Provider) { p.maxRetries = n }
}

func WithBaseWait(d time.Duration) Option {
	return func(p *Provider) { p.baseWait = d }
}

// NewProvider creates an OpenAI provider around an existing client.
func NewProvider(client *openaiapi.Client, opts ...Option) *Provider {
	p := &Provider{
		client:     client,
		maxRetries: DefaultMaxRetries,
		baseWait:   DefaultBaseWait,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GenerateText runs a chat completion. When output fields are declared,
// the prompt is extended with JSON instructions and the response parsed
// into one value per field.
func (p *Provider) GenerateText(ctx context.Context, req *gen.TextRequest) (*gen.TextResponse, error) {
	model := req.Model
	if model == "" {
		model = DefaultTextModel
	}
	prompt := gen.StructuredPrompt(req.Prompt, req.OutputFields)

	var messages []openaiapi.ChatCompletionMessageParamUnion
	if req.CustomInstruction != "" {
		messages = append(messages, openaiapi.SystemMessage(req.CustomInstruction))
	}
	messages = append(messages, openaiapi.UserMessage(prompt))

	params := openaiapi.ChatCompletionNewParams{
		Model:    openaiapi.ChatModel(model),
		Messages: messages,
	}

	var completion *openaiapi.ChatCompletion
	err := retry.Do(ctx, func() error {
		var callErr error
		completion, callErr = p.client.Chat.Completions.New(ctx, params)
		if callErr != nil {
			return retry.NewRecoverableError(callErr)
		}
		return nil
	}, retry.WithMaxRetries(p.maxRetries), retry.WithBaseWait(p.baseWait))
	if err != nil {
		return nil, fmt.Errorf("error generating text: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no completion choices returned")
	}

	text := completion.Choices[0].Message.Content
	if len(req.OutputFields) > 0 {
		return &gen.TextResponse{Fields: gen.ParseStructuredText(text, req.OutputFields)}, nil
	}
	return &gen.TextResponse{Text: text}, nil
}

// GenerateImage generates a single image and returns it as a URL or an
// embedded base64 data string.
func (p *Provider) GenerateImage(ctx context.Context, req *gen.ImageRequest) (*gen.ImageResponse, error) {
	if req.Prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	model := req.Model
	if model == "" {
		model = DefaultImageModel
	}

	params := openaiapi.ImageGenerateParams{
		Prompt: req.Prompt,
		Model:  openaiapi.ImageModel(model),
		N:      openaiapi.Int(1),
	}
	if size := sizeForAspectRatio(req.AspectRatio); size != "" {
		params.Size = openaiapi.ImageGenerateParamsSize(size)
	}

	response, err := p.client.Images.Generate(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("error generating image: %w", err)
	}
	if len(response.Data) == 0 {
		return nil, fmt.Errorf("no images were generated")
	}

	image := response.Data[0]
	if image.URL != "" {
		return &gen.ImageResponse{Image: image.URL}, nil
	}
	if image.B64JSON != "" {
		return &gen.ImageResponse{Image: "data:image/png;base64," + image.B64JSON}, nil
	}
	return nil, fmt.Errorf("image response carried no payload")
}

// GenerateSpeech synthesizes speech and returns the audio base64-encoded.
func (p *Provider) GenerateSpeech(ctx context.Context, req *gen.SpeechRequest) (*gen.SpeechResponse, error) {
	if req.Text == "" {
		return nil, fmt.Errorf("text is required")
	}
	model := req.Model
	if model == "" {
		model = DefaultSpeechModel
	}
	voice := req.Voice
	if voice == "" {
		voice = DefaultVoice
	}

	params := openaiapi.AudioSpeechNewParams{
		Model: openaiapi.SpeechModel(model),
		Voice: openaiapi.AudioSpeechNewParamsVoice(voice),
		Input: req.Text,
	}
	if req.ToneInstruction != "" {
		params.Instructions = openaiapi.String(req.ToneInstruction)
	}

	response, err := p.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("error generating speech: %w", err)
	}
	defer response.Body.Close()

	audio, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading speech response: %w", err)
	}
	return &gen.SpeechResponse{
		Audio:    base64.StdEncoding.EncodeToString(audio),
		MIMEType: "audio/mpeg",
	}, nil
}

// sizeForAspectRatio maps the editor's aspect ratios onto the sizes the
// image API accepts. Unknown ratios fall through to the API default.
func sizeForAspectRatio(ratio string) string {
	switch ratio {
	case "1:1":
		return "1024x1024"
	case "16:9", "3:2":
		return "1536x1024"
	case "9:16", "2:3":
		return "1024x1536"
	default:
		return ""
	}
}
