// Package google adapts Google GenAI to the engine's text, image, and
// video generation contracts.
package google

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/fabricworks/fabric/gen"
	"google.golang.org/genai"
)

const (
	DefaultTextModel  = "gemini-2.5-flash"
	DefaultImageModel = "imagen-4.0-generate-001"
	DefaultVideoModel = "veo-2.0-generate-001"

	DefaultPollInterval = 10 * time.Second
)

// Provider implements gen.TextGenerator, gen.ImageGenerator, and
// gen.VideoGenerator against Google GenAI. Video generation polls the
// long-running operation to completion before returning.
type Provider struct {
	client       *genai.Client
	pollInterval time.Duration
}

// Option configures a Provider.
type Option func(*Provider)

func WithPollInterval(d time.Duration) Option {
	return func(p *Provider) { p.pollInterval = d }
}

// NewProvider creates a Google GenAI provider around an existing client.
func NewProvider(client *genai.Client, opts ...Option) *Provider {
	p := &Provider{
		client:       client,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GenerateText generates text with Gemini, optionally grounded with
// Google Search and optionally structured into declared output fields.
func (p *Provider) GenerateText(ctx context.Context, req *gen.TextRequest) (*gen.TextResponse, error) {
	if p.client == nil {
		return nil, fmt.Errorf("google genai client is not initialized")
	}
	model := req.Model
	if model == "" {
		model = DefaultTextModel
	}
	prompt := gen.StructuredPrompt(req.Prompt, req.OutputFields)

	config := &genai.GenerateContentConfig{}
	if req.CustomInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(req.CustomInstruction)},
		}
	}
	if req.UseSearchGrounding {
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	response, err := p.client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return nil, fmt.Errorf("error generating text: %w", err)
	}
	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty response from model")
	}

	var sb strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	text := sb.String()

	if len(req.OutputFields) > 0 {
		return &gen.TextResponse{Fields: gen.ParseStructuredText(text, req.OutputFields)}, nil
	}
	return &gen.TextResponse{Text: text}, nil
}

// GenerateImage generates a single image with Imagen and returns it as an
// embedded base64 data string.
func (p *Provider) GenerateImage(ctx context.Context, req *gen.ImageRequest) (*gen.ImageResponse, error) {
	if p.client == nil {
		return nil, fmt.Errorf("google genai client is not initialized")
	}
	if req.Prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	model := req.Model
	if model == "" {
		model = DefaultImageModel
	}

	config := &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: "image/png",
	}
	if req.AspectRatio != "" {
		config.AspectRatio = req.AspectRatio
	}

	response, err := p.client.Models.GenerateImages(ctx, model, req.Prompt, config)
	if err != nil {
		return nil, fmt.Errorf("error generating image: %w", err)
	}
	if len(response.GeneratedImages) == 0 {
		return nil, fmt.Errorf("no images were generated")
	}

	image := response.GeneratedImages[0].Image
	if image == nil || len(image.ImageBytes) == 0 {
		return nil, fmt.Errorf("image response carried no payload")
	}
	encoded := base64.StdEncoding.EncodeToString(image.ImageBytes)
	return &gen.ImageResponse{Image: "data:image/png;base64," + encoded}, nil
}

// GenerateVideo starts a Veo generation and polls the operation until it
// completes, returning the resulting video URL.
func (p *Provider) GenerateVideo(ctx context.Context, req *gen.VideoRequest) (*gen.VideoResponse, error) {
	if p.client == nil {
		return nil, fmt.Errorf("google genai client is not initialized")
	}
	if req.Prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	model := req.Model
	if model == "" {
		model = DefaultVideoModel
	}

	config := &genai.GenerateVideosConfig{}
	if req.AspectRatio != "" {
		config.AspectRatio = req.AspectRatio
	}

	var startImage *genai.Image
	if req.StartImage != "" {
		image, err := decodeImagePayload(req.StartImage)
		if err != nil {
			return nil, fmt.Errorf("invalid start image: %w", err)
		}
		startImage = image
	}

	operation, err := p.client.Models.GenerateVideos(ctx, model, req.Prompt, startImage, config)
	if err != nil {
		return nil, fmt.Errorf("error generating video: %w", err)
	}

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()
	for !operation.Done {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			operation, err = p.client.Operations.GetVideosOperation(ctx, operation, nil)
			if err != nil {
				return nil, fmt.Errorf("error polling video operation: %w", err)
			}
		}
	}

	if operation.Response == nil || len(operation.Response.GeneratedVideos) == 0 {
		return nil, fmt.Errorf("no videos were generated")
	}
	video := operation.Response.GeneratedVideos[0].Video
	if video == nil {
		return nil, fmt.Errorf("video response carried no payload")
	}
	if video.URI != "" {
		return &gen.VideoResponse{URL: video.URI}, nil
	}
	if len(video.VideoBytes) > 0 {
		mime := video.MIMEType
		if mime == "" {
			mime = "video/mp4"
		}
		encoded := base64.StdEncoding.EncodeToString(video.VideoBytes)
		return &gen.VideoResponse{URL: "data:" + mime + ";base64," + encoded}, nil
	}
	return nil, fmt.Errorf("video response carried no payload")
}

// decodeImagePayload converts an embedded base64 data string into a
// genai.Image. A plain URI is passed through by reference.
func decodeImagePayload(payload string) (*genai.Image, error) {
	if !strings.HasPrefix(payload, "data:") {
		return &genai.Image{GCSURI: payload}, nil
	}
	comma := strings.Index(payload, ",")
	if comma == -1 {
		return nil, fmt.Errorf("malformed data string")
	}
	header := payload[len("data:"):comma]
	mime := strings.TrimSuffix(header, ";base64")
	raw, err := base64.StdEncoding.DecodeString(payload[comma+1:])
	if err != nil {
		return nil, fmt.Errorf("decoding base64 payload: %w", err)
	}
	return &genai.Image{ImageBytes: raw, MIMEType: mime}, nil
}
