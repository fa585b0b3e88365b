package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fabricworks/fabric/gen"
	googleprovider "github.com/fabricworks/fabric/gen/providers/google"
	openaiprovider "github.com/fabricworks/fabric/gen/providers/openai"
	"github.com/fabricworks/fabric/gen/providers/remotetask"
	"github.com/fabricworks/fabric/slogger"
	openaiapi "github.com/openai/openai-go"
	"google.golang.org/genai"
)

// buildAdapters assembles the adapter set from whatever credentials are
// present in the environment. Missing providers leave their slots nil;
// the engine reports a configuration error only if a run actually needs
// them.
func buildAdapters(ctx context.Context, logger slogger.Logger) (*gen.AdapterSet, error) {
	set := &gen.AdapterSet{}

	var oai *openaiprovider.Provider
	if os.Getenv("OPENAI_API_KEY") != "" {
		client := openaiapi.NewClient()
		oai = openaiprovider.NewProvider(&client)
		set.Speech = oai
	}

	var goog *googleprovider.Provider
	if hasGoogleCredentials() {
		client, err := genai.NewClient(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create google genai client: %w", err)
		}
		goog = googleprovider.NewProvider(client)
		set.Video = goog
	}

	if oai != nil || goog != nil {
		set.Text = &textRouter{openai: oai, google: goog}
		set.Image = &imageRouter{openai: oai, google: goog}
	}

	if endpoint := os.Getenv("TASK_SERVICE_URL"); endpoint != "" {
		client := remotetask.NewClient(endpoint, os.Getenv("TASK_SERVICE_TOKEN"),
			remotetask.WithLogger(logger))
		set.Tasks = client
		set.Voices = client
	} else {
		// Workflows can still carry the endpoint in their own env block.
		client := remotetask.NewClient("", "", remotetask.WithLogger(logger))
		set.Tasks = client
	}

	return set, nil
}

func hasGoogleCredentials() bool {
	return os.Getenv("GEMINI_API_KEY") != "" ||
		os.Getenv("GOOGLE_API_KEY") != "" ||
		os.Getenv("GOOGLE_GENAI_USE_VERTEXAI") != ""
}

// textRouter picks a text backend by model family.
type textRouter struct {
	openai *openaiprovider.Provider
	google *googleprovider.Provider
}

func (r *textRouter) GenerateText(ctx context.Context, req *gen.TextRequest) (*gen.TextResponse, error) {
	if strings.HasPrefix(req.Model, "gemini") {
		if r.google == nil {
			return nil, fmt.Errorf("model %q needs google credentials", req.Model)
		}
		return r.google.GenerateText(ctx, req)
	}
	if r.openai != nil {
		return r.openai.GenerateText(ctx, req)
	}
	if r.google != nil {
		return r.google.GenerateText(ctx, req)
	}
	return nil, fmt.Errorf("no text generation backend configured")
}

// imageRouter picks an image backend by model family.
type imageRouter struct {
	openai *openaiprovider.Provider
	google *googleprovider.Provider
}

func (r *imageRouter) GenerateImage(ctx context.Context, req *gen.ImageRequest) (*gen.ImageResponse, error) {
	if strings.HasPrefix(req.Model, "imagen") {
		if r.google == nil {
			return nil, fmt.Errorf("model %q needs google credentials", req.Model)
		}
		return r.google.GenerateImage(ctx, req)
	}
	if r.openai != nil {
		return r.openai.GenerateImage(ctx, req)
	}
	if r.google != nil {
		return r.google.GenerateImage(ctx, req)
	}
	return nil, fmt.Errorf("no image generation backend configured")
}
