// Package gen defines the generation adapter contracts consumed by the
// execution engine: text, image, speech, and video generation, the
// external task-based service, and voice management. Provider
// implementations live under gen/providers.
package gen

import "context"

// OutputField declares one named field of a structured text generation.
type OutputField struct {
	ID          string `json:"id" yaml:"id"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// TextRequest asks for a text generation, optionally structured into
// named output fields.
type TextRequest struct {
	Prompt             string        `json:"prompt"`
	Model              string        `json:"model,omitempty"`
	Mode               string        `json:"mode,omitempty"`
	CustomInstruction  string        `json:"custom_instruction,omitempty"`
	UseSearchGrounding bool          `json:"use_search_grounding,omitempty"`
	OutputFields       []OutputField `json:"output_fields,omitempty"`
}

// TextResponse is a text generation result. Fields is non-nil exactly
// when the request declared output fields, and then contains one entry
// per declared field id.
type TextResponse struct {
	Text   string            `json:"text,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ImageRequest asks for an image generation.
type ImageRequest struct {
	Prompt          string   `json:"prompt"`
	ReferenceImages []string `json:"reference_images,omitempty"`
	AspectRatio     string   `json:"aspect_ratio,omitempty"`
	Model           string   `json:"model,omitempty"`
}

// ImageResponse carries the generated image as a URL or an embedded data
// string.
type ImageResponse struct {
	Image string `json:"image"`
}

// SpeechRequest asks for a speech synthesis.
type SpeechRequest struct {
	Text            string `json:"text"`
	Voice           string `json:"voice,omitempty"`
	Model           string `json:"model,omitempty"`
	ToneInstruction string `json:"tone_instruction,omitempty"`
}

// SpeechResponse carries the raw audio payload, base64-encoded, with its
// MIME type.
type SpeechResponse struct {
	Audio    string `json:"audio"`
	MIMEType string `json:"mime_type,omitempty"`
}

// VideoRequest asks for a video generation.
type VideoRequest struct {
	Prompt         string `json:"prompt"`
	StartImage     string `json:"start_image,omitempty"`
	AspectRatio    string `json:"aspect_ratio,omitempty"`
	Resolution     string `json:"resolution,omitempty"`
	ReferenceVideo string `json:"reference_video,omitempty"`
	Model          string `json:"model,omitempty"`
}

// VideoResponse carries the generated video URL.
type VideoResponse struct {
	URL string `json:"url"`
}

// TextGenerator generates text, optionally structured into fields.
type TextGenerator interface {
	GenerateText(ctx context.Context, req *TextRequest) (*TextResponse, error)
}

// ImageGenerator generates a single image.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResponse, error)
}

// SpeechGenerator synthesizes speech from text.
type SpeechGenerator interface {
	GenerateSpeech(ctx context.Context, req *SpeechRequest) (*SpeechResponse, error)
}

// VideoGenerator generates a video, polling any underlying long-running
// operation to completion before returning.
type VideoGenerator interface {
	GenerateVideo(ctx context.Context, req *VideoRequest) (*VideoResponse, error)
}

// TaskRequest submits work to the external task-based service.
type TaskRequest struct {
	Endpoint       string `json:"endpoint"`
	Token          string `json:"token"`
	TaskKind       string `json:"task_kind"`
	ModelClass     string `json:"model_class,omitempty"`
	Prompt         string `json:"prompt,omitempty"`
	InputImage     string `json:"input_image,omitempty"`
	InputAudio     string `json:"input_audio,omitempty"`
	LastFrameImage string `json:"last_frame_image,omitempty"`
	OutputName     string `json:"output_name,omitempty"`
	AspectRatio    string `json:"aspect_ratio,omitempty"`
	InputVideo     string `json:"input_video,omitempty"`
}

// TaskRunner submits a task and polls its status at a fixed interval up
// to a bounded attempt count, returning the result URL.
type TaskRunner interface {
	RunTask(ctx context.Context, req *TaskRequest) (string, error)
}

// VoiceCatalog is the normalized shape of a voice listing, regardless of
// the backend's own response layout.
type VoiceCatalog struct {
	Voices    []string `json:"voices"`
	Emotions  []string `json:"emotions"`
	Languages []string `json:"languages"`
}

// VoiceService lists voices, clones a voice from an audio sample, and
// synthesizes speech from a cloned speaker.
type VoiceService interface {
	ListVoices(ctx context.Context) (*VoiceCatalog, error)
	CloneVoice(ctx context.Context, audioSample string) (string, error)
	SynthesizeCloned(ctx context.Context, speakerID, text string) (*SpeechResponse, error)
}

// AdapterSet bundles the adapters the execution engine dispatches to,
// keyed by tool kind. Task-service-backed models route through Tasks
// instead of the kind's regular adapter.
type AdapterSet struct {
	Text   TextGenerator
	Image  ImageGenerator
	Speech SpeechGenerator
	Video  VideoGenerator
	Tasks  TaskRunner
	Voices VoiceService
}
