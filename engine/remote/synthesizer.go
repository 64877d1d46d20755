package remote

import (
	"context"

	"github.com/vidlingo/dub-orchestrator/entity"
)

type SynthesizerClient struct {
	*client
}

func NewSynthesizerClient(baseURL string) *SynthesizerClient {
	return &SynthesizerClient{client: newClient(baseURL)}
}

type synthesizeRequest struct {
	Text     string                 `json:"text"`
	VoiceID  string                 `json:"voice_id"`
	Segments []entity.SpeechSegment `json:"segments"`
	DestDir  string                 `json:"dest_dir"`
}

func (c *SynthesizerClient) Synthesize(ctx context.Context, text, voiceID string, segments []entity.SpeechSegment, destDir string) (string, error) {
	var resp pathResponse
	req := synthesizeRequest{Text: text, VoiceID: voiceID, Segments: segments, DestDir: destDir}
	if err := c.postJSON(ctx, "/v1/synthesize", req, &resp); err != nil {
		return "", err
	}
	return resp.Path, nil
}
