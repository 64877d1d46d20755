package remote

import (
	"context"

	"github.com/vidlingo/dub-orchestrator/engine"
)

type SeparatorClient struct {
	*client
}

func NewSeparatorClient(baseURL string) *SeparatorClient {
	return &SeparatorClient{client: newClient(baseURL)}
}

type separateRequest struct {
	AudioPath string `json:"audio_path"`
	DestDir   string `json:"dest_dir"`
}

type separateResponse struct {
	VoicePath string `json:"voice_path"`
	// Empty when the separator does not support the input and passed the
	// original audio through as the voice track.
	MusicPath string `json:"music_path"`
}

func (c *SeparatorClient) Separate(ctx context.Context, audioPath, destDir string) (*engine.SeparationResult, error) {
	var resp separateResponse
	if err := c.postJSON(ctx, "/v1/separate", separateRequest{AudioPath: audioPath, DestDir: destDir}, &resp); err != nil {
		return nil, err
	}
	return &engine.SeparationResult{VoicePath: resp.VoicePath, MusicPath: resp.MusicPath}, nil
}
