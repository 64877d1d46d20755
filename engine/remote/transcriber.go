package remote

import (
	"context"

	"github.com/vidlingo/dub-orchestrator/engine"
	"github.com/vidlingo/dub-orchestrator/entity"
)

type TranscriberClient struct {
	*client
}

func NewTranscriberClient(baseURL string) *TranscriberClient {
	return &TranscriberClient{client: newClient(baseURL)}
}

type transcribeRequest struct {
	AudioPath string `json:"audio_path"`
	Language  string `json:"language"`
}

type transcribeResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		StartSec float64 `json:"start_sec"`
		EndSec   float64 `json:"end_sec"`
		Text     string  `json:"text"`
	} `json:"segments"`
}

func (c *TranscriberClient) Transcribe(ctx context.Context, audioPath, language string) (*engine.Transcript, error) {
	var resp transcribeResponse
	if err := c.postJSON(ctx, "/v1/transcribe", transcribeRequest{AudioPath: audioPath, Language: language}, &resp); err != nil {
		return nil, err
	}

	segments := make([]entity.SpeechSegment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segments = append(segments, entity.SpeechSegment{StartSec: s.StartSec, EndSec: s.EndSec, Text: s.Text})
	}

	return &engine.Transcript{Text: resp.Text, Language: resp.Language, Segments: segments}, nil
}
