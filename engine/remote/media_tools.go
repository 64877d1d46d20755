package remote

import (
	"context"

	"github.com/vidlingo/dub-orchestrator/engine"
	"github.com/vidlingo/dub-orchestrator/entity"
)

// MediaToolsClient talks to the ffmpeg-backed media-tools service, which
// covers download, audio extraction, mixing, encoding, HLS packaging and
// thumbnail extraction.
type MediaToolsClient struct {
	*client
}

func NewMediaToolsClient(baseURL string) *MediaToolsClient {
	return &MediaToolsClient{client: newClient(baseURL)}
}

type downloadRequest struct {
	SourceURL string `json:"source_url"`
	DestDir   string `json:"dest_dir"`
}

type downloadResponse struct {
	Path        string  `json:"path"`
	DurationSec float64 `json:"duration_sec"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	SizeBytes   int64   `json:"size_bytes"`
	Format      string  `json:"format"`
}

func (c *MediaToolsClient) Download(ctx context.Context, sourceURL, destDir string) (*engine.DownloadResult, error) {
	var resp downloadResponse
	if err := c.postJSON(ctx, "/v1/download", downloadRequest{SourceURL: sourceURL, DestDir: destDir}, &resp); err != nil {
		return nil, err
	}
	return &engine.DownloadResult{
		Path: resp.Path,
		Meta: entity.VideoMetadata{
			DurationSec: resp.DurationSec,
			Width:       resp.Width,
			Height:      resp.Height,
			SizeBytes:   resp.SizeBytes,
			Format:      resp.Format,
		},
	}, nil
}

type extractAudioRequest struct {
	VideoPath string `json:"video_path"`
	DestDir   string `json:"dest_dir"`
	// Transcription wants mono 16kHz; the service honors these as-is.
	SampleRate int `json:"sample_rate"`
	Channels   int `json:"channels"`
}

type pathResponse struct {
	Path string `json:"path"`
}

func (c *MediaToolsClient) ExtractAudio(ctx context.Context, videoPath, destDir string) (string, error) {
	var resp pathResponse
	req := extractAudioRequest{VideoPath: videoPath, DestDir: destDir, SampleRate: 16000, Channels: 1}
	if err := c.postJSON(ctx, "/v1/extract-audio", req, &resp); err != nil {
		return "", err
	}
	return resp.Path, nil
}

type mixRequest struct {
	VoicePath    string  `json:"voice_path"`
	MusicPath    string  `json:"music_path,omitempty"`
	DuckingLevel float64 `json:"ducking_level"`
	DestDir      string  `json:"dest_dir"`
}

func (c *MediaToolsClient) Mix(ctx context.Context, voicePath, musicPath string, duckingLevel float64, destDir string) (string, error) {
	var resp pathResponse
	req := mixRequest{VoicePath: voicePath, MusicPath: musicPath, DuckingLevel: duckingLevel, DestDir: destDir}
	if err := c.postJSON(ctx, "/v1/mix", req, &resp); err != nil {
		return "", err
	}
	return resp.Path, nil
}

type encodeRequest struct {
	VideoPath string `json:"video_path"`
	AudioPath string `json:"audio_path"`
	Quality   string `json:"quality"`
	DestDir   string `json:"dest_dir"`
}

type encodeResponse struct {
	Path        string  `json:"path"`
	DurationSec float64 `json:"duration_sec"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	SizeBytes   int64   `json:"size_bytes"`
	Format      string  `json:"format"`
}

func (c *MediaToolsClient) Encode(ctx context.Context, videoPath, audioPath, quality, destDir string) (*engine.EncodeResult, error) {
	var resp encodeResponse
	req := encodeRequest{VideoPath: videoPath, AudioPath: audioPath, Quality: quality, DestDir: destDir}
	if err := c.postJSON(ctx, "/v1/encode", req, &resp); err != nil {
		return nil, err
	}
	return &engine.EncodeResult{
		Path: resp.Path,
		Meta: entity.VideoMetadata{
			DurationSec: resp.DurationSec,
			Width:       resp.Width,
			Height:      resp.Height,
			SizeBytes:   resp.SizeBytes,
			Format:      resp.Format,
		},
	}, nil
}

type hlsRequest struct {
	VideoPath string `json:"video_path"`
	DestDir   string `json:"dest_dir"`
}

type hlsResponse struct {
	PlaylistPath string   `json:"playlist_path"`
	SegmentPaths []string `json:"segment_paths"`
}

func (c *MediaToolsClient) PackageHLS(ctx context.Context, videoPath, destDir string) (*engine.HLSResult, error) {
	var resp hlsResponse
	if err := c.postJSON(ctx, "/v1/hls", hlsRequest{VideoPath: videoPath, DestDir: destDir}, &resp); err != nil {
		return nil, err
	}
	return &engine.HLSResult{PlaylistPath: resp.PlaylistPath, SegmentPaths: resp.SegmentPaths}, nil
}

type thumbnailRequest struct {
	VideoPath string  `json:"video_path"`
	AtSec     float64 `json:"at_sec"`
	DestDir   string  `json:"dest_dir"`
}

func (c *MediaToolsClient) ExtractThumbnail(ctx context.Context, videoPath string, atSec float64, destDir string) (string, error) {
	var resp pathResponse
	req := thumbnailRequest{VideoPath: videoPath, AtSec: atSec, DestDir: destDir}
	if err := c.postJSON(ctx, "/v1/thumbnail", req, &resp); err != nil {
		return "", err
	}
	return resp.Path, nil
}
