// Package engine defines the narrow contracts of the external processing
// engines the dub pipeline delegates to. Each engine is a single
// request/response capability; its internals (tooling, retries, caching)
// are its own concern.
package engine

import (
	"context"

	"github.com/vidlingo/dub-orchestrator/entity"
)

type DownloadResult struct {
	Path string
	Meta entity.VideoMetadata
}

// SeparationResult carries the split tracks. MusicPath is empty when the
// separator does not support the input and passed the audio through.
type SeparationResult struct {
	VoicePath string
	MusicPath string
}

type Transcript struct {
	Text     string
	Language string
	Segments []entity.SpeechSegment
}

type EncodeResult struct {
	Path string
	Meta entity.VideoMetadata
}

type HLSResult struct {
	PlaylistPath string
	SegmentPaths []string
}

type Downloader interface {
	Download(ctx context.Context, sourceURL, destDir string) (*DownloadResult, error)
}

type AudioExtractor interface {
	// ExtractAudio produces a mono 16kHz track suited for transcription.
	ExtractAudio(ctx context.Context, videoPath, destDir string) (string, error)
}

type SourceSeparator interface {
	Separate(ctx context.Context, audioPath, destDir string) (*SeparationResult, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) (*Transcript, error)
}

type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

type VoiceSynthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string, segments []entity.SpeechSegment, destDir string) (string, error)
}

type AudioMixer interface {
	Mix(ctx context.Context, voicePath, musicPath string, duckingLevel float64, destDir string) (string, error)
}

type VideoEncoder interface {
	Encode(ctx context.Context, videoPath, audioPath, quality, destDir string) (*EncodeResult, error)
}

type StreamPackager interface {
	PackageHLS(ctx context.Context, videoPath, destDir string) (*HLSResult, error)
}

type ThumbnailExtractor interface {
	ExtractThumbnail(ctx context.Context, videoPath string, atSec float64, destDir string) (string, error)
}

// Set bundles one implementation of every engine the pipeline needs.
type Set struct {
	Downloader  Downloader
	Extractor   AudioExtractor
	Separator   SourceSeparator
	Transcriber Transcriber
	Translator  Translator
	Synthesizer VoiceSynthesizer
	Mixer       AudioMixer
	Encoder     VideoEncoder
	Packager    StreamPackager
	Thumbnailer ThumbnailExtractor
}
