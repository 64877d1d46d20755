package remote

import (
	"github.com/vidlingo/dub-orchestrator/config"
	"github.com/vidlingo/dub-orchestrator/engine"
)

func NewEngineSet(cfg *config.EnvConfig, cache TranslationCache) *engine.Set {
	media := NewMediaToolsClient(cfg.Engine.MediaToolsURL)

	return &engine.Set{
		Downloader:  media,
		Extractor:   media,
		Separator:   NewSeparatorClient(cfg.Engine.SeparatorURL),
		Transcriber: NewTranscriberClient(cfg.Engine.TranscribeURL),
		Translator:  NewTranslatorClient(cfg.Engine.TranslateURL, cache),
		Synthesizer: NewSynthesizerClient(cfg.Engine.SynthesizeURL),
		Mixer:       media,
		Encoder:     media,
		Packager:    media,
		Thumbnailer: media,
	}
}
