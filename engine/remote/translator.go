package remote

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// TranslationCache is satisfied by infra.RedisClient. A Get error is
// treated as a miss; cache behavior is invisible to callers.
type TranslationCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

const translationCacheTTL = 30 * 24 * time.Hour

type TranslatorClient struct {
	*client
	cache TranslationCache
}

func NewTranslatorClient(baseURL string, cache TranslationCache) *TranslatorClient {
	return &TranslatorClient{client: newClient(baseURL), cache: cache}
}

type translateRequest struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

type translateResponse struct {
	TranslatedText string `json:"translated_text"`
}

func (c *TranslatorClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	key := translationCacheKey(text, sourceLang, targetLang)

	if c.cache != nil {
		var cached string
		if err := c.cache.Get(ctx, key, &cached); err == nil && cached != "" {
			return cached, nil
		}
	}

	var resp translateResponse
	req := translateRequest{Text: text, SourceLanguage: sourceLang, TargetLanguage: targetLang}
	if err := c.postJSON(ctx, "/v1/translate", req, &resp); err != nil {
		return "", err
	}

	if c.cache != nil {
		_ = c.cache.Set(ctx, key, resp.TranslatedText, translationCacheTTL)
	}

	return resp.TranslatedText, nil
}

func translationCacheKey(text, sourceLang, targetLang string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("dub:translation:%s:%s:%s", sourceLang, targetLang, hex.EncodeToString(sum[:]))
}
