// Package tts synthesizes Hebrew voice notes through the OpenAI speech API.
package tts

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"halacha-yomi-bot/internal/domain"
	"halacha-yomi-bot/internal/infra/metrics"
)

// The speech endpoint accepts at most 4096 characters per request.
const maxInputChars = 4096

// Synthesizer turns text into an Opus voice note.
type Synthesizer struct {
	client *openai.Client
	voice  openai.SpeechVoice
	log    zerolog.Logger
}

var _ domain.SpeechSynthesizer = (*Synthesizer)(nil)

func New(apiKey, voice string, log zerolog.Logger) *Synthesizer {
	v := openai.SpeechVoice(voice)
	if v == "" {
		v = openai.VoiceOnyx
	}
	return &Synthesizer{client: openai.NewClient(apiKey), voice: v, log: log}
}

// Synthesize renders the text as one Opus stream. Long texts are synthesized
// in sentence-aligned chunks and the resulting Ogg streams are chained, which
// players treat as a single continuous file.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	chunks := chunkText(text, maxInputChars)
	if len(chunks) == 0 {
		return nil, nil
	}
	s.log.Debug().Int("chunks", len(chunks)).Int("chars", len([]rune(text))).Msg("tts: synthesizing")

	var audio []byte
	for _, chunk := range chunks {
		data, err := s.synthesizeChunk(ctx, chunk)
		if err != nil {
			return nil, &domain.SynthesisError{Err: err}
		}
		audio = append(audio, data...)
	}
	return audio, nil
}

func (s *Synthesizer) synthesizeChunk(ctx context.Context, text string) ([]byte, error) {
	start := time.Now()
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          s.voice,
		ResponseFormat: openai.SpeechResponseFormatOpus,
	})
	metrics.ObserveNetworkRequest("openai_tts", "create_speech", string(s.voice), start, err)
	if err != nil {
		return nil, err
	}
	defer resp.Close()
	return io.ReadAll(resp)
}

// chunkText splits text into pieces of at most maxChars characters, packing
// whole sentences together and falling back to word boundaries when a single
// sentence is too long. Sentences end at a period, colon or sof pasuk.
func chunkText(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len([]rune(text)) <= maxChars {
		return []string{text}
	}

	var chunks []string
	current := ""
	flush := func() {
		if current != "" {
			chunks = append(chunks, current)
			current = ""
		}
	}
	add := func(piece string) {
		candidate := piece
		if current != "" {
			candidate = current + " " + piece
		}
		if len([]rune(candidate)) <= maxChars {
			current = candidate
			return
		}
		flush()
		current = piece
	}

	for _, sentence := range splitSentences(text) {
		if len([]rune(sentence)) <= maxChars {
			add(sentence)
			continue
		}
		for _, word := range strings.Fields(sentence) {
			add(word)
		}
	}
	flush()
	return chunks
}

// splitSentences cuts after sentence punctuation followed by whitespace.
func splitSentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes)-1; i++ {
		switch runes[i] {
		case '.', ':', '׃':
			if runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t' {
				out = append(out, strings.TrimSpace(string(runes[start:i+1])))
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		out = append(out, rest)
	}
	return out
}
