// Package speech renders dialogue turns as audio through AWS Polly.
package speech

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/polly"
	"github.com/aws/aws-sdk-go/service/polly/pollyiface"

	"github.com/castforge/podcast-be/internal/domain"
)

// pollyMP3BitsPerSecond is the fixed bitrate of Polly's mp3 output, used
// to estimate segment duration from the synthesized byte length.
const pollyMP3BitsPerSecond = 48000

// Config holds speech synthesis configuration
type Config struct {
	// Voices maps script speaker names to Polly voice IDs.
	Voices map[string]string

	// FallbackVoices are assigned round-robin to speakers missing from
	// Voices; each speaker keeps its assigned voice for the whole run.
	FallbackVoices []string
}

// Synthesizer converts dialogue turns to mp3 audio, one Polly call per
// turn. It implements the worker's SpeechSynthesizer contract.
type Synthesizer struct {
	client   pollyiface.PollyAPI
	voices   map[string]string
	fallback []string

	mu       sync.Mutex
	assigned map[string]string
	next     int
}

// NewSynthesizer creates a synthesizer on the given Polly client. Without
// configured voices it falls back to a stock pair.
func NewSynthesizer(client pollyiface.PollyAPI, cfg *Config) *Synthesizer {
	voices := cfg.Voices
	if voices == nil {
		voices = map[string]string{}
	}
	fallback := cfg.FallbackVoices
	if len(fallback) == 0 {
		fallback = []string{polly.VoiceIdJoanna, polly.VoiceIdMatthew}
	}

	return &Synthesizer{
		client:   client,
		voices:   voices,
		fallback: fallback,
		assigned: map[string]string{},
	}
}

// SynthesizeTurn renders one turn with the speaker's voice and returns the
// mp3 bytes with an estimated duration.
func (s *Synthesizer) SynthesizeTurn(ctx context.Context, turn domain.DialogueTurn) (domain.AudioSegment, error) {
	voice := s.voiceFor(turn.Speaker)

	out, err := s.client.SynthesizeSpeechWithContext(ctx, &polly.SynthesizeSpeechInput{
		Engine:       aws.String(polly.EngineNeural),
		OutputFormat: aws.String(polly.OutputFormatMp3),
		TextType:     aws.String(polly.TextTypeText),
		VoiceId:      aws.String(voice),
		Text:         aws.String(turn.Text),
	})
	if err != nil {
		return domain.AudioSegment{}, fmt.Errorf("synthesize speech with voice %s: %w", voice, err)
	}
	defer out.AudioStream.Close()

	data, err := io.ReadAll(out.AudioStream)
	if err != nil {
		return domain.AudioSegment{}, fmt.Errorf("read synthesized audio: %w", err)
	}
	if len(data) == 0 {
		return domain.AudioSegment{}, fmt.Errorf("synthesized audio for voice %s is empty", voice)
	}

	return domain.AudioSegment{
		Data:     data,
		Duration: estimateDuration(len(data)),
	}, nil
}

// voiceFor resolves the voice for a speaker. Speakers missing from the
// configured map get the next fallback voice and keep it on later turns.
func (s *Synthesizer) voiceFor(speaker string) string {
	if voice, ok := s.voices[speaker]; ok {
		return voice
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if voice, ok := s.assigned[speaker]; ok {
		return voice
	}
	voice := s.fallback[s.next%len(s.fallback)]
	s.next++
	s.assigned[speaker] = voice
	return voice
}

func estimateDuration(byteLen int) time.Duration {
	return time.Duration(byteLen) * 8 * time.Second / pollyMP3BitsPerSecond
}
