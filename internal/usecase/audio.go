package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/singleflight"

	"ArticleEnricher/internal/domain"
	"ArticleEnricher/internal/ports"
)

// AudioFallback serves paragraph audio on demand, synthesizing it when the
// artifact is missing.
type AudioFallback struct {
	store  ports.ArticleStore
	audio  ports.AudioStore
	speech ports.SpeechSynthesizer
	logger *slog.Logger
	group  singleflight.Group
}

// NewAudioFallback wires the on-demand audio path.
func NewAudioFallback(store ports.ArticleStore, audio ports.AudioStore, speech ports.SpeechSynthesizer, logger *slog.Logger) *AudioFallback {
	return &AudioFallback{store: store, audio: audio, speech: speech, logger: logger}
}

// ParagraphAudio returns the encoded audio of a text paragraph. Concurrent
// requests for the same paragraph share one lookup and at most one synthesis.
// The shared work is detached from the caller that started it; each caller
// only stops waiting when its own ctx ends. Unknown or image-only paragraphs
// yield ErrNotFound; a failed synthesis yields ErrAudioUnavailable.
func (f *AudioFallback) ParagraphAudio(ctx context.Context, paragraphID int64) ([]byte, error) {
	shared := context.WithoutCancel(ctx)
	ch := f.group.DoChan(strconv.FormatInt(paragraphID, 10), func() (any, error) {
		return f.load(shared, paragraphID)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (f *AudioFallback) load(ctx context.Context, paragraphID int64) ([]byte, error) {
	logger := loggerFrom(ctx, f.logger).With("paragraph_id", paragraphID)

	p, err := f.store.GetParagraph(ctx, paragraphID)
	if err != nil {
		return nil, err
	}
	if !p.HasText() {
		return nil, fmt.Errorf("%w: paragraph %d has no text", domain.ErrNotFound, paragraphID)
	}

	if p.AudioRef != nil && *p.AudioRef != "" && f.audio.Exists(*p.AudioRef) {
		return f.audio.Read(*p.AudioRef)
	}

	ref := f.audio.Ref(p.ArticleID, p.OrderIndex)
	if f.audio.Exists(ref) {
		audio, err := f.audio.Read(ref)
		if err != nil {
			return nil, err
		}
		f.setRef(ctx, logger, p.ID, ref)
		return audio, nil
	}

	if f.speech == nil {
		return nil, fmt.Errorf("%w: speech synthesis disabled", domain.ErrAudioUnavailable)
	}
	audio, err := f.speech.Synthesize(ctx, p.Content)
	if err != nil {
		logger.Warn("on-demand synthesis failed", "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrAudioUnavailable, err)
	}

	if err := f.audio.Write(ref, audio); err != nil {
		logger.Error("write synthesized audio failed", "ref", ref, "error", err)
		return audio, nil
	}
	f.setRef(ctx, logger, p.ID, ref)
	logger.Info("audio synthesized on demand", "ref", ref, "bytes", len(audio))
	return audio, nil
}

func (f *AudioFallback) setRef(ctx context.Context, logger *slog.Logger, paragraphID int64, ref string) {
	if err := f.store.SetAudioRef(ctx, paragraphID, ref); err != nil {
		logger.Warn("store audio reference failed", "ref", ref, "error", err)
	}
}
