// Package delivery orchestrates the daily broadcast: select the pair, fetch
// texts, format messages, and send them to every subscriber.
package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"halacha-yomi-bot/internal/domain"
	"halacha-yomi-bot/internal/infra/metrics"
)

// ErrNoRecipients is returned when a broadcast has nobody to deliver to.
var ErrNoRecipients = errors.New("no recipients for the broadcast")

// Config carries the delivery tunables.
type Config struct {
	PrimaryChatID int64         // main channel, always first in the fan-out
	MaxRetries    uint64        // fetch retry attempts after the first try
	CacheTTL      time.Duration // how long fetched texts stay cached
}

// Service runs daily broadcasts end to end.
type Service struct {
	selector    domain.Selector
	corpus      domain.CorpusClient
	formatter   *Formatter
	transport   domain.ChannelTransport
	subscribers domain.SubscriberRepo
	synth       domain.SpeechSynthesizer // optional
	broadcasts  domain.BroadcastLog      // optional
	cache       domain.Cache             // optional
	log         zerolog.Logger
	cfg         Config
}

func NewService(
	selector domain.Selector,
	corpus domain.CorpusClient,
	formatter *Formatter,
	transport domain.ChannelTransport,
	subscribers domain.SubscriberRepo,
	synth domain.SpeechSynthesizer,
	broadcasts domain.BroadcastLog,
	cache domain.Cache,
	log zerolog.Logger,
	cfg Config,
) *Service {
	return &Service{
		selector:    selector,
		corpus:      corpus,
		formatter:   formatter,
		transport:   transport,
		subscribers: subscribers,
		synth:       synth,
		broadcasts:  broadcasts,
		cache:       cache,
		log:         log,
		cfg:         cfg,
	}
}

// RunDailyBroadcast performs the whole daily run for the given date. Failures
// before the send phase abort the run. Send failures never do: every
// remaining recipient still gets an attempt and the report lists who failed.
func (s *Service) RunDailyBroadcast(ctx context.Context, date time.Time) (domain.BroadcastReport, error) {
	runLog := s.log.With().Str("date", date.Format("2006-01-02")).Logger()
	runLog.Info().Msg("broadcast: selecting daily pair")

	selection, chunks, audio, err := s.prepare(ctx, date, runLog)
	if err != nil {
		return domain.BroadcastReport{}, err
	}

	recipients, err := s.recipients(ctx)
	if err != nil {
		return domain.BroadcastReport{}, fmt.Errorf("loading recipients: %w", err)
	}
	if len(recipients) == 0 {
		return domain.BroadcastReport{}, ErrNoRecipients
	}

	report := domain.BroadcastReport{
		ID:        uuid.NewString(),
		Date:      date,
		Selection: selection,
	}

	runLog.Info().Int("recipients", len(recipients)).Msg("broadcast: sending")
	for _, chatID := range recipients {
		if err := s.transport.SendText(ctx, chatID, chunks); err != nil {
			metrics.IncBroadcastFailed()
			runLog.Error().Err(err).Int64("chat_id", chatID).Msg("broadcast: send failed")
			report.Failed = append(report.Failed, domain.SendFailure{ChatID: chatID, Reason: err.Error()})
			continue
		}
		if len(audio) > 0 {
			if err := s.transport.SendAudio(ctx, chatID, audio, "🎧 ליקוטי הלכות יומי"); err != nil {
				// The text already arrived, the voice note is extra.
				runLog.Warn().Err(err).Int64("chat_id", chatID).Msg("broadcast: voice note failed")
			}
		}
		metrics.IncBroadcastDelivered()
		report.Delivered = append(report.Delivered, chatID)
	}

	if s.broadcasts != nil {
		if err := s.broadcasts.Record(ctx, report); err != nil {
			runLog.Warn().Err(err).Msg("broadcast: recording the report failed")
		}
	}

	runLog.Info().
		Str("report_id", report.ID).
		Int("delivered", len(report.Delivered)).
		Int("failed", len(report.Failed)).
		Msg("broadcast: done")
	return report, nil
}

// DeliverTo sends the daily pair to a single chat, used for the /today
// command. No voice note and no report.
func (s *Service) DeliverTo(ctx context.Context, date time.Time, chatID int64) error {
	selection, err := s.selector.Select(date)
	if err != nil {
		return err
	}
	texts, err := s.fetchTexts(ctx, selection)
	if err != nil {
		return err
	}
	chunks := s.formatter.FormatDaily(selection, texts)
	return s.transport.SendText(ctx, chatID, chunks)
}

// Preview returns the selection and formatted messages without sending
// anything.
func (s *Service) Preview(ctx context.Context, date time.Time) (domain.DailySelection, []domain.MessageChunk, error) {
	selection, err := s.selector.Select(date)
	if err != nil {
		return domain.DailySelection{}, nil, err
	}
	texts, err := s.fetchTexts(ctx, selection)
	if err != nil {
		return domain.DailySelection{}, nil, err
	}
	return selection, s.formatter.FormatDaily(selection, texts), nil
}

func (s *Service) prepare(ctx context.Context, date time.Time, runLog zerolog.Logger) (domain.DailySelection, []domain.MessageChunk, []byte, error) {
	selection, err := s.selector.Select(date)
	if err != nil {
		return domain.DailySelection{}, nil, nil, fmt.Errorf("selecting the pair: %w", err)
	}
	runLog.Info().
		Str("strategy", string(selection.Strategy)).
		Strs("notes", selection.Notes).
		Msg("broadcast: fetching texts")

	texts, err := s.fetchTexts(ctx, selection)
	if err != nil {
		return domain.DailySelection{}, nil, nil, err
	}

	chunks := s.formatter.FormatDaily(selection, texts)
	runLog.Info().Int("messages", len(chunks)).Msg("broadcast: formatted")

	var audio []byte
	if s.synth != nil {
		audio, err = s.synthesize(ctx, texts)
		if err != nil {
			// The broadcast goes out as text either way.
			metrics.IncSynthesisFailure()
			runLog.Warn().Err(err).Msg("broadcast: voice synthesis failed, sending text only")
			audio = nil
		}
	}
	return selection, chunks, audio, nil
}

// fetchTexts loads the text of every excerpt, consulting the cache first.
// Transient upstream errors are retried with exponential backoff; a missing
// excerpt is permanent and fails the run immediately.
func (s *Service) fetchTexts(ctx context.Context, selection domain.DailySelection) ([]domain.FetchedText, error) {
	texts := make([]domain.FetchedText, 0, len(selection.Excerpts))
	for _, excerpt := range selection.Excerpts {
		text, err := s.fetchOne(ctx, excerpt)
		if err != nil {
			return nil, fmt.Errorf("fetching %s %d: %w", excerpt.SectionID, excerpt.Chapter, err)
		}
		texts = append(texts, text)
	}
	return texts, nil
}

func (s *Service) fetchOne(ctx context.Context, excerpt domain.Excerpt) (domain.FetchedText, error) {
	key := excerpt.CacheKey()
	if s.cache != nil {
		if raw, err := s.cache.Get(key); err == nil && len(raw) > 0 {
			var cached domain.FetchedText
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var text domain.FetchedText
	fetch := func() error {
		var err error
		text, err = s.corpus.Fetch(ctx, excerpt)
		if errors.Is(err, domain.ErrNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.cfg.MaxRetries), ctx)
	if err := backoff.Retry(fetch, policy); err != nil {
		return domain.FetchedText{}, err
	}

	if s.cache != nil && s.cfg.CacheTTL > 0 {
		if raw, err := json.Marshal(text); err == nil {
			if err := s.cache.Set(key, raw, s.cfg.CacheTTL); err != nil {
				s.log.Warn().Err(err).Str("key", key).Msg("caching fetched text failed")
			}
		}
	}
	return text, nil
}

func (s *Service) synthesize(ctx context.Context, texts []domain.FetchedText) ([]byte, error) {
	parts := make([]string, 0, len(texts))
	for _, t := range texts {
		if t.Hebrew != "" {
			parts = append(parts, t.Hebrew)
		}
	}
	if len(parts) == 0 {
		return nil, nil
	}
	return s.synth.Synthesize(ctx, strings.Join(parts, "\n\n"))
}

// recipients returns the primary chat followed by every subscriber, without
// duplicates.
func (s *Service) recipients(ctx context.Context) ([]int64, error) {
	seen := make(map[int64]struct{})
	var out []int64
	if s.cfg.PrimaryChatID != 0 {
		seen[s.cfg.PrimaryChatID] = struct{}{}
		out = append(out, s.cfg.PrimaryChatID)
	}

	subs, err := s.subscribers.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, sub := range subs {
		if _, ok := seen[sub.ChatID]; ok {
			continue
		}
		seen[sub.ChatID] = struct{}{}
		out = append(out, sub.ChatID)
	}
	return out, nil
}
