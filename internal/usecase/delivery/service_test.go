package delivery

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"halacha-yomi-bot/internal/domain"
)

type stubSelector struct {
	selection domain.DailySelection
	err       error
}

func (s *stubSelector) Select(date time.Time) (domain.DailySelection, error) {
	if s.err != nil {
		return domain.DailySelection{}, s.err
	}
	sel := s.selection
	sel.Date = date
	return sel, nil
}

type stubCorpus struct {
	texts map[string]domain.FetchedText
	errs  map[string]error
	calls int
}

func (c *stubCorpus) Fetch(_ context.Context, e domain.Excerpt) (domain.FetchedText, error) {
	c.calls++
	if err, ok := c.errs[e.SectionID]; ok {
		return domain.FetchedText{}, err
	}
	if t, ok := c.texts[e.SectionID]; ok {
		return t, nil
	}
	return domain.FetchedText{Hebrew: "טקסט", URL: "https://example.org/" + e.SectionID}, nil
}

type stubTransport struct {
	textSent  map[int64]int
	audioSent map[int64]int
	failChats map[int64]error
	audioErr  error
}

func newStubTransport() *stubTransport {
	return &stubTransport{textSent: map[int64]int{}, audioSent: map[int64]int{}, failChats: map[int64]error{}}
}

func (t *stubTransport) SendText(_ context.Context, chatID int64, _ []domain.MessageChunk) error {
	if err, ok := t.failChats[chatID]; ok {
		return err
	}
	t.textSent[chatID]++
	return nil
}

func (t *stubTransport) SendAudio(_ context.Context, chatID int64, _ []byte, _ string) error {
	if t.audioErr != nil {
		return t.audioErr
	}
	t.audioSent[chatID]++
	return nil
}

type stubSubscribers struct {
	chats []int64
	err   error
}

func (s *stubSubscribers) Add(context.Context, int64) (bool, error)    { return true, nil }
func (s *stubSubscribers) Remove(context.Context, int64) (bool, error) { return true, nil }
func (s *stubSubscribers) All(context.Context) ([]domain.Subscriber, error) {
	if s.err != nil {
		return nil, s.err
	}
	subs := make([]domain.Subscriber, 0, len(s.chats))
	for _, id := range s.chats {
		subs = append(subs, domain.Subscriber{ChatID: id})
	}
	return subs, nil
}

type stubSynth struct {
	audio []byte
	err   error
	calls int
}

func (s *stubSynth) Synthesize(context.Context, string) ([]byte, error) {
	s.calls++
	return s.audio, s.err
}

type stubBroadcastLog struct {
	reports []domain.BroadcastReport
	err     error
}

func (l *stubBroadcastLog) Record(_ context.Context, r domain.BroadcastReport) error {
	l.reports = append(l.reports, r)
	return l.err
}

type memCache struct {
	data map[string][]byte
}

func (c *memCache) Once(string, time.Duration, func() error) (bool, error) { return true, nil }
func (c *memCache) Set(key string, value []byte, _ time.Duration) error {
	if c.data == nil {
		c.data = map[string][]byte{}
	}
	c.data[key] = value
	return nil
}
func (c *memCache) Get(key string) ([]byte, error) {
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	return nil, errors.New("miss")
}

func serviceSelection() domain.DailySelection {
	return domain.DailySelection{
		Excerpts: []domain.Excerpt{
			{SectionID: "orach_chaim", Chapter: 5},
			{SectionID: "yoreh_deah", Chapter: 12},
		},
		Strategy: domain.StrategyRandom,
	}
}

func newService(transport domain.ChannelTransport, subs domain.SubscriberRepo, corpus domain.CorpusClient, synth domain.SpeechSynthesizer, blog domain.BroadcastLog, cfg Config) *Service {
	formatter := NewFormatter(domain.DefaultCatalog(), 4096, true)
	return NewService(
		&stubSelector{selection: serviceSelection()},
		corpus,
		formatter,
		transport,
		subs,
		synth,
		blog,
		nil,
		zerolog.Nop(),
		cfg,
	)
}

func TestRunDailyBroadcastDeliversToEveryone(t *testing.T) {
	transport := newStubTransport()
	subs := &stubSubscribers{chats: []int64{10, 20, 30}}
	blog := &stubBroadcastLog{}
	svc := newService(transport, subs, &stubCorpus{}, nil, blog, Config{PrimaryChatID: 1})

	report, err := svc.RunDailyBroadcast(context.Background(), time.Date(2025, 9, 23, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Delivered) != 4 {
		t.Fatalf("expected 4 delivered, got %d", len(report.Delivered))
	}
	if report.Delivered[0] != 1 {
		t.Fatal("the primary chat must be delivered to first")
	}
	if !report.Ok() {
		t.Fatalf("expected a clean report, failures: %v", report.Failed)
	}
	if report.ID == "" {
		t.Fatal("report must carry an id")
	}
	if len(blog.reports) != 1 {
		t.Fatalf("expected the report to be recorded once, got %d", len(blog.reports))
	}
}

func TestRunDailyBroadcastIsolatesSendFailures(t *testing.T) {
	transport := newStubTransport()
	transport.failChats[20] = errors.New("blocked by user")
	subs := &stubSubscribers{chats: []int64{10, 20, 30}}
	svc := newService(transport, subs, &stubCorpus{}, nil, nil, Config{})

	report, err := svc.RunDailyBroadcast(context.Background(), time.Date(2025, 9, 23, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Delivered) != 2 {
		t.Fatalf("expected 2 delivered, got %d", len(report.Delivered))
	}
	if len(report.Failed) != 1 || report.Failed[0].ChatID != 20 {
		t.Fatalf("expected exactly chat 20 to fail, got %v", report.Failed)
	}
	if transport.textSent[30] != 1 {
		t.Fatal("recipients after the failed one must still be attempted")
	}
	if report.Ok() {
		t.Fatal("a report with failures must not be Ok")
	}
}

func TestRunDailyBroadcastSynthesisFailureIsNotFatal(t *testing.T) {
	transport := newStubTransport()
	subs := &stubSubscribers{chats: []int64{10}}
	synth := &stubSynth{err: &domain.SynthesisError{Err: errors.New("api down")}}
	svc := newService(transport, subs, &stubCorpus{}, synth, nil, Config{})

	report, err := svc.RunDailyBroadcast(context.Background(), time.Date(2025, 9, 23, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("synthesis failure must not abort the run: %v", err)
	}
	if len(report.Delivered) != 1 {
		t.Fatalf("expected text delivery to proceed, got %d", len(report.Delivered))
	}
	if len(transport.audioSent) != 0 {
		t.Fatal("no audio must be sent when synthesis failed")
	}
}

func TestRunDailyBroadcastSendsVoiceNotes(t *testing.T) {
	transport := newStubTransport()
	subs := &stubSubscribers{chats: []int64{10}}
	synth := &stubSynth{audio: []byte{1, 2, 3}}
	svc := newService(transport, subs, &stubCorpus{}, synth, nil, Config{})

	if _, err := svc.RunDailyBroadcast(context.Background(), time.Date(2025, 9, 23, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transport.audioSent[10] != 1 {
		t.Fatal("expected a voice note for the subscriber")
	}
	if synth.calls != 1 {
		t.Fatalf("expected one synthesis call, got %d", synth.calls)
	}
}

func TestRunDailyBroadcastMissingExcerptFailsFast(t *testing.T) {
	transport := newStubTransport()
	corpus := &stubCorpus{errs: map[string]error{"orach_chaim": domain.ErrNotFound}}
	svc := newService(transport, &stubSubscribers{chats: []int64{10}}, corpus, nil, nil, Config{MaxRetries: 5})

	_, err := svc.RunDailyBroadcast(context.Background(), time.Date(2025, 9, 23, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if corpus.calls != 1 {
		t.Fatalf("a missing excerpt must not be retried, got %d calls", corpus.calls)
	}
	if len(transport.textSent) != 0 {
		t.Fatal("nothing may be sent when a fetch fails")
	}
}

func TestRunDailyBroadcastRetriesTransientFetchErrors(t *testing.T) {
	transport := newStubTransport()
	corpus := &flakyCorpus{failures: 2}
	svc := newService(transport, &stubSubscribers{chats: []int64{10}}, corpus, nil, nil, Config{MaxRetries: 3})

	report, err := svc.RunDailyBroadcast(context.Background(), time.Date(2025, 9, 23, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("expected the retries to recover, got %v", err)
	}
	if len(report.Delivered) != 1 {
		t.Fatalf("expected 1 delivered, got %d", len(report.Delivered))
	}
}

type flakyCorpus struct {
	failures int
	calls    int
}

func (c *flakyCorpus) Fetch(_ context.Context, e domain.Excerpt) (domain.FetchedText, error) {
	c.calls++
	if c.calls <= c.failures {
		return domain.FetchedText{}, &domain.UpstreamError{Op: "fetch", Err: errors.New("timeout")}
	}
	return domain.FetchedText{Hebrew: "טקסט", URL: "https://example.org/" + e.SectionID}, nil
}

func TestRunDailyBroadcastNoRecipients(t *testing.T) {
	svc := newService(newStubTransport(), &stubSubscribers{}, &stubCorpus{}, nil, nil, Config{})
	_, err := svc.RunDailyBroadcast(context.Background(), time.Date(2025, 9, 23, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrNoRecipients) {
		t.Fatalf("expected ErrNoRecipients, got %v", err)
	}
}

func TestRunDailyBroadcastUsesCache(t *testing.T) {
	cache := &memCache{}
	corpus := &stubCorpus{}
	formatter := NewFormatter(domain.DefaultCatalog(), 4096, true)
	svc := NewService(
		&stubSelector{selection: serviceSelection()},
		corpus,
		formatter,
		newStubTransport(),
		&stubSubscribers{chats: []int64{10}},
		nil,
		nil,
		cache,
		zerolog.Nop(),
		Config{CacheTTL: time.Hour},
	)

	date := time.Date(2025, 9, 23, 0, 0, 0, 0, time.UTC)
	if _, err := svc.RunDailyBroadcast(context.Background(), date); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if corpus.calls != 2 {
		t.Fatalf("expected 2 fetches on a cold cache, got %d", corpus.calls)
	}

	if _, err := svc.RunDailyBroadcast(context.Background(), date); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if corpus.calls != 2 {
		t.Fatalf("expected the second run to hit the cache, got %d fetches", corpus.calls)
	}
}

func TestDeliverToSendsOnlyToOneChat(t *testing.T) {
	transport := newStubTransport()
	svc := newService(transport, &stubSubscribers{chats: []int64{10, 20}}, &stubCorpus{}, nil, nil, Config{})

	date := time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC)
	if err := svc.DeliverTo(context.Background(), date, 99); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transport.textSent[99] != 1 {
		t.Fatal("expected delivery to the requested chat")
	}
	if len(transport.textSent) != 1 {
		t.Fatalf("expected no other chats to be contacted: %v", transport.textSent)
	}
}

func TestPreviewDoesNotSend(t *testing.T) {
	transport := newStubTransport()
	svc := newService(transport, &stubSubscribers{chats: []int64{10}}, &stubCorpus{}, nil, nil, Config{})

	date := time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC)
	selection, chunks, err := svc.Preview(context.Background(), date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(selection.Excerpts) != 2 {
		t.Fatalf("expected a pair, got %d excerpts", len(selection.Excerpts))
	}
	if len(chunks) == 0 {
		t.Fatal("expected formatted messages")
	}
	if len(transport.textSent) != 0 {
		t.Fatal("preview must not send anything")
	}
}

func TestRunDailyBroadcastDeduplicatesPrimaryChat(t *testing.T) {
	transport := newStubTransport()
	subs := &stubSubscribers{chats: []int64{1, 10}}
	svc := newService(transport, subs, &stubCorpus{}, nil, nil, Config{PrimaryChatID: 1})

	report, err := svc.RunDailyBroadcast(context.Background(), time.Date(2025, 9, 23, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Delivered) != 2 {
		t.Fatalf("expected 2 distinct recipients, got %d", len(report.Delivered))
	}
	if transport.textSent[1] != 1 {
		t.Fatalf("the primary chat must receive exactly one send, got %d", transport.textSent[1])
	}
}

func TestRunDailyBroadcastSubscriberLoadFailure(t *testing.T) {
	svc := newService(newStubTransport(), &stubSubscribers{err: fmt.Errorf("db down")}, &stubCorpus{}, nil, nil, Config{PrimaryChatID: 1})
	if _, err := svc.RunDailyBroadcast(context.Background(), time.Date(2025, 9, 23, 0, 0, 0, 0, time.UTC)); err == nil {
		t.Fatal("expected an error when the subscriber list cannot be loaded")
	}
}
