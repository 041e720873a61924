package job

import (
	"context"
	"math"
	"sync"
	"time"

	"strategy-desk/internal/domain"
	"strategy-desk/internal/service"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

type ScoreSource interface {
	ScoreSymbols(ctx context.Context, symbols []string, strategyID string, horizon domain.Horizon) []service.FusionScore
}

type ScoreNotifier interface {
	NotifyScores(ctx context.Context, scores []service.FusionScore) error
}

type ScoreAlertConfig struct {
	Symbols    []string
	StrategyID string
	Horizon    domain.Horizon
	Threshold  float64
	PollSecs   int
}

// ScoreAlertPoller pushes fused scores whose magnitude reaches the threshold.
// A symbol alerts once when it enters the zone and again only after it leaves
// or flips direction.
type ScoreAlertPoller struct {
	tracer   trace.Tracer
	scores   ScoreSource
	notifier ScoreNotifier
	cfg      ScoreAlertConfig

	mu     sync.Mutex
	active map[string]float64
}

func NewScoreAlertPoller(tracer trace.Tracer, scores ScoreSource, notifier ScoreNotifier, cfg ScoreAlertConfig) *ScoreAlertPoller {
	if cfg.PollSecs <= 0 {
		cfg.PollSecs = 300
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 60
	}
	if !cfg.Horizon.IsValid() {
		cfg.Horizon = domain.Horizon1h
	}
	if len(cfg.Symbols) == 0 {
		cfg.Symbols = domain.SupportedSymbols
	}
	return &ScoreAlertPoller{
		tracer:   tracer,
		scores:   scores,
		notifier: notifier,
		cfg:      cfg,
		active:   make(map[string]float64),
	}
}

func (p *ScoreAlertPoller) Start(ctx context.Context) {
	if p.scores == nil || p.notifier == nil {
		log.Info().Msg("Score alert poller disabled")
		<-ctx.Done()
		return
	}

	log.Info().Float64("threshold", p.cfg.Threshold).Str("horizon", string(p.cfg.Horizon)).Msg("Score alert poller starting")
	p.pollOnce(ctx)

	ticker := time.NewTicker(time.Duration(p.cfg.PollSecs) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Score alert poller stopped")
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *ScoreAlertPoller) pollOnce(ctx context.Context) {
	ctx, span := p.tracer.Start(ctx, "score-alert-poller.poll")
	defer span.End()

	scores := p.scores.ScoreSymbols(ctx, p.cfg.Symbols, p.cfg.StrategyID, p.cfg.Horizon)
	alerts := p.crossings(scores)
	if len(alerts) == 0 {
		return
	}
	if err := p.notifier.NotifyScores(ctx, alerts); err != nil {
		log.Warn().Err(err).Int("alerts", len(alerts)).Msg("score alert delivery failed")
	}
}

func (p *ScoreAlertPoller) crossings(scores []service.FusionScore) []service.FusionScore {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []service.FusionScore
	for _, s := range scores {
		if s.Degraded {
			continue
		}
		if math.Abs(s.FusedScore) < p.cfg.Threshold {
			delete(p.active, s.Symbol)
			continue
		}
		prev, alerted := p.active[s.Symbol]
		p.active[s.Symbol] = s.FusedScore
		if alerted && math.Signbit(prev) == math.Signbit(s.FusedScore) {
			continue
		}
		out = append(out, s)
	}
	return out
}
