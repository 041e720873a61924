package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"strategy-desk/internal/domain"
	"strategy-desk/internal/service"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"
)

const commandTimeout = 10 * time.Second

type PriceQuerier interface {
	GetPrices(ctx context.Context, symbols []string) (service.PriceResult, error)
}

type Scorer interface {
	Score(ctx context.Context, q service.FusionQuery) (service.FusionScore, error)
}

// StartTelegramBot starts long polling in the background and returns the alert
// dispatcher, or nil when no token is configured.
func StartTelegramBot(token string, prices PriceQuerier, scorer Scorer) *AlertDispatcher {
	if token == "" {
		log.Info().Msg("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Telegram bot")
	}
	alerts := NewAlertDispatcher(b)

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/price", func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return c.Send(priceReply(ctx, prices, c.Args()))
	})

	b.Handle("/score", func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return c.Send(scoreReply(ctx, scorer, c.Args()))
	})

	b.Handle("/alerts", func(c tele.Context) error {
		chat := c.Chat()
		if chat == nil {
			return c.Send("Unable to detect chat")
		}

		mode, err := parseAlertMode(c.Args())
		if err != nil {
			return c.Send("Usage: /alerts on | /alerts off | /alerts status")
		}

		switch mode {
		case "on":
			if alerts.Subscribe(chat.ID) {
				return c.Send("Score alerts enabled for this chat.")
			}
			return c.Send("Score alerts are already enabled for this chat.")
		case "off":
			if alerts.Unsubscribe(chat.ID) {
				return c.Send("Score alerts disabled for this chat.")
			}
			return c.Send("Score alerts are already disabled for this chat.")
		default:
			if alerts.IsSubscribed(chat.ID) {
				return c.Send("Alerts status: ON")
			}
			return c.Send("Alerts status: OFF")
		}
	})

	log.Info().Msg("Telegram bot started")
	go b.Start()
	return alerts
}

func supportedHint() string {
	return "Supported: " + strings.Join(domain.SupportedSymbols, ", ")
}

func priceReply(ctx context.Context, prices PriceQuerier, args []string) string {
	if prices == nil {
		return "Price service unavailable"
	}
	if len(args) == 0 {
		return "Usage: /price BTC-EUR [ETH-EUR ...]\n" + supportedHint()
	}

	res, err := prices.GetPrices(ctx, args)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			return fmt.Sprintf("Invalid request: %v", err)
		}
		return fmt.Sprintf("Error fetching prices: %v", err)
	}

	lines := make([]string, 0, len(args)+len(res.Missing))
	seen := make(map[string]struct{}, len(args))
	for _, raw := range args {
		symbol := domain.NormalizeSymbol(raw)
		if _, dup := seen[symbol]; dup {
			continue
		}
		seen[symbol] = struct{}{}
		if q, ok := res.Prices[symbol]; ok {
			lines = append(lines, formatQuote(q))
		}
	}
	for _, symbol := range res.Missing {
		lines = append(lines, fmt.Sprintf("%s: unavailable", symbol))
	}
	if len(lines) == 0 {
		return "No prices available right now."
	}
	return strings.Join(lines, "\n")
}

func formatQuote(q domain.Quote) string {
	line := fmt.Sprintf("%s %.2f (%s, %s)", q.Symbol, q.Price, q.Source, q.Timestamp.UTC().Format(time.RFC822))
	if q.Bid != nil && q.Ask != nil {
		line += fmt.Sprintf("\n  bid %.2f / ask %.2f", *q.Bid, *q.Ask)
	}
	return line
}

func scoreReply(ctx context.Context, scorer Scorer, args []string) string {
	if scorer == nil {
		return "Fusion service unavailable"
	}
	q, err := parseScoreArgs(args)
	if err != nil {
		return "Usage: /score BTC-EUR [15m|1h|4h|24h] [--strategy UUID]"
	}

	score, err := scorer.Score(ctx, q)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			return fmt.Sprintf("Invalid request: %v", err)
		}
		return fmt.Sprintf("Error computing score: %v", err)
	}
	if score.TotalSignals == 0 {
		return fmt.Sprintf("%s %s: no recent signals", score.Symbol, score.Horizon)
	}

	lines := []string{formatScore(score)}
	for _, d := range score.Details {
		lines = append(lines, fmt.Sprintf(
			"  %s %s strength %.2f x weight %.2f = %+.2f",
			d.SignalType, d.DirectionHint, d.NormalizedStrength, d.Weight, d.Contribution,
		))
	}
	return strings.Join(lines, "\n")
}

func parseScoreArgs(args []string) (service.FusionQuery, error) {
	var q service.FusionQuery
	for i := 0; i < len(args); i++ {
		arg := strings.TrimSpace(args[i])
		if arg == "" {
			continue
		}

		if strings.HasPrefix(arg, "--strategy=") {
			q.StrategyID = strings.TrimPrefix(arg, "--strategy=")
			continue
		}
		if arg == "--strategy" {
			if i+1 >= len(args) {
				return service.FusionQuery{}, errors.New("missing strategy value")
			}
			i++
			q.StrategyID = args[i]
			continue
		}
		if strings.HasPrefix(arg, "--") {
			return service.FusionQuery{}, errors.New("unknown option")
		}

		switch {
		case q.Symbol == "":
			q.Symbol = arg
		case q.Horizon == "":
			q.Horizon = arg
		default:
			return service.FusionQuery{}, errors.New("too many arguments")
		}
	}
	if q.Symbol == "" {
		return service.FusionQuery{}, errors.New("missing symbol")
	}
	return q, nil
}
