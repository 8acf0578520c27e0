package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"solfolio/internal/domain"
	"solfolio/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const commandTimeout = 20 * time.Second

type PriceSource interface {
	GetCurrentPrice(ctx context.Context, symbol string) (*domain.PriceSnapshot, error)
}

type TokenSource interface {
	GetTokenStats(ctx context.Context, mint string) (*domain.TokenStats, error)
}

type RiskSource interface {
	Assess(ctx context.Context, mint string) (domain.RiskAssessment, error)
}

// Commands renders bot replies. Any source may be nil; its command then
// answers that the feature is unavailable.
type Commands struct {
	Prices PriceSource
	Tokens TokenSource
	Risks  RiskSource
}

func supported() string {
	return strings.Join(domain.SupportedSymbols(), ", ")
}

// Price answers /price [SYMBOL]; SOL when no symbol is given.
func (c *Commands) Price(ctx context.Context, args []string) string {
	if c.Prices == nil {
		return "Prices are unavailable right now."
	}
	symbol := "SOL"
	if len(args) > 0 {
		symbol = strings.ToUpper(args[0])
	}
	if _, ok := domain.AssetBySymbol(symbol); !ok {
		return fmt.Sprintf("Unknown symbol: %s\nSupported: %s", symbol, supported())
	}
	snapshot, err := c.Prices.GetCurrentPrice(ctx, symbol)
	if err != nil {
		return fmt.Sprintf("Error fetching price for %s: %v", symbol, err)
	}
	return fmt.Sprintf(
		"%s\nPrice: $%s\n24h Change: %.2f%%\n24h Volume: $%.0f",
		symbol, formatPrice(snapshot.PriceUSD), snapshot.Change24hPct, snapshot.Volume24h,
	)
}

// Token answers /token <mint> with merged market stats.
func (c *Commands) Token(ctx context.Context, args []string) string {
	if c.Tokens == nil {
		return "Token stats are unavailable right now."
	}
	if len(args) == 0 {
		return "Usage: /token <mint>"
	}
	stats, err := c.Tokens.GetTokenStats(ctx, args[0])
	if errors.Is(err, service.ErrTokenNotFound) {
		return "No market data found for " + args[0]
	}
	if err != nil {
		return fmt.Sprintf("Error fetching token %s: %v", args[0], err)
	}

	var b strings.Builder
	name := stats.Symbol
	if stats.Name != "" {
		name = fmt.Sprintf("%s (%s)", stats.Name, stats.Symbol)
	}
	b.WriteString(name)
	if stats.PriceUSD != nil {
		fmt.Fprintf(&b, "\nPrice: $%s", formatPrice(*stats.PriceUSD))
	}
	if stats.PriceChange24h != nil {
		fmt.Fprintf(&b, "\n24h Change: %.2f%%", *stats.PriceChange24h)
	}
	if stats.Volume24hUSD != nil {
		fmt.Fprintf(&b, "\n24h Volume: $%.0f", *stats.Volume24hUSD)
	}
	if stats.Liquidity != nil {
		fmt.Fprintf(&b, "\nLiquidity: $%.0f", *stats.Liquidity)
	}
	if stats.MarketCap != nil {
		fmt.Fprintf(&b, "\nMarket Cap: $%.0f", *stats.MarketCap)
	}
	if stats.HolderCount != nil {
		fmt.Fprintf(&b, "\nHolders: %d", *stats.HolderCount)
	}
	if stats.OrganicScore != nil {
		fmt.Fprintf(&b, "\nOrganic Score: %.0f %s", *stats.OrganicScore, stats.OrganicLabel)
	}
	return b.String()
}

// Risk answers /risk <mint> with the score and narrative.
func (c *Commands) Risk(ctx context.Context, args []string) string {
	if c.Risks == nil {
		return "Risk assessment is unavailable right now."
	}
	if len(args) == 0 {
		return "Usage: /risk <mint>"
	}
	a, err := c.Risks.Assess(ctx, args[0])
	if err != nil {
		return fmt.Sprintf("Error assessing %s: %v", args[0], err)
	}
	label := a.Symbol
	if label == "" {
		label = a.TokenMint
	}
	msg := fmt.Sprintf("%s risk: %.0f/100 (%s), confidence %.0f%%",
		label, a.Score, strings.ToUpper(string(a.Level)), a.Confidence*100)
	if a.Narrative != "" {
		msg += "\n\n" + a.Narrative
	}
	return msg
}

func formatPrice(v float64) string {
	switch {
	case v >= 1:
		return fmt.Sprintf("%.2f", v)
	case v >= 0.01:
		return fmt.Sprintf("%.4f", v)
	default:
		return fmt.Sprintf("%.8f", v)
	}
}

// StartTelegramBot starts long polling in the background and returns the
// bot so the caller can stop it. It returns nil when token is empty.
func StartTelegramBot(token string, logger *zap.Logger, cmds *Commands) (*tele.Bot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("telegram")
	if token == "" {
		logger.Info("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil, nil
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			logger.Warn("telegram handler error", zap.Error(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	reply := func(render func(context.Context, []string) string) tele.HandlerFunc {
		return func(c tele.Context) error {
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()
			return c.Send(render(ctx, c.Args()))
		}
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})
	b.Handle("/price", reply(cmds.Price))
	b.Handle("/token", reply(cmds.Token))
	b.Handle("/risk", reply(cmds.Risk))

	logger.Info("Telegram bot started")
	go b.Start()
	return b, nil
}
