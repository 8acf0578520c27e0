package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"solfolio/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const bitqueryURL = "https://streaming.bitquery.io/eap"

const dexTradesQuery = `query TokenTrades($mint: String!, $since: DateTime, $limit: Int!) {
  Solana {
    DEXTradeByTokens(
      limit: {count: $limit}
      orderBy: {descending: Block_Time}
      where: {Trade: {Currency: {MintAddress: {is: $mint}}}, Block: {Time: {since: $since}}, Transaction: {Result: {Success: true}}}
    ) {
      Block { Time }
      Transaction { Signature }
      Trade {
        Amount
        AmountInUSD
        Side { Type }
        Account { Owner }
        Dex { ProtocolName }
      }
    }
  }
}`

// BitQueryProvider reads Solana DEX trades over BitQuery's GraphQL API.
type BitQueryProvider struct {
	base
}

func NewBitQueryProvider(tracer trace.Tracer, opts Options) *BitQueryProvider {
	return &BitQueryProvider{base: newBase("bitquery", bitqueryURL, tracer, opts, PerMinute(30))}
}

type bitqueryTrade struct {
	Block struct {
		Time string `json:"Time"`
	} `json:"Block"`
	Transaction struct {
		Signature string `json:"Signature"`
	} `json:"Transaction"`
	Trade struct {
		Amount      flexFloat `json:"Amount"`
		AmountInUSD flexFloat `json:"AmountInUSD"`
		Side        struct {
			Type string `json:"Type"`
		} `json:"Side"`
		Account struct {
			Owner string `json:"Owner"`
		} `json:"Account"`
		Dex struct {
			ProtocolName string `json:"ProtocolName"`
		} `json:"Dex"`
	} `json:"Trade"`
}

// GetDEXTrades returns up to limit trades of mint since the given time,
// newest first. Trades with an unrecognised side are dropped.
func (p *BitQueryProvider) GetDEXTrades(ctx context.Context, mint string, since time.Time, limit int) ([]domain.TradeRecord, error) {
	ctx, span := p.startSpan(ctx, "get-dex-trades")
	defer span.End()
	span.SetAttributes(attribute.String("mint", mint), attribute.Int("limit", limit))

	if err := p.requireKey(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 500
	}

	var data struct {
		Solana struct {
			DEXTradeByTokens []bitqueryTrade `json:"DEXTradeByTokens"`
		} `json:"Solana"`
	}
	vars := map[string]any{
		"mint":  mint,
		"since": since.UTC().Format(time.RFC3339),
		"limit": limit,
	}
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}
	if err := p.graphQL(ctx, p.baseURL, headers, dexTradesQuery, vars, &data); err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("get dex trades for %s: %w", mint, err)
	}

	trades := make([]domain.TradeRecord, 0, len(data.Solana.DEXTradeByTokens))
	for _, t := range data.Solana.DEXTradeByTokens {
		dir, ok := domain.ParseDirection(t.Trade.Side.Type)
		if !ok {
			continue
		}
		trades = append(trades, domain.TradeRecord{
			TokenMint:     mint,
			Timestamp:     parseTime(t.Block.Time),
			Signature:     t.Transaction.Signature,
			WalletAddress: strings.TrimSpace(t.Trade.Account.Owner),
			Direction:     dir,
			TokenAmount:   t.Trade.Amount.Float(),
			USDAmount:     t.Trade.AmountInUSD.Float(),
			Protocol:      t.Trade.Dex.ProtocolName,
		})
	}
	span.SetAttributes(attribute.Int("trades", len(trades)))
	return trades, nil
}
