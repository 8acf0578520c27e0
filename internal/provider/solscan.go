package provider

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"solfolio/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const solscanURL = "https://pro-api.solscan.io/v2.0"

// SolscanProvider reads token metadata and holder lists from Solscan Pro.
type SolscanProvider struct {
	base
}

func NewSolscanProvider(tracer trace.Tracer, opts Options) *SolscanProvider {
	return &SolscanProvider{base: newBase("solscan", solscanURL, tracer, opts, PerMinute(60))}
}

func (p *SolscanProvider) headers() map[string]string {
	return map[string]string{"token": p.apiKey}
}

// TokenMeta is Solscan's metadata for a mint; Supply is in display units.
type TokenMeta struct {
	Mint     string
	Name     string
	Symbol   string
	Decimals int
	Supply   float64
	Holders  int
}

func (p *SolscanProvider) TokenMeta(ctx context.Context, mint string) (*TokenMeta, error) {
	ctx, span := p.startSpan(ctx, "token-meta")
	defer span.End()
	span.SetAttributes(attribute.String("mint", mint))

	if err := p.requireKey(); err != nil {
		return nil, err
	}

	var raw struct {
		Success bool `json:"success"`
		Data    *struct {
			Address  string    `json:"address"`
			Name     string    `json:"name"`
			Symbol   string    `json:"symbol"`
			Decimals int       `json:"decimals"`
			Supply   flexFloat `json:"supply"`
			Holder   int       `json:"holder"`
		} `json:"data"`
	}
	endpoint := fmt.Sprintf("%s/token/meta?address=%s", p.baseURL, url.QueryEscape(mint))
	if err := p.getJSON(ctx, endpoint, p.headers(), &raw); err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("token meta for %s: %w", mint, err)
	}
	if !raw.Success || raw.Data == nil {
		return nil, nil
	}
	return &TokenMeta{
		Mint:     mint,
		Name:     raw.Data.Name,
		Symbol:   raw.Data.Symbol,
		Decimals: raw.Data.Decimals,
		Supply:   uiAmount(raw.Data.Supply.Float(), raw.Data.Decimals),
		Holders:  raw.Data.Holder,
	}, nil
}

// TokenHolders returns one page of holders ranked by balance, plus the total holder count.
func (p *SolscanProvider) TokenHolders(ctx context.Context, mint string, page, size int) ([]domain.TokenHolder, int, error) {
	ctx, span := p.startSpan(ctx, "token-holders")
	defer span.End()
	span.SetAttributes(attribute.String("mint", mint), attribute.Int("page", page))

	if err := p.requireKey(); err != nil {
		return nil, 0, err
	}
	if page <= 0 {
		page = 1
	}
	// Solscan only accepts these page sizes.
	switch size {
	case 10, 20, 30, 40:
	default:
		size = 40
	}

	var raw struct {
		Success bool `json:"success"`
		Data    struct {
			Total int `json:"total"`
			Items []struct {
				Owner    string    `json:"owner"`
				Amount   flexFloat `json:"amount"`
				Decimals int       `json:"decimals"`
				Rank     int       `json:"rank"`
				Value    flexFloat `json:"value"`
			} `json:"items"`
		} `json:"data"`
	}
	endpoint := fmt.Sprintf("%s/token/holders?address=%s&page=%d&page_size=%d", p.baseURL, url.QueryEscape(mint), page, size)
	if err := p.getJSON(ctx, endpoint, p.headers(), &raw); err != nil {
		recordErr(span, err)
		return nil, 0, fmt.Errorf("token holders for %s: %w", mint, err)
	}

	now := time.Now().UTC()
	holders := make([]domain.TokenHolder, 0, len(raw.Data.Items))
	for i, item := range raw.Data.Items {
		rank := item.Rank
		if rank == 0 {
			rank = (page-1)*size + i + 1
		}
		holders = append(holders, domain.TokenHolder{
			TokenMint:    mint,
			OwnerAddress: item.Owner,
			Balance:      uiAmount(item.Amount.Float(), item.Decimals),
			USDValue:     item.Value.Float(),
			Rank:         rank,
			UpdatedAt:    now,
		})
	}
	return holders, raw.Data.Total, nil
}
