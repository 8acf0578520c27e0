package provider

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"solfolio/internal/domain"

	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	heliusRPCURL = "https://mainnet.helius-rpc.com"
	heliusAPIURL = "https://api.helius.xyz"

	splTokenProgram = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
)

// HeliusProvider reads wallet balances over Solana JSON-RPC and wallet
// history from the Helius enhanced transactions API.
type HeliusProvider struct {
	base
	apiURL string
}

func NewHeliusProvider(tracer trace.Tracer, opts Options) *HeliusProvider {
	p := &HeliusProvider{base: newBase("helius", heliusRPCURL, tracer, opts, PerMinute(300))}
	p.apiURL = heliusAPIURL
	if opts.BaseURL != "" {
		p.apiURL = opts.BaseURL
	}
	return p
}

// TokenBalance is one SPL token account balance in display units.
type TokenBalance struct {
	Mint     string
	Amount   float64
	Decimals int
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (p *HeliusProvider) rpc(ctx context.Context, method string, params []any, result any) error {
	if err := p.requireKey(); err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/?api-key=%s", p.baseURL, url.QueryEscape(p.apiKey))

	var envelope struct {
		Result jsoniter.RawMessage `json:"result"`
		Error  *rpcError           `json:"error"`
	}
	req := rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params}
	if err := p.postJSON(ctx, endpoint, nil, req, &envelope); err != nil {
		return err
	}
	if envelope.Error != nil {
		return fmt.Errorf("rpc %s: %d %s", method, envelope.Error.Code, envelope.Error.Message)
	}
	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return fmt.Errorf("parse rpc %s result: %w", method, err)
	}
	return nil
}

// SOLBalance returns the native balance of address in SOL.
func (p *HeliusProvider) SOLBalance(ctx context.Context, address string) (float64, error) {
	ctx, span := p.startSpan(ctx, "sol-balance")
	defer span.End()
	span.SetAttributes(attribute.String("address", address))

	var result struct {
		Value uint64 `json:"value"`
	}
	if err := p.rpc(ctx, "getBalance", []any{address}, &result); err != nil {
		recordErr(span, err)
		return 0, fmt.Errorf("sol balance for %s: %w", address, err)
	}
	return float64(result.Value) / domain.LamportsPerSOL, nil
}

// TokenBalances returns the non-zero SPL token balances owned by address.
func (p *HeliusProvider) TokenBalances(ctx context.Context, address string) ([]TokenBalance, error) {
	ctx, span := p.startSpan(ctx, "token-balances")
	defer span.End()
	span.SetAttributes(attribute.String("address", address))

	var result struct {
		Value []struct {
			Account struct {
				Data struct {
					Parsed struct {
						Info struct {
							Mint        string `json:"mint"`
							TokenAmount struct {
								UIAmount *float64 `json:"uiAmount"`
								Decimals int      `json:"decimals"`
							} `json:"tokenAmount"`
						} `json:"info"`
					} `json:"parsed"`
				} `json:"data"`
			} `json:"account"`
		} `json:"value"`
	}
	params := []any{
		address,
		map[string]string{"programId": splTokenProgram},
		map[string]string{"encoding": "jsonParsed"},
	}
	if err := p.rpc(ctx, "getTokenAccountsByOwner", params, &result); err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("token balances for %s: %w", address, err)
	}

	byMint := make(map[string]*TokenBalance)
	order := make([]string, 0, len(result.Value))
	for _, acc := range result.Value {
		info := acc.Account.Data.Parsed.Info
		if info.TokenAmount.UIAmount == nil || *info.TokenAmount.UIAmount <= 0 {
			continue
		}
		// A wallet can hold several accounts for the same mint.
		if b, ok := byMint[info.Mint]; ok {
			b.Amount += *info.TokenAmount.UIAmount
			continue
		}
		byMint[info.Mint] = &TokenBalance{Mint: info.Mint, Amount: *info.TokenAmount.UIAmount, Decimals: info.TokenAmount.Decimals}
		order = append(order, info.Mint)
	}

	balances := make([]TokenBalance, 0, len(order))
	for _, mint := range order {
		balances = append(balances, *byMint[mint])
	}
	return balances, nil
}

// WalletTransfers returns recent token transfers into or out of address as
// trade records; USD amounts are unknown at this layer and left at zero.
func (p *HeliusProvider) WalletTransfers(ctx context.Context, address string, limit int) ([]domain.TradeRecord, error) {
	ctx, span := p.startSpan(ctx, "wallet-transfers")
	defer span.End()
	span.SetAttributes(attribute.String("address", address))

	if err := p.requireKey(); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var raw []struct {
		Signature      string `json:"signature"`
		Timestamp      int64  `json:"timestamp"`
		Source         string `json:"source"`
		TokenTransfers []struct {
			FromUserAccount string    `json:"fromUserAccount"`
			ToUserAccount   string    `json:"toUserAccount"`
			Mint            string    `json:"mint"`
			TokenAmount     flexFloat `json:"tokenAmount"`
		} `json:"tokenTransfers"`
	}
	endpoint := fmt.Sprintf("%s/v0/addresses/%s/transactions?api-key=%s&limit=%d",
		p.apiURL, url.PathEscape(address), url.QueryEscape(p.apiKey), limit)
	if err := p.getJSON(ctx, endpoint, nil, &raw); err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("wallet transfers for %s: %w", address, err)
	}

	var out []domain.TradeRecord
	for _, tx := range raw {
		for _, tr := range tx.TokenTransfers {
			var dir domain.Direction
			switch address {
			case tr.ToUserAccount:
				dir = domain.DirectionBuy
			case tr.FromUserAccount:
				dir = domain.DirectionSell
			default:
				continue
			}
			out = append(out, domain.TradeRecord{
				TokenMint:     tr.Mint,
				Timestamp:     time.Unix(tx.Timestamp, 0).UTC(),
				Signature:     tx.Signature,
				WalletAddress: address,
				Direction:     dir,
				TokenAmount:   tr.TokenAmount.Float(),
				Protocol:      tx.Source,
			})
		}
	}
	return out, nil
}
