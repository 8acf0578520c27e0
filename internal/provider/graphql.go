package provider

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   jsoniter.RawMessage `json:"data"`
	Errors []graphQLError      `json:"errors"`
}

// graphQL posts a query and decodes the data member into out. GraphQL errors
// are returned even when the HTTP status is 200.
func (b *base) graphQL(ctx context.Context, url string, headers map[string]string, query string, vars map[string]any, out any) error {
	var resp graphQLResponse
	if err := b.postJSON(ctx, url, headers, graphQLRequest{Query: query, Variables: vars}, &resp); err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return fmt.Errorf("%s graphql: %s", b.name, strings.Join(msgs, "; "))
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("parse %s graphql data: %w", b.name, err)
	}
	return nil
}
