package mcp

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"finance-mcp/internal/domain"
	"finance-mcp/internal/indicator"
	"finance-mcp/internal/provider"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerResources(server *mcp.Server) {
	server.AddResource(&mcp.Resource{
		URI:         "finance://supported-indicators",
		Name:        "supported-indicators",
		Description: "Technical indicators accepted by stock_data with usage and examples",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return jsonResource(req.Params.URI, supportedIndicators())
	})

	server.AddResource(&mcp.Resource{
		URI:         "finance://supported-markets",
		Name:        "supported-markets",
		Description: "Markets accepted by stock_data and the upstream serving each",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return jsonResource(req.Params.URI, supportedMarkets())
	})

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "finance://lookback{?indicators,start}",
		Name:        "indicator-lookback",
		Description: "History bars required by an indicator list and the extended fetch start for a start date",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		parsed, err := url.Parse(req.Params.URI)
		if err != nil {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		if parsed.Scheme != "finance" || parsed.Host != "lookback" {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		out, err := lookback(parsed.Query().Get("indicators"), parsed.Query().Get("start"))
		if err != nil {
			return nil, err
		}
		return jsonResource(req.Params.URI, out)
	})
}

func supportedIndicators() []indicatorInfo {
	out := make([]indicatorInfo, 0, len(indicator.SupportedKinds))
	for _, k := range indicator.SupportedKinds {
		out = append(out, indicatorInfo{
			Name:        string(k),
			Usage:       k.Usage(),
			Example:     k.Example(),
			Description: k.Description(),
		})
	}
	return out
}

func supportedMarkets() []marketInfo {
	out := make([]marketInfo, 0, len(domain.SupportedMarkets))
	for _, m := range domain.SupportedMarkets {
		info := marketInfo{
			Market: string(m),
			Title:  domain.MarketTitles[m],
			Source: provider.NameTushare,
			OHLC:   m.HasOHLC(),
		}
		if m == domain.MarketCrypto {
			info.Source = provider.NameBinance
		} else {
			info.DailyAPI = provider.DailyAPIs[m]
		}
		out = append(out, info)
	}
	return out
}

func lookback(rawIndicators, start string) (lookbackOutput, error) {
	exprs := indicator.SplitExprs(rawIndicators)
	specs, err := indicator.ParseAll(exprs)
	if err != nil {
		return lookbackOutput{}, err
	}
	out := lookbackOutput{Indicators: make([]string, 0, len(specs))}
	for _, s := range specs {
		out.Indicators = append(out.Indicators, indicator.Label(s))
	}
	out.RequiredBars = indicator.RequiredBars(specs...)

	start = strings.TrimSpace(start)
	if start == "" {
		return out, nil
	}
	out.StartDate = start
	out.ExtendedStart, err = indicator.ExtendedStartDate(start, out.RequiredBars)
	if err != nil {
		return lookbackOutput{}, err
	}
	return out, nil
}

func jsonResource(uri string, payload any) (*mcp.ReadResourceResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(body),
		}},
	}, nil
}
