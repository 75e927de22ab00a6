package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"finance-mcp/internal/domain"
	"finance-mcp/internal/provider"
	"finance-mcp/internal/render"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type TushareQuerier interface {
	Query(ctx context.Context, token, apiName string, params map[string]string, fields string) ([]provider.Record, error)
}

type dateFilter int

const (
	filterNone dateFilter = iota
	filterRange
	filterPeriodOrRange
	filterAfterFetch
)

type dataType struct {
	api    string
	title  string
	filter dateFilter
	fields []string
}

var dataTypes = map[string]dataType{
	"forecast": {
		api: "forecast", title: "Earnings forecast", filter: filterRange,
		fields: []string{"ts_code", "ann_date", "end_date", "type", "p_change_min", "p_change_max", "net_profit_min", "net_profit_max", "last_parent_net", "summary"},
	},
	"express": {
		api: "express", title: "Earnings express", filter: filterRange,
		fields: []string{"ts_code", "ann_date", "end_date", "revenue", "operate_profit", "total_profit", "n_income", "total_assets", "diluted_eps", "diluted_roe", "yoy_net_profit", "bps", "yoy_sales"},
	},
	"indicators": {
		api: "fina_indicator", title: "Financial indicators", filter: filterPeriodOrRange,
		fields: []string{"ts_code", "ann_date", "end_date", "eps", "dt_eps", "bps", "roe", "roe_dt", "roa", "grossprofit_margin", "netprofit_margin", "debt_to_assets", "current_ratio", "quick_ratio", "ocfps", "or_yoy", "netprofit_yoy"},
	},
	"dividend": {
		api: "dividend", title: "Dividends", filter: filterAfterFetch,
		fields: []string{"ts_code", "end_date", "ann_date", "div_proc", "stk_div", "cash_div", "cash_div_tax", "record_date", "ex_date", "pay_date"},
	},
	"income": {
		api: "income", title: "Income statement", filter: filterPeriodOrRange,
		fields: []string{"ts_code", "ann_date", "end_date", "report_type", "basic_eps", "diluted_eps", "total_revenue", "revenue", "total_cogs", "oper_cost", "operate_profit", "total_profit", "income_tax", "n_income", "n_income_attr_p", "ebit", "ebitda"},
	},
	"balance": {
		api: "balancesheet", title: "Balance sheet", filter: filterPeriodOrRange,
		fields: []string{"ts_code", "ann_date", "end_date", "report_type", "total_assets", "total_cur_assets", "total_nca", "total_liab", "total_cur_liab", "total_ncl", "total_hldr_eqy_exc_min_int", "total_liab_hldr_eqy"},
	},
	"cashflow": {
		api: "cashflow", title: "Cash flow statement", filter: filterPeriodOrRange,
		fields: []string{"ts_code", "ann_date", "end_date", "report_type", "net_profit", "n_cashflow_act", "n_cashflow_inv_act", "n_cash_flows_fnc_act", "free_cashflow", "n_incr_cash_cash_equ", "c_cash_equ_end_period"},
	},
	"company_basic": {
		api: "stock_company", title: "Company profile", filter: filterNone,
		fields: []string{"ts_code", "com_name", "exchange", "chairman", "manager", "reg_capital", "setup_date", "province", "city", "website", "employees", "main_business"},
	},
	"holder_number": {
		api: "stk_holdernumber", title: "Shareholder count", filter: filterRange,
		fields: []string{"ts_code", "ann_date", "end_date", "holder_num"},
	},
	"top10_holders": {
		api: "top10_holders", title: "Top 10 shareholders", filter: filterPeriodOrRange,
		fields: []string{"ts_code", "ann_date", "end_date", "holder_name", "hold_amount", "hold_ratio", "hold_change", "holder_type"},
	},
}

// DataTypes lists the supported data_type values in a stable order.
func DataTypes() []string {
	names := make([]string, 0, len(dataTypes))
	for name := range dataTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type CompanyPerformanceRequest struct {
	TSCode    string
	DataType  string
	StartDate string
	EndDate   string
	Period    string
}

type CompanyPerformanceService struct {
	tracer  trace.Tracer
	querier TushareQuerier
	now     func() time.Time
}

func NewCompanyPerformanceService(tracer trace.Tracer, querier TushareQuerier) *CompanyPerformanceService {
	return &CompanyPerformanceService{tracer: tracer, querier: querier, now: time.Now}
}

func (s *CompanyPerformanceService) WithClock(now func() time.Time) *CompanyPerformanceService {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *CompanyPerformanceService) Report(ctx context.Context, req CompanyPerformanceRequest, token string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "company-performance-service.report")
	defer span.End()

	if s.querier == nil {
		return "", fmt.Errorf("company performance service is not fully initialized")
	}

	code := strings.ToUpper(strings.TrimSpace(req.TSCode))
	if code == "" {
		return "", fmt.Errorf("ts_code is required")
	}
	name := strings.ToLower(strings.TrimSpace(req.DataType))
	dt, ok := dataTypes[name]
	if !ok {
		return "", fmt.Errorf("unsupported data_type: %s (supported: %s)", req.DataType, strings.Join(DataTypes(), ", "))
	}
	span.SetAttributes(attribute.String("ts_code", code), attribute.String("data_type", name))

	r, err := resolveRange(s.now(), req.StartDate, req.EndDate, -1, 0)
	if err != nil {
		return "", err
	}
	period := strings.TrimSpace(req.Period)
	if period != "" {
		if _, err := domain.ParseDate(period); err != nil {
			return "", fmt.Errorf("invalid period: %w", err)
		}
	}

	params := map[string]string{"ts_code": code}
	switch dt.filter {
	case filterRange:
		params["start_date"], params["end_date"] = r.Start, r.End
	case filterPeriodOrRange:
		if period != "" {
			params["period"] = period
		} else {
			params["start_date"], params["end_date"] = r.Start, r.End
		}
	}

	records, err := s.querier.Query(ctx, token, dt.api, params, strings.Join(dt.fields, ","))
	if err != nil {
		return "", fmt.Errorf("fetch %s for %s: %w", name, code, err)
	}
	if dt.filter == filterAfterFetch {
		records = filterByEndDate(records, r)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s %s\n\n", code, dt.title)
	if len(records) == 0 {
		b.WriteString("No records in the requested range.\n")
		return b.String(), nil
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		row := make([]string, len(dt.fields))
		for i, f := range dt.fields {
			row[i] = rec.String(f)
		}
		rows = append(rows, row)
	}
	b.WriteString(render.Table(dt.fields, rows))
	return b.String(), nil
}

func filterByEndDate(records []provider.Record, r domain.DateRange) []provider.Record {
	out := records[:0:0]
	for _, rec := range records {
		if d := rec.String("end_date"); d == "" || r.Contains(d) {
			out = append(out, rec)
		}
	}
	return out
}
