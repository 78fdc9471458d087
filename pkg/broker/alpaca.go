package broker

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	alpacaPaperTradingURL = "https://paper-api.alpaca.markets"
	alpacaLiveTradingURL  = "https://api.alpaca.markets"
	alpacaDataURL         = "https://data.alpaca.markets"
)

// AlpacaClient Alpaca券商REST客户端（股票与加密货币共用一个入口）
type AlpacaClient struct {
	trading *resty.Client // 交易接口
	data    *resty.Client // 行情接口
}

// NewAlpacaClient 创建Alpaca客户端，paper为true时使用纸面交易入口
func NewAlpacaClient(apiKey, apiSecret string, paper bool) *AlpacaClient {
	baseURL := alpacaLiveTradingURL
	if paper {
		baseURL = alpacaPaperTradingURL
	}

	newClient := func(base string) *resty.Client {
		c := resty.New()
		c.SetBaseURL(base)
		c.SetTimeout(30 * time.Second)
		c.SetHeader("APCA-API-KEY-ID", apiKey)
		c.SetHeader("APCA-API-SECRET-KEY", apiSecret)
		return c
	}

	return &AlpacaClient{
		trading: newClient(baseURL),
		data:    newClient(alpacaDataURL),
	}
}

var _ Broker = (*AlpacaClient)(nil)

// alpacaAccount 账户接口返回（数值均为字符串）
type alpacaAccount struct {
	Equity      string `json:"equity"`
	Cash        string `json:"cash"`
	BuyingPower string `json:"buying_power"`
	LastEquity  string `json:"last_equity"`
}

// GetAccount 获取账户信息
func (c *AlpacaClient) GetAccount(ctx context.Context) (*Account, error) {
	var out alpacaAccount
	resp, err := c.trading.R().SetContext(ctx).SetResult(&out).Get("/v2/account")
	if err != nil {
		return nil, fmt.Errorf("alpaca get account: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("alpaca get account: status %d: %s", resp.StatusCode(), resp.String())
	}

	return &Account{
		Equity:      parseFloat(out.Equity),
		Cash:        parseFloat(out.Cash),
		BuyingPower: parseFloat(out.BuyingPower),
		LastEquity:  parseFloat(out.LastEquity),
	}, nil
}

type alpacaPosition struct {
	Symbol         string `json:"symbol"`
	AssetClass     string `json:"asset_class"` // us_equity / crypto
	Qty            string `json:"qty"`
	AvgEntryPrice  string `json:"avg_entry_price"`
	CurrentPrice   string `json:"current_price"`
	MarketValue    string `json:"market_value"`
	UnrealizedPl   string `json:"unrealized_pl"`
	UnrealizedPlpc string `json:"unrealized_plpc"`
}

// GetPositions 获取全部持仓
// 资产类别取自接口的显式asset_class字段
func (c *AlpacaClient) GetPositions(ctx context.Context) ([]*Position, error) {
	var out []alpacaPosition
	resp, err := c.trading.R().SetContext(ctx).SetResult(&out).Get("/v2/positions")
	if err != nil {
		return nil, fmt.Errorf("alpaca get positions: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("alpaca get positions: status %d: %s", resp.StatusCode(), resp.String())
	}

	positions := make([]*Position, 0, len(out))
	for _, p := range out {
		class := AssetClassEquity
		if p.AssetClass == "crypto" {
			class = AssetClassCrypto
		}
		positions = append(positions, &Position{
			Symbol:           p.Symbol,
			Class:            class,
			Quantity:         parseFloat(p.Qty),
			AvgEntryPrice:    parseFloat(p.AvgEntryPrice),
			CurrentPrice:     parseFloat(p.CurrentPrice),
			MarketValue:      parseFloat(p.MarketValue),
			UnrealizedPnl:    parseFloat(p.UnrealizedPl),
			UnrealizedPnlPct: parseFloat(p.UnrealizedPlpc) * 100,
		})
	}
	return positions, nil
}

type alpacaTrade struct {
	Price     float64   `json:"p"`
	Timestamp time.Time `json:"t"`
}

// GetLatestQuote 获取最新成交价
func (c *AlpacaClient) GetLatestQuote(ctx context.Context, instrument Instrument) (*Quote, error) {
	if instrument.Class == AssetClassCrypto {
		var out struct {
			Trades map[string]alpacaTrade `json:"trades"`
		}
		resp, err := c.data.R().SetContext(ctx).
			SetQueryParam("symbols", instrument.Symbol).
			SetResult(&out).
			Get("/v1beta3/crypto/us/latest/trades")
		if err != nil {
			return nil, fmt.Errorf("alpaca crypto quote %s: %w", instrument.Symbol, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("alpaca crypto quote %s: status %d", instrument.Symbol, resp.StatusCode())
		}
		trade, ok := out.Trades[instrument.Symbol]
		if !ok {
			return nil, fmt.Errorf("alpaca crypto quote %s: no trade data", instrument.Symbol)
		}
		return &Quote{Symbol: instrument.Symbol, Price: trade.Price, Timestamp: trade.Timestamp}, nil
	}

	var out struct {
		Trade alpacaTrade `json:"trade"`
	}
	resp, err := c.data.R().SetContext(ctx).
		SetResult(&out).
		Get("/v2/stocks/" + url.PathEscape(instrument.Symbol) + "/trades/latest")
	if err != nil {
		return nil, fmt.Errorf("alpaca stock quote %s: %w", instrument.Symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("alpaca stock quote %s: status %d", instrument.Symbol, resp.StatusCode())
	}
	return &Quote{Symbol: instrument.Symbol, Price: out.Trade.Price, Timestamp: out.Trade.Timestamp}, nil
}

type alpacaBar struct {
	Timestamp time.Time `json:"t"`
	Open      float64   `json:"o"`
	High      float64   `json:"h"`
	Low       float64   `json:"l"`
	Close     float64   `json:"c"`
	Volume    int64     `json:"v"`
}

func convertBars(raw []alpacaBar) []*Bar {
	bars := make([]*Bar, 0, len(raw))
	for _, b := range raw {
		bars = append(bars, &Bar{
			Date:   b.Timestamp.Format("2006-01-02"),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}
	return bars
}

// GetDailyBars 获取日线K线（升序）
func (c *AlpacaClient) GetDailyBars(ctx context.Context, instrument Instrument, limit int) ([]*Bar, error) {
	if instrument.Class == AssetClassCrypto {
		var out struct {
			Bars map[string][]alpacaBar `json:"bars"`
		}
		resp, err := c.data.R().SetContext(ctx).
			SetQueryParams(map[string]string{
				"symbols":   instrument.Symbol,
				"timeframe": "1Day",
				"limit":     strconv.Itoa(limit),
			}).
			SetResult(&out).
			Get("/v1beta3/crypto/us/bars")
		if err != nil {
			return nil, fmt.Errorf("alpaca crypto bars %s: %w", instrument.Symbol, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("alpaca crypto bars %s: status %d", instrument.Symbol, resp.StatusCode())
		}
		return convertBars(out.Bars[instrument.Symbol]), nil
	}

	var out struct {
		Bars []alpacaBar `json:"bars"`
	}
	resp, err := c.data.R().SetContext(ctx).
		SetQueryParams(map[string]string{
			"timeframe":  "1Day",
			"limit":      strconv.Itoa(limit),
			"adjustment": "raw",
		}).
		SetResult(&out).
		Get("/v2/stocks/" + url.PathEscape(instrument.Symbol) + "/bars")
	if err != nil {
		return nil, fmt.Errorf("alpaca stock bars %s: %w", instrument.Symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("alpaca stock bars %s: status %d", instrument.Symbol, resp.StatusCode())
	}
	return convertBars(out.Bars), nil
}

// GetTopMovers 获取当日涨幅榜标的（股票筛选器）
// 返回的标的显式标记为股票类别
func (c *AlpacaClient) GetTopMovers(ctx context.Context, limit int) ([]Instrument, error) {
	var out struct {
		Gainers []struct {
			Symbol string `json:"symbol"`
		} `json:"gainers"`
	}
	resp, err := c.data.R().SetContext(ctx).
		SetQueryParam("top", strconv.Itoa(limit)).
		SetResult(&out).
		Get("/v1beta1/screener/stocks/movers")
	if err != nil {
		return nil, fmt.Errorf("alpaca movers: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("alpaca movers: status %d", resp.StatusCode())
	}

	movers := make([]Instrument, 0, len(out.Gainers))
	for _, g := range out.Gainers {
		movers = append(movers, Instrument{Symbol: g.Symbol, Class: AssetClassEquity})
	}
	return movers, nil
}

// GetNews 获取标的相关新闻
func (c *AlpacaClient) GetNews(ctx context.Context, symbol string, limit int) ([]*NewsArticle, error) {
	var out struct {
		News []struct {
			Headline  string    `json:"headline"`
			Source    string    `json:"source"`
			Summary   string    `json:"summary"`
			CreatedAt time.Time `json:"created_at"`
		} `json:"news"`
	}
	resp, err := c.data.R().SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbols": symbol,
			"limit":   strconv.Itoa(limit),
		}).
		SetResult(&out).
		Get("/v1beta1/news")
	if err != nil {
		return nil, fmt.Errorf("alpaca news %s: %w", symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("alpaca news %s: status %d", symbol, resp.StatusCode())
	}

	articles := make([]*NewsArticle, 0, len(out.News))
	for _, n := range out.News {
		articles = append(articles, &NewsArticle{
			Symbol:    symbol,
			Headline:  n.Headline,
			Source:    n.Source,
			Summary:   n.Summary,
			CreatedAt: n.CreatedAt,
		})
	}
	return articles, nil
}

type alpacaOrder struct {
	ID             string `json:"id"`
	Symbol         string `json:"symbol"`
	Side           string `json:"side"`
	Qty            string `json:"qty"`
	FilledAvgPrice string `json:"filled_avg_price"`
	Status         string `json:"status"`
}

// SubmitMarketOrder 提交市价单，每个意图只调用一次
func (c *AlpacaClient) SubmitMarketOrder(ctx context.Context, intent OrderIntent) (*OrderResult, error) {
	// 加密货币不支持day有效期
	tif := "day"
	if intent.Class == AssetClassCrypto {
		tif = "gtc"
	}

	body := map[string]string{
		"symbol":        intent.Symbol,
		"qty":           strconv.FormatFloat(intent.Quantity, 'f', -1, 64),
		"side":          string(intent.Side),
		"type":          "market",
		"time_in_force": tif,
	}

	var out alpacaOrder
	resp, err := c.trading.R().SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/v2/orders")
	if err != nil {
		return nil, fmt.Errorf("alpaca submit order %s: %w", intent.Symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("alpaca submit order %s: status %d: %s", intent.Symbol, resp.StatusCode(), resp.String())
	}

	status := OrderStatusAccepted
	switch out.Status {
	case "filled", "partially_filled":
		status = OrderStatusFilled
	case "rejected", "canceled", "expired":
		status = OrderStatusRejected
	}

	return &OrderResult{
		OrderID:   out.ID,
		Symbol:    out.Symbol,
		Side:      OrderSide(out.Side),
		Quantity:  parseFloat(out.Qty),
		FillPrice: parseFloat(out.FilledAvgPrice),
		Status:    status,
	}, nil
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
