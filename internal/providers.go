package internal

import (
	"net/http"
	"net/url"
	"time"

	"github.com/dushixiang/helmsman/internal/config"
	"github.com/dushixiang/helmsman/internal/service"
	"github.com/dushixiang/helmsman/internal/telegram"
	"github.com/dushixiang/helmsman/pkg/broker"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const telegramHTTPTimeout = 10 * time.Second

// provideTelegram provides telegram instance
func provideTelegram(logger *zap.Logger, conf *config.Config) *telegram.Telegram {
	if !conf.Telegram.Enabled {
		return nil
	}

	httpClient := &http.Client{Timeout: telegramHTTPTimeout}

	tg, err := telegram.NewTelegram(logger, telegram.Settings{
		Token:  conf.Telegram.Token,
		Client: httpClient,
	})
	if err != nil {
		logger.Error("failed to init telegram", zap.Error(err))
		return nil
	}

	return tg
}

// provideBroker provides the broker implementation
// 真实交易关闭时用内存模拟账户包装真实行情
func provideBroker(conf *config.Config, logger *zap.Logger) broker.Broker {
	alpaca := broker.NewAlpacaClient(conf.Alpaca.APIKey, conf.Alpaca.APISecret, conf.Alpaca.Paper)

	if conf.Alpaca.APIKey == "" || conf.Alpaca.APISecret == "" {
		logger.Warn("Alpaca API credentials not configured; private endpoints may fail")
	}

	if !conf.Trading.Enabled {
		logger.Info("live trading disabled, using in-memory paper wallet",
			zap.Float64("initial_balance", conf.Trading.PaperWallet.InitialBalance))
		return broker.NewPaperBroker(alpaca, conf.Trading.PaperWallet.InitialBalance, logger)
	}

	logger.Info("Alpaca client initialized", zap.Bool("paper_endpoint", conf.Alpaca.Paper))
	return alpaca
}

// provideOpenAIClient provides OpenAI client
func provideOpenAIClient(conf *config.Config, logger *zap.Logger) *openai.Client {
	var options = []option.RequestOption{
		option.WithBaseURL(conf.LLM.BaseURL),
		option.WithAPIKey(conf.LLM.APIKey),
	}
	if conf.LLM.ProxyURL != "" {
		u, err := url.Parse(conf.LLM.ProxyURL)
		if err != nil {
			logger.Fatal("failed to parse proxy URL", zap.Error(err))
		}
		httpClient := &http.Client{
			Timeout: time.Minute,
			Transport: &http.Transport{
				Proxy: http.ProxyURL(u),
			},
		}
		options = append(options, option.WithHTTPClient(httpClient))
	}

	client := openai.NewClient(options...)

	logger.Info("LLM client initialized", zap.String("model", conf.LLM.Model))
	return &client
}

func provideCircuitBreaker(db *gorm.DB, conf *config.Config, logger *zap.Logger) *service.CircuitBreaker {
	return service.NewCircuitBreaker(db, conf.Risk.DailyLossLimitPct, logger)
}

func provideRiskService(conf *config.Config, breaker *service.CircuitBreaker, counter *service.DailyTradeCounter, washes *service.WashSaleTracker, logger *zap.Logger) *service.RiskService {
	return service.NewRiskService(conf.Risk, breaker, counter, washes, logger)
}
