package internal

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dushixiang/helmsman/internal/config"
	"github.com/dushixiang/helmsman/internal/handler"
	"github.com/dushixiang/helmsman/internal/models"
	"github.com/dushixiang/helmsman/internal/service"
	"github.com/dushixiang/helmsman/internal/telegram"
	"github.com/dushixiang/helmsman/pkg/nostd"
	"github.com/go-orz/orz"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func Run(configPath string) error {
	app := NewHelmsmanApp()

	framework, err := orz.NewFramework(
		orz.WithConfig(configPath),
		orz.WithLoggerFromConfig(),
		orz.WithDatabase(),
		orz.WithHTTP(),
		orz.WithApplication(app),
	)
	if err != nil {
		return err
	}

	return framework.Run()
}

func NewHelmsmanApp() orz.Application {
	return &HelmsmanApp{}
}

var _ orz.Application = (*HelmsmanApp)(nil)

type AppComponents struct {
	TradingHandler *handler.TradingHandler

	TradingLoop           *service.TradingLoop
	MarketService         *service.MarketService
	TradingAccountService *service.TradingAccountService
	AgentService          *service.AgentService

	Telegram *telegram.Telegram
}

type HelmsmanApp struct {
	components *AppComponents
	conf       *config.Config
}

// GetComponents 获取应用组件
func (r *HelmsmanApp) GetComponents() *AppComponents {
	return r.components
}

func (r *HelmsmanApp) Configure(app *orz.App) error {
	logger := app.Logger()
	e := app.GetEcho()
	db := app.GetDatabase()

	var conf config.Config
	if err := app.GetConfig().App.Unmarshal(&conf); err != nil {
		return fmt.Errorf("failed to unmarshal config: %v", err)
	}
	conf.SetDefaults()

	// 风控配置非法直接拒绝启动
	if err := conf.Validate(); err != nil {
		return err
	}

	components, err := InitializeApp(logger, db, &conf)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %v", err)
	}
	r.components = components
	r.conf = &conf

	if err := db.AutoMigrate(
		models.Decision{}, models.Trade{}, models.LossSale{},
		models.DailyStat{}, models.AccountHistory{},
	); err != nil {
		logger.Fatal("database auto migrate failed", zap.Error(err))
	}

	if err := r.Init(logger); err != nil {
		logger.Fatal("app init failed", zap.Error(err))
	}

	e.HidePort = true
	e.HideBanner = true

	e.Use(middleware.Gzip())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		Skipper:      middleware.DefaultSkipper,
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
	}))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			sugar := logger.Sugar()
			sugar.Error(fmt.Sprintf("[PANIC RECOVER] %v %s\n", err, stack))
			return err
		},
	}))
	e.Use(WithErrorHandler(logger))
	customValidator := nostd.CustomValidator{Validator: validator.New()}
	if err := customValidator.TransInit(); err != nil {
		logger.Sugar().Fatal("failed to init custom validator", zap.Error(err))
	}
	e.Validator = &customValidator

	api := e.Group("/api")
	{
		if r.components.TradingHandler != nil {
			r.components.TradingHandler.RegisterRoutes(api)
		}
	}

	return nil
}

func (r *HelmsmanApp) Init(logger *zap.Logger) error {
	logger.Info("=================================================")
	logger.Info("Helmsman Trading System Starting...")
	logger.Info("=================================================")

	components := r.GetComponents()
	if components == nil {
		return fmt.Errorf("components not initialized")
	}

	if components.TradingLoop == nil {
		return fmt.Errorf("trading loop not available, please check Alpaca and LLM API configuration")
	}

	if components.Telegram != nil {
		components.Telegram.Start()
	}

	logger.Info("Trading loop initialized, starting...")

	go func() {
		if err := components.TradingLoop.Start(context.Background()); err != nil {
			logger.Error("trading loop error", zap.Error(err))
		}
	}()
	return nil
}
