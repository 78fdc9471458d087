package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dushixiang/helmsman/internal/config"
	"github.com/dushixiang/helmsman/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"
)

// AgentService LLM决策服务
// 每周期对模型发起一次调用，响应为结构化JSON，逐条校验后转为决策
type AgentService struct {
	logger       *zap.Logger
	openAIClient *openai.Client
	model        string
}

// NewAgentService 创建LLM决策服务
func NewAgentService(openAIClient *openai.Client, conf *config.Config, logger *zap.Logger) *AgentService {
	return &AgentService{
		logger:       logger,
		openAIClient: openAIClient,
		model:        conf.LLM.Model,
	}
}

// DecisionResult 单次模型调用的结果
type DecisionResult struct {
	MarketAssessment string
	Decisions        []models.Decision
	PromptTokens     int
	CompletionTokens int
}

// rawResponse 模型响应的JSON结构
type rawResponse struct {
	MarketAssessment string        `json:"market_assessment"`
	Decisions        []rawDecision `json:"decisions"`
}

type rawDecision struct {
	Symbol     string  `json:"symbol"`
	Action     string  `json:"action"`
	Confidence string  `json:"confidence"`
	Quantity   float64 `json:"quantity"`
	Reasoning  string  `json:"reasoning"`
	RiskNotes  string  `json:"risk_notes"`
}

// RequestDecisions 发起一次模型调用并解析决策
// candidates为本周期允许决策的标的及其资产类别，响应中不在其中的符号一律丢弃
func (s *AgentService) RequestDecisions(ctx context.Context, systemInstructions, prompt string, candidates map[string]models.AssetClass) (*DecisionResult, error) {
	s.logger.Info("requesting LLM decisions", zap.String("model", s.model), zap.Int("candidates", len(candidates)))

	resp, err := s.openAIClient.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemInstructions),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call LLM API: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	content := resp.Choices[0].Message.Content
	assessment, decisions, err := s.parseDecisions(content, candidates)
	if err != nil {
		return nil, err
	}

	return &DecisionResult{
		MarketAssessment: assessment,
		Decisions:        decisions,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
	}, nil
}

// parseDecisions 解析并校验模型响应
// 非法条目（未知符号/动作/信心、买卖数量非正）丢弃并告警，等同于该标的HOLD
func (s *AgentService) parseDecisions(content string, candidates map[string]models.AssetClass) (string, []models.Decision, error) {
	text := stripCodeFences(content)

	var raw rawResponse
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return "", nil, fmt.Errorf("failed to parse LLM response: %w", err)
	}

	decisions := make([]models.Decision, 0, len(raw.Decisions))
	seen := make(map[string]struct{}, len(raw.Decisions))
	for _, rd := range raw.Decisions {
		class, known := candidates[rd.Symbol]
		if !known {
			s.logger.Warn("discarding decision for unknown symbol", zap.String("symbol", rd.Symbol))
			continue
		}

		// 每标的每周期一条决策，重复符号保留第一条
		if _, dup := seen[rd.Symbol]; dup {
			s.logger.Warn("discarding duplicate decision", zap.String("symbol", rd.Symbol))
			continue
		}

		action := models.Action(strings.ToLower(rd.Action))
		if !action.IsValid() {
			s.logger.Warn("discarding decision with invalid action",
				zap.String("symbol", rd.Symbol),
				zap.String("action", rd.Action))
			continue
		}

		confidence := models.Confidence(strings.ToLower(rd.Confidence))
		if rd.Confidence != "" && !confidence.IsValid() {
			s.logger.Warn("discarding decision with invalid confidence",
				zap.String("symbol", rd.Symbol),
				zap.String("confidence", rd.Confidence))
			continue
		}

		quantity := rd.Quantity
		if action == models.ActionHold {
			quantity = 0
		} else if quantity <= 0 {
			s.logger.Warn("discarding decision with non-positive quantity",
				zap.String("symbol", rd.Symbol),
				zap.String("action", rd.Action),
				zap.Float64("quantity", rd.Quantity))
			continue
		}

		seen[rd.Symbol] = struct{}{}
		decisions = append(decisions, models.Decision{
			Symbol:     rd.Symbol,
			AssetClass: class,
			Action:     action,
			Confidence: confidence,
			Quantity:   quantity,
			Reasoning:  rd.Reasoning,
			RiskNotes:  rd.RiskNotes,
		})
	}

	return raw.MarketAssessment, decisions, nil
}

// stripCodeFences 剥离被markdown代码块包裹的JSON
func stripCodeFences(content string) string {
	text := strings.TrimSpace(content)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
