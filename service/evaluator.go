package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"ragchat-backend/models"

	"go.uber.org/zap"
)

// Dialoguer is the dialogue call the evaluator depends on.
type Dialoguer interface {
	Dialogue(ctx context.Context, prompt string) (string, error)
}

// jsonSpan grabs the outermost {...} block out of a chatty model reply.
var jsonSpan = regexp.MustCompile(`\{[\s\S]*\}`)

// Evaluator scores a final answer with a structured-output LLM call.
// Evaluation is best effort: after maxRetries + 1 failed parse attempts it
// returns the default all-zero report instead of an error, so it can never
// block answer delivery.
type Evaluator struct {
	client     Dialoguer
	maxRetries int
	logger     *zap.Logger
}

// NewEvaluator creates an Evaluator. maxRetries is the number of re-asks
// after the first failed attempt.
func NewEvaluator(client Dialoguer, maxRetries int, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{client: client, maxRetries: maxRetries, logger: logger}
}

// Evaluate runs the scoring call with bounded retry on malformed JSON.
func (e *Evaluator) Evaluate(ctx context.Context, question, ragContext, answer string) models.EvaluationReport {
	prompt := buildEvaluationPrompt(question, ragContext, answer, "")

	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		raw, err := e.client.Dialogue(ctx, prompt)
		if err != nil {
			e.logger.Warn("evaluation dialogue call failed",
				zap.Int("attempt", attempt+1), zap.Error(err))
		} else if report, perr := parseEvaluation(raw); perr == nil {
			return report
		} else {
			e.logger.Warn("evaluation JSON parse failed",
				zap.Int("attempt", attempt+1), zap.Error(perr))
		}

		// Re-ask with a strengthened JSON-only instruction.
		prompt = buildEvaluationPrompt(question, ragContext, answer,
			"请务必严格按照JSON格式输出，不要包含任何额外说明或文本。")
	}

	return models.DefaultEvaluationReport()
}

// parseEvaluation extracts and decodes the report from a raw model reply:
// first the outermost {...} span, then the whole reply as a fallback.
func parseEvaluation(raw string) (models.EvaluationReport, error) {
	var report models.EvaluationReport
	if span := jsonSpan.FindString(raw); span != "" {
		if err := json.Unmarshal([]byte(span), &report); err == nil {
			return report, nil
		}
	}
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return models.EvaluationReport{}, fmt.Errorf("no valid JSON in evaluation response: %w", err)
	}
	return report, nil
}

func buildEvaluationPrompt(question, ragContext, answer, extraInstruction string) string {
	return fmt.Sprintf(`你是一个专业的AI回答质量评估专家。请根据以下标准评估一个AI助手对用户问题的回答质量：

评估标准：
1. 准确性（30分）：回答是否准确无误，是否基于提供的上下文，是否有事实错误
2. 相关性（25分）：回答是否紧扣用户问题，是否包含无关信息
3. 完整性（20分）：回答是否全面覆盖问题要点，是否遗漏重要信息
4. 清晰度（15分）：回答是否逻辑清晰，表达是否简洁明了
5. 格式与引用（10分）：是否正确标注引用，格式是否恰当

%s

请严格按照以下JSON Schema格式输出评估结果：
{
    "accuracy_score": 0-30,
    "relevance_score": 0-25,
    "completeness_score": 0-20,
    "clarity_score": 0-15,
    "format_score": 0-10,
    "total_score": 0-100,
    "strengths": ["优点1", "优点2"],
    "weaknesses": ["缺点1", "缺点2"],
    "suggestions": ["改进建议1", "改进建议2"],
    "optimized_prompt": "优化后的prompt建议（如果需要）"
}

【用户问题】
%s

【参考上下文】
%s

【AI回答】
%s

请只输出JSON内容，不要包含任何其他说明：
`, extraInstruction, question, ragContext, answer)
}
