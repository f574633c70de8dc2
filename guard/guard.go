// Package guard implements the three-layer validation gate applied to raw
// user input, to the fully assembled prompt, and to the model's raw output.
// The checks are pure functions over a declarative rule table; matches are
// logged for audit but logging never affects the verdict.
package guard

import (
	"regexp"
	"strings"

	"ragchat-backend/models"

	"go.uber.org/zap"
)

// maxInputLength is the hard cap on raw user input, in characters.
const maxInputLength = 500

// SensitiveWords are literals that must never appear in user input and must
// never leak through model output.
var SensitiveWords = []string{"密码", "密钥", "root", "admin", "删除数据库"}

// rule pairs a compiled pattern with the reason reported when it matches.
type rule struct {
	reason  models.GuardReason
	pattern *regexp.Regexp
}

// inputRules cover SQL injection, XSS and command injection. Order fixes
// which reason is reported when several rules match; any match rejects.
var inputRules = []rule{
	// SQL: DML/DDL keywords, classic tautologies, timing functions, comments.
	{models.ReasonSQLPattern, regexp.MustCompile(`(?i)\b(select|union|insert|drop|delete|update|alter|create|truncate)\b`)},
	{models.ReasonSQLPattern, regexp.MustCompile(`('|")\s*(?i:or|and)\s*('|")\d('|")\s*=\s*('|")\d`)},
	{models.ReasonSQLPattern, regexp.MustCompile(`(?i)\b(sleep|benchmark|waitfor\s+delay)\b`)},
	{models.ReasonSQLPattern, regexp.MustCompile(`(--|#|/\*|\*/)`)},
	// XSS: script tags, inline event handlers, javascript: hrefs.
	{models.ReasonXSSPattern, regexp.MustCompile(`(?i)<script`)},
	{models.ReasonXSSPattern, regexp.MustCompile(`(?i)onerror=`)},
	{models.ReasonXSSPattern, regexp.MustCompile(`(?i)onload=`)},
	{models.ReasonXSSPattern, regexp.MustCompile(`(?i)onmouseover=`)},
	{models.ReasonXSSPattern, regexp.MustCompile(`(?i)href=[\s"']*javascript:`)},
	// Shell: metacharacters and common command names.
	{models.ReasonCmdInjection, regexp.MustCompile("(&&|\\|\\||;|`|\\$\\()")},
	{models.ReasonCmdInjection, regexp.MustCompile(`(?i)\b(ls|cat|rm|whoami|sh|bash|powershell|wget|curl)\b`)},
}

// promptRules cover jailbreak/role-override phrasing in assembled prompts.
var promptRules = []rule{
	{models.ReasonPromptInject, regexp.MustCompile(`(?i)(ignore|disregard|forget)\s+(all|your)\s+(previous|prior)\s+(instructions|directives|context)`)},
	{models.ReasonPromptInject, regexp.MustCompile(`(?i)(you|your)\s+(are|role|task)\s+(now|is)\s+`)},
	{models.ReasonPromptInject, regexp.MustCompile(`(?i)system\s+prompt`)},
	{models.ReasonPromptInject, regexp.MustCompile(`(?i)output\s+only`)},
	{models.ReasonPromptInject, regexp.MustCompile(`(?i)(what|repeat|tell|show)\s+(are|me)\s+(your|the)\s+(instructions|directives|prompt|rules)`)},
	{models.ReasonPromptInject, regexp.MustCompile(`(?i)act\s+as|respond\s+as`)},
	{models.ReasonPromptInject, regexp.MustCompile(`(?i)new\s+set\s+of\s+rules`)},
}

// outputRules catch the model confirming a jailbreak.
var outputRules = []rule{
	{models.ReasonJailbreak, regexp.MustCompile(`(?i)forgot(ten)?\s+previous`)},
	{models.ReasonJailbreak, regexp.MustCompile(`(?i)ignore(d)?\s+instructions`)},
	{models.ReasonJailbreak, regexp.MustCompile(`(?i)new\s+role`)},
	{models.ReasonJailbreak, regexp.MustCompile(`(?i)i\s+will\s+now`)},
}

// Guard evaluates the rule tables and logs every rejection.
type Guard struct {
	logger *zap.Logger
}

// New creates a Guard. A nil logger disables audit logging.
func New(logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{logger: logger}
}

// ValidateInput checks raw user text: length, sensitive literals, then the
// attack-pattern table.
func (g *Guard) ValidateInput(input string) models.GuardVerdict {
	if len([]rune(input)) > maxInputLength {
		g.audit("input", models.ReasonLength, "", input)
		return models.RejectVerdict(models.ReasonLength)
	}
	for _, word := range SensitiveWords {
		if strings.Contains(input, word) {
			g.audit("input", models.ReasonSensitiveWord, word, input)
			return models.RejectVerdict(models.ReasonSensitiveWord)
		}
	}
	return g.applyRules("input", inputRules, input)
}

// ValidatePrompt checks the fully assembled prompt for injection phrasing
// before it is sent for generation.
func (g *Guard) ValidatePrompt(prompt string) models.GuardVerdict {
	return g.applyRules("prompt", promptRules, prompt)
}

// ValidateOutput checks the model's raw reply for jailbreak confirmations
// and sensitive-word leaks.
func (g *Guard) ValidateOutput(response string) models.GuardVerdict {
	if verdict := g.applyRules("output", outputRules, response); !verdict.Safe {
		return verdict
	}
	for _, word := range SensitiveWords {
		if strings.Contains(response, word) {
			g.audit("output", models.ReasonSensitiveLeak, word, response)
			return models.RejectVerdict(models.ReasonSensitiveLeak)
		}
	}
	return models.SafeVerdict()
}

func (g *Guard) applyRules(stage string, rules []rule, text string) models.GuardVerdict {
	for _, r := range rules {
		if r.pattern.MatchString(text) {
			g.audit(stage, r.reason, r.pattern.String(), text)
			return models.RejectVerdict(r.reason)
		}
	}
	return models.SafeVerdict()
}

func (g *Guard) audit(stage string, reason models.GuardReason, pattern, text string) {
	g.logger.Warn("validation failed",
		zap.String("stage", stage),
		zap.String("reason", string(reason)),
		zap.String("pattern", pattern),
		zap.String("snippet", snippet(text, 100)),
	)
}

func snippet(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
