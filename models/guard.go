package models

// GuardReason classifies why a guard check rejected a piece of text.
type GuardReason string

const (
	ReasonLength        GuardReason = "LENGTH"
	ReasonSensitiveWord GuardReason = "SENSITIVE_WORD"
	ReasonSQLPattern    GuardReason = "SQL_PATTERN"
	ReasonXSSPattern    GuardReason = "XSS_PATTERN"
	ReasonCmdInjection  GuardReason = "CMD_INJECTION_PATTERN"
	ReasonPromptInject  GuardReason = "PROMPT_INJECTION_PATTERN"
	ReasonJailbreak     GuardReason = "JAILBREAK_CONFIRMATION"
	ReasonSensitiveLeak GuardReason = "SENSITIVE_LEAK"
)

// GuardVerdict is the result of one guard check. Reason is empty when the
// text passed.
type GuardVerdict struct {
	Safe   bool        `json:"safe"`
	Reason GuardReason `json:"reason,omitempty"`
}

// SafeVerdict is the verdict for text that passed every rule.
func SafeVerdict() GuardVerdict {
	return GuardVerdict{Safe: true}
}

// RejectVerdict is the verdict for text that matched a rule.
func RejectVerdict(reason GuardReason) GuardVerdict {
	return GuardVerdict{Safe: false, Reason: reason}
}
