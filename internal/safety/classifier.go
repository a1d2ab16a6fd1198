// Package safety screens untrusted visitor text before it can reach a model
// context. Classify is a pure function of its input; Sanitize is an
// independent, idempotent scrub applied to anything that is rendered.
package safety

import (
	"regexp"
	"strings"
	"unicode"
)

// Reason names why a text was accepted or rejected.
type Reason string

const (
	ReasonOK Reason = "ok"

	// Gates checked before pattern rules.
	ReasonEmpty         Reason = "empty_message"
	ReasonTooLong       Reason = "message_too_long"
	ReasonSymbolDensity Reason = "suspicious_char_density"

	// Pattern categories.
	ReasonInstructionOverride  Reason = "instruction_override"
	ReasonIdentityOverride     Reason = "identity_override"
	ReasonJailbreak            Reason = "jailbreak"
	ReasonCredentialExtraction Reason = "credential_extraction"
	ReasonCredentialPattern    Reason = "credential_pattern"
	ReasonPromptExtraction     Reason = "prompt_extraction"
	ReasonDestructiveAction    Reason = "destructive_action"
	ReasonCodeExecution        Reason = "code_execution"
	ReasonShellCommand         Reason = "shell_command"
	ReasonSQLInjection         Reason = "sql_injection"
	ReasonFileAccess           Reason = "file_access"
	ReasonPathTraversal        Reason = "path_traversal"
	ReasonEncodingEvasion      Reason = "encoding_evasion"
	ReasonTokenInjection       Reason = "token_injection"
)

const (
	// MaxMessageLength caps accepted and rendered text, in characters.
	MaxMessageLength = 2000
	// MaxSymbolRatio is the highest tolerated share of characters outside
	// letters, digits and ordinary punctuation.
	MaxSymbolRatio = 0.4
	// densityMinLength exempts short texts from the density gate.
	densityMinLength = 20
)

// Verdict is the classification result.
type Verdict struct {
	Safe   bool
	Reason Reason
}

type rule struct {
	re     *regexp.Regexp
	reason Reason
}

// rules are evaluated in order; the first match wins.
var rules = []rule{
	// Direct instruction override
	{regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above|earlier)\s+(instructions?|prompts?|rules?|context)`), ReasonInstructionOverride},
	{regexp.MustCompile(`(?i)forget\s+(all\s+)?(previous|prior|your)\s+(instructions?|prompts?|rules?|context)`), ReasonInstructionOverride},
	{regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|your)\s+(instructions?|prompts?|rules?)`), ReasonInstructionOverride},
	{regexp.MustCompile(`(?i)override\s+(your\s+)?(system|instructions?|prompts?|rules?|safety)`), ReasonInstructionOverride},
	{regexp.MustCompile(`(?i)new\s+(system\s+)?instructions?:?\s`), ReasonInstructionOverride},
	{regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|the)\s+`), ReasonIdentityOverride},
	{regexp.MustCompile(`(?i)from\s+now\s+on\s+(you|ignore|pretend|act)`), ReasonIdentityOverride},
	{regexp.MustCompile(`(?i)act\s+as\s+(if|though)\s+you`), ReasonIdentityOverride},
	{regexp.MustCompile(`(?i)pretend\s+(you\s+are|to\s+be|that)`), ReasonIdentityOverride},
	{regexp.MustCompile(`(?i)roleplay\s+as`), ReasonIdentityOverride},
	{regexp.MustCompile(`(?i)jailbreak`), ReasonJailbreak},
	{regexp.MustCompile(`(?i)DAN\s+mode`), ReasonJailbreak},
	{regexp.MustCompile(`(?i)developer\s+mode\s+(enable|on|activate)`), ReasonJailbreak},

	// Secret and credential extraction
	{regexp.MustCompile(`(?i)(show|reveal|print|output|display|tell|give|leak|expose)\s+(me\s+)?(the\s+)?(api\s*key|secret|password|token|credential|env|\.env|environment)`), ReasonCredentialExtraction},
	{regexp.MustCompile(`(?i)(what\s+is|show)\s+(your|the)\s+(api|openai|admin)\s*(key|secret|token|password)`), ReasonCredentialExtraction},
	{regexp.MustCompile(`(?i)OPENAI_API_KEY`), ReasonCredentialExtraction},
	{regexp.MustCompile(`(?i)ADMIN_SECRET`), ReasonCredentialExtraction},
	{regexp.MustCompile(`(?i)sk-[a-zA-Z0-9]{20,}`), ReasonCredentialPattern},
	{regexp.MustCompile(`(?i)(process|os)\.env`), ReasonCredentialExtraction},
	{regexp.MustCompile(`(?i)environment\s+variable`), ReasonCredentialExtraction},

	// System prompt extraction
	{regexp.MustCompile(`(?i)(show|reveal|print|repeat|output)\s+(me\s+)?(your|the)\s+(system\s*prompt|instructions?|rules?|initial\s*prompt)`), ReasonPromptExtraction},
	{regexp.MustCompile(`(?i)what\s+(are|were)\s+your\s+(initial\s+)?(instructions?|rules?|prompt)`), ReasonPromptExtraction},
	{regexp.MustCompile(`(?i)copy\s+(your|the)\s+(system|initial)\s*(prompt|instructions?|message)`), ReasonPromptExtraction},

	// Destructive actions and execution
	{regexp.MustCompile(`(?i)(delete|remove|drop|destroy|wipe|clear|reset)\s+(all\s+)?(the\s+)?(database|db|data|entries|table|files?|everything|memory|storage)`), ReasonDestructiveAction},
	{regexp.MustCompile(`(?i)(execute|run|eval)\s+(this\s+)?(code|command|script|sql|query|shell)`), ReasonCodeExecution},
	{regexp.MustCompile(`(?i)(import|require)\s*\(`), ReasonCodeExecution},
	{regexp.MustCompile(`(?i)__import__`), ReasonCodeExecution},
	{regexp.MustCompile(`(?i)(rm\s+-rf|sudo|chmod|chown|wget|curl)\s`), ReasonShellCommand},
	{regexp.MustCompile(`(?i)(DROP\s+TABLE|DELETE\s+FROM|TRUNCATE|ALTER\s+TABLE)\s`), ReasonSQLInjection},
	{regexp.MustCompile(`(?i);\s*(DROP|DELETE|INSERT|UPDATE|ALTER)\s`), ReasonSQLInjection},

	// File system access
	{regexp.MustCompile(`(?i)(read|open|cat|write|modify|edit|access)\s+(the\s+)?(file|config|\.env|settings|backend|server)`), ReasonFileAccess},
	{regexp.MustCompile(`(?i)/etc/passwd`), ReasonFileAccess},
	{regexp.MustCompile(`\.\./\.\.`), ReasonPathTraversal},

	// Encoding evasion
	{regexp.MustCompile(`(?i)base64\s*(decode|encode)`), ReasonEncodingEvasion},
	{regexp.MustCompile(`(?i)(hex|ascii|unicode)\s*(decode|encode|convert)`), ReasonEncodingEvasion},
	{regexp.MustCompile(`(?i)\\x[0-9a-f]{2}`), ReasonEncodingEvasion},
	{regexp.MustCompile(`(?i)\\u[0-9a-f]{4}`), ReasonEncodingEvasion},

	// Token and context manipulation
	{regexp.MustCompile(`(?i)<\|?(system|endoftext|im_start|im_end)\|?>`), ReasonTokenInjection},
	{regexp.MustCompile(`(?i)\[INST\]`), ReasonTokenInjection},
	{regexp.MustCompile(`(?i)<<SYS>>`), ReasonTokenInjection},
	{regexp.MustCompile(`(?i)### (System|Human|Assistant|Instruction)`), ReasonTokenInjection},
}

// autoBlockReasons escalate a rejection into a standing fingerprint ban.
var autoBlockReasons = map[Reason]bool{
	ReasonCredentialExtraction: true,
	ReasonCodeExecution:        true,
	ReasonSQLInjection:         true,
	ReasonJailbreak:            true,
}

// Classify decides whether text may enter a model context.
func Classify(text string) Verdict {
	if strings.TrimSpace(text) == "" {
		return Verdict{Reason: ReasonEmpty}
	}

	runes := []rune(text)
	if len(runes) > MaxMessageLength {
		return Verdict{Reason: ReasonTooLong}
	}
	if len(runes) > densityMinLength && symbolRatio(runes) > MaxSymbolRatio {
		return Verdict{Reason: ReasonSymbolDensity}
	}

	for _, r := range rules {
		if r.re.MatchString(text) {
			return Verdict{Reason: r.reason}
		}
	}
	return Verdict{Safe: true, Reason: ReasonOK}
}

// ShouldAutoBlock reports whether a rejection reason bans the sender.
func ShouldAutoBlock(reason Reason) bool {
	return autoBlockReasons[reason]
}

func symbolRatio(runes []rune) float64 {
	special := 0
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || strings.ContainsRune(" .,!?;:-'\"()\n", r) {
			continue
		}
		special++
	}
	return float64(special) / float64(len(runes))
}
