package analysis

import (
	"fmt"
	"strings"
)

// labelTranslation is one literal substring replacement applied to
// analyst commentary. Patterns are disjoint prefixes, so order does not
// affect the outcome, but the table is applied in order regardless.
type labelTranslation struct {
	from string
	to   string
}

// analystLabelTranslations localizes the English role prefixes the
// engine emits inside debate transcripts
var analystLabelTranslations = []labelTranslation{
	{"Bull Analyst:", "看涨分析师:"},
	{"Bear Analyst:", "看跌分析师:"},
	{"Risky Analyst:", "激进风险分析师:"},
	{"Safe Analyst:", "保守风险分析师:"},
	{"Neutral Analyst:", "中性风险分析师:"},
	{"Research Manager:", "研究经理:"},
	{"Portfolio Manager:", "投资组合经理:"},
	{"Risk Judge:", "风险管理委员会:"},
	{"Trader:", "交易员:"},
}

// Placeholders for sections with no commentary. All four section
// headers always appear in the composed report.
const (
	placeholderRisky   = "暂无激进风险分析"
	placeholderNeutral = "暂无中性风险分析"
	placeholderSafe    = "暂无保守风险分析"
	placeholderJudge   = "暂无风险管理决议"
)

// TranslateAnalystLabels replaces the English analyst role labels in
// text with their localized equivalents. Literal substring
// substitution, not pattern matching.
func TranslateAnalystLabels(text string) string {
	if text == "" {
		return text
	}
	for _, t := range analystLabelTranslations {
		text = strings.ReplaceAll(text, t.from, t.to)
	}
	return text
}

// ExtractRiskAssessment reads the engine's risk_debate_state sub-record
// and composes the localized risk report. Returns "" when the
// sub-record is absent, empty, or malformed; a shape problem is treated
// as "no risk assessment available", never surfaced as an error.
func ExtractRiskAssessment(state State) string {
	if state == nil {
		return ""
	}

	debate := subRecord(state["risk_debate_state"])
	if len(debate) == 0 {
		return ""
	}

	risky := TranslateAnalystLabels(stringField(debate, "risky_history"))
	safe := TranslateAnalystLabels(stringField(debate, "safe_history"))
	neutral := TranslateAnalystLabels(stringField(debate, "neutral_history"))
	judge := TranslateAnalystLabels(stringField(debate, "judge_decision"))

	return strings.TrimSpace(fmt.Sprintf(`## ⚠️ 风险评估报告

### 🔴 激进风险分析师观点
%s

### 🟡 中性风险分析师观点
%s

### 🟢 保守风险分析师观点
%s

### 🏛️ 风险管理委员会最终决议
%s

---
*风险评估基于多角度分析，请结合个人风险承受能力做出投资决策*`,
		orPlaceholder(risky, placeholderRisky),
		orPlaceholder(neutral, placeholderNeutral),
		orPlaceholder(safe, placeholderSafe),
		orPlaceholder(judge, placeholderJudge),
	))
}

// subRecord coerces the nested record into a map regardless of whether
// it arrived as a typed State or a decoded JSON object
func subRecord(v interface{}) map[string]interface{} {
	switch rec := v.(type) {
	case State:
		return rec
	case map[string]interface{}:
		return rec
	default:
		return nil
	}
}

// stringField reads a string field, ignoring missing or non-string values
func stringField(rec map[string]interface{}, key string) string {
	if s, ok := rec[key].(string); ok {
		return s
	}
	return ""
}

func orPlaceholder(s, placeholder string) string {
	if s == "" {
		return placeholder
	}
	return s
}
