// Package persona selects the response persona for a request and owns the
// persona system-prompt templates. Adding a persona is a data change: extend
// the definitions table.
package persona

import (
	"strings"

	"ragchat-backend/models"
)

// definition binds a persona to its trigger keywords and system prompt.
type definition struct {
	id           models.Persona
	keywords     []string
	systemPrompt string
}

// overrides are explicit mode-switch phrases; they take precedence over
// keyword matching.
var overrides = []struct {
	phrases []string
	id      models.Persona
}{
	{[]string{"教学模式", "老师模式"}, models.PersonaTeacher},
	{[]string{"查询模式", "研究模式"}, models.PersonaResearcher},
	{[]string{"通用模式", "正常模式"}, models.PersonaGeneral},
}

var definitions = []definition{
	{
		id:       models.PersonaTeacher,
		keywords: []string{"解释", "讲解", "为什么", "怎么理解", "原理", "教我"},
		systemPrompt: "你是一名耐心的网络安全老师。请用循序渐进的方式回答问题：先给出直观的解释，" +
			"再结合参考上下文展开细节，必要时举例说明。回答基于参考上下文，标注引用编号，" +
			"上下文中没有的内容请明确说明。",
	},
	{
		id:       models.PersonaResearcher,
		keywords: []string{"查询", "检索", "对比", "数据", "统计", "CVE", "漏洞编号"},
		systemPrompt: "你是一名严谨的网络安全研究助理。请基于参考上下文给出准确、简洁的事实性回答，" +
			"逐条标注引用编号，不要加入上下文之外的推测。无法从上下文得出结论时请直接说明。",
	},
	{
		id:       models.PersonaGeneral,
		keywords: []string{},
		systemPrompt: "你是一名专业的网络安全知识助手。请基于参考上下文回答用户问题，标注引用编号，" +
			"保持回答准确、清晰。上下文不足以回答时请如实说明，不要编造内容。",
	},
}

// Default is the persona used when nothing matches.
const Default = models.PersonaGeneral

// Detect maps user text to a persona. Total: always returns a registered
// persona.
func Detect(userInput string) models.Persona {
	for _, o := range overrides {
		for _, phrase := range o.phrases {
			if strings.Contains(userInput, phrase) {
				return o.id
			}
		}
	}
	for _, def := range definitions {
		for _, kw := range def.keywords {
			if strings.Contains(userInput, kw) {
				return def.id
			}
		}
	}
	return Default
}

// SystemPrompt returns the template for a persona, falling back to the
// default persona's template for unknown values.
func SystemPrompt(p models.Persona) string {
	for _, def := range definitions {
		if def.id == p {
			return def.systemPrompt
		}
	}
	return SystemPrompt(Default)
}
