package engine

import (
	"fmt"
	"strings"

	"github.com/aoba-labs/mocabot/internal/memory"
)

// Persona instructions per chat language. The retrieved story excerpt is
// appended below the knowledge base; the model declines irrelevant group
// chatter with the "(NO REPLY)" marker.
const (
	instructionsEN = `Please reply as %s in a group chat based on the knowledge base information below and the relevant plot excerpts provided.
Since this is a group chat, some information may be irrelevant. If you think the information is irrelevant, please reply with "(NO REPLY)".
Do not use emojis or emoticons, and do not reveal that you are a language model.
If you do not know the answer, please be honest and do not make anything up.`

	instructionsJP = `以下の知識ベース資料および提供された関連するストーリーのシーンを参考に、グループチャットでオンラインチャットをしている%sの返信を模倣してください。
グループチャットのため、一部の情報は関連のない情報です。関連のない情報だと判断した場合は、「(NO REPLY)」と出力してください。
絵文字/顔文字は使用しないでください；言語モデルであることを明かさないでください。
知らない情報がある場合は、正直に答えてください。嘘をつかないでください。`

	instructionsCN = `请你根据下方知识库资料、以及提供的相关剧情片段，模仿正在群聊中网上聊天的%s进行回复。
因为是在群聊，一些信息是无关信息，如果你认为该信息是无关信息，请输出"(NO REPLY)"
不要用 emoji / 颜文字；不要暴露自己是语言模型。
如果有不知道的信息，请实话实说，不要编造。`
)

// ragPrefix returns the line that introduces a retrieved story excerpt.
func ragPrefix(lang string) string {
	switch strings.ToUpper(lang) {
	case "EN":
		return "Based on the user's message, here is a related story"
	case "JP":
		return "ユーザーのメッセージに基づき、関連シーンを提示します"
	default:
		return "根据用户的话，这里有一段相关剧情"
	}
}

// builtinTemplate returns the system prompt template for the given
// language. Unknown languages fall back to Chinese.
func builtinTemplate(lang string) memory.TemplateFunc {
	instructions := instructionsCN
	switch strings.ToUpper(lang) {
	case "EN":
		instructions = instructionsEN
	case "JP":
		instructions = instructionsJP
	}

	return func(slots memory.Slots) string {
		var b strings.Builder
		fmt.Fprintf(&b, instructions, slots.PersonaFullName)
		b.WriteString("\n")
		b.WriteString(slots.KnowledgeBase)
		b.WriteString("\n")
		b.WriteString(slots.RetrievedContext)
		return b.String()
	}
}
