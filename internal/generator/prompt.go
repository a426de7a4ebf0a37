package generator

import (
	"strings"

	"github.com/kalambet/aidiary/internal/llm"
)

const askSystemPrompt = `あなたは傾聴コーチです。以下の対話履歴を読んで、ユーザーの内省を促す質問を日本語で1文だけ作成してください。

Rules:
- Ask exactly one question, in Japanese, without numbering or quotes.
- Build on the user's latest answer; do not repeat earlier questions.
- Respond with a JSON object {"question": "..."} and nothing else.`

const summarySystemPrompt = `以下の対話履歴を読み、200〜300字の日本語の日記文を作成してください。一人称で、その日の出来事と気持ちを自然な文章にまとめてください。

加えて、喜怒哀楽（joy, anger, sadness, pleasure）それぞれを 0 から 1 の小数で評価してください。

Respond with a JSON object of the form
{"diary": "...", "scores": {"joy": n, "anger": n, "sadness": n, "pleasure": n}}
and nothing else. The transcript uses "Q:" for questions and "A:" for the user's answers.`

const chatSystemPrompt = `あなたはユーザーの一日を振り返る手助けをする、穏やかな聞き手です。短く共感を示し、必要なら一つだけ質問を返してください。日本語で答えてください。`

const generateDiarySystemPrompt = `これまでの会話をもとに、200〜300字の日本語の日記文を作成してください。加えて、喜怒哀楽（joy, anger, sadness, pleasure）それぞれを 0 から 1 の小数で評価してください。

Respond with a JSON object {"diary": "...", "scores": {"joy": n, "anger": n, "sadness": n, "pleasure": n}} and nothing else.`

// BuildAskPrompt constructs the messages asking for the next question.
func BuildAskPrompt(history string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: askSystemPrompt},
		{Role: llm.RoleUser, Content: strings.TrimSpace(history)},
	}
}

// BuildSummaryPrompt constructs the messages asking for a diary draft.
func BuildSummaryPrompt(transcript string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: summarySystemPrompt},
		{Role: llm.RoleUser, Content: strings.TrimSpace(transcript)},
	}
}

// BuildChatPrompt prefixes a free-form conversation with the listener persona.
func BuildChatPrompt(messages []llm.Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages)+1)
	out = append(out, llm.Message{Role: llm.RoleSystem, Content: chatSystemPrompt})
	return append(out, normalize(messages)...)
}

// BuildDiaryPrompt appends the diary request to a free-form conversation.
func BuildDiaryPrompt(messages []llm.Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages)+1)
	out = append(out, llm.Message{Role: llm.RoleSystem, Content: generateDiarySystemPrompt})
	return append(out, normalize(messages)...)
}

// normalize drops empty turns and maps unknown roles to user. Client-sent
// system messages are demoted so they cannot override the persona.
func normalize(messages []llm.Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		role := llm.RoleUser
		if m.Role == llm.RoleAssistant || m.Role == "ai" {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out
}
