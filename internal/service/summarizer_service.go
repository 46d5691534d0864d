package service

import (
	"context"
	"fmt"
	"strings"

	"edumate-go/internal/model"
	"edumate-go/pkg/llm"
	"edumate-go/pkg/log"
)

// NoChatHistoryText 是没有历史记录时的固定摘要文本。
const NoChatHistoryText = "No chat history found for analysis"

// SummarizerService 接口定义了对话历史摘要操作。
type SummarizerService interface {
	Summarize(ctx context.Context, turns []model.ConversationTurn) string
}

type summarizerService struct {
	llmClient llm.Client
}

// NewSummarizerService 创建一个新的 SummarizerService 实例。
func NewSummarizerService(llmClient llm.Client) SummarizerService {
	return &summarizerService{llmClient: llmClient}
}

// Summarize 对历史问答做叙述式摘要，供生成阶段参考。
// 摘要是尽力而为的：调用失败时返回带错误说明的文本，不向上返回错误。
func (s *summarizerService) Summarize(ctx context.Context, turns []model.ConversationTurn) string {
	if len(turns) == 0 {
		return NoChatHistoryText
	}

	var history strings.Builder
	for i := len(turns) - 1; i >= 0; i-- {
		// turns 按时间倒序传入，这里翻转回时间正序
		history.WriteString("Human: ")
		history.WriteString(turns[i].Prompt)
		history.WriteString("\nAssistant: ")
		history.WriteString(turns[i].Content)
		history.WriteString("\n")
	}

	prompt := fmt.Sprintf(
		"Analyze the following tutoring chat history and provide a concise summary covering: "+
			"1) the topics discussed, 2) the student's apparent knowledge level, "+
			"3) any exercises attempted and their outcomes, 4) the student's learning progress.\n\n"+
			"Chat history:\n%s", history.String())

	summary, err := s.llmClient.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}})
	if err != nil {
		log.Warnf("[SummarizerService] 历史摘要调用失败: %v", err)
		return fmt.Sprintf("Chat history analysis unavailable: %v", err)
	}
	return summary
}
