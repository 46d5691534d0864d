package service

import (
	"context"
	"fmt"
	"strings"

	"edumate-go/internal/model"
	"edumate-go/pkg/llm"
	"edumate-go/pkg/log"
)

// ApologyText 是生成失败时返回给学生的固定文本。
const ApologyText = "I apologize, but I encountered an error processing your message. Please try again."

// FragmentSink 接收流式生成的文本片段。
type FragmentSink interface {
	EmitFragment(text string) error
}

// GenerateRequest 是一次回答生成所需的全部输入。
type GenerateRequest struct {
	Assistant      *model.Assistant
	Query          string
	Context        []ScoredChunk
	KnowledgeLevel string
	ChatSummary    string
	History        []model.ChatMessage
}

// GeneratorService 接口定义了回答生成操作。
type GeneratorService interface {
	Generate(ctx context.Context, req GenerateRequest, sink FragmentSink) string
}

type generatorService struct {
	llmClient llm.Client
}

// NewGeneratorService 创建一个新的 GeneratorService 实例。
func NewGeneratorService(llmClient llm.Client) GeneratorService {
	return &generatorService{llmClient: llmClient}
}

// Generate 调用一次流式 LLM 生成回答，边生成边写入 sink，最终返回完整回答。
// 任何失败都退化为固定的道歉文本，不向上返回错误。
func (s *generatorService) Generate(ctx context.Context, req GenerateRequest, sink FragmentSink) string {
	messages := s.composeMessages(req)

	answerBuilder := &strings.Builder{}
	interceptor := &sinkWriter{sink: sink, captured: answerBuilder}

	if err := s.llmClient.StreamChatMessages(ctx, messages, nil, interceptor); err != nil {
		log.Errorf("[GeneratorService] 回答生成失败: %v", err)
		if sink != nil {
			_ = sink.EmitFragment(ApologyText)
		}
		return ApologyText
	}

	answer := answerBuilder.String()
	if answer == "" {
		log.Warnf("[GeneratorService] 生成结果为空, 返回道歉文本")
		if sink != nil {
			_ = sink.EmitFragment(ApologyText)
		}
		return ApologyText
	}
	return answer
}

func (s *generatorService) composeMessages(req GenerateRequest) []llm.Message {
	messages := make([]llm.Message, 0, len(req.History)+2)
	messages = append(messages, llm.Message{Role: "system", Content: s.buildSystemMessage(req)})
	for _, m := range req.History {
		if m.Role == "user" || m.Role == "assistant" {
			messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
		}
	}
	messages = append(messages, llm.Message{Role: "user", Content: fenceIfCodeLike(req.Query)})
	return messages
}

// buildSystemMessage 组装自适应教学的 system 提示词。
func (s *generatorService) buildSystemMessage(req GenerateRequest) string {
	assistant := req.Assistant

	var contextBuilder strings.Builder
	for i, sc := range req.Context {
		contextBuilder.WriteString(fmt.Sprintf("[%d] %s\n", i+1, sc.Chunk.Content))
	}
	contextText := contextBuilder.String()
	if contextText == "" {
		contextText = "(no reference material retrieved for this question)"
	}

	var sys strings.Builder
	sys.WriteString(fmt.Sprintf(
		"You are an adaptive educational assistant for %s, focused on the topic of %s. "+
			"Your goal is to help the student learn through clear explanations and guided practice.\n\n",
		assistant.Subject, assistant.Topic))

	if assistant.TeacherInstructions != "" {
		sys.WriteString("Teacher instructions for this assistant:\n")
		sys.WriteString(assistant.TeacherInstructions)
		sys.WriteString("\n\n")
	}

	sys.WriteString("Reference material from the knowledge base:\n")
	sys.WriteString(contextText)
	sys.WriteString("\n")
	sys.WriteString("Base your answers on the reference material above. " +
		"If the material does not cover the question, say so honestly instead of inventing facts.\n\n")

	sys.WriteString(fmt.Sprintf("The student's current knowledge level is: %s.\n", req.KnowledgeLevel))
	switch req.KnowledgeLevel {
	case LevelAdvanced:
		sys.WriteString("Use precise terminology, explore edge cases, and offer challenging exercises " +
			"that require combining multiple concepts.\n")
	case LevelIntermediate:
		sys.WriteString("Build on fundamentals the student already knows, introduce new concepts gradually, " +
			"and offer exercises of moderate difficulty.\n")
	default:
		sys.WriteString("Explain concepts from first principles with simple examples, avoid jargon, " +
			"and offer short confidence-building exercises.\n")
	}
	sys.WriteString("When you give an exercise, wait for the student's attempt before revealing the solution.\n\n")

	if req.ChatSummary != "" {
		sys.WriteString("Summary of the conversation so far:\n")
		sys.WriteString(req.ChatSummary)
		sys.WriteString("\n")
	}

	return sys.String()
}

// fenceIfCodeLike 对看起来像代码的提问加上围栏，避免其中的花括号干扰提示词。
func fenceIfCodeLike(query string) string {
	if strings.Contains(query, "```") ||
		(strings.Contains(query, "{") && strings.Contains(query, "}")) {
		return "```\n" + query + "\n```"
	}
	return query
}

// sinkWriter 将 LLM 流式分块同时写入 sink 和本地缓冲。
// 它满足 llm.MessageWriter 接口。
type sinkWriter struct {
	sink     FragmentSink
	captured *strings.Builder
}

func (w *sinkWriter) WriteMessage(messageType int, data []byte) error {
	w.captured.Write(data)
	if w.sink != nil && len(data) > 0 {
		return w.sink.EmitFragment(string(data))
	}
	return nil
}
