package workflow

import (
	"context"
	"time"

	"edumate-go/internal/model"
	"edumate-go/internal/repository"
	"edumate-go/internal/service"
	"edumate-go/pkg/log"

	"github.com/google/uuid"
)

// Emitter 接收工作流向客户端下发的内容。
type Emitter interface {
	EmitFragment(text string) error
	EmitMessage(text string) error
}

// 阶段名，固定顺序执行，不做分支。
const (
	StageGetContext       = "get_context"
	StageAssessKnowledge  = "assess_knowledge"
	StageGetChatHistory   = "get_chat_history"
	StageAnalyzeHistory   = "analyze_chat_history"
	StageGenerateResponse = "generate_response"
	StageSaveHistory      = "save_history"
)

// Engine 驱动六阶段对话工作流。
type Engine struct {
	assistantRepo    repository.AssistantRepository
	conversationRepo repository.ConversationRepository
	checkpointStore  repository.CheckpointStore
	retrieval        service.RetrievalService
	assessor         service.AssessorService
	summarizer       service.SummarizerService
	generator        service.GeneratorService
	topK             int
	historyTurns     int
}

// NewEngine 创建一个新的工作流引擎实例。
func NewEngine(
	assistantRepo repository.AssistantRepository,
	conversationRepo repository.ConversationRepository,
	checkpointStore repository.CheckpointStore,
	retrieval service.RetrievalService,
	assessor service.AssessorService,
	summarizer service.SummarizerService,
	generator service.GeneratorService,
	topK, historyTurns int,
) *Engine {
	if topK <= 0 {
		topK = 5
	}
	if historyTurns <= 0 {
		historyTurns = 10
	}
	return &Engine{
		assistantRepo:    assistantRepo,
		conversationRepo: conversationRepo,
		checkpointStore:  checkpointStore,
		retrieval:        retrieval,
		assessor:         assessor,
		summarizer:       summarizer,
		generator:        generator,
		topK:             topK,
		historyTurns:     historyTurns,
	}
}

type stage struct {
	name string
	run  func(ctx context.Context, r *turnRun) *StageError
}

// turnRun 持有一轮处理的状态与输出去重集合。
type turnRun struct {
	state   *State
	emitter Emitter
	emitted map[string]bool
}

// emitMessage 下发一条完整消息，本轮内已发过的相同文本会被跳过。
func (r *turnRun) emitMessage(text string) {
	if text == "" || r.emitted[text] {
		return
	}
	r.emitted[text] = true
	if r.emitter != nil {
		if err := r.emitter.EmitMessage(text); err != nil {
			log.Warnf("[Workflow] 下发消息失败: %v", err)
		}
	}
}

// Run 执行一轮完整的对话处理，返回助手的回答。
// 阶段顺序固定：检索上下文、评估知识水平、读取历史、分析历史、生成回答、保存历史。
func (e *Engine) Run(ctx context.Context, userID uint, assistantID, conversationID, query string, emitter Emitter) (string, error) {
	state, err := e.loadState(ctx, userID, assistantID, conversationID)
	if err != nil {
		return "", err
	}
	state.Query = query
	state.Messages = append(state.Messages, model.ChatMessage{
		Role:      "user",
		Content:   query,
		Timestamp: time.Now(),
	})

	run := &turnRun{
		state:   state,
		emitter: emitter,
		emitted: make(map[string]bool),
	}

	stages := []stage{
		{StageGetContext, e.getContext},
		{StageAssessKnowledge, e.assessKnowledge},
		{StageGetChatHistory, e.getChatHistory},
		{StageAnalyzeHistory, e.analyzeChatHistory},
		{StageGenerateResponse, e.generateResponse},
		{StageSaveHistory, e.saveHistory},
	}

	for _, st := range stages {
		if stageErr := st.run(ctx, run); stageErr != nil {
			if stageErr.Degraded {
				log.Warnf("[Workflow] 阶段 %s 降级继续: %v", stageErr.Stage, stageErr.Err)
				continue
			}
			log.Errorf("[Workflow] 阶段 %s 失败, 中止本轮处理: %v", stageErr.Stage, stageErr.Err)
			return "", stageErr
		}
	}

	// 本轮结束后覆盖写入检查点，后写覆盖先写
	if err := e.checkpointStore.Save(ctx, userID, assistantID, state); err != nil {
		log.Warnf("[Workflow] 保存检查点失败: %v", err)
	}

	return state.Answer, nil
}

// loadState 恢复线程检查点，不存在时初始化新状态。
func (e *Engine) loadState(ctx context.Context, userID uint, assistantID, conversationID string) (*State, error) {
	state := &State{}
	found, err := e.checkpointStore.Load(ctx, userID, assistantID, state)
	if err != nil {
		log.Warnf("[Workflow] 读取检查点失败, 使用空状态: %v", err)
		found = false
	}
	if !found {
		state = &State{
			UserID:      userID,
			AssistantID: assistantID,
		}
	}
	if conversationID != "" {
		state.ConversationID = conversationID
	}
	if state.ConversationID == "" {
		state.ConversationID = uuid.NewString()
	}
	state.UserID = userID
	state.AssistantID = assistantID
	return state, nil
}

// getContext 加载助手快照并检索知识库上下文。
func (e *Engine) getContext(ctx context.Context, r *turnRun) *StageError {
	assistant, err := e.assistantRepo.FindByID(r.state.AssistantID)
	if err != nil {
		return &StageError{Stage: StageGetContext, Err: err}
	}
	r.state.Assistant = assistant

	// 检索内部已经降级为空结果，这里不会失败
	results, err := e.retrieval.Search(ctx, r.state.Query, r.state.AssistantID, e.topK)
	if err != nil {
		r.state.Context = nil
		return &StageError{Stage: StageGetContext, Err: err, Degraded: true}
	}
	r.state.Context = results
	return nil
}

// assessKnowledge 评估学生知识水平。评估内部永不失败。
func (e *Engine) assessKnowledge(ctx context.Context, r *turnRun) *StageError {
	r.state.KnowledgeLevel = e.assessor.Assess(ctx, r.state.UserID, r.state.AssistantID, r.state.Query)
	return nil
}

// getChatHistory 读取最近的历史问答。读取失败时降级为空历史。
func (e *Engine) getChatHistory(ctx context.Context, r *turnRun) *StageError {
	turns, err := e.conversationRepo.FindRecentByThread(r.state.UserID, r.state.AssistantID, e.historyTurns)
	if err != nil {
		r.state.ChatHistory = nil
		return &StageError{Stage: StageGetChatHistory, Err: err, Degraded: true}
	}
	r.state.ChatHistory = turns
	return nil
}

// analyzeChatHistory 生成历史摘要。摘要内部永不失败。
func (e *Engine) analyzeChatHistory(ctx context.Context, r *turnRun) *StageError {
	r.state.ChatSummary = e.summarizer.Summarize(ctx, r.state.ChatHistory)
	return nil
}

// generateResponse 生成回答并流式下发。生成内部失败会退化为道歉文本。
func (e *Engine) generateResponse(ctx context.Context, r *turnRun) *StageError {
	answer := e.generator.Generate(ctx, service.GenerateRequest{
		Assistant:      r.state.Assistant,
		Query:          r.state.Query,
		Context:        r.state.Context,
		KnowledgeLevel: r.state.KnowledgeLevel,
		ChatSummary:    r.state.ChatSummary,
		History:        r.state.Messages[:len(r.state.Messages)-1],
	}, fragmentSink{r})

	r.state.Answer = answer
	r.state.Messages = append(r.state.Messages, model.ChatMessage{
		Role:      "assistant",
		Content:   answer,
		Timestamp: time.Now(),
	})
	// 作为完整消息下发一次，本轮内相同文本不会重复下发
	r.emitMessage(answer)
	// 消息列表只保留最近 20 条，检查点不无限增长
	if len(r.state.Messages) > 20 {
		r.state.Messages = r.state.Messages[len(r.state.Messages)-20:]
	}
	return nil
}

// saveHistory 追加问答记录并累计助手交互次数。
// 回答此时已经下发，持久化失败降级为仅记录日志。
func (e *Engine) saveHistory(ctx context.Context, r *turnRun) *StageError {
	turn := &model.ConversationTurn{
		UserID:         r.state.UserID,
		AssistantID:    r.state.AssistantID,
		ConversationID: r.state.ConversationID,
		Prompt:         r.state.Query,
		Content:        r.state.Answer,
	}
	if err := e.conversationRepo.Append(turn); err != nil {
		return &StageError{Stage: StageSaveHistory, Err: err, Degraded: true}
	}
	if err := e.assistantRepo.IncrementInteractions(r.state.AssistantID); err != nil {
		return &StageError{Stage: StageSaveHistory, Err: err, Degraded: true}
	}
	return nil
}

// fragmentSink 把生成片段转发给 emitter，满足 service.FragmentSink 接口。
type fragmentSink struct {
	run *turnRun
}

func (s fragmentSink) EmitFragment(text string) error {
	if s.run.emitter == nil {
		return nil
	}
	return s.run.emitter.EmitFragment(text)
}
