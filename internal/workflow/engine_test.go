package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"edumate-go/internal/model"
	"edumate-go/internal/repository"
	"edumate-go/internal/service"
	"edumate-go/pkg/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.InitForTest()
}

// harness 把所有依赖的假实现装配成一个引擎，并记录调用顺序。
type harness struct {
	engine *Engine
	calls  []string

	assistantRepo    *fakeAssistantRepo
	conversationRepo *fakeConversationRepo
	checkpoints      *memCheckpointStore
	generator        *fakeGenerator
}

func newHarness() *harness {
	h := &harness{}
	h.assistantRepo = &fakeAssistantRepo{h: h, assistant: &model.Assistant{ID: "a1", Subject: "Math", Topic: "Algebra"}}
	h.conversationRepo = &fakeConversationRepo{h: h}
	h.checkpoints = newMemCheckpointStore()
	h.generator = &fakeGenerator{h: h, answer: "the answer"}
	h.engine = NewEngine(
		h.assistantRepo,
		h.conversationRepo,
		h.checkpoints,
		&fakeRetrieval{h: h},
		&fakeAssessor{h: h},
		&fakeSummarizer{h: h},
		h.generator,
		5, 10,
	)
	return h
}

func (h *harness) record(call string) {
	h.calls = append(h.calls, call)
}

type fakeAssistantRepo struct {
	h            *harness
	assistant    *model.Assistant
	findErr      error
	incrementErr error
	increments   int
}

func (f *fakeAssistantRepo) Create(*model.Assistant) error { return nil }
func (f *fakeAssistantRepo) FindByID(id string) (*model.Assistant, error) {
	f.h.record("FindByID")
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.assistant, nil
}
func (f *fakeAssistantRepo) FindByUser(uint) ([]model.Assistant, error) { return nil, nil }
func (f *fakeAssistantRepo) FindPublished(repository.AssistantFilter) ([]model.Assistant, error) {
	return nil, nil
}
func (f *fakeAssistantRepo) Update(*model.Assistant) error { return nil }
func (f *fakeAssistantRepo) Delete(string) error           { return nil }
func (f *fakeAssistantRepo) SubmitRating(string, uint, int) (*model.Assistant, error) {
	return nil, nil
}
func (f *fakeAssistantRepo) IncrementInteractions(string) error {
	f.h.record("IncrementInteractions")
	f.increments++
	return f.incrementErr
}

type fakeConversationRepo struct {
	h         *harness
	turns     []model.ConversationTurn
	recentErr error
	appendErr error
	appended  []*model.ConversationTurn
}

func (f *fakeConversationRepo) Append(turn *model.ConversationTurn) error {
	f.h.record("Append")
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, turn)
	return nil
}
func (f *fakeConversationRepo) FindTurns(string, int) ([]model.ConversationTurn, error) {
	return nil, nil
}
func (f *fakeConversationRepo) FindRecentByThread(userID uint, assistantID string, limit int) ([]model.ConversationTurn, error) {
	f.h.record("FindRecentByThread")
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	return f.turns, nil
}
func (f *fakeConversationRepo) ListConversations(uint, string) ([]repository.ConversationSummary, error) {
	return nil, nil
}

// memCheckpointStore 用内存 map 模拟检查点的覆盖写语义。
type memCheckpointStore struct {
	data map[string][]byte
}

func newMemCheckpointStore() *memCheckpointStore {
	return &memCheckpointStore{data: make(map[string][]byte)}
}

func (s *memCheckpointStore) key(userID uint, assistantID string) string {
	return fmt.Sprintf("%d_%s", userID, assistantID)
}

func (s *memCheckpointStore) Load(ctx context.Context, userID uint, assistantID string, dest interface{}) (bool, error) {
	raw, ok := s.data[s.key(userID, assistantID)]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (s *memCheckpointStore) Save(ctx context.Context, userID uint, assistantID string, state interface{}) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	s.data[s.key(userID, assistantID)] = raw
	return nil
}

func (s *memCheckpointStore) DeleteByAssistant(ctx context.Context, assistantID string) error {
	for key := range s.data {
		if strings.HasSuffix(key, "_"+assistantID) {
			delete(s.data, key)
		}
	}
	return nil
}

func (s *memCheckpointStore) load(t *testing.T, userID uint, assistantID string) *State {
	t.Helper()
	state := &State{}
	found, err := s.Load(context.Background(), userID, assistantID, state)
	require.NoError(t, err)
	require.True(t, found)
	return state
}

type fakeRetrieval struct {
	h       *harness
	results []service.ScoredChunk
}

func (f *fakeRetrieval) Search(ctx context.Context, query, assistantID string, k int) ([]service.ScoredChunk, error) {
	f.h.record("Search")
	return f.results, nil
}

type fakeAssessor struct {
	h *harness
}

func (f *fakeAssessor) Assess(ctx context.Context, userID uint, assistantID, latestMessage string) string {
	f.h.record("Assess")
	return service.LevelIntermediate
}

type fakeSummarizer struct {
	h         *harness
	lastTurns []model.ConversationTurn
}

func (f *fakeSummarizer) Summarize(ctx context.Context, turns []model.ConversationTurn) string {
	f.h.record("Summarize")
	f.lastTurns = turns
	return "summary"
}

type fakeGenerator struct {
	h         *harness
	answer    string
	fragments []string
	lastReq   service.GenerateRequest
}

func (f *fakeGenerator) Generate(ctx context.Context, req service.GenerateRequest, sink service.FragmentSink) string {
	f.h.record("Generate")
	f.lastReq = req
	for _, fragment := range f.fragments {
		_ = sink.EmitFragment(fragment)
	}
	return f.answer
}

// recordingEmitter 记录下发的片段与完整消息。
type recordingEmitter struct {
	fragments []string
	messages  []string
}

func (e *recordingEmitter) EmitFragment(text string) error {
	e.fragments = append(e.fragments, text)
	return nil
}

func (e *recordingEmitter) EmitMessage(text string) error {
	e.messages = append(e.messages, text)
	return nil
}

func TestRunExecutesStagesInOrder(t *testing.T) {
	h := newHarness()

	answer, err := h.engine.Run(context.Background(), 1, "a1", "", "question", &recordingEmitter{})
	require.NoError(t, err)
	assert.Equal(t, "the answer", answer)

	assert.Equal(t, []string{
		"FindByID",
		"Search",
		"Assess",
		"FindRecentByThread",
		"Summarize",
		"Generate",
		"Append",
		"IncrementInteractions",
	}, h.calls)
}

func TestRunPassesStateBetweenStages(t *testing.T) {
	h := newHarness()
	h.conversationRepo.turns = []model.ConversationTurn{{Prompt: "earlier", Content: "reply"}}

	_, err := h.engine.Run(context.Background(), 1, "a1", "", "question", &recordingEmitter{})
	require.NoError(t, err)

	assert.Equal(t, h.conversationRepo.turns, h.summarizerTurns())
	assert.Equal(t, "question", h.generator.lastReq.Query)
	assert.Equal(t, service.LevelIntermediate, h.generator.lastReq.KnowledgeLevel)
	assert.Equal(t, "summary", h.generator.lastReq.ChatSummary)
	assert.Equal(t, "Math", h.generator.lastReq.Assistant.Subject)
	// 历史消息不包含本轮刚追加的用户提问
	assert.Empty(t, h.generator.lastReq.History)
}

func (h *harness) summarizerTurns() []model.ConversationTurn {
	return h.engine.summarizer.(*fakeSummarizer).lastTurns
}

func TestRunAssistantNotFoundAborts(t *testing.T) {
	h := newHarness()
	h.assistantRepo.findErr = errors.New("record not found")

	_, err := h.engine.Run(context.Background(), 1, "missing", "", "question", &recordingEmitter{})
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageGetContext, stageErr.Stage)

	// 中止后不再执行后续阶段
	assert.Equal(t, []string{"FindByID"}, h.calls)
}

func TestRunHistoryFailureDegrades(t *testing.T) {
	h := newHarness()
	h.conversationRepo.recentErr = errors.New("db gone")

	answer, err := h.engine.Run(context.Background(), 1, "a1", "", "question", &recordingEmitter{})
	require.NoError(t, err)
	assert.Equal(t, "the answer", answer)

	// 历史读取失败降级为空历史，摘要阶段照常执行
	assert.Nil(t, h.summarizerTurns())
	assert.Contains(t, h.calls, "Generate")
}

func TestRunSaveFailureDegrades(t *testing.T) {
	h := newHarness()
	h.conversationRepo.appendErr = errors.New("insert failed")

	answer, err := h.engine.Run(context.Background(), 1, "a1", "", "question", &recordingEmitter{})
	require.NoError(t, err)
	assert.Equal(t, "the answer", answer)
}

func TestRunEmitsFragmentsAndMessageOnce(t *testing.T) {
	h := newHarness()
	h.generator.fragments = []string{"the ", "answer"}
	emitter := &recordingEmitter{}

	_, err := h.engine.Run(context.Background(), 1, "a1", "", "question", emitter)
	require.NoError(t, err)

	assert.Equal(t, []string{"the ", "answer"}, emitter.fragments)
	// 完整消息只下发一次
	assert.Equal(t, []string{"the answer"}, emitter.messages)
}

func TestRunCheckpointOverwrite(t *testing.T) {
	h := newHarness()

	_, err := h.engine.Run(context.Background(), 1, "a1", "", "first question", &recordingEmitter{})
	require.NoError(t, err)

	state := h.checkpoints.load(t, 1, "a1")
	require.Len(t, state.Messages, 2)
	assert.Equal(t, "first question", state.Messages[0].Content)
	assert.Equal(t, "the answer", state.Messages[1].Content)
	assert.NotEmpty(t, state.ConversationID)
	firstConversation := state.ConversationID

	_, err = h.engine.Run(context.Background(), 1, "a1", "", "second question", &recordingEmitter{})
	require.NoError(t, err)

	// 第二轮覆盖同一份检查点，消息在原线程上累积
	state = h.checkpoints.load(t, 1, "a1")
	require.Len(t, state.Messages, 4)
	assert.Equal(t, firstConversation, state.ConversationID)
	assert.Len(t, h.checkpoints.data, 1)
}

func TestRunExplicitConversationID(t *testing.T) {
	h := newHarness()

	_, err := h.engine.Run(context.Background(), 1, "a1", "conv-42", "question", &recordingEmitter{})
	require.NoError(t, err)

	state := h.checkpoints.load(t, 1, "a1")
	assert.Equal(t, "conv-42", state.ConversationID)

	require.Len(t, h.conversationRepo.appended, 1)
	turn := h.conversationRepo.appended[0]
	assert.Equal(t, "conv-42", turn.ConversationID)
	assert.Equal(t, "question", turn.Prompt)
	assert.Equal(t, "the answer", turn.Content)
	assert.Equal(t, uint(1), turn.UserID)
}

func TestRunMessageWindowCapped(t *testing.T) {
	h := newHarness()

	for i := 0; i < 15; i++ {
		_, err := h.engine.Run(context.Background(), 1, "a1", "", fmt.Sprintf("question %d", i), &recordingEmitter{})
		require.NoError(t, err)
	}

	state := h.checkpoints.load(t, 1, "a1")
	assert.Len(t, state.Messages, 20)
	// 留下的是最近的消息
	assert.Equal(t, "question 14", state.Messages[len(state.Messages)-2].Content)
}
