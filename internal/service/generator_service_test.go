package service

import (
	"context"
	"testing"

	"edumate-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink 记录收到的所有片段。
type recordingSink struct {
	fragments []string
}

func (s *recordingSink) EmitFragment(text string) error {
	s.fragments = append(s.fragments, text)
	return nil
}

func testAssistant() *model.Assistant {
	return &model.Assistant{
		ID:      "a1",
		Subject: "Mathematics",
		Topic:   "Calculus",
	}
}

func TestGenerateStreamsAndReturnsFullAnswer(t *testing.T) {
	client := &fakeLLMClient{fragments: []string{"The derivative ", "measures ", "change."}}
	svc := NewGeneratorService(client)
	sink := &recordingSink{}

	answer := svc.Generate(context.Background(), GenerateRequest{
		Assistant:      testAssistant(),
		Query:          "What is a derivative?",
		KnowledgeLevel: LevelBeginner,
	}, sink)

	assert.Equal(t, "The derivative measures change.", answer)
	assert.Equal(t, []string{"The derivative ", "measures ", "change."}, sink.fragments)
}

func TestGenerateSystemMessageContent(t *testing.T) {
	client := &fakeLLMClient{fragments: []string{"ok"}}
	svc := NewGeneratorService(client)

	assistant := testAssistant()
	assistant.TeacherInstructions = "Always ask the student to show their work."

	svc.Generate(context.Background(), GenerateRequest{
		Assistant:      assistant,
		Query:          "question",
		Context:        []ScoredChunk{{Chunk: model.Chunk{Content: "the chain rule"}, Score: 0.9}},
		KnowledgeLevel: LevelAdvanced,
		ChatSummary:    "Student mastered limits.",
	}, nil)

	require.NotEmpty(t, client.lastInput)
	system := client.lastInput[0]
	assert.Equal(t, "system", system.Role)
	assert.Contains(t, system.Content, "Mathematics")
	assert.Contains(t, system.Content, "Calculus")
	assert.Contains(t, system.Content, "Always ask the student to show their work.")
	assert.Contains(t, system.Content, "[1] the chain rule")
	assert.Contains(t, system.Content, "knowledge level is: advanced")
	assert.Contains(t, system.Content, "Student mastered limits.")
}

func TestGenerateEmptyContextPlaceholder(t *testing.T) {
	client := &fakeLLMClient{fragments: []string{"ok"}}
	svc := NewGeneratorService(client)

	svc.Generate(context.Background(), GenerateRequest{
		Assistant:      testAssistant(),
		Query:          "question",
		KnowledgeLevel: LevelBeginner,
	}, nil)

	require.NotEmpty(t, client.lastInput)
	assert.Contains(t, client.lastInput[0].Content, "(no reference material retrieved for this question)")
}

func TestGenerateIncludesHistoryMessages(t *testing.T) {
	client := &fakeLLMClient{fragments: []string{"ok"}}
	svc := NewGeneratorService(client)

	svc.Generate(context.Background(), GenerateRequest{
		Assistant:      testAssistant(),
		Query:          "and now?",
		KnowledgeLevel: LevelBeginner,
		History: []model.ChatMessage{
			{Role: "user", Content: "first question"},
			{Role: "assistant", Content: "first answer"},
			{Role: "system", Content: "should be dropped"},
		},
	}, nil)

	require.Len(t, client.lastInput, 4)
	assert.Equal(t, "user", client.lastInput[1].Role)
	assert.Equal(t, "first question", client.lastInput[1].Content)
	assert.Equal(t, "assistant", client.lastInput[2].Role)
	assert.Equal(t, "and now?", client.lastInput[3].Content)
}

func TestGenerateStreamFailureReturnsApology(t *testing.T) {
	client := &fakeLLMClient{streamErr: assert.AnError}
	svc := NewGeneratorService(client)
	sink := &recordingSink{}

	answer := svc.Generate(context.Background(), GenerateRequest{
		Assistant:      testAssistant(),
		Query:          "question",
		KnowledgeLevel: LevelBeginner,
	}, sink)

	assert.Equal(t, ApologyText, answer)
	assert.Equal(t, []string{ApologyText}, sink.fragments)
}

func TestGenerateEmptyStreamReturnsApology(t *testing.T) {
	client := &fakeLLMClient{}
	svc := NewGeneratorService(client)

	answer := svc.Generate(context.Background(), GenerateRequest{
		Assistant:      testAssistant(),
		Query:          "question",
		KnowledgeLevel: LevelBeginner,
	}, nil)

	assert.Equal(t, ApologyText, answer)
}

func TestFenceIfCodeLike(t *testing.T) {
	assert.Equal(t, "plain question", fenceIfCodeLike("plain question"))
	assert.Equal(t, "```\nfunc main() {}\n```", fenceIfCodeLike("func main() {}"))
	assert.Equal(t, "```\nalready ``` fenced\n```", fenceIfCodeLike("already ``` fenced"))
	assert.Equal(t, "just { one brace", fenceIfCodeLike("just { one brace"))
}
