package controllers

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"venting/models"
	"venting/services"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModerator struct {
	flagged map[string]bool
	seen    []string
}

func (f *fakeModerator) Moderate(ctx context.Context, text string) bool {
	f.seen = append(f.seen, text)
	return f.flagged[text]
}

type fakeResponder struct {
	replies  []string
	requests [][]models.Message
}

func (f *fakeResponder) Respond(ctx context.Context, history []models.Message) string {
	f.requests = append(f.requests, history)
	if len(f.replies) == 0 {
		return "ok"
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply
}

type fakeExporter struct {
	path    string
	err     error
	exports [][]models.Message
}

func (f *fakeExporter) Export(ctx context.Context, history []models.Message) (string, error) {
	f.exports = append(f.exports, history)
	return f.path, f.err
}

type sessionFixture struct {
	out      *bytes.Buffer
	conv     *services.Conversation
	gate     *fakeModerator
	model    *fakeResponder
	exporter *fakeExporter
}

func runSession(t *testing.T, input string, fx *sessionFixture) error {
	t.Helper()
	if fx.out == nil {
		fx.out = &bytes.Buffer{}
	}
	if fx.conv == nil {
		fx.conv = services.NewConversation("sys")
	}
	if fx.gate == nil {
		fx.gate = &fakeModerator{}
	}
	if fx.model == nil {
		fx.model = &fakeResponder{}
	}
	if fx.exporter == nil {
		fx.exporter = &fakeExporter{path: "chat_history_2025-03-09_1405.csv"}
	}
	s := NewSession(strings.NewReader(input), fx.out, fx.conv, fx.gate, fx.model, fx.exporter)
	return s.Run(context.Background())
}

func TestQuitFirstLineMakesNoCalls(t *testing.T) {
	fx := &sessionFixture{}
	require.NoError(t, runSession(t, "quit\n", fx))

	assert.Equal(t, "Venting GPT (type 'quit' to exit)\n\nYou: Goodbye!\n", fx.out.String())
	assert.Empty(t, fx.gate.seen)
	assert.Empty(t, fx.model.requests)
	assert.Empty(t, fx.exporter.exports)
}

func TestExitIsCaseInsensitive(t *testing.T) {
	fx := &sessionFixture{}
	require.NoError(t, runSession(t, "  EXIT  \n", fx))
	assert.Contains(t, fx.out.String(), "Goodbye!")
}

func TestBlankLinesReprompt(t *testing.T) {
	fx := &sessionFixture{}
	require.NoError(t, runSession(t, "\n   \nquit\n", fx))
	assert.Equal(t, 3, strings.Count(fx.out.String(), "You: "))
	assert.Empty(t, fx.gate.seen)
}

func TestNormalTurnAppendsUserAndReply(t *testing.T) {
	fx := &sessionFixture{model: &fakeResponder{replies: []string{"hello"}}}
	require.NoError(t, runSession(t, "  hi  \nquit\n", fx))

	assert.Equal(t, []string{"hi"}, fx.gate.seen)
	require.Len(t, fx.model.requests, 1)
	assert.Equal(t, []models.Message{
		{Role: models.RoleSystem, Content: "sys"},
		{Role: models.RoleUser, Content: "hi"},
	}, fx.model.requests[0])
	assert.Equal(t, []models.Message{
		{Role: models.RoleSystem, Content: "sys"},
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello"},
	}, fx.conv.Messages())
	assert.Contains(t, fx.out.String(), "Gabriel: hello\n\n")
}

func TestFlaggedInputIsNeverStored(t *testing.T) {
	fx := &sessionFixture{gate: &fakeModerator{flagged: map[string]bool{"bad thing": true}}}
	require.NoError(t, runSession(t, "bad thing\nexport_chat_history\nquit\n", fx))

	assert.Empty(t, fx.model.requests)
	assert.Equal(t, 1, fx.conv.Len())
	assert.Contains(t, fx.out.String(), "Gabriel: "+safetyMessage+"\n\n")
	require.Len(t, fx.exporter.exports, 1)
	for _, msg := range fx.exporter.exports[0] {
		assert.NotEqual(t, "bad thing", msg.Content)
	}
}

func TestModelErrorReplyIsStored(t *testing.T) {
	errReply := "(Error talking to the model: boom)"
	fx := &sessionFixture{model: &fakeResponder{replies: []string{errReply}}}
	require.NoError(t, runSession(t, "hi\nquit\n", fx))

	msgs := fx.conv.Messages()
	assert.Equal(t, models.Message{Role: models.RoleAssistant, Content: errReply}, msgs[len(msgs)-1])
	assert.Contains(t, fx.out.String(), "Gabriel: "+errReply+"\n\n")
}

func TestExportTakesPriority(t *testing.T) {
	fx := &sessionFixture{}
	require.NoError(t, runSession(t, "hi\nEXPORT_CHAT_HISTORY\nquit\n", fx))

	assert.Equal(t, []string{"hi"}, fx.gate.seen)
	require.Len(t, fx.exporter.exports, 1)
	assert.Len(t, fx.exporter.exports[0], 3)
	assert.Contains(t, fx.out.String(), "Gabriel: Chat history exported to chat_history_2025-03-09_1405.csv\n\n")
}

func TestExportFailureEndsSession(t *testing.T) {
	failure := errors.New("disk full")
	fx := &sessionFixture{exporter: &fakeExporter{err: failure}}
	err := runSession(t, "export_chat_history\nquit\n", fx)

	assert.ErrorIs(t, err, failure)
	assert.NotContains(t, fx.out.String(), "Goodbye!")
}

func TestRetentionAppliedAfterEachReply(t *testing.T) {
	var input strings.Builder
	for i := 0; i < 10; i++ {
		input.WriteString("message\n")
	}
	input.WriteString("quit\n")

	fx := &sessionFixture{}
	require.NoError(t, runSession(t, input.String(), fx))

	assert.Equal(t, services.MaxConversationLen, fx.conv.Len())
	assert.Equal(t, models.RoleSystem, fx.conv.Messages()[0].Role)
	// The 8th request goes out with 7 prior exchanges trimmed to 6, plus the new turn.
	assert.Len(t, fx.model.requests[7], 14)
}

func TestEOFBeforeQuit(t *testing.T) {
	fx := &sessionFixture{}
	err := runSession(t, "hi\n", fx)
	assert.ErrorIs(t, err, ErrInputClosed)
	assert.Len(t, fx.model.requests, 1)
}

func TestLastLineWithoutNewline(t *testing.T) {
	fx := &sessionFixture{}
	require.NoError(t, runSession(t, "hi\nquit", fx))
	assert.Contains(t, fx.out.String(), "Goodbye!")
}

func TestCommandsMatchLowercasedInputOnly(t *testing.T) {
	fx := &sessionFixture{}
	require.NoError(t, runSession(t, "export_chat_hiſtory\nquiť\nQuIt\n", fx))

	assert.Empty(t, fx.exporter.exports)
	assert.Equal(t, []string{"export_chat_hiſtory", "quiť"}, fx.gate.seen)
	assert.Len(t, fx.model.requests, 2)
	assert.Contains(t, fx.out.String(), "Goodbye!")
}
