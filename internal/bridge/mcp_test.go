package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/daikw/judy/internal/chat"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toolRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestNewMCPServer(t *testing.T) {
	assert.NotNil(t, NewMCPServer(newTestSession(t, &stubGenerator{}), "test"))
}

func TestMCPTools_ListAndSelect(t *testing.T) {
	tools := &mcpTools{session: newTestSession(t, &stubGenerator{})}
	ctx := context.Background()

	res, err := tools.selectCharacter(ctx, toolRequest("select_character", map[string]any{"id": "judy"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "Switched to Judy.", resultText(t, res))

	res, err = tools.listCharacters(ctx, toolRequest("list_characters", nil))
	require.NoError(t, err)
	assert.Equal(t, "  amy: Amy\n* judy: Judy (A cheerful helper)", resultText(t, res))
}

func TestMCPTools_SelectErrors(t *testing.T) {
	tools := &mcpTools{session: newTestSession(t, &stubGenerator{})}
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{name: "missing id", args: map[string]any{}},
		{name: "unknown", args: map[string]any{"id": "ghost"}, want: "Character not found."},
		{name: "traversal", args: map[string]any{"id": "../etc"}, want: "Invalid character id."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tools.selectCharacter(ctx, toolRequest("select_character", tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
			if tt.want != "" {
				assert.Equal(t, tt.want, resultText(t, res))
			}
		})
	}
}

func TestMCPTools_Chat(t *testing.T) {
	s := newTestSession(t, &stubGenerator{reply: "**Hello** there"})
	tools := &mcpTools{session: s}
	ctx := context.Background()
	_, err := s.SelectCharacter("judy")
	require.NoError(t, err)

	res, err := tools.chat(ctx, toolRequest("chat", map[string]any{"text": "hi"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "**Hello** there", resultText(t, res))
	assert.Len(t, s.History(), 2)

	res, err = tools.chat(ctx, toolRequest("chat", map[string]any{"text": "  "}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestMCPTools_ChatProviderError(t *testing.T) {
	tools := &mcpTools{session: newTestSession(t, &stubGenerator{err: chat.Permanent(errors.New("quota exceeded"))})}

	res, err := tools.chat(context.Background(), toolRequest("chat", map[string]any{"text": "hi"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "The model could not answer: quota exceeded", resultText(t, res))
}

func TestMCPTools_PetAndState(t *testing.T) {
	s := newTestSession(t, &stubGenerator{})
	tools := &mcpTools{session: s}
	ctx := context.Background()
	_, err := s.SelectCharacter("amy")
	require.NoError(t, err)

	res, err := tools.pet(ctx, toolRequest("pet", nil))
	require.NoError(t, err)
	assert.Equal(t, "♥", resultText(t, res))

	res, err = tools.getState(ctx, toolRequest("get_state", nil))
	require.NoError(t, err)

	var snapshot StateSnapshot
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &snapshot))
	assert.Equal(t, StateSnapshot{
		State:       "happy",
		CharacterID: "amy",
		DisplayName: "Amy",
		VoiceID:     "voice-amy",
		Volume:      1,
	}, snapshot)
}
