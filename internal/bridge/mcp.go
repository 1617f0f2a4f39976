package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/daikw/judy/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
)

// StateSnapshot is returned by the get_state tool
type StateSnapshot struct {
	State       string  `json:"state"`
	CharacterID string  `json:"characterId"`
	DisplayName string  `json:"displayName"`
	VoiceID     string  `json:"voiceId"`
	Volume      float64 `json:"volume"`
	Turns       int     `json:"turns"`
}

type mcpTools struct {
	session *session.Session
}

// NewMCPServer exposes the session as MCP tools
func NewMCPServer(s *session.Session, version string) *server.MCPServer {
	srv := server.NewMCPServer("judy", version, server.WithToolCapabilities(false))
	t := &mcpTools{session: s}

	srv.AddTool(mcp.NewTool("list_characters",
		mcp.WithDescription("List the characters judy can switch to"),
	), t.listCharacters)

	srv.AddTool(mcp.NewTool("select_character",
		mcp.WithDescription("Switch the active character. This clears the conversation."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Character id from list_characters")),
	), t.selectCharacter)

	srv.AddTool(mcp.NewTool("chat",
		mcp.WithDescription("Say something to the active character. The reply is spoken aloud and returned."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Message to send")),
	), t.chat)

	srv.AddTool(mcp.NewTool("pet",
		mcp.WithDescription("Pet the avatar"),
	), t.pet)

	srv.AddTool(mcp.NewTool("get_state",
		mcp.WithDescription("Show the avatar state, active character and volume"),
	), t.getState)

	return srv
}

func (t *mcpTools) listCharacters(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	defs := t.session.Store().List()
	if len(defs) == 0 {
		return mcp.NewToolResultText("No characters available."), nil
	}

	active := t.session.Persona().CharacterID
	var b strings.Builder
	for _, def := range defs {
		marker := " "
		if def.ID == active {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %s: %s", marker, def.ID, def.Label())
		if def.Description != "" {
			fmt.Fprintf(&b, " (%s)", def.Description)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}

func (t *mcpTools) selectCharacter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	def, err := t.session.SelectCharacter(id)
	if err != nil {
		return mcp.NewToolResultError(Describe(err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Switched to %s.", def.Label())), nil
}

func (t *mcpTools) chat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("text must not be empty"), nil
	}

	reply, err := t.session.Submit(ctx, text, nil)
	if err != nil {
		if reply == "" {
			return mcp.NewToolResultError(Describe(err)), nil
		}
		// the reply arrived but could not be spoken
		log.Warn().Err(err).Msg("Reply was not spoken")
	}
	return mcp.NewToolResultText(reply), nil
}

func (t *mcpTools) pet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t.session.Pet()
	return mcp.NewToolResultText("♥"), nil
}

func (t *mcpTools) getState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p := t.session.Persona()
	snapshot := StateSnapshot{
		State:       t.session.Machine().State().String(),
		CharacterID: p.CharacterID,
		DisplayName: p.DisplayName,
		VoiceID:     p.VoiceID,
		Volume:      t.session.Volume(),
		Turns:       len(t.session.History()),
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
