package aiclient

import (
	"context"
	"encoding/json"
	"strings"
)

// Tool names exposed by the backend.
const (
	ToolChat            = "chat"
	ToolSynthesizeGraph = "synthesize_graph"
)

// ChatRequest is one conversational turn.
type ChatRequest struct {
	Message   string        `json:"message"`
	History   []ChatMessage `json:"history,omitempty"`
	ProjectID string        `json:"projectId,omitempty"`
	UserID    string        `json:"userId"`
}

// ChatMessage is a prior turn.
type ChatMessage struct {
	Role    string `json:"role"` // user, assistant
	Content string `json:"content"`
}

// ChatReply is the backend's answer.
type ChatReply struct {
	Reply   string   `json:"reply"`
	Sources []string `json:"sources,omitempty"`
}

// Chat sends a chat turn with the default timeout.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatReply, error) {
	var raw string
	var reply ChatReply
	if err := c.CallTool(ctx, ToolChat, req, c.timeout, &raw); err != nil {
		return ChatReply{}, err
	}
	// The chat tool answers with either a JSON object or plain text.
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") && json.Unmarshal([]byte(trimmed), &reply) == nil && reply.Reply != "" {
		return reply, nil
	}
	return ChatReply{Reply: trimmed}, nil
}

// GraphRequest asks the backend to turn a document into a concept graph.
type GraphRequest struct {
	Text      string `json:"text"`
	Title     string `json:"title,omitempty"`
	ProjectID string `json:"projectId,omitempty"`
	UserID    string `json:"userId"`
}

// Graph is a synthesized concept graph.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphNode is one concept.
type GraphNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type,omitempty"`
}

// GraphEdge links two nodes.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

// SynthesizeGraph runs graph synthesis with the longer graph timeout.
func (c *Client) SynthesizeGraph(ctx context.Context, req GraphRequest) (Graph, error) {
	var g Graph
	if err := c.CallTool(ctx, ToolSynthesizeGraph, req, c.graphTimeout, &g); err != nil {
		return Graph{}, err
	}
	if g.Nodes == nil {
		g.Nodes = []GraphNode{}
	}
	if g.Edges == nil {
		g.Edges = []GraphEdge{}
	}
	return g, nil
}
