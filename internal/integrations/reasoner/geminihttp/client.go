// Package geminihttp talks to the Gemini generateContent REST API.
package geminihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/caselens/caselens/internal/integrations/reasoner"
	"github.com/pkg/errors"
)

type Client struct {
	baseURL string
	model   string
	apiKey  string
	httpc   *http.Client
}

func New(baseURL, model, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Client{
		baseURL: baseURL,
		model:   model,
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type geminiPart struct {
	Text             string          `json:"text,omitempty"`
	FunctionCall     *geminiFnCall   `json:"functionCall,omitempty"`
	FunctionResponse *geminiFnResult `json:"functionResponse,omitempty"`
}

type geminiFnCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type geminiFnResult struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	Contents          []geminiContent  `json:"contents"`
	Tools             []geminiTools    `json:"tools,omitempty"`
	GenerationConfig  *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiGenConfig struct {
	Temperature float64 `json:"temperature"`
}

type geminiTools struct {
	FunctionDeclarations []geminiFnDecl `json:"functionDeclarations"`
}

type geminiFnDecl struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (c *Client) Generate(ctx context.Context, turns []reasoner.Turn, tools []reasoner.ToolDecl) (reasoner.Reply, error) {
	body := geminiRequest{
		GenerationConfig: &geminiGenConfig{Temperature: 0.1},
	}
	for _, turn := range turns {
		if turn.Role == reasoner.RoleSystem {
			body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: turn.Text}}}
			continue
		}
		body.Contents = append(body.Contents, toContent(turn))
	}
	if len(tools) > 0 {
		decls := make([]geminiFnDecl, 0, len(tools))
		for _, t := range tools {
			decls = append(decls, geminiFnDecl{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  cleanSchema(t.Parameters),
			})
		}
		body.Tools = []geminiTools{{FunctionDeclarations: decls}}
	}

	buf, err := json.Marshal(body)
	if err != nil {
		return reasoner.Reply{}, errors.Wrap(err, "marshal request")
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return reasoner.Reply{}, errors.Wrap(err, "parse base url")
	}
	u.Path = fmt.Sprintf("/v1beta/models/%s:generateContent", c.model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(buf))
	if err != nil {
		return reasoner.Reply{}, errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return reasoner.Reply{}, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return reasoner.Reply{}, fmt.Errorf("reasoner http %d", resp.StatusCode)
	}

	var r geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return reasoner.Reply{}, errors.Wrap(err, "decode")
	}
	if len(r.Candidates) == 0 {
		return reasoner.Reply{}, errors.New("reasoner returned no candidates")
	}

	var out reasoner.Reply
	for _, part := range r.Candidates[0].Content.Parts {
		if part.Text != "" {
			out.Text += part.Text
		}
		if part.FunctionCall != nil {
			out.ToolCalls = append(out.ToolCalls, reasoner.ToolCall{
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
		}
	}
	return out, nil
}

// cleanSchema strips keywords Gemini rejects in function declarations,
// recursing through nested property schemas. A schema without properties
// becomes null, which Gemini reads as "no parameters".
func cleanSchema(raw json.RawMessage) json.RawMessage {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return raw
	}
	stripUnsupported(m)
	props, _ := m["properties"].(map[string]any)
	if len(props) == 0 {
		return nil
	}
	out, err := json.Marshal(m)
	if err != nil {
		return raw
	}
	return out
}

func stripUnsupported(m map[string]any) {
	delete(m, "additionalProperties")
	if props, ok := m["properties"].(map[string]any); ok {
		for _, p := range props {
			if pm, ok := p.(map[string]any); ok {
				stripUnsupported(pm)
			}
		}
	}
}

func toContent(turn reasoner.Turn) geminiContent {
	c := geminiContent{Role: turn.Role}
	if turn.Role == reasoner.RoleTool {
		// Gemini carries tool results as user-role functionResponse parts.
		c.Role = "user"
		for _, res := range turn.ToolResults {
			c.Parts = append(c.Parts, geminiPart{
				FunctionResponse: &geminiFnResult{
					Name:     res.Name,
					Response: map[string]any{"result": res.Payload},
				},
			})
		}
		return c
	}
	if turn.Text != "" {
		c.Parts = append(c.Parts, geminiPart{Text: turn.Text})
	}
	for _, call := range turn.ToolCalls {
		c.Parts = append(c.Parts, geminiPart{
			FunctionCall: &geminiFnCall{Name: call.Name, Args: call.Args},
		})
	}
	return c
}
