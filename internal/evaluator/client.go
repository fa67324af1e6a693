// Package evaluator is the client for the dialogue evaluator under test. The
// evaluator is opaque: we send the conversation so far and carry its reply
// and scoring metadata into the run log without interpreting them.
package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/voxpop-labs/voxpop/internal/conversation"
)

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// SetTestTransport points the client at a test server.
func (c *Client) SetTestTransport(url string) {
	c.baseURL = url
}

// Evaluation is the scoring metadata attached to every evaluator reply.
// Sub-scores are opaque to the engine; they are appended to the run log and
// never consulted by simulation logic.
type Evaluation struct {
	Fitness        float64            `json:"fitness"`
	Classification string             `json:"classification"`
	Criteria       map[string]float64 `json:"criteria,omitempty"`
	FloorPassed    bool               `json:"floor_passed"`
}

type Response struct {
	Reply      string     `json:"reply"`
	Evaluation Evaluation `json:"evaluation"`
}

type turnMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	PersonaID string        `json:"persona_id"`
	Messages  []turnMessage `json:"messages"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Respond sends the full conversation-so-far and returns the evaluator's
// reply plus metadata. The persona speaks as "user", the evaluator as
// "assistant".
func (c *Client) Respond(ctx context.Context, personaID string, history conversation.History) (*Response, error) {
	reqBody := request{PersonaID: personaID}
	for _, m := range history {
		role := "user"
		if m.Speaker == conversation.SpeakerEvaluator {
			role = "assistant"
		}
		reqBody.Messages = append(reqBody.Messages, turnMessage{Role: role, Content: m.Text})
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/respond", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("evaluator call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("evaluator error %d: %s", resp.StatusCode, errResp.Error)
		}
		return nil, fmt.Errorf("evaluator error %d: %s", resp.StatusCode, string(respBody))
	}

	var out Response
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if out.Reply == "" {
		return nil, fmt.Errorf("empty evaluator reply")
	}
	return &out, nil
}
