package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lucasnoah/autodevops/internal/fault"
	"github.com/lucasnoah/autodevops/internal/prompt"
	"github.com/lucasnoah/autodevops/internal/run"
)

// treeSampleCap bounds how many file-tree entries are inlined into a
// prompt for predictStack and audit.
const treeSampleCap = 200

// HTTPClient implements Client against a generateContent-style HTTP
// endpoint. The thought signature travels as a request header so the
// service can correlate all calls of one run.
type HTTPClient struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
	log        *zap.Logger
}

// NewHTTPClient constructs an HTTP reasoning client.
func NewHTTPClient(endpoint, model, apiKey string, timeout time.Duration, log *zap.Logger) (*HTTPClient, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("reasoning endpoint is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("reasoning model is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		model:      model,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}, nil
}

type generatePart struct {
	Text string `json:"text"`
}

type generateContent struct {
	Role  string         `json:"role"`
	Parts []generatePart `json:"parts"`
}

type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []generatePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// generate performs one prompt round trip and returns the raw text of
// the first candidate.
func (c *HTTPClient) generate(ctx context.Context, signature, promptText string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []generateContent{{Role: "user", Parts: []generatePart{{Text: promptText}}}},
	})
	if err != nil {
		return "", fault.Wrap(fault.Network, "reasoning.generate", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.endpoint, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fault.Wrap(fault.Network, "reasoning.generate", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Goog-Api-Key", c.apiKey)
	}
	if signature != "" {
		req.Header.Set("X-Thought-Signature", signature)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fault.Wrap(fault.Network, "reasoning.generate", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fault.Wrap(fault.Network, "reasoning.generate", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fault.New(fault.Network, "reasoning.generate", "http status %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	var decoded generateResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return "", fault.Wrap(fault.MalformedResponse, "reasoning.generate", err)
	}
	if decoded.Error != nil {
		return "", fault.New(fault.Network, "reasoning.generate", "engine error %d: %s", decoded.Error.Code, decoded.Error.Message)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fault.New(fault.MalformedResponse, "reasoning.generate", "no candidates in response")
	}

	var sb strings.Builder
	for _, p := range decoded.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

// Reason implements Client.
func (c *HTTPClient) Reason(ctx context.Context, signature, context_ string) (string, error) {
	p, err := prompt.RenderBuiltin(prompt.TemplateReason, prompt.Vars{"context": context_})
	if err != nil {
		return "", fault.Wrap(fault.Pipeline, "reasoning.reason", err)
	}
	text, err := c.generate(ctx, signature, p)
	if err != nil {
		return "", fault.Wrap(fault.Network, "reasoning.reason", err)
	}
	return strings.TrimSpace(text), nil
}

// PredictStack implements Client.
func (c *HTTPClient) PredictStack(ctx context.Context, repoURL string, treeSample []string) (StackPrediction, error) {
	p, err := prompt.RenderBuiltin(prompt.TemplatePredictStack, prompt.Vars{
		"repo_url":  repoURL,
		"file_tree": joinSample(treeSample),
	})
	if err != nil {
		return StackPrediction{}, fault.Wrap(fault.Pipeline, "reasoning.predict_stack", err)
	}
	text, err := c.generate(ctx, "", p)
	if err != nil {
		return StackPrediction{}, fault.Wrap(fault.Network, "reasoning.predict_stack", err)
	}
	return decodeStackPrediction(text)
}

// Audit implements Client.
func (c *HTTPClient) Audit(ctx context.Context, signature, repoURL, branch string, fileTree []string, contextBlob string) (AuditResult, error) {
	p, err := prompt.RenderBuiltin(prompt.TemplateAudit, prompt.Vars{
		"repo_url":     repoURL,
		"branch":       branch,
		"file_tree":    joinSample(fileTree),
		"context_blob": contextBlob,
	})
	if err != nil {
		return AuditResult{}, fault.Wrap(fault.Pipeline, "reasoning.audit", err)
	}
	text, err := c.generate(ctx, signature, p)
	if err != nil {
		return AuditResult{}, fault.Wrap(fault.Network, "reasoning.audit", err)
	}
	return decodeAuditResult(text)
}

// ProposeFix implements Client.
func (c *HTTPClient) ProposeFix(ctx context.Context, signature string, issue run.Issue, contextBlob string) (run.CodeFix, error) {
	p, err := prompt.RenderBuiltin(prompt.TemplateProposeFix, prompt.Vars{
		"issue_title":       issue.Title,
		"issue_severity":    string(issue.Severity),
		"issue_file":        issue.File,
		"issue_description": issue.Description,
		"context_blob":      contextBlob,
	})
	if err != nil {
		return run.CodeFix{}, fault.Wrap(fault.Pipeline, "reasoning.propose_fix", err)
	}
	text, err := c.generate(ctx, signature, p)
	if err != nil {
		return run.CodeFix{}, fault.Wrap(fault.Network, "reasoning.propose_fix", err)
	}
	return decodeCodeFix(text)
}

// Summarize implements Client.
func (c *HTTPClient) Summarize(ctx context.Context, signature string, r run.Run) (string, error) {
	var titles []string
	for _, issue := range r.Issues {
		titles = append(titles, "- "+issue.Title)
	}
	p, err := prompt.RenderBuiltin(prompt.TemplateSummarize, prompt.Vars{
		"repo_url":     r.RepoURL,
		"branch":       r.Branch,
		"tech_stack":   r.TechStack,
		"issue_count":  strconv.Itoa(len(r.Issues)),
		"issue_titles": strings.Join(titles, "\n"),
		"confidence":   strconv.Itoa(r.Confidence),
		"risk_level":   string(r.RiskLevel),
	})
	if err != nil {
		return "", fault.Wrap(fault.Pipeline, "reasoning.summarize", err)
	}
	text, err := c.generate(ctx, signature, p)
	if err != nil {
		return "", fault.Wrap(fault.Network, "reasoning.summarize", err)
	}
	return strings.TrimSpace(text), nil
}

func joinSample(tree []string) string {
	if len(tree) > treeSampleCap {
		tree = tree[:treeSampleCap]
	}
	return strings.Join(tree, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
