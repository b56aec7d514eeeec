package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"bhsi/pkg/core/errs"
	"bhsi/pkg/core/utils"
	"bhsi/pkg/models"
)

// classifyRequest is the wire body posted to the remote /classify endpoint
// (SPEC_FULL.md §6).
type classifyRequest struct {
	Text    string `json:"text"`
	Title   string `json:"title"`
	Source  string `json:"source"`
	Section string `json:"section"`
}

// classifyReply is the expected shape of a successful /classify response.
type classifyReply struct {
	Label      string  `json:"label"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
}

// LLMClassifier calls a remote hosted LLM under the strict JSON-reply
// contract of SPEC_FULL.md §4.4. It mirrors the reference codebase's
// llm.Provider shape (a compile-time interface plus a concrete HTTP-backed
// implementation) but speaks the generic /classify wire contract rather
// than a vendor SDK.
type LLMClassifier struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
}

// NewLLMClassifier constructs a classifier client against baseURL (e.g.
// "https://classify.internal"). The client shares one long-lived
// *http.Client with a bounded connection pool, per SPEC_FULL.md §5.
func NewLLMClassifier(baseURL string, httpClient *http.Client) *LLMClassifier {
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{MaxIdleConnsPerHost: 16},
		}
	}
	return &LLMClassifier{baseURL: baseURL, httpClient: httpClient, maxRetries: 3}
}

// Classify posts {text, title, source, section} to /classify with a 30s
// deadline per attempt, making up to 3 attempts in total with exponential
// backoff between them on transient failures. 4xx and schema errors are not
// retried.
func (c *LLMClassifier) Classify(ctx context.Context, text, title, source, section string) (*Result, error) {
	body, err := json.Marshal(classifyRequest{Text: text, Title: title, Source: source, Section: section})
	if err != nil {
		return nil, errs.Schema("classify.marshal", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt)) * 100 * time.Millisecond
			backoff += time.Duration(rand.Intn(50)) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		res, err := c.attempt(ctx, body)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !errs.IsRetryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *LLMClassifier) attempt(ctx context.Context, body []byte) (*Result, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		return nil, errs.Schema("classify.newrequest", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Retryable("classify.do", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Retryable("classify.read", err)
	}

	if resp.StatusCode >= 500 {
		return nil, errs.Retryable("classify.5xx", fmt.Errorf("status %d: %s", resp.StatusCode, string(raw)))
	}
	if resp.StatusCode >= 400 {
		return nil, errs.Schema("classify.4xx", fmt.Errorf("status %d: %s", resp.StatusCode, string(raw)))
	}

	var reply classifyReply
	if _, err := utils.SmartParse(string(raw), &reply); err != nil {
		return nil, errs.Schema("classify.malformed", err)
	}

	label := models.RiskLabel(reply.Label)
	if !isKnownLabel(label) || reply.Confidence < 0 || reply.Confidence > 1 {
		return nil, errs.Schema("classify.invalid_reply", fmt.Errorf("label=%q confidence=%v", reply.Label, reply.Confidence))
	}

	return &Result{
		Label:      label,
		Confidence: reply.Confidence,
		Method:     models.MethodHybridLLM,
		Rationale:  reply.Reason,
	}, nil
}

func isKnownLabel(l models.RiskLabel) bool {
	switch l {
	case models.LabelHighLegal, models.LabelHighFinancial, models.LabelHighRegulatory,
		models.LabelMediumLegal, models.LabelMediumOperational,
		models.LabelLowLegal, models.LabelLowOperational,
		models.LabelNoLegal, models.LabelUnknown:
		return true
	default:
		return false
	}
}
