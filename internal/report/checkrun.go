package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/evalgate/evalgate/pkg/types"
)

const (
	maxAnnotations      = 50
	maxAnnotationLength = 1000
	maxSummaryLength    = 65535
)

// CheckRunPayload is the GitHub check-run creation request.
type CheckRunPayload struct {
	Name       string         `json:"name"`
	HeadSHA    string         `json:"head_sha"`
	Status     string         `json:"status"`
	Conclusion string         `json:"conclusion"`
	Output     CheckRunOutput `json:"output"`
}

type CheckRunOutput struct {
	Title       string       `json:"title"`
	Summary     string       `json:"summary"`
	Annotations []Annotation `json:"annotations"`
}

type Annotation struct {
	Path            string `json:"path"`
	StartLine       int    `json:"start_line"`
	EndLine         int    `json:"end_line"`
	AnnotationLevel string `json:"annotation_level"`
	Message         string `json:"message"`
}

// BuildCheckRun assembles the check-run payload for one run. Failure strings
// of the form "name: message" become annotations on the fixture file.
func BuildCheckRun(r types.RunResult, markdown, headSHA string) CheckRunPayload {
	conclusion := "failure"
	if r.Gate.Passed {
		conclusion = "success"
	}

	failures := r.Failures
	if len(failures) > maxAnnotations {
		failures = failures[:maxAnnotations]
	}
	annotations := make([]Annotation, 0, len(failures))
	for _, fail := range failures {
		path := ""
		msg := fail
		if name, rest, ok := strings.Cut(fail, ":"); ok {
			path = fmt.Sprintf("eval/fixtures/%s.json", name)
			msg = strings.TrimSpace(rest)
		}
		if len(msg) > maxAnnotationLength {
			msg = msg[:maxAnnotationLength]
		}
		annotations = append(annotations, Annotation{
			Path:            path,
			StartLine:       1,
			EndLine:         1,
			AnnotationLevel: "failure",
			Message:         msg,
		})
	}

	summary := markdown
	if len(summary) > maxSummaryLength {
		summary = summary[:maxSummaryLength]
	}
	return CheckRunPayload{
		Name:       "EvalGate",
		HeadSHA:    headSHA,
		Status:     "completed",
		Conclusion: conclusion,
		Output: CheckRunOutput{
			Title:       "EvalGate",
			Summary:     summary,
			Annotations: annotations,
		},
	}
}

// PostCheckRun creates the check run via the GitHub API. apiBase is
// overridable for tests; pass "" for api.github.com.
func PostCheckRun(ctx context.Context, client *http.Client, apiBase, token, repo string, payload CheckRunPayload) error {
	if client == nil {
		client = http.DefaultClient
	}
	if apiBase == "" {
		apiBase = "https://api.github.com"
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/repos/%s/check-runs", apiBase, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "evalgate")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("create check run: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("create check run: unexpected status %s", resp.Status)
	}
	return nil
}
