package job

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/loom-sched/loom/internal/xqueue"
)

const TypeWeb = "web"

// WebJob issues one HTTP GET per step against a fixed URL list,
// pushing each response body onto Queue for a downstream job to
// consume.
type WebJob struct {
	URLs   []string
	Queue  *xqueue.Queue[[]byte]
	Client *http.Client
}

func NewWebJob(payload map[string]any) (Job, error) {
	raw, _ := payload["urls"].([]any)
	urls := make([]string, 0, len(raw))
	for _, u := range raw {
		if s, ok := u.(string); ok {
			urls = append(urls, s)
		}
	}
	return &WebJob{
		URLs:   urls,
		Queue:  xqueue.New[[]byte](16),
		Client: http.DefaultClient,
	}, nil
}

func (j *WebJob) TypeTag() string { return TypeWeb }

func (j *WebJob) Steps() Cursor { return &webCursor{job: j} }

func (j *WebJob) SnapshotPayload() map[string]any {
	urls := make([]any, 0, len(j.URLs))
	for _, u := range j.URLs {
		urls = append(urls, u)
	}
	return map[string]any{"urls": urls}
}

type webCursor struct {
	job *WebJob
	pos int
}

func (c *webCursor) Next(ctx context.Context) (bool, error) {
	if c.pos >= len(c.job.URLs) {
		return true, nil
	}
	url := c.job.URLs[c.pos]
	c.pos++

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("web job: build request for %s: %w", url, err)
	}
	resp, err := c.job.Client.Do(req)
	if err != nil {
		return false, fmt.Errorf("web job: GET %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return false, fmt.Errorf("web job: GET %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("web job: read body for %s: %w", url, err)
	}
	c.job.Queue.Push(body)

	if c.pos >= len(c.job.URLs) {
		c.job.Queue.Close()
	}
	return false, nil
}
