package client

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/go-go-golems/studioctl/pkg/protocol"
	"github.com/go-go-golems/studioctl/pkg/sse"
	"github.com/go-go-golems/studioctl/pkg/stream"
	"github.com/pkg/errors"
)

var _ stream.Dialer = (*Client)(nil)

// Dial opens the event stream for kind. It implements stream.Dialer.
func (c *Client) Dial(ctx context.Context, kind string) (stream.Source, error) {
	if err := protocol.ValidateKind(kind); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(c.cfg.StreamPath, url.Values{"type": {kind}}), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build stream request")
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, errors.Errorf("stream %s returned status %d", kind, resp.StatusCode)
	}
	return &sseSource{body: resp.Body, r: sse.NewReader(resp.Body)}, nil
}

type sseSource struct {
	body io.ReadCloser
	r    *sse.Reader
}

func (s *sseSource) Recv() ([]byte, error) {
	ev, err := s.r.Next()
	if err != nil {
		return nil, err
	}
	return ev.Data, nil
}

func (s *sseSource) Close() error {
	return s.body.Close()
}
