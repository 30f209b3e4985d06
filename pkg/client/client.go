package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-go-golems/studioctl/pkg/config"
	"github.com/go-go-golems/studioctl/pkg/protocol"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var ErrNotProcessing = errors.New(protocol.ErrProtocolNotProcessing)

type Options struct {
	Config *config.File
	// Timeout bounds submit and stop requests. Streams are only bounded by
	// their context.
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	cfg    *config.File
	base   *url.URL
	http   *http.Client
	stream *http.Client
}

func New(opts Options) (*Client, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Defaults()
	}
	base, err := url.Parse(cfg.Server)
	if err != nil {
		return nil, errors.Wrap(err, "parse server url")
	}
	base.Path = strings.TrimRight(base.Path, "/")
	base.RawQuery = ""
	base.Fragment = ""

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	streamClient := &http.Client{Transport: httpClient.Transport}

	return &Client{cfg: cfg, base: base, http: httpClient, stream: streamClient}, nil
}

func (c *Client) Config() *config.File { return c.cfg }

type File struct {
	Field string
	Name  string
	Open  func() (io.ReadCloser, error)
}

// LocalFile stages a file from disk under the given form field.
func LocalFile(field, path string) File {
	return File{
		Field: field,
		Name:  filepath.Base(path),
		Open:  func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

type Form struct {
	Fields url.Values
	Files  []File
}

// Submit posts a job request. It succeeds only when the server acknowledges
// the job as processing; the ack is returned in every case it could be read.
func (c *Client) Submit(ctx context.Context, kind string, form Form) (protocol.Ack, error) {
	job, err := c.cfg.Job(kind)
	if err != nil {
		return protocol.Ack{}, err
	}

	body, contentType, err := encodeForm(form)
	if err != nil {
		return protocol.Ack{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(job.SubmitPath, nil), body)
	if err != nil {
		return protocol.Ack{}, errors.Wrap(err, "build submit request")
	}
	req.Header.Set("Content-Type", contentType)

	ack, status, err := c.doAck(req)
	if err != nil {
		return ack, errors.Wrapf(err, "submit %s", kind)
	}
	if status/100 != 2 || ack.Status != protocol.StatusProcessing {
		msg := ack.Message
		if extra := ack.ErrorsText(); extra != "" {
			msg = msg + ": " + extra
		}
		return ack, errors.Wrapf(ErrNotProcessing, "submit %s (http %d): %s", kind, status, msg)
	}
	log.Info().Str("kind", kind).Str("message", ack.Message).Msg("job accepted")
	return ack, nil
}

// Stop asks the server to cancel the running job of this kind. The reply is
// advisory; it does not affect any open stream.
func (c *Client) Stop(ctx context.Context, kind string) (protocol.Ack, error) {
	if err := protocol.ValidateKind(kind); err != nil {
		return protocol.Ack{}, err
	}
	b, err := json.Marshal(protocol.StopRequest{Type: kind})
	if err != nil {
		return protocol.Ack{}, errors.Wrap(err, "marshal stop request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.cfg.StopPath, nil), bytes.NewReader(b))
	if err != nil {
		return protocol.Ack{}, errors.Wrap(err, "build stop request")
	}
	req.Header.Set("Content-Type", "application/json")

	ack, status, err := c.doAck(req)
	if err != nil {
		return ack, errors.Wrapf(err, "stop %s", kind)
	}
	if status/100 != 2 {
		return ack, errors.Errorf("stop %s (http %d): %s", kind, status, ack.Message)
	}
	return ack, nil
}

// OutputURL is the download link for an artifact path reported by the stream.
func (c *Client) OutputURL(artifactPath string) string {
	clean := strings.TrimLeft(strings.ReplaceAll(artifactPath, "\\", "/"), "/")
	u := *c.base
	u.Path = c.base.Path + c.cfg.OutputsPath + "/" + clean
	u.RawPath = ""
	return u.String()
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) doAck(req *http.Request) (protocol.Ack, int, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return protocol.Ack{}, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return protocol.Ack{}, resp.StatusCode, errors.Wrap(err, "read response")
	}
	var ack protocol.Ack
	if err := json.Unmarshal(b, &ack); err != nil {
		return protocol.Ack{}, resp.StatusCode, errors.Wrapf(err, "decode response (http %d)", resp.StatusCode)
	}
	return ack, resp.StatusCode, nil
}

func encodeForm(form Form) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(form.Fields))
	for k := range form.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range form.Fields[k] {
			if err := w.WriteField(k, v); err != nil {
				return nil, "", errors.Wrapf(err, "write field %s", k)
			}
		}
	}

	for _, f := range form.Files {
		if err := writeFile(w, f); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "close multipart form")
	}
	return &buf, w.FormDataContentType(), nil
}

func writeFile(w *multipart.Writer, f File) error {
	if f.Field == "" || f.Open == nil {
		return errors.Errorf("invalid form file %q", f.Name)
	}
	r, err := f.Open()
	if err != nil {
		return errors.Wrapf(err, "open %s", f.Name)
	}
	defer func() { _ = r.Close() }()

	part, err := w.CreateFormFile(f.Field, f.Name)
	if err != nil {
		return errors.Wrapf(err, "create form file %s", f.Name)
	}
	if _, err := io.Copy(part, r); err != nil {
		return errors.Wrapf(err, "copy %s", f.Name)
	}
	return nil
}
