// Package transport sends files to the upload server as multipart requests
// and classifies failures as transient or permanent.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/dmitrijs2005/filedrop/internal/logging"
)

const (
	uploadField  = "file"
	maxReplySize = 1 << 20
)

var errReplied = errors.New("server replied before the body was sent")

// FileRecord is the server's metadata for an uploaded file.
type FileRecord struct {
	ID           int64     `json:"id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Request describes one upload attempt. Body is read exactly once and is
// not closed. Progress, when set, is called with the number of body bytes
// handed to the connection so far.
type Request struct {
	Name     string
	MimeType string
	Size     int64
	Body     io.Reader
	Progress func(sent, total int64)
}

type reply struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Kind    string          `json:"kind"`
}

// HTTPTransport uploads to POST {baseURL}/files.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
	logger  logging.Logger
}

// New returns a transport for baseURL. A nil client means a fresh
// http.Client without a global timeout; deadlines come from the context.
func New(baseURL string, client *http.Client, logger logging.Logger) *HTTPTransport {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger.With("module", "transport"),
	}
}

// Upload streams req as the "file" part of a multipart body. Progress is
// never called after Upload returns.
//
// Errors wrap ErrTransient for network failures and expired deadlines.
// Server replies other than 201 come back as *RemoteError. Caller
// cancellation and failures reading req.Body are returned as is and are
// never transient.
func (t *HTTPTransport) Upload(ctx context.Context, req *Request) (*FileRecord, error) {
	pr, pw := io.Pipe()
	defer pr.Close()

	mw := multipart.NewWriter(pw)
	src := &progressReader{r: req.Body, total: req.Size, fn: req.Progress}
	written := make(chan struct{})

	go func() {
		defer close(written)
		pw.CloseWithError(writeBody(mw, req, src))
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/files", pr)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := t.client.Do(httpReq)
	if err != nil {
		pr.CloseWithError(err)
		<-written
		return nil, t.classify(ctx, src, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplySize))
	if err != nil {
		pr.CloseWithError(err)
		<-written
		return nil, t.classify(ctx, src, err)
	}

	// The server may answer before consuming the whole body. Stop the writer
	// so no Progress call outlives Upload.
	pr.CloseWithError(errReplied)
	<-written

	var r reply
	decodeErr := json.Unmarshal(body, &r)

	if resp.StatusCode == http.StatusCreated && decodeErr == nil && r.Success {
		var rec FileRecord
		if err := json.Unmarshal(r.Data, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode file record: %w", err)
		}
		return &rec, nil
	}

	remote := &RemoteError{StatusCode: resp.StatusCode, Kind: r.Kind, Message: r.Error}
	if remote.Message == "" {
		remote.Message = http.StatusText(resp.StatusCode)
	}
	t.logger.Debug(ctx, "Upload rejected", "name", req.Name, "status", remote.StatusCode, "kind", remote.Kind)
	return nil, remote
}

func writeBody(mw *multipart.Writer, req *Request, src io.Reader) error {
	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, uploadField, escapeQuotes(req.Name)))
	h.Set("Content-Type", mimeType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, src); err != nil {
		return err
	}
	return mw.Close()
}

// classify must only run after the body writer has finished.
func (t *HTTPTransport) classify(ctx context.Context, src *progressReader, err error) error {
	if src.err != nil {
		return fmt.Errorf("failed to read source: %w", src.err)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"", "\r", "", "\n", "")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// progressReader counts bytes read from the source and remembers a read
// failure so it is not mistaken for a network error.
type progressReader struct {
	r     io.Reader
	total int64
	sent  int64
	fn    func(sent, total int64)
	err   error
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.fn != nil {
			p.fn(p.sent, p.total)
		}
	}
	if err != nil && !errors.Is(err, io.EOF) {
		p.err = err
	}
	return n, err
}
