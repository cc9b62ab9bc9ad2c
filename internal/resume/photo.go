// Package resume holds the résumé page tooling: photo previews, AI analysis calls and
// the printable export.
package resume

import (
	"bytes"
	"context"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"jobprep/internal/errors"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	MsgFileType = "이미지 파일만 업로드 가능합니다."
	MsgFileRead = "파일을 읽는 중 오류가 발생했습니다."

	previewPrefix = "data:image/jpeg;base64,"
	sniffLen      = 512
	jpegQuality   = 85
)

// ErrSuperseded is returned by a load that a newer load replaced.
var ErrSuperseded = stderrors.New("photo load superseded")

// Photo is a decoded picture and its preview data URI.
type Photo struct {
	Preview     string `json:"preview"`
	ContentType string `json:"content_type"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// PhotoLoader turns uploaded files into previews. Only the latest load wins.
type PhotoLoader struct {
	maxBytes int64
	maxSide  int
	logger   *errors.Logger

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	current *Photo
}

func NewPhotoLoader(maxBytes int64, maxSide int, logger *errors.Logger) *PhotoLoader {
	return &PhotoLoader{maxBytes: maxBytes, maxSide: maxSide, logger: logger}
}

// SizeMessage is the error shown for an oversized file.
func (l *PhotoLoader) SizeMessage() string {
	return fmt.Sprintf("파일 크기는 %dMB 이하여야 합니다.", l.maxBytes/(1<<20))
}

// LoadFile opens path and loads it.
func (l *PhotoLoader) LoadFile(ctx context.Context, path string) (*Photo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, l.settle(l.begin(ctx), nil,
			errors.NewIOError(errors.ErrCodeFileReadFailed, MsgFileRead, err).WithContext("path", path))
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, l.settle(l.begin(ctx), nil,
			errors.NewIOError(errors.ErrCodeFileReadFailed, MsgFileRead, err).WithContext("path", path))
	}
	return l.Load(ctx, f, info.Size())
}

type loadToken struct {
	gen uint64
	ctx context.Context
}

// begin starts a new generation and cancels the previous load.
func (l *PhotoLoader) begin(ctx context.Context) loadToken {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	loadCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	return loadToken{gen: l.gen, ctx: loadCtx}
}

// Load validates and decodes r. size < 0 means unknown. A newer Load cancels this one
// and its result is discarded with ErrSuperseded. A file rejected for its size or type
// leaves the current photo and any load in flight alone.
func (l *PhotoLoader) Load(ctx context.Context, r io.Reader, size int64) (*Photo, error) {
	if size > l.maxBytes {
		return nil, l.reject(errors.NewValidationError(errors.ErrCodeInvalidInput, l.SizeMessage(), nil).
			WithContext("size", size))
	}
	head, err := readHead(r)
	if err != nil {
		return nil, l.settle(l.begin(ctx), nil, errors.NewIOError(errors.ErrCodeFileReadFailed, MsgFileRead, err))
	}
	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, l.reject(errors.NewValidationError(errors.ErrCodeInvalidInput, MsgFileType, nil).
			WithContext("content_type", contentType))
	}

	tok := l.begin(ctx)

	type result struct {
		photo *Photo
		err   error
	}
	done := make(chan result, 1)
	go func() {
		p, err := l.decode(io.MultiReader(bytes.NewReader(head), r), contentType)
		done <- result{p, err}
	}()

	var res result
	select {
	case res = <-done:
	case <-tok.ctx.Done():
		// the decoder goroutine finishes on its own; done is buffered
		return nil, l.settle(tok, nil, tok.ctx.Err())
	}
	if err := l.settle(tok, res.photo, res.err); err != nil {
		return nil, err
	}
	return res.photo, nil
}

// readHead returns the first chunk of r from a single read.
func readHead(r io.Reader) ([]byte, error) {
	buf := make([]byte, sniffLen)
	n, err := io.ReadAtLeast(r, buf, 1)
	if err != nil && !stderrors.Is(err, io.EOF) && !stderrors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return buf[:n], nil
}

// reject logs a validation failure without touching the loader state.
func (l *PhotoLoader) reject(err *errors.AppError) error {
	l.logger.LogError(err, "Photo rejected")
	return err
}

func (l *PhotoLoader) decode(r io.Reader, contentType string) (*Photo, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileReadFailed, MsgFileRead, err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidInput, l.SizeMessage(), nil).
			WithContext("size", len(data))
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileReadFailed, MsgFileRead, err).
			WithContext("content_type", contentType)
	}
	return l.preview(img, contentType)
}

func (l *PhotoLoader) preview(img image.Image, contentType string) (*Photo, error) {
	if l.maxSide > 0 {
		img = imaging.Fit(img, l.maxSide, l.maxSide, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileReadFailed, MsgFileRead, err)
	}
	b := img.Bounds()
	return &Photo{
		Preview:     previewPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()),
		ContentType: contentType,
		Width:       b.Dx(),
		Height:      b.Dy(),
	}, nil
}

// settle publishes a finished load unless a newer one started.
func (l *PhotoLoader) settle(tok loadToken, p *Photo, err error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if tok.gen != l.gen {
		return ErrSuperseded
	}
	l.cancel()
	l.cancel = nil
	if err != nil {
		if appErr, ok := errors.As(err); ok && appErr.Type == errors.ErrorTypeValidation {
			l.logger.LogError(err, "Photo rejected")
			return err
		}
		l.current = nil
		if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if _, ok := errors.As(err); !ok {
			err = errors.NewIOError(errors.ErrCodeFileReadFailed, MsgFileRead, err)
		}
		l.logger.LogError(err, "Photo load failed")
		return err
	}
	l.current = p
	l.logger.Debug("Photo loaded", "width", p.Width, "height", p.Height, "content_type", p.ContentType)
	return nil
}

// Current returns the latest successful photo, nil when none.
func (l *PhotoLoader) Current() *Photo {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return nil
	}
	p := *l.current
	return &p
}

// Preview returns the current preview data URI, empty when none.
func (l *PhotoLoader) Preview() string {
	if p := l.Current(); p != nil {
		return p.Preview
	}
	return ""
}

// Restore sets a preview loaded from storage.
func (l *PhotoLoader) Restore(preview string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !strings.HasPrefix(preview, "data:image/") {
		l.current = nil
		return
	}
	mediaType, _, _ := strings.Cut(strings.TrimPrefix(preview, "data:"), ";")
	l.current = &Photo{Preview: preview, ContentType: mediaType}
}

// Clear drops the photo and cancels any load in flight.
func (l *PhotoLoader) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.gen++
	l.current = nil
}
