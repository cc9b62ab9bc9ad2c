package resume

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jobprep/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLoadScalesToPreview(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewPhotoLoader(5<<20, 100, errors.NewNop())
	data := pngBytes(t, 400, 200)

	p, err := l.Load(context.Background(), bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, "image/png", p.ContentType)
	assert.Equal(t, 100, p.Width)
	assert.Equal(t, 50, p.Height)
	assert.True(t, strings.HasPrefix(p.Preview, "data:image/jpeg;base64,"))
	assert.Equal(t, p.Preview, l.Preview())
}

func TestLoadRejectsOversizedFile(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewPhotoLoader(5<<20, 100, errors.NewNop())
	_, err := l.Load(context.Background(), strings.NewReader("x"), 6<<20)
	assert.Equal(t, "파일 크기는 5MB 이하여야 합니다.", errors.UserMessage(err))
	assert.Nil(t, l.Current())
}

func TestLoadRejectsUnknownSizeOverLimit(t *testing.T) {
	defer goleak.VerifyNone(t)

	data := pngBytes(t, 64, 64)
	l := NewPhotoLoader(int64(len(data)-1), 100, errors.NewNop())
	_, err := l.Load(context.Background(), bytes.NewReader(data), -1)
	assert.Equal(t, l.SizeMessage(), errors.UserMessage(err))
}

func TestLoadRejectsNonImage(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewPhotoLoader(5<<20, 100, errors.NewNop())
	_, err := l.Load(context.Background(), strings.NewReader("%PDF-1.4 not a picture"), 22)
	assert.Equal(t, MsgFileType, errors.UserMessage(err))
}

func TestLoadErrorResetsPhoto(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewPhotoLoader(5<<20, 100, errors.NewNop())
	data := pngBytes(t, 10, 10)
	_, err := l.Load(context.Background(), bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.NotNil(t, l.Current())

	// a PNG signature followed by garbage sniffs as an image but cannot decode
	broken := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	_, err = l.Load(context.Background(), bytes.NewReader(broken), int64(len(broken)))
	assert.Equal(t, MsgFileRead, errors.UserMessage(err))
	assert.Nil(t, l.Current(), "a failed load leaves no photo")
}

func TestRejectedUploadKeepsPhoto(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewPhotoLoader(5<<20, 100, errors.NewNop())
	data := pngBytes(t, 10, 10)
	p, err := l.Load(context.Background(), bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	_, err = l.Load(context.Background(), strings.NewReader("x"), 6<<20)
	assert.Equal(t, l.SizeMessage(), errors.UserMessage(err))
	require.NotNil(t, l.Current())
	assert.Equal(t, p.Preview, l.Preview())

	_, err = l.Load(context.Background(), strings.NewReader("%PDF-1.4 not a picture"), 22)
	assert.Equal(t, MsgFileType, errors.UserMessage(err))
	assert.Equal(t, p.Preview, l.Preview())
}

func TestRejectedUploadLeavesLoadInFlight(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewPhotoLoader(5<<20, 100, errors.NewNop())
	slow := &blockingReader{started: make(chan struct{}), release: make(chan struct{})}

	firstErr := make(chan error, 1)
	go func() {
		_, err := l.Load(context.Background(), slow, -1)
		firstErr <- err
	}()
	<-slow.started

	_, err := l.Load(context.Background(), strings.NewReader("plain text"), 10)
	assert.Equal(t, MsgFileType, errors.UserMessage(err))

	close(slow.release)
	err = <-firstErr
	assert.NotErrorIs(t, err, ErrSuperseded, "the rejected file does not cancel the running load")
	assert.Equal(t, MsgFileRead, errors.UserMessage(err))
}

func TestLoadFileMissing(t *testing.T) {
	l := NewPhotoLoader(5<<20, 100, errors.NewNop())
	_, err := l.LoadFile(context.Background(), filepath.Join(t.TempDir(), "nope.png"))
	assert.Equal(t, MsgFileRead, errors.UserMessage(err))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "me.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, 30, 60), 0o600))

	l := NewPhotoLoader(5<<20, 600, errors.NewNop())
	p, err := l.LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 30, p.Width, "small images are not upscaled")
}

// blockingReader hands out a PNG signature, then signals its next Read and blocks until
// released.
type blockingReader struct {
	sent    bool
	started chan struct{}
	release chan struct{}
}

func (r *blockingReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		return copy(p, "\x89PNG\r\n\x1a\n"), nil
	}
	select {
	case <-r.started:
	default:
		close(r.started)
	}
	<-r.release
	return 0, io.ErrUnexpectedEOF
}

func TestNewerLoadSupersedesOlder(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewPhotoLoader(5<<20, 100, errors.NewNop())
	slow := &blockingReader{started: make(chan struct{}), release: make(chan struct{})}

	firstErr := make(chan error, 1)
	go func() {
		_, err := l.Load(context.Background(), slow, -1)
		firstErr <- err
	}()
	<-slow.started

	data := pngBytes(t, 20, 20)
	p, err := l.Load(context.Background(), bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	assert.ErrorIs(t, <-firstErr, ErrSuperseded)
	close(slow.release)
	assert.Equal(t, p.Preview, l.Preview(), "the stale load does not overwrite the newer photo")
}

func TestRestoreAndClear(t *testing.T) {
	l := NewPhotoLoader(5<<20, 100, errors.NewNop())
	l.Restore("data:image/png;base64,AAAA")
	require.NotNil(t, l.Current())
	assert.Equal(t, "image/png", l.Current().ContentType)

	l.Restore("javascript:alert(1)")
	assert.Nil(t, l.Current())

	l.Restore("data:image/png;base64,AAAA")
	l.Clear()
	assert.Empty(t, l.Preview())
}
