package preview

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/eventmedia-api/internal/media"
	"github.com/maauso/eventmedia-api/internal/storage"
)

// mockThumbnailer implements Thumbnailer for testing.
type mockThumbnailer struct {
	mock.Mock
}

func (m *mockThumbnailer) Check(f media.File, opts ...media.CallOption) (media.Kind, error) {
	args := m.Called(f, opts)
	return args.Get(0).(media.Kind), args.Error(1)
}

func (m *mockThumbnailer) Normalize(ctx context.Context, f media.File, opts ...media.CallOption) (media.Result, error) {
	args := m.Called(ctx, f, opts)
	return args.Get(0).(media.Result), args.Error(1)
}

// mockStorage implements storage.Storage for testing.
type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) SaveTemp(ctx context.Context, name string, data io.Reader) (string, error) {
	args := m.Called(ctx, name, data)
	return args.String(0), args.Error(1)
}

func (m *mockStorage) LoadTemp(ctx context.Context, path string) (io.ReadCloser, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *mockStorage) CleanupTemp(ctx context.Context, paths []string) error {
	args := m.Called(ctx, paths)
	return args.Error(0)
}

func (m *mockStorage) Upload(ctx context.Context, key, contentType string, data io.Reader) (string, error) {
	args := m.Called(ctx, key, contentType, data)
	return args.String(0), args.Error(1)
}

func (m *mockStorage) Remove(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

var thumb = media.DataURL{MediaType: media.ThumbnailMediaType, Data: []byte{0xff, 0xd8}}

func newTestService(t *testing.T) (*Service, *MemoryRepository, *mockThumbnailer, *mockStorage) {
	t.Helper()
	repo := NewMemoryRepository()
	thumbnailer := &mockThumbnailer{}
	store := &mockStorage{}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewService(repo, thumbnailer, store, logger), repo, thumbnailer, store
}

func createPreview(t *testing.T, svc *Service) *Preview {
	t.Helper()
	p, err := svc.Create(context.Background())
	require.NoError(t, err)
	return p
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(NewMemoryRepository(), &mockThumbnailer{}, nil, nil)
	assert.Equal(t, EventVideoMaxSize, svc.maxVideoSize)
	assert.NotNil(t, svc.logger)

	svc = NewService(NewMemoryRepository(), &mockThumbnailer{}, nil, nil, WithMaxVideoSize(42), WithMaxVideoSize(-1))
	assert.Equal(t, int64(42), svc.maxVideoSize)
}

func TestService_CreateGetDelete(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	p := createPreview(t, svc)
	assert.Equal(t, StatusEmpty, p.Status)

	found, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)

	require.NoError(t, svc.Delete(ctx, p.ID))
	_, err = svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, ErrPreviewNotFound)
}

func TestService_StageAccepted(t *testing.T) {
	svc, _, thumbnailer, _ := newTestService(t)
	p := createPreview(t, svc)
	file := media.NewBytesFile("image/png", []byte("png"))

	thumbnailer.On("Check", file, mock.Anything).Return(media.KindImage, nil)

	staged, err := svc.Stage(context.Background(), p.ID, StageInput{File: file, Filename: "a.png"})
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, staged.Status)
	assert.Equal(t, "a.png", staged.Filename)
	assert.Equal(t, "image/png", staged.SourceType)
	assert.Equal(t, int64(3), staged.SourceSize)
}

func TestService_StageRejectedClearsPreview(t *testing.T) {
	svc, repo, thumbnailer, _ := newTestService(t)
	ctx := context.Background()

	// Start from a READY preview.
	p := NewWithID("pvw-ready")
	require.NoError(t, p.Begin("old.png", "image/png", 1))
	require.NoError(t, p.Complete(media.KindImage, thumb.String(), ""))
	require.NoError(t, repo.Save(ctx, p))

	file := media.NewBytesFile("video/mp4", make([]byte, 10))
	gateErr := &media.OversizeError{Size: 10, MaxSize: 5}
	thumbnailer.On("Check", file, mock.Anything).Return(media.KindNone, gateErr)

	staged, err := svc.Stage(ctx, p.ID, StageInput{File: file})
	assert.ErrorIs(t, err, media.ErrOversizeVideo)
	require.NotNil(t, staged)
	assert.Equal(t, StatusFailed, staged.Status)
	assert.Equal(t, media.KindNone, staged.MediaType)
	assert.Empty(t, staged.MediaPreview)
	assert.Equal(t, "Video too large. Please select a file under 5 bytes.", staged.Error)

	thumbnailer.AssertNotCalled(t, "Normalize", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_StageWhileProcessing(t *testing.T) {
	svc, _, thumbnailer, _ := newTestService(t)
	p := createPreview(t, svc)
	file := media.NewBytesFile("image/png", []byte("png"))
	thumbnailer.On("Check", file, mock.Anything).Return(media.KindImage, nil)

	_, err := svc.Stage(context.Background(), p.ID, StageInput{File: file})
	require.NoError(t, err)

	_, err = svc.Stage(context.Background(), p.ID, StageInput{File: file})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestService_StageRejectedWhileProcessing(t *testing.T) {
	svc, _, thumbnailer, _ := newTestService(t)
	ctx := context.Background()
	p := createPreview(t, svc)

	accepted := media.NewBytesFile("image/png", []byte("png"))
	rejected := media.NewBytesFile("text/plain", []byte("txt"))
	thumbnailer.On("Check", accepted, mock.Anything).Return(media.KindImage, nil)
	thumbnailer.On("Check", rejected, mock.Anything).Return(media.KindNone, media.ErrUnsupportedType)

	_, err := svc.Stage(ctx, p.ID, StageInput{File: accepted, Filename: "a.png"})
	require.NoError(t, err)

	staged, err := svc.Stage(ctx, p.ID, StageInput{File: rejected, Filename: "b.txt"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Nil(t, staged)

	found, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, found.Status, "in-flight attempt must not be failed")
	assert.Equal(t, "a.png", found.Filename)
	assert.Equal(t, uint64(1), found.Attempt)
	assert.Empty(t, found.Error)
}

func TestService_ProcessSupersededAttempt(t *testing.T) {
	svc, _, thumbnailer, _ := newTestService(t)
	ctx := context.Background()
	p := createPreview(t, svc)

	first := media.NewBytesFile("image/png", []byte("first"))
	second := media.NewBytesFile("video/mp4", []byte("second"))
	firstThumb := media.DataURL{MediaType: media.ThumbnailMediaType, Data: []byte{0xff, 0xd8, 0x01}}
	thumbnailer.On("Check", first, mock.Anything).Return(media.KindImage, nil)
	thumbnailer.On("Check", second, mock.Anything).Return(media.KindVideo, nil)
	thumbnailer.On("Normalize", mock.Anything, first, mock.Anything).
		Return(media.Result{Kind: media.KindImage, Thumbnail: firstThumb}, nil)

	a, err := svc.Stage(ctx, p.ID, StageInput{File: first, Filename: "a.png"})
	require.NoError(t, err)
	require.NoError(t, svc.Process(ctx, p.ID, a.Attempt, StageInput{File: first}))

	c, err := svc.Stage(ctx, p.ID, StageInput{File: second, Filename: "c.mp4"})
	require.NoError(t, err)
	assert.Equal(t, a.Attempt+1, c.Attempt)

	// A late result from the first attempt arrives after the second started.
	err = svc.Process(ctx, p.ID, a.Attempt, StageInput{File: first})
	assert.ErrorIs(t, err, ErrStaleAttempt)

	found, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, found.Status)
	assert.Equal(t, "c.mp4", found.Filename)
	assert.Empty(t, found.MediaPreview)
}

func TestService_ProcessSupersededFailure(t *testing.T) {
	svc, _, thumbnailer, _ := newTestService(t)
	ctx := context.Background()
	p := createPreview(t, svc)

	first := media.NewBytesFile("image/png", []byte("first"))
	second := media.NewBytesFile("image/png", []byte("second"))
	thumbnailer.On("Check", mock.Anything, mock.Anything).Return(media.KindImage, nil)
	thumbnailer.On("Normalize", mock.Anything, first, mock.Anything).
		Return(media.Result{}, media.ErrDecode)
	thumbnailer.On("Normalize", mock.Anything, second, mock.Anything).
		Return(media.Result{Kind: media.KindImage, Thumbnail: thumb}, nil)

	a, err := svc.Stage(ctx, p.ID, StageInput{File: first})
	require.NoError(t, err)
	require.ErrorIs(t, svc.Process(ctx, p.ID, a.Attempt, StageInput{File: first}), media.ErrDecode)

	c, err := svc.Stage(ctx, p.ID, StageInput{File: second, Filename: "c.png"})
	require.NoError(t, err)
	require.NoError(t, svc.Process(ctx, p.ID, c.Attempt, StageInput{File: second}))

	// Replaying the failed attempt must not clear the ready thumbnail.
	err = svc.Process(ctx, p.ID, a.Attempt, StageInput{File: first})
	assert.ErrorIs(t, err, media.ErrDecode)

	found, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, found.Status)
	assert.Equal(t, thumb.String(), found.MediaPreview)
	assert.Equal(t, "c.png", found.Filename)
}

func TestService_StageMissingPreview(t *testing.T) {
	svc, _, thumbnailer, _ := newTestService(t)
	file := media.NewBytesFile("image/png", []byte("png"))
	thumbnailer.On("Check", file, mock.Anything).Return(media.KindImage, nil)

	_, err := svc.Stage(context.Background(), "missing", StageInput{File: file})
	assert.ErrorIs(t, err, ErrPreviewNotFound)
}

func TestService_ProcessSuccess(t *testing.T) {
	svc, _, thumbnailer, store := newTestService(t)
	ctx := context.Background()
	p := createPreview(t, svc)
	file := media.NewBytesFile("video/mp4", []byte("mp4"))

	thumbnailer.On("Check", file, mock.Anything).Return(media.KindVideo, nil)
	thumbnailer.On("Normalize", mock.Anything, file, mock.Anything).
		Return(media.Result{Kind: media.KindVideo, Thumbnail: thumb}, nil)

	in := StageInput{File: file, Filename: "clip.mp4"}
	staged, err := svc.Stage(ctx, p.ID, in)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), staged.Attempt)
	require.NoError(t, svc.Process(ctx, p.ID, staged.Attempt, in))

	found, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, found.Status)
	assert.Equal(t, media.KindVideo, found.MediaType)
	assert.Equal(t, thumb.String(), found.MediaPreview)
	assert.Empty(t, found.ThumbnailURL)
	store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_UsesEventVideoLimit(t *testing.T) {
	repo := NewMemoryRepository()
	n := media.NewNormalizer(nil, nil, nil)
	svc := NewService(repo, n, nil, nil)
	p := createPreview(t, svc)

	// 3 MiB is over the library default but under the event form limit.
	file := media.NewBytesFile("video/mp4", make([]byte, 3*1024*1024))
	_, err := svc.Stage(context.Background(), p.ID, StageInput{File: file})
	require.NoError(t, err)

	big := media.NewBytesFile("video/mp4", make([]byte, 6*1024*1024))
	_, err = svc.Thumbnail(context.Background(), big)
	assert.ErrorIs(t, err, media.ErrOversizeVideo)
}

func TestService_ProcessFailureClearsPreview(t *testing.T) {
	svc, _, thumbnailer, _ := newTestService(t)
	ctx := context.Background()
	p := createPreview(t, svc)
	file := media.NewBytesFile("image/png", []byte("broken"))

	thumbnailer.On("Check", file, mock.Anything).Return(media.KindImage, nil)
	thumbnailer.On("Normalize", mock.Anything, file, mock.Anything).
		Return(media.Result{}, media.ErrDecode)

	in := StageInput{File: file}
	staged, err := svc.Stage(ctx, p.ID, in)
	require.NoError(t, err)

	err = svc.Process(ctx, p.ID, staged.Attempt, in)
	assert.ErrorIs(t, err, media.ErrDecode)

	found, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, found.Status)
	assert.Equal(t, media.DefaultErrorMessage, found.Error)
	assert.Empty(t, found.MediaPreview)
}

func TestService_ProcessPushesToS3(t *testing.T) {
	svc, _, thumbnailer, store := newTestService(t)
	ctx := context.Background()
	p := createPreview(t, svc)
	file := media.NewBytesFile("image/png", []byte("png"))

	thumbnailer.On("Check", file, mock.Anything).Return(media.KindImage, nil)
	thumbnailer.On("Normalize", mock.Anything, file, mock.Anything).
		Return(media.Result{Kind: media.KindImage, Thumbnail: thumb}, nil)
	store.On("Upload", mock.Anything, ThumbnailKey(p.ID), "image/jpeg", mock.Anything).
		Return("https://bucket.s3.us-east-1.amazonaws.com/thumbnails/"+p.ID+".jpg", nil)

	in := StageInput{File: file, PushToS3: true}
	staged, err := svc.Stage(ctx, p.ID, in)
	require.NoError(t, err)
	require.NoError(t, svc.Process(ctx, p.ID, staged.Attempt, in))

	found, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, found.Status)
	assert.Equal(t, "https://bucket.s3.us-east-1.amazonaws.com/thumbnails/"+p.ID+".jpg", found.ThumbnailURL)
	store.AssertExpectations(t)
}

func TestService_ProcessUploadFailure(t *testing.T) {
	svc, _, thumbnailer, store := newTestService(t)
	ctx := context.Background()
	p := createPreview(t, svc)
	file := media.NewBytesFile("image/png", []byte("png"))

	thumbnailer.On("Check", file, mock.Anything).Return(media.KindImage, nil)
	thumbnailer.On("Normalize", mock.Anything, file, mock.Anything).
		Return(media.Result{Kind: media.KindImage, Thumbnail: thumb}, nil)
	store.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", storage.ErrS3NotConfigured)

	in := StageInput{File: file, PushToS3: true}
	staged, err := svc.Stage(ctx, p.ID, in)
	require.NoError(t, err)

	err = svc.Process(ctx, p.ID, staged.Attempt, in)
	assert.ErrorIs(t, err, storage.ErrS3NotConfigured)

	found, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, found.Status)
	assert.Empty(t, found.MediaPreview)
}

func TestService_ProcessAfterDelete(t *testing.T) {
	svc, _, thumbnailer, _ := newTestService(t)
	ctx := context.Background()
	p := createPreview(t, svc)
	file := media.NewBytesFile("image/png", []byte("png"))

	thumbnailer.On("Check", file, mock.Anything).Return(media.KindImage, nil)
	thumbnailer.On("Normalize", mock.Anything, file, mock.Anything).
		Return(media.Result{Kind: media.KindImage, Thumbnail: thumb}, nil)

	in := StageInput{File: file}
	staged, err := svc.Stage(ctx, p.ID, in)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, p.ID))

	err = svc.Process(ctx, p.ID, staged.Attempt, in)
	assert.ErrorIs(t, err, ErrPreviewNotFound)
	_, err = svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, ErrPreviewNotFound, "deleted preview must not be recreated")
}

func TestService_ThumbnailPassesThrough(t *testing.T) {
	svc, _, thumbnailer, _ := newTestService(t)
	file := media.NewBytesFile("text/plain", []byte("hi"))
	thumbnailer.On("Normalize", mock.Anything, file, mock.Anything).
		Return(media.Result{}, media.ErrUnsupportedType)

	_, err := svc.Thumbnail(context.Background(), file)
	assert.ErrorIs(t, err, media.ErrUnsupportedType)
}

func TestService_DeleteRemovesPushedThumbnail(t *testing.T) {
	svc, repo, _, store := newTestService(t)
	ctx := context.Background()

	p := NewWithID("pvw-pushed")
	require.NoError(t, p.Begin("a.png", "image/png", 1))
	require.NoError(t, p.Complete(media.KindImage, thumb.String(), "https://bucket/thumbnails/pvw-pushed.jpg"))
	require.NoError(t, repo.Save(ctx, p))

	store.On("Remove", mock.Anything, "thumbnails/pvw-pushed.jpg").Return(errors.New("access denied"))

	require.NoError(t, svc.Delete(ctx, p.ID))
	_, err := svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, ErrPreviewNotFound)
	store.AssertExpectations(t)
}

func TestService_DeleteMissing(t *testing.T) {
	svc, _, _, store := newTestService(t)

	assert.ErrorIs(t, svc.Delete(context.Background(), "missing"), ErrPreviewNotFound)
	store.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything)
}

func TestThumbnailKey(t *testing.T) {
	assert.Equal(t, "thumbnails/pvw-1.jpg", ThumbnailKey("pvw-1"))
}
