package commands

import (
	"context"
	"sync"

	"github.com/vicentereig/qunalbum/internal/album"
	"github.com/vicentereig/qunalbum/internal/store"
	"github.com/vicentereig/qunalbum/internal/types"
)

// MockBot implements Bot for testing and records every reply.
type MockBot struct {
	GetMsgFunc       func(ctx context.Context, messageID string) (*types.Reply, error)
	SendGroupMsgFunc func(ctx context.Context, groupID int64, text string) error

	mu      sync.Mutex
	Replies []string
}

func (m *MockBot) GetMsg(ctx context.Context, messageID string) (*types.Reply, error) {
	if m.GetMsgFunc != nil {
		return m.GetMsgFunc(ctx, messageID)
	}
	return nil, nil
}

func (m *MockBot) SendGroupMsg(ctx context.Context, groupID int64, text string) error {
	m.mu.Lock()
	m.Replies = append(m.Replies, text)
	m.mu.Unlock()
	if m.SendGroupMsgFunc != nil {
		return m.SendGroupMsgFunc(ctx, groupID, text)
	}
	return nil
}

func (m *MockBot) replies() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Replies...)
}

// MockEventSource implements EventSource for testing.
type MockEventSource struct {
	RunFunc func(ctx context.Context, handler func(*types.MessageEvent)) error
}

func (m *MockEventSource) Run(ctx context.Context, handler func(*types.MessageEvent)) error {
	if m.RunFunc != nil {
		return m.RunFunc(ctx, handler)
	}
	<-ctx.Done()
	return nil
}

// MockContentResolver implements ContentResolver for testing.
type MockContentResolver struct {
	FirstImageFunc func(ctx context.Context, evt *types.MessageEvent) ([]byte, bool)
}

func (m *MockContentResolver) FirstImage(ctx context.Context, evt *types.MessageEvent) ([]byte, bool) {
	if m.FirstImageFunc != nil {
		return m.FirstImageFunc(ctx, evt)
	}
	return nil, false
}

// MockIdentityResolver implements IdentityResolver for testing.
type MockIdentityResolver struct {
	AvatarFunc func(ctx context.Context, userID string) ([]byte, bool)
	NameFunc   func(ctx context.Context, groupID, userID int64) string
}

func (m *MockIdentityResolver) Avatar(ctx context.Context, userID string) ([]byte, bool) {
	if m.AvatarFunc != nil {
		return m.AvatarFunc(ctx, userID)
	}
	return nil, false
}

func (m *MockIdentityResolver) Name(ctx context.Context, groupID, userID int64) string {
	if m.NameFunc != nil {
		return m.NameFunc(ctx, groupID, userID)
	}
	return "unknown"
}

// MockMemeRenderer implements MemeRenderer for testing.
type MockMemeRenderer struct {
	RenderFunc func(ctx context.Context, req types.RenderRequest) ([]byte, bool)
	Calls      []types.RenderRequest
}

func (m *MockMemeRenderer) Render(ctx context.Context, req types.RenderRequest) ([]byte, bool) {
	m.Calls = append(m.Calls, req)
	if m.RenderFunc != nil {
		return m.RenderFunc(ctx, req)
	}
	return nil, false
}

// MockAlbumUploader implements AlbumUploader for testing.
type MockAlbumUploader struct {
	UploadFunc func(ctx context.Context, groupID int64, albumName string, image []byte) (album.Result, error)
}

func (m *MockAlbumUploader) Upload(ctx context.Context, groupID int64, albumName string, image []byte) (album.Result, error) {
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, groupID, albumName, image)
	}
	return album.Result{}, nil
}

// MockUploadStore implements UploadStore for testing.
type MockUploadStore struct {
	RecordUploadFunc func(u store.Upload) error
	ListUploadsFunc  func(params store.ListUploadsParams) ([]store.Upload, error)
	ListAlbumsFunc   func(groupID int64) ([]store.Album, error)
	CloseFunc        func() error
}

func (m *MockUploadStore) RecordUpload(u store.Upload) error {
	if m.RecordUploadFunc != nil {
		return m.RecordUploadFunc(u)
	}
	return nil
}

func (m *MockUploadStore) ListUploads(params store.ListUploadsParams) ([]store.Upload, error) {
	if m.ListUploadsFunc != nil {
		return m.ListUploadsFunc(params)
	}
	return nil, nil
}

func (m *MockUploadStore) ListAlbums(groupID int64) ([]store.Album, error) {
	if m.ListAlbumsFunc != nil {
		return m.ListAlbumsFunc(groupID)
	}
	return nil, nil
}

func (m *MockUploadStore) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
