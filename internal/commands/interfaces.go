// Package commands implements the album upload command and the CLI
// operations around it.
//
// # Dependency Injection
//
// The interfaces below define the dependencies of App, enabling testability
// through mock injection. Types are shared via internal/types to avoid
// circular dependencies.
//
// Usage:
//   - Production: Use NewApp() which creates concrete implementations
//   - Testing: Use NewAppWithDeps() to inject mocks
package commands

import (
	"context"

	"github.com/vicentereig/qunalbum/internal/album"
	"github.com/vicentereig/qunalbum/internal/store"
	"github.com/vicentereig/qunalbum/internal/types"
)

// Bot is the chat side of the OneBot client.
// The concrete implementation is onebot.Client.
type Bot interface {
	GetMsg(ctx context.Context, messageID string) (*types.Reply, error)
	SendGroupMsg(ctx context.Context, groupID int64, text string) error
}

// EventSource delivers incoming message events.
// The concrete implementation is onebot.EventStream.
type EventSource interface {
	Run(ctx context.Context, handler func(*types.MessageEvent)) error
}

type ContentResolver interface {
	FirstImage(ctx context.Context, evt *types.MessageEvent) ([]byte, bool)
}

type IdentityResolver interface {
	Avatar(ctx context.Context, userID string) ([]byte, bool)
	Name(ctx context.Context, groupID, userID int64) string
}

type MemeRenderer interface {
	Render(ctx context.Context, req types.RenderRequest) ([]byte, bool)
}

type AlbumUploader interface {
	Upload(ctx context.Context, groupID int64, albumName string, image []byte) (album.Result, error)
}

// UploadStore records completed uploads.
// The concrete implementation is store.UploadStore.
type UploadStore interface {
	RecordUpload(u store.Upload) error
	ListUploads(params store.ListUploadsParams) ([]store.Upload, error)
	ListAlbums(groupID int64) ([]store.Album, error)
	Close() error
}

// Deps bundles everything App needs.
type Deps struct {
	Bot      Bot
	Events   EventSource
	Content  ContentResolver
	Identity IdentityResolver
	Renderer MemeRenderer
	Uploader AlbumUploader
	Store    UploadStore
}
