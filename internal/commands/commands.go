package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vicentereig/qunalbum/internal/album"
	"github.com/vicentereig/qunalbum/internal/config"
	"github.com/vicentereig/qunalbum/internal/content"
	"github.com/vicentereig/qunalbum/internal/identity"
	"github.com/vicentereig/qunalbum/internal/meme"
	"github.com/vicentereig/qunalbum/internal/onebot"
	"github.com/vicentereig/qunalbum/internal/output"
	"github.com/vicentereig/qunalbum/internal/store"
	"github.com/vicentereig/qunalbum/internal/types"
)

// Replies sent to the group.
const (
	ReplyAlbumNotFound = "该相册不存在"
	ReplyNeedQuote     = "需引用图片/文字"
	ReplyUploadFailed  = "上传群相册失败"
	ReplyUploaded      = "已上传到群相册「%s」"
)

const (
	SourceImage = "image"
	SourceMeme  = "meme"
)

type App struct {
	bot      Bot
	events   EventSource
	content  ContentResolver
	identity IdentityResolver
	renderer MemeRenderer
	uploader AlbumUploader
	store    UploadStore

	prefix string
	names  []string
	now    func() time.Time
	log    zerolog.Logger
}

func NewApp(cfg *config.Config, log zerolog.Logger) (*App, error) {
	st, err := store.NewUploadStore(cfg.HistoryPath())
	if err != nil {
		return nil, err
	}

	client := onebot.NewClient(cfg.OneBot.HTTPURL, cfg.OneBot.AccessToken, log)
	deps := Deps{
		Bot:      client,
		Events:   onebot.NewEventStream(cfg.OneBot.WSURL, cfg.OneBot.AccessToken, log),
		Content:  content.NewResolver(content.NewLoader(nil, cfg.Image.DowngradeHTTPS), log),
		Identity: identity.NewResolver(cfg.Avatar.BaseURL, cfg.Avatar.Timeout, client, log),
		Renderer: meme.NewRenderer(cfg.Meme.BaseURL, cfg.Meme.Template, cfg.Meme.Version, log),
		Uploader: album.NewUploader(client, cfg.UploadDir(), cfg.SaveImage, log),
		Store:    st,
	}
	return NewAppWithDeps(deps, cfg.Command, log), nil
}

// NewAppWithDeps creates an App with injected dependencies (for testing).
func NewAppWithDeps(deps Deps, cmd config.CommandConfig, log zerolog.Logger) *App {
	return &App{
		bot:      deps.Bot,
		events:   deps.Events,
		content:  deps.Content,
		identity: deps.Identity,
		renderer: deps.Renderer,
		uploader: deps.Uploader,
		store:    deps.Store,
		prefix:   cmd.Prefix,
		names:    cmd.Names,
		now:      time.Now,
		log:      log.With().Str("component", "commands").Logger(),
	}
}

func (a *App) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

// Serve handles events until ctx is done or the event stream fails. Each
// command runs on its own goroutine; Serve waits for running commands before
// it returns.
func (a *App) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.events.Run(gctx, func(evt *types.MessageEvent) {
			g.Go(func() error {
				a.HandleEvent(gctx, evt)
				return nil
			})
		})
	})
	return g.Wait()
}

// HandleEvent runs the upload command if evt invokes it. The return value
// reports whether the event was consumed; consumed events must not reach
// other handlers.
func (a *App) HandleEvent(ctx context.Context, evt *types.MessageEvent) (handled bool) {
	if !evt.IsGroup() {
		return false
	}
	albumName, ok := ParseUploadCommand(evt.PlainText(), a.prefix, a.names)
	if !ok {
		return false
	}

	log := a.log.With().
		Str("request_id", uuid.NewString()).
		Int64("group_id", evt.GroupID).
		Int64("user_id", evt.UserID).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("upload command panicked")
			a.reply(ctx, log, evt.GroupID, ReplyUploadFailed)
			handled = true
		}
	}()

	log.Info().Str("album", albumName).Msg("upload command received")
	ctx = log.WithContext(ctx)
	a.reply(ctx, log, evt.GroupID, a.UploadToAlbum(ctx, a.hydrate(ctx, evt), albumName))
	return true
}

// UploadToAlbum resolves an image for evt and uploads it, returning the
// message to show the group.
func (a *App) UploadToAlbum(ctx context.Context, evt *types.MessageEvent, albumName string) string {
	log := zerolog.Ctx(ctx)

	image, source := a.resolveImage(ctx, evt)
	if image == nil {
		log.Info().Msg("nothing to upload")
		return ReplyNeedQuote
	}

	res, err := a.uploader.Upload(ctx, evt.GroupID, albumName, image)
	if errors.Is(err, album.ErrAlbumNotFound) {
		log.Info().Str("album", albumName).Msg("album not found")
		return ReplyAlbumNotFound
	}
	if err != nil {
		log.Error().Err(err).Msg("upload failed")
		return ReplyUploadFailed
	}

	if a.store != nil {
		err := a.store.RecordUpload(store.Upload{
			ID:         uuid.NewString(),
			GroupID:    evt.GroupID,
			UserID:     evt.UserID,
			AlbumID:    res.Album.ID,
			AlbumName:  res.Album.Name,
			Source:     source,
			LocalPath:  res.Path,
			Size:       int64(res.Size),
			Retained:   res.Retained,
			UploadedAt: a.now(),
		})
		if err != nil {
			log.Warn().Err(err).Msg("failed to record upload history")
		}
	}

	return fmt.Sprintf(ReplyUploaded, res.Album.Name)
}

// resolveImage prefers an attached image over a generated meme.
func (a *App) resolveImage(ctx context.Context, evt *types.MessageEvent) ([]byte, string) {
	if image, ok := a.content.FirstImage(ctx, evt); ok {
		return image, SourceImage
	}
	if image, ok := a.generateMeme(ctx, evt); ok {
		return image, SourceMeme
	}
	return nil, ""
}

// generateMeme renders the quoted text next to the quoted sender's avatar
// and name. Every missing piece ends the attempt.
func (a *App) generateMeme(ctx context.Context, evt *types.MessageEvent) ([]byte, bool) {
	text := content.ReplyText(evt)
	if text == "" {
		return nil, false
	}
	senderID := content.ReplySenderID(evt)
	if senderID == "" {
		return nil, false
	}

	avatar, ok := a.identity.Avatar(ctx, senderID)
	if !ok {
		return nil, false
	}

	// A sender id that is not a number resolves to the unknown name.
	uid, _ := strconv.ParseInt(senderID, 10, 64)
	name := a.identity.Name(ctx, evt.GroupID, uid)

	return a.renderer.Render(ctx, types.RenderRequest{
		Images: [][]byte{avatar},
		Texts:  []string{text},
		Args:   map[string]any{"name": name},
	})
}

// hydrate fills in the quoted message. OneBot reply segments only carry the
// quoted message id. evt itself is left untouched.
func (a *App) hydrate(ctx context.Context, evt *types.MessageEvent) *types.MessageEvent {
	id := evt.ReplySegmentID()
	if id == "" || evt.Reply != nil || a.bot == nil {
		return evt
	}

	reply, err := a.bot.GetMsg(ctx, id)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("reply_id", id).Msg("failed to fetch quoted message")
		return evt
	}
	hydrated := *evt
	hydrated.Reply = reply
	return &hydrated
}

func (a *App) reply(ctx context.Context, log zerolog.Logger, groupID int64, text string) {
	if err := a.bot.SendGroupMsg(ctx, groupID, text); err != nil {
		log.Error().Err(err).Str("text", text).Msg("failed to send reply")
	}
}

// History lists recorded uploads as a JSON result. A nil filter matches
// everything.
func (a *App) History(groupID *int64, albumName *string, since *time.Time, limit, page int) string {
	uploads, err := a.store.ListUploads(store.ListUploadsParams{
		GroupID:   groupID,
		AlbumName: albumName,
		Since:     since,
		Limit:     limit,
		Page:      page,
	})
	if err != nil {
		return output.Error(err)
	}

	return output.Success(uploads)
}

// Albums lists the albums a group has uploaded to as a JSON result.
func (a *App) Albums(groupID int64) string {
	albums, err := a.store.ListAlbums(groupID)
	if err != nil {
		return output.Error(err)
	}

	return output.Success(albums)
}
