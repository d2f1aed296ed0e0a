package album

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/vicentereig/qunalbum/internal/types"
)

var ErrAlbumNotFound = errors.New("album not found")

// API is the part of the OneBot client that manages group albums.
type API interface {
	GetQunAlbumList(ctx context.Context, groupID int64) ([]types.Album, error)
	UploadImageToQunAlbum(ctx context.Context, groupID int64, albumID, albumName, file string) error
}

type Uploader struct {
	api       API
	dir       string
	saveImage bool
	now       func() time.Time
	log       zerolog.Logger
}

// Result describes a finished upload.
type Result struct {
	Album    types.Album
	Path     string
	Size     int
	Retained bool
}

func NewUploader(api API, dir string, saveImage bool, log zerolog.Logger) *Uploader {
	return &Uploader{
		api:       api,
		dir:       dir,
		saveImage: saveImage,
		now:       time.Now,
		log:       log.With().Str("component", "album").Logger(),
	}
}

// ResolveAlbum finds the album called name in the group, or the group's
// first album when name is empty.
func (u *Uploader) ResolveAlbum(ctx context.Context, groupID int64, name string) (types.Album, error) {
	albums, err := u.api.GetQunAlbumList(ctx, groupID)
	if err != nil {
		return types.Album{}, fmt.Errorf("failed to list albums: %w", err)
	}
	if len(albums) == 0 {
		return types.Album{}, ErrAlbumNotFound
	}
	if name == "" {
		return albums[0], nil
	}
	for _, a := range albums {
		if a.Name == name {
			return a, nil
		}
	}
	return types.Album{}, ErrAlbumNotFound
}

// Upload writes image to the upload directory and sends it to the album.
// The album is resolved before anything touches the disk, so a missing album
// leaves no file behind. Without save_image the local file is removed once
// the upload call returns.
func (u *Uploader) Upload(ctx context.Context, groupID int64, albumName string, image []byte) (Result, error) {
	if len(image) == 0 {
		return Result{}, errors.New("no image to upload")
	}

	album, err := u.ResolveAlbum(ctx, groupID, albumName)
	if err != nil {
		return Result{}, err
	}

	path, err := u.persist(groupID, image)
	if err != nil {
		return Result{}, err
	}
	if !u.saveImage {
		defer func() {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				u.log.Warn().Err(err).Str("path", path).Msg("failed to remove local copy")
			}
		}()
	}

	if err := u.api.UploadImageToQunAlbum(ctx, groupID, album.ID, album.Name, path); err != nil {
		return Result{}, fmt.Errorf("failed to upload to album %s: %w", album.Name, err)
	}

	u.log.Info().Int64("group_id", groupID).Str("album", album.Name).Str("path", path).Msg("uploaded to group album")
	return Result{
		Album:    album,
		Path:     path,
		Size:     len(image),
		Retained: u.saveImage,
	}, nil
}

// FileName is <group_id>_<YYYYMMDD_HHMMSS>.png.
func FileName(groupID int64, t time.Time) string {
	return strconv.FormatInt(groupID, 10) + "_" + t.Format("20060102_150405") + ".png"
}

func (u *Uploader) persist(groupID int64, image []byte) (string, error) {
	if err := os.MkdirAll(u.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}
	path, err := filepath.Abs(filepath.Join(u.dir, FileName(groupID, u.now())))
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, image, 0644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return path, nil
}
