// Package identity resolves what a user looks like: their avatar image and
// the name they go by in a group.
package identity

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vicentereig/qunalbum/internal/onebot"
)

// UnknownName is returned when no name can be found for a user.
const UnknownName = "unknown"

const avatarSize = "640"

// Directory is the part of the OneBot client used for name lookups.
type Directory interface {
	GetGroupMemberInfo(ctx context.Context, groupID, userID int64) (onebot.MemberInfo, error)
	GetStrangerInfo(ctx context.Context, userID int64) (onebot.StrangerInfo, error)
}

type Resolver struct {
	avatarURL string
	timeout   time.Duration
	http      *http.Client
	directory Directory
	randomID  func() string
	log       zerolog.Logger
}

func NewResolver(avatarURL string, timeout time.Duration, directory Directory, log zerolog.Logger) *Resolver {
	return &Resolver{
		avatarURL: avatarURL,
		timeout:   timeout,
		http:      &http.Client{},
		directory: directory,
		randomID:  randomUserID,
		log:       log.With().Str("component", "identity").Logger(),
	}
}

// Avatar downloads the avatar of userID. Any failure is logged and reported
// as false.
func (r *Resolver) Avatar(ctx context.Context, userID string) ([]byte, bool) {
	// The CDN only knows numeric ids; anything else gets a random one.
	if !isNumeric(userID) {
		fallback := r.randomID()
		r.log.Debug().Str("user_id", userID).Str("fallback", fallback).Msg("non-numeric user id, using random avatar")
		userID = fallback
	}

	data, err := r.fetchAvatar(ctx, userID)
	if err != nil {
		r.log.Error().Err(err).Str("user_id", userID).Msg("failed to download avatar")
		return nil, false
	}
	return data, true
}

func (r *Resolver) AvatarURL(userID string) string {
	q := url.Values{}
	q.Set("dst_uin", userID)
	q.Set("spec", avatarSize)
	return r.avatarURL + "?" + q.Encode()
}

func (r *Resolver) fetchAvatar(ctx context.Context, userID string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.AvatarURL(userID), nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("avatar CDN returned http status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read avatar: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("avatar CDN returned an empty body")
	}
	return data, nil
}

// Name returns the name userID goes by: the group card, then the group
// nickname, then the global nickname. UnknownName is the fallback for user 0
// and for users no lookup knows about.
func (r *Resolver) Name(ctx context.Context, groupID, userID int64) string {
	if userID == 0 {
		return UnknownName
	}

	if groupID != 0 && r.directory != nil {
		info, err := r.directory.GetGroupMemberInfo(ctx, groupID, userID)
		if err != nil {
			r.log.Warn().Err(err).Int64("group_id", groupID).Int64("user_id", userID).Msg("group member lookup failed")
		} else if name := bestMemberName(info); name != "" {
			return name
		}
	}

	if r.directory != nil {
		info, err := r.directory.GetStrangerInfo(ctx, userID)
		if err != nil {
			r.log.Warn().Err(err).Int64("user_id", userID).Msg("stranger lookup failed")
		} else if name := strings.TrimSpace(info.Nickname); name != "" {
			return name
		}
	}

	return UnknownName
}

func bestMemberName(info onebot.MemberInfo) string {
	if name := strings.TrimSpace(info.Card); name != "" {
		return name
	}
	return strings.TrimSpace(info.Nickname)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func randomUserID() string {
	const digits = "0123456789"
	b := make([]byte, 9)
	for i := range b {
		b[i] = digits[rand.Intn(len(digits))]
	}
	return string(b)
}
