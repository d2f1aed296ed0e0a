// Package content extracts uploadable material from a message event: a
// directly attached image, or the quoted text and quoted sender used to
// synthesize one.
package content

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vicentereig/qunalbum/internal/types"
)

type SourceLoader interface {
	Load(ctx context.Context, src string) ([]byte, error)
}

// Candidate is one place an image may be loaded from.
type Candidate struct {
	// Origin is "reply" or "message".
	Origin string
	Source string
}

type Resolver struct {
	loader SourceLoader
	log    zerolog.Logger
}

func NewResolver(loader SourceLoader, log zerolog.Logger) *Resolver {
	return &Resolver{
		loader: loader,
		log:    log.With().Str("component", "content").Logger(),
	}
}

// Candidates lists image sources in resolution order: images of the quoted
// reply before images of the message itself, and for every image its URL
// before its file.
func Candidates(evt *types.MessageEvent) []Candidate {
	var out []Candidate
	if evt.Reply != nil {
		out = appendImageCandidates(out, "reply", evt.Reply.Segments)
	}
	return appendImageCandidates(out, "message", evt.Segments)
}

func appendImageCandidates(out []Candidate, origin string, segments []types.Segment) []Candidate {
	for _, seg := range segments {
		if seg.Type != types.SegmentImage {
			continue
		}
		if seg.URL != "" {
			out = append(out, Candidate{Origin: origin, Source: seg.URL})
		}
		if seg.File != "" {
			out = append(out, Candidate{Origin: origin, Source: seg.File})
		}
	}
	return out
}

// FirstImage returns the first candidate that loads. A load failure only
// moves on to the next candidate; no image at all is reported as false.
func (r *Resolver) FirstImage(ctx context.Context, evt *types.MessageEvent) ([]byte, bool) {
	for _, c := range Candidates(evt) {
		data, err := r.loader.Load(ctx, c.Source)
		if err != nil {
			r.log.Warn().Err(err).Str("origin", c.Origin).Str("source", truncate(c.Source)).Msg("image candidate failed")
			continue
		}
		if len(data) == 0 {
			continue
		}
		r.log.Debug().Str("origin", c.Origin).Int("bytes", len(data)).Msg("image resolved")
		return data, true
	}
	return nil, false
}

// ReplyText returns the last text segment of the quoted reply.
func ReplyText(evt *types.MessageEvent) string {
	if evt.Reply == nil {
		return ""
	}
	text := ""
	for _, seg := range evt.Reply.Segments {
		if seg.Type == types.SegmentText {
			text = seg.Text
		}
	}
	return text
}

// ReplySenderID returns the id of the quoted message's sender.
func ReplySenderID(evt *types.MessageEvent) string {
	if evt.Reply == nil {
		return ""
	}
	return evt.Reply.SenderID
}

// base64 payloads can be megabytes long.
func truncate(s string) string {
	if len(s) > 80 {
		return s[:77] + "..."
	}
	return s
}
