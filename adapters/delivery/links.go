package invoicedelivery

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-invoice/invoice"
	"github.com/google/uuid"
)

// Publisher stores artifacts and produces links to them.
type Publisher struct {
	Store invoice.ArtifactStore
	// BaseURL serves unsigned links as <BaseURL>/<key> when the store
	// cannot sign.
	BaseURL string
	TTL     time.Duration
	Now     func() time.Time
	KeyFunc func(artifact invoice.ExportArtifact) string
}

// Link is a published artifact.
type Link struct {
	Key       string
	URL       string
	ExpiresAt time.Time
	Signed    bool
}

// Publish stores the artifact and returns a link. signed forces a signed
// URL; otherwise a signed URL is preferred and BaseURL is the fallback.
func (p Publisher) Publish(ctx context.Context, artifact invoice.ExportArtifact, signed bool) (Link, error) {
	if p.Store == nil {
		return Link{}, invoice.NewError(invoice.KindNotImpl, "artifact store not configured", nil)
	}
	ttl := p.TTL
	if ttl <= 0 {
		ttl = DefaultLinkTTL
	}
	now := nowOr(p.Now)
	key := p.key(artifact)

	ref, err := p.Store.Put(ctx, key, bytes.NewReader(artifact.Data), invoice.ArtifactMeta{
		ContentType: string(artifact.Kind),
		Filename:    artifact.Filename,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	})
	if err != nil {
		return Link{}, err
	}

	link := Link{Key: ref.Key, ExpiresAt: now.Add(ttl)}
	signedURL, err := p.Store.SignedURL(ctx, ref.Key, ttl)
	switch {
	case err == nil:
		link.URL = signedURL
		link.Signed = true
		return link, nil
	case signed || invoice.KindFromError(err) != invoice.KindNotImpl:
		return Link{}, err
	}

	if strings.TrimSpace(p.BaseURL) == "" {
		return Link{}, invoice.NewError(invoice.KindNotImpl, "no public artifact URL configured", nil)
	}
	link.URL = fmt.Sprintf("%s/%s", strings.TrimRight(p.BaseURL, "/"), invoice.EscapeArtifactKey(ref.Key))
	return link, nil
}

func (p Publisher) key(artifact invoice.ExportArtifact) string {
	if p.KeyFunc != nil {
		if key := p.KeyFunc(artifact); key != "" {
			return key
		}
	}
	filename := artifact.Filename
	if filename == "" {
		filename = "invoice." + artifact.Kind.Extension()
	}
	return uuid.NewString() + "/" + filename
}

