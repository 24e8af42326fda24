// Package images sources a topic image for the deck: Unsplash search with a
// locally generated placeholder as fallback, staged into the workspace assets
// directory.
package images

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"slidesmith/internal/collab/llm"
	"slidesmith/internal/workspace"
)

// Config tunes the fetcher.
type Config struct {
	// AccessKey is the Unsplash API key. Empty means placeholder-only.
	AccessKey string
	BaseURL   string
	Timeout   time.Duration
	// MaxDownloadBytes caps the downloaded image size.
	MaxDownloadBytes int64
}

// Fetcher finds and stages one topic image. It implements llm.AssetFetcher.
type Fetcher struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a Fetcher. A nil logger is replaced with a no-op logger.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.unsplash.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxDownloadBytes <= 0 {
		cfg.MaxDownloadBytes = 10 << 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type searchResult struct {
	ID             string `json:"id"`
	Description    string `json:"description"`
	AltDescription string `json:"alt_description"`
	URLs           struct {
		Regular string `json:"regular"`
	} `json:"urls"`
	User struct {
		Name string `json:"name"`
	} `json:"user"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

// Fetch stages one image for the topic. Search or download failures fall back
// to a generated placeholder rather than failing the plan.
func (f *Fetcher) Fetch(ctx context.Context, topic string, ws *workspace.Workspace) (*llm.Asset, error) {
	if f.cfg.AccessKey != "" {
		asset, err := f.fetchFromUnsplash(ctx, topic, ws)
		if err == nil {
			return asset, nil
		}
		f.logger.Warn("image search failed, generating placeholder",
			zap.String("topic", topic), zap.Error(err))
	}
	return f.placeholder(topic, ws)
}

func (f *Fetcher) fetchFromUnsplash(ctx context.Context, topic string, ws *workspace.Workspace) (*llm.Asset, error) {
	q := url.Values{}
	q.Set("query", topic)
	q.Set("per_page", "10")
	q.Set("orientation", "landscape")
	q.Set("order_by", "relevance")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.BaseURL+"/search/photos?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Client-ID "+f.cfg.AccessKey)
	req.Header.Set("Accept-Version", "v1")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image search returned status %d", resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	if len(sr.Results) == 0 {
		return nil, fmt.Errorf("no images found for %q", topic)
	}

	best := sr.Results[0]
	if best.URLs.Regular == "" {
		return nil, fmt.Errorf("search result has no downloadable url")
	}

	dest := ws.AssetPath(fmt.Sprintf("%s_%s.jpg", slug(topic), best.ID))
	if err := f.download(ctx, best.URLs.Regular, dest); err != nil {
		return nil, err
	}

	desc := best.Description
	if desc == "" {
		desc = best.AltDescription
	}
	if desc == "" {
		desc = "image for " + topic
	}
	if best.User.Name != "" {
		desc += ", photo by " + best.User.Name
	}

	f.logger.Info("image downloaded",
		zap.String("topic", topic),
		zap.String("path", dest),
		zap.String("id", best.ID))
	return &llm.Asset{LocalPath: dest, Description: desc}, nil
}

func (f *Fetcher) download(ctx context.Context, imageURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("image download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("image download returned status %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, io.LimitReader(resp.Body, f.cfg.MaxDownloadBytes)); err != nil {
		os.Remove(dest)
		return fmt.Errorf("failed to write image: %w", err)
	}
	return nil
}

// placeholderPalette holds the solid fills placeholders are drawn in; the
// topic hash picks one so the same topic always gets the same color.
var placeholderPalette = []color.RGBA{
	{R: 0x34, G: 0x98, B: 0xDB, A: 0xFF}, // blue
	{R: 0x2E, G: 0xCC, B: 0x71, A: 0xFF}, // green
	{R: 0x9B, G: 0x59, B: 0xB6, A: 0xFF}, // purple
	{R: 0xE7, G: 0x4C, B: 0x3C, A: 0xFF}, // red
	{R: 0xF3, G: 0x9C, B: 0x12, A: 0xFF}, // orange
}

func (f *Fetcher) placeholder(topic string, ws *workspace.Workspace) (*llm.Asset, error) {
	h := fnv.New32a()
	h.Write([]byte(topic))
	fill := placeholderPalette[int(h.Sum32())%len(placeholderPalette)]

	img := image.NewRGBA(image.Rect(0, 0, 800, 600))
	for y := 0; y < 600; y++ {
		for x := 0; x < 800; x++ {
			img.SetRGBA(x, y, fill)
		}
	}

	dest := ws.AssetPath("placeholder_" + uuid.NewString()[:8] + ".png")
	out, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to create placeholder: %w", err)
	}
	defer out.Close()

	if err := png.Encode(out, img); err != nil {
		os.Remove(dest)
		return nil, fmt.Errorf("failed to encode placeholder: %w", err)
	}

	f.logger.Info("placeholder image generated", zap.String("topic", topic), zap.String("path", dest))
	return &llm.Asset{
		LocalPath:     dest,
		Description:   "placeholder image for " + topic,
		IsPlaceholder: true,
	}, nil
}

func slug(topic string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(topic) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('_')
		}
		if b.Len() >= 24 {
			break
		}
	}
	if b.Len() == 0 {
		return "topic_" + strconv.Itoa(len(topic))
	}
	return b.String()
}
