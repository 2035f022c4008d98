package services

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	ytapi "github.com/hightemp/youtube-transcript-api-go/api"
	yt "github.com/kkdai/youtube/v2"

	"utes-backend/internal/apperr"
	"utes-backend/internal/models"
)

// RawVideoInfo is the tagged-variant provider response: exactly one of the
// two shapes is populated. Primary comes from the player API, Fallback from
// a watch-page scrape.
type RawVideoInfo struct {
	Primary  *PrimaryInfo
	Fallback *FallbackInfo
}

type PrimaryInfo struct {
	Title           string
	Author          string
	DurationSeconds int
	Thumbnail       string
	Description     string
}

type FallbackInfo struct {
	Title           string
	Channel         string
	DurationSeconds int
	Description     string
}

// VideoInfoClient is the narrow surface of the external video-info provider.
// One instance is capped at a lifetime; a transient failure forces the
// service to recreate it before the next attempt.
type VideoInfoClient interface {
	Info(ctx context.Context, videoID string) (*RawVideoInfo, error)
	Transcript(ctx context.Context, videoID string) ([]models.TranscriptSegment, error)
	// HasCaptionTracks reports whether the video advertises any caption
	// tracks at all. Used to distinguish "legitimately no captions" from a
	// fetch failure.
	HasCaptionTracks(ctx context.Context, videoID string) (bool, error)
}

type ClientFactory func() VideoInfoClient

type clientHolder struct {
	client    VideoInfoClient
	createdAt time.Time
}

type YouTubeService struct {
	factory ClientFactory
	ttl     time.Duration
	now     func() time.Time
	sleep   func(time.Duration)

	mu     sync.Mutex
	holder *clientHolder
}

const resolveAttempts = 3

func NewYouTubeService(ttl time.Duration) *YouTubeService {
	return newYouTubeService(newInnertubeClient, ttl, time.Now, time.Sleep)
}

func newYouTubeService(factory ClientFactory, ttl time.Duration, now func() time.Time, sleep func(time.Duration)) *YouTubeService {
	return &YouTubeService{
		factory: factory,
		ttl:     ttl,
		now:     now,
		sleep:   sleep,
	}
}

// client returns the shared instance, recreating it past its lifetime.
func (s *YouTubeService) client() VideoInfoClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.holder == nil || s.now().Sub(s.holder.createdAt) > s.ttl {
		s.holder = &clientHolder{client: s.factory(), createdAt: s.now()}
	}
	return s.holder.client
}

// invalidate drops the shared instance so the next attempt gets a fresh one.
// A failed instance is not assumed to heal itself.
func (s *YouTubeService) invalidate() {
	s.mu.Lock()
	s.holder = nil
	s.mu.Unlock()
}

// transientFailure reports whether an info-fetch failure is worth retrying
// with a fresh client: HTTP 400 / precondition responses and known parser
// incompatibilities. Everything else propagates immediately.
func transientFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "400") ||
		strings.Contains(msg, "precondition") ||
		strings.Contains(msg, "cipher") ||
		strings.Contains(msg, "unable to parse") ||
		strings.Contains(msg, "extract")
}

func (s *YouTubeService) infoWithRetry(ctx context.Context, videoID string) (*RawVideoInfo, error) {
	var lastErr error
	for attempt := 1; attempt <= resolveAttempts; attempt++ {
		info, err := s.client().Info(ctx, videoID)
		if err == nil {
			return info, nil
		}
		if !transientFailure(err) {
			return nil, err
		}
		lastErr = err
		log.Printf("[YouTube] transient failure fetching info for %s (attempt %d/%d): %v", videoID, attempt, resolveAttempts, err)
		s.invalidate()
		if attempt < resolveAttempts {
			// Exponential backoff: 1s, 2s, 4s
			s.sleep(time.Duration(1<<(attempt-1)) * time.Second)
		}
	}
	return nil, fmt.Errorf("video info fetch failed after %d attempts: %w", resolveAttempts, lastErr)
}

// GetMetadata fetches and normalizes metadata for a video URL. Missing
// fields degrade to sentinel defaults; the call fails only when every
// extractable field is simultaneously sentinel.
func (s *YouTubeService) GetMetadata(ctx context.Context, url string) (*models.VideoMetadata, error) {
	videoID := ExtractVideoID(url)
	if videoID == "" {
		return nil, apperr.ErrInvalidURL
	}

	info, err := s.infoWithRetry(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrMetadataUnavailable, err)
	}

	return buildMetadata(videoID, info)
}

func buildMetadata(videoID string, info *RawVideoInfo) (*models.VideoMetadata, error) {
	title := "Unknown Title"
	channel := "Unknown Channel"
	durationSec := 0
	description := ""
	thumbnail := fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", videoID)

	switch {
	case info != nil && info.Primary != nil:
		p := info.Primary
		if t := strings.TrimSpace(p.Title); t != "" {
			title = t
		}
		if c := strings.TrimSpace(p.Author); c != "" {
			channel = c
		}
		durationSec = p.DurationSeconds
		description = p.Description
		if p.Thumbnail != "" {
			thumbnail = p.Thumbnail
		}
	case info != nil && info.Fallback != nil:
		f := info.Fallback
		if t := strings.TrimSpace(f.Title); t != "" {
			title = t
		}
		if c := strings.TrimSpace(f.Channel); c != "" {
			channel = c
		}
		durationSec = f.DurationSeconds
		description = f.Description
	default:
		return nil, fmt.Errorf("%w: provider returned no recognizable shape", apperr.ErrMetadataUnavailable)
	}

	if title == "Unknown Title" && channel == "Unknown Channel" && durationSec == 0 {
		return nil, fmt.Errorf("%w: all metadata fields empty", apperr.ErrMetadataUnavailable)
	}

	return &models.VideoMetadata{
		VideoID:     videoID,
		Title:       title,
		Channel:     channel,
		Thumbnail:   thumbnail,
		Duration:    FormatDuration(durationSec),
		Description: description,
	}, nil
}

// GetTranscript fetches the timed transcript for a video URL. A video with
// no caption tracks yields ErrTranscriptUnavailable, distinct from a hard
// fetch error.
func (s *YouTubeService) GetTranscript(ctx context.Context, url string) (*models.Transcript, error) {
	videoID := ExtractVideoID(url)
	if videoID == "" {
		return nil, apperr.ErrInvalidURL
	}

	client := s.client()
	segments, err := client.Transcript(ctx, videoID)
	if err != nil {
		has, capErr := client.HasCaptionTracks(ctx, videoID)
		if capErr == nil && !has {
			return nil, apperr.ErrTranscriptUnavailable
		}
		return nil, fmt.Errorf("transcript fetch failed: %w", err)
	}

	// Zero segments is treated as absent, not an empty-but-valid transcript.
	if len(segments) == 0 {
		return nil, apperr.ErrTranscriptUnavailable
	}

	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if t := strings.TrimSpace(seg.Text); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return nil, apperr.ErrTranscriptUnavailable
	}

	return &models.Transcript{
		Text:     strings.Join(parts, " "),
		Segments: segments,
	}, nil
}

// Resolve fetches metadata and transcript for a URL. The two fetches are
// logically independent: a legitimately captionless video resolves with a
// nil transcript, while a metadata failure fails the whole call.
func (s *YouTubeService) Resolve(ctx context.Context, url string) (*models.ResolveResult, error) {
	metadata, err := s.GetMetadata(ctx, url)
	if err != nil {
		return nil, err
	}

	transcript, err := s.GetTranscript(ctx, url)
	if err != nil && !errors.Is(err, apperr.ErrTranscriptUnavailable) {
		return nil, err
	}

	return &models.ResolveResult{Metadata: metadata, Transcript: transcript}, nil
}

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`youtube\.com/watch\?(?:[^&\s]*&)*v=([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtu\.be/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/embed/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`^([a-zA-Z0-9_-]{11})$`),
}

// ExtractVideoID pulls the 11-character video id out of the known URL
// shapes, or a bare id. Returns "" when nothing matches.
func ExtractVideoID(url string) string {
	url = strings.TrimSpace(url)
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(url); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}

// FormatDuration renders integer seconds as H:MM:SS when at least an hour,
// else M:SS, zero-padded.
func FormatDuration(seconds int) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

// ─── Real provider client ───

type innertubeClient struct {
	yt         *yt.Client
	transcript *ytapi.YouTubeTranscriptApi
	httpClient *http.Client
}

func newInnertubeClient() VideoInfoClient {
	return &innertubeClient{
		yt:         &yt.Client{},
		transcript: ytapi.NewYouTubeTranscriptApi(),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *innertubeClient) Info(ctx context.Context, videoID string) (*RawVideoInfo, error) {
	video, err := c.yt.GetVideoContext(ctx, videoID)
	if err == nil {
		p := &PrimaryInfo{
			Title:           video.Title,
			Author:          video.Author,
			DurationSeconds: int(video.Duration / time.Second),
			Description:     video.Description,
		}
		if len(video.Thumbnails) > 0 {
			p.Thumbnail = video.Thumbnails[len(video.Thumbnails)-1].URL
		}
		return &RawVideoInfo{Primary: p}, nil
	}

	// Primary shape failed to decode; try the watch-page shape before
	// reporting the original error.
	fallback, pageErr := c.scrapeWatchPage(ctx, videoID)
	if pageErr != nil {
		return nil, err
	}
	return &RawVideoInfo{Fallback: fallback}, nil
}

func (c *innertubeClient) scrapeWatchPage(ctx context.Context, videoID string) (*FallbackInfo, error) {
	pageHTML, err := c.fetchWatchPage(ctx, videoID)
	if err != nil {
		return nil, err
	}

	info := &FallbackInfo{}

	titleRe := regexp.MustCompile(`<title>(.*?) - YouTube</title>`)
	if m := titleRe.FindStringSubmatch(pageHTML); len(m) > 1 {
		info.Title = html.UnescapeString(m[1])
	}

	channelRe := regexp.MustCompile(`"ownerChannelName":"(.*?)"`)
	if m := channelRe.FindStringSubmatch(pageHTML); len(m) > 1 {
		info.Channel = m[1]
	}

	durRe := regexp.MustCompile(`"lengthSeconds":"(\d+)"`)
	if m := durRe.FindStringSubmatch(pageHTML); len(m) > 1 {
		info.DurationSeconds, _ = strconv.Atoi(m[1])
	}

	descRe := regexp.MustCompile(`<meta name="description" content="(.*?)">`)
	if m := descRe.FindStringSubmatch(pageHTML); len(m) > 1 {
		info.Description = html.UnescapeString(m[1])
	}

	if info.Title == "" && info.Channel == "" && info.DurationSeconds == 0 {
		return nil, fmt.Errorf("watch page yielded no metadata fields")
	}

	return info, nil
}

func (c *innertubeClient) fetchWatchPage(ctx context.Context, videoID string) (string, error) {
	pageURL := fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch YouTube page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read YouTube page: %w", err)
	}
	return string(body), nil
}

type timedTextXML struct {
	XMLName xml.Name  `xml:"transcript"`
	Texts   []textXML `xml:"text"`
}

type textXML struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Text  string `xml:",chardata"`
}

func (c *innertubeClient) Transcript(ctx context.Context, videoID string) ([]models.TranscriptSegment, error) {
	// Timedtext carries per-segment timing, so it is the primary path.
	segments, err := c.transcriptViaTimedText(ctx, videoID)
	if err == nil {
		return segments, nil
	}

	// Transcript API fallback: text only, no timing.
	transcript, apiErr := c.transcript.GetTranscript(videoID, []string{"en", "en-US", "en-GB"})
	if apiErr != nil {
		transcript, apiErr = c.transcript.GetTranscript(videoID, nil)
	}
	if apiErr != nil {
		return nil, fmt.Errorf("timedtext failed (%v) and transcript API failed (%v)", err, apiErr)
	}

	var out []models.TranscriptSegment
	for _, entry := range transcript.Entries {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		out = append(out, models.TranscriptSegment{Text: text})
	}
	return out, nil
}

func (c *innertubeClient) transcriptViaTimedText(ctx context.Context, videoID string) ([]models.TranscriptSegment, error) {
	pageHTML, err := c.fetchWatchPage(ctx, videoID)
	if err != nil {
		return nil, err
	}

	captionURL, err := extractCaptionURL(pageHTML)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, captionURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch captions: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read captions: %w", err)
	}

	return parseCaptionsXML(body)
}

func (c *innertubeClient) HasCaptionTracks(ctx context.Context, videoID string) (bool, error) {
	pageHTML, err := c.fetchWatchPage(ctx, videoID)
	if err != nil {
		return false, err
	}
	_, err = extractCaptionURL(pageHTML)
	return err == nil, nil
}

func extractCaptionURL(pageHTML string) (string, error) {
	re := regexp.MustCompile(`"captionTracks"\s*:\s*\[(.*?)\],\s*"`)
	matches := re.FindStringSubmatch(pageHTML)
	if len(matches) < 2 {
		return "", fmt.Errorf("no captions available for this video")
	}

	reURL := regexp.MustCompile(`"baseUrl"\s*:\s*"(.*?)"`)
	urlMatches := reURL.FindStringSubmatch(matches[1])
	if len(urlMatches) < 2 {
		return "", fmt.Errorf("caption track found but baseUrl missing")
	}

	u := urlMatches[1]
	u = strings.ReplaceAll(u, `\u0026`, "&")
	u = strings.ReplaceAll(u, `\/`, "/")
	return u, nil
}

func parseCaptionsXML(data []byte) ([]models.TranscriptSegment, error) {
	var tt timedTextXML
	if err := xml.Unmarshal(data, &tt); err != nil {
		return nil, fmt.Errorf("failed to parse captions XML: %w", err)
	}

	var segments []models.TranscriptSegment
	for _, t := range tt.Texts {
		text := strings.TrimSpace(html.UnescapeString(t.Text))
		if text == "" {
			continue
		}
		start, _ := strconv.ParseFloat(t.Start, 64)
		dur, _ := strconv.ParseFloat(t.Dur, 64)
		segments = append(segments, models.TranscriptSegment{
			Text:            text,
			StartSeconds:    start,
			DurationSeconds: dur,
		})
	}
	return segments, nil
}
