package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultAttribution 是 manifest 条目缺少提交者时的默认署名。
const DefaultAttribution = "Usuario"

// ProbeCandidates 是图集没有 manifest 时按顺序探测的文件名列表。
var ProbeCandidates = []string{
	"1.jpg", "2.jpg", "3.jpg", "4.jpg", "5.jpg",
	"1.png", "2.png", "3.png", "4.png", "5.png",
	"meme.jpg", "meme.png", "image.jpg", "image.png",
}

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// MonthName 返回 m 的西班牙语小写月份名。
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return spanishMonths[m-1]
}

// DayHeading 返回图集页面标题：预告日为预告语，其余为 "Memes del d de <mes>"。
func DayHeading(month time.Month, galleryID int) string {
	name := MonthName(month)
	if galleryID == PreviewGalleryID {
		return capitalize(name) + " se acerca"
	}
	return fmt.Sprintf("Memes del %d de %s", galleryID, name)
}

// DayLabel 返回日期列表中使用的简短标签。
func DayLabel(month time.Month, galleryID int) string {
	if galleryID == PreviewGalleryID {
		return DayHeading(month, galleryID)
	}
	return fmt.Sprintf("%d de %s", galleryID, MonthName(month))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ResolutionKind 表示图集由哪种策略得到。
type ResolutionKind int

const (
	// ResolutionManifest 表示找到 manifest 并直接采用。
	ResolutionManifest ResolutionKind = iota
	// ResolutionProbe 表示没有 manifest，改为逐个探测候选文件。
	ResolutionProbe
	// ResolutionFailed 表示发生了意外错误，Items 为空。
	ResolutionFailed
)

func (k ResolutionKind) String() string {
	switch k {
	case ResolutionManifest:
		return "manifest"
	case ResolutionProbe:
		return "probe"
	default:
		return "failed"
	}
}

// MarshalJSON 以名称形式编码。
func (k ResolutionKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// GalleryItem 是图集中的一个 meme，ID 为从 1 开始的序号。
type GalleryItem struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	MediaRef    string `json:"imageUrl"`
	Attribution string `json:"submittedBy"`
	Verified    bool   `json:"verified"`
	Filename    string `json:"filename"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
}

// Resolution 是一次图集解析的结果。
type Resolution struct {
	GalleryID int            `json:"galleryId"`
	Kind      ResolutionKind `json:"kind"`
	Items     []GalleryItem  `json:"items"`
}

// Empty 判断图集是否为空。
func (r Resolution) Empty() bool {
	return len(r.Items) == 0
}

// Item 按从 1 开始的 id 查找条目。
func (r Resolution) Item(id int) (GalleryItem, bool) {
	if id < 1 || id > len(r.Items) {
		return GalleryItem{}, false
	}
	return r.Items[id-1], true
}

// ManifestEntry 是 manifest.json 中的一条记录。
type ManifestEntry struct {
	Filename    string `json:"filename"`
	Title       string `json:"title,omitempty"`
	SubmittedBy string `json:"submittedBy,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
}

// Manifest 对应 <galleryID>/manifest.json 的内容。
type Manifest struct {
	Memes []ManifestEntry `json:"memes"`
}

// ParseManifest 解析 manifest，缺少 "memes" 列表视为格式错误。
func ParseManifest(data []byte) (Manifest, error) {
	var raw struct {
		Memes *[]ManifestEntry `json:"memes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	if raw.Memes == nil {
		return Manifest{}, errors.New("decode manifest: missing memes list")
	}
	return Manifest{Memes: *raw.Memes}, nil
}

// GalleryLoader 负责解析图集，线上实现为 GalleryResolver。
type GalleryLoader interface {
	Resolve(ctx context.Context, galleryID int) Resolution
}

// GalleryResolver 把图集标识解析为有序的条目列表。
// 各次调用相互独立，除 source 外不共享状态。
type GalleryResolver struct {
	source      GallerySource
	month       time.Month
	concurrency int
}

// NewGalleryResolver 创建解析器，month 用于生成默认标题。
func NewGalleryResolver(source GallerySource, month time.Month, concurrency int) *GalleryResolver {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &GalleryResolver{source: source, month: month, concurrency: concurrency}
}

// Source 返回底层的图集来源。
func (r *GalleryResolver) Source() GallerySource {
	return r.source
}

// DefaultTitle 是来源数据缺少标题时使用的标题。
func (r *GalleryResolver) DefaultTitle(galleryID int) string {
	month := MonthName(r.month)
	if galleryID == PreviewGalleryID {
		return fmt.Sprintf("Meme de %s se acerca", capitalize(month))
	}
	return fmt.Sprintf("Meme del %d de %s", galleryID, month)
}

// Resolve 优先读取 manifest，缺失时回退为探测。该方法不会返回错误：
// 意外错误只记录日志，并返回空的 ResolutionFailed 结果。
func (r *GalleryResolver) Resolve(ctx context.Context, galleryID int) Resolution {
	items, kind, err := r.resolve(ctx, galleryID)
	if err != nil {
		log.Error().Err(err).Int("gallery", galleryID).Msg("error loading memes for gallery")
		return Resolution{GalleryID: galleryID, Kind: ResolutionFailed, Items: []GalleryItem{}}
	}
	log.Debug().Int("gallery", galleryID).Str("kind", kind.String()).Int("items", len(items)).Msg("gallery resolved")
	return Resolution{GalleryID: galleryID, Kind: kind, Items: items}
}

// ResolveGallery 只返回 Resolve 的条目列表。
func (r *GalleryResolver) ResolveGallery(ctx context.Context, galleryID int) []GalleryItem {
	return r.Resolve(ctx, galleryID).Items
}

func (r *GalleryResolver) resolve(ctx context.Context, galleryID int) ([]GalleryItem, ResolutionKind, error) {
	data, err := r.source.ReadManifest(ctx, galleryID)
	switch {
	case err == nil:
		items, err := r.fromManifest(galleryID, data)
		if err != nil {
			return nil, ResolutionFailed, err
		}
		return items, ResolutionManifest, nil
	case errors.Is(err, ErrManifestNotFound):
		items, err := r.probe(ctx, galleryID)
		if err != nil {
			return nil, ResolutionFailed, err
		}
		return items, ResolutionProbe, nil
	default:
		return nil, ResolutionFailed, err
	}
}

func (r *GalleryResolver) fromManifest(galleryID int, data []byte) ([]GalleryItem, error) {
	manifest, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("gallery %d: %w", galleryID, err)
	}

	items := make([]GalleryItem, 0, len(manifest.Memes))
	for _, entry := range manifest.Memes {
		filename := strings.TrimSpace(entry.Filename)
		if filename == "" {
			log.Warn().Int("gallery", galleryID).Msg("manifest entry without filename skipped")
			continue
		}
		item := r.newItem(galleryID, len(items)+1, filename)
		if title := strings.TrimSpace(entry.Title); title != "" {
			item.Title = title
		}
		if by := strings.TrimSpace(entry.SubmittedBy); by != "" {
			item.Attribution = by
		}
		item.Width = entry.Width
		item.Height = entry.Height
		items = append(items, item)
	}
	return items, nil
}

// probe 并发探测所有候选文件，命中结果按候选顺序追加。
func (r *GalleryResolver) probe(ctx context.Context, galleryID int) ([]GalleryItem, error) {
	found := make([]bool, len(ProbeCandidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, name := range ProbeCandidates {
		g.Go(func() error {
			ok, err := r.source.Exists(gctx, galleryID, name)
			if err != nil {
				log.Debug().Err(err).Int("gallery", galleryID).Str("candidate", name).Msg("probe failed, skipping")
				return nil
			}
			found[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := make([]GalleryItem, 0, len(ProbeCandidates))
	for i, name := range ProbeCandidates {
		if found[i] {
			items = append(items, r.newItem(galleryID, len(items)+1, name))
		}
	}
	return items, nil
}

func (r *GalleryResolver) newItem(galleryID, id int, filename string) GalleryItem {
	return GalleryItem{
		ID:          id,
		Title:       r.DefaultTitle(galleryID),
		MediaRef:    r.source.MediaRef(galleryID, filename),
		Attribution: DefaultAttribution,
		Verified:    true,
		Filename:    filename,
	}
}
