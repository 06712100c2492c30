package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ManifestFilename 是每个图集目录下的清单文件名。
const ManifestFilename = "manifest.json"

var (
	// ErrManifestNotFound 表示图集没有 manifest，需要改为探测。
	ErrManifestNotFound = errors.New("gallery manifest not found")
	// ErrAssetNotFound 表示来源中不存在该文件。
	ErrAssetNotFound = errors.New("gallery asset not found")
	// ErrInvalidFilename 拒绝可能越出图集目录的文件名。
	ErrInvalidFilename = errors.New("invalid gallery filename")
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// GallerySource 是只读的图集存储，每个图集标识对应一个目录。
type GallerySource interface {
	// ReadManifest 返回原始 manifest，不存在时返回 ErrManifestNotFound。
	ReadManifest(ctx context.Context, galleryID int) ([]byte, error)
	// Exists 只检查文件是否存在。
	Exists(ctx context.Context, galleryID int, filename string) (bool, error)
	// OpenAsset 打开文件内容并返回其 Content-Type。
	OpenAsset(ctx context.Context, galleryID int, filename string) (io.ReadCloser, string, error)
	// MediaRef 返回文件的公开地址或路径。
	MediaRef(galleryID int, filename string) string
}

// DefaultMediaPrefix 是本地图集文件的默认访问路径。
const DefaultMediaPrefix = "/memes"

// MediaPrefix 规范化本地图集的 URL 前缀，空值和 "/" 回退为 DefaultMediaPrefix。
// 路由挂载静态文件与 LocalSource 生成 MediaRef 都使用它，保证两者一致。
func MediaPrefix(urlPath string) string {
	prefix := "/" + strings.Trim(strings.TrimSpace(urlPath), "/")
	if prefix == "/" {
		return DefaultMediaPrefix
	}
	return prefix
}

func galleryDir(galleryID int) string {
	return strconv.Itoa(galleryID)
}

func validateFilename(filename string) error {
	name := strings.TrimSpace(filename)
	if name == "" || name == "." || name == ".." {
		return ErrInvalidFilename
	}
	if strings.ContainsAny(name, `/\`) {
		return ErrInvalidFilename
	}
	return nil
}

func contentTypeFor(filename string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// LocalSource 从本地目录（如 web/static/memes）读取图集。
type LocalSource struct {
	root      string
	urlPrefix string
}

// NewLocalSource 以 root 为根目录，文件通过 MediaPrefix(urlPrefix) 对外访问。
func NewLocalSource(root, urlPrefix string) *LocalSource {
	return &LocalSource{root: root, urlPrefix: MediaPrefix(urlPrefix)}
}

// Root 返回图集根目录。
func (s *LocalSource) Root() string {
	return s.root
}

func (s *LocalSource) ReadManifest(_ context.Context, galleryID int) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, galleryDir(galleryID), ManifestFilename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrManifestNotFound
		}
		return nil, fmt.Errorf("read manifest for gallery %d: %w", galleryID, err)
	}
	return data, nil
}

func (s *LocalSource) Exists(_ context.Context, galleryID int, filename string) (bool, error) {
	if err := validateFilename(filename); err != nil {
		return false, err
	}
	info, err := os.Stat(filepath.Join(s.root, galleryDir(galleryID), filename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

func (s *LocalSource) OpenAsset(_ context.Context, galleryID int, filename string) (io.ReadCloser, string, error) {
	if err := validateFilename(filename); err != nil {
		return nil, "", err
	}
	f, err := os.Open(filepath.Join(s.root, galleryDir(galleryID), filename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", ErrAssetNotFound
		}
		return nil, "", err
	}
	return f, contentTypeFor(filename), nil
}

func (s *LocalSource) MediaRef(galleryID int, filename string) string {
	return s.urlPrefix + "/" + galleryDir(galleryID) + "/" + url.PathEscape(filename)
}

// HTTPSource 从静态站点（如 https://cdn.example.com/memes）读取图集。
type HTTPSource struct {
	baseURL   string
	http      httpDoer
	userAgent string
}

// NewHTTPSource 创建以 baseURL 为根的来源。
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:      &http.Client{Timeout: timeout},
		userAgent: "memecal/1.0",
	}
}

// SetHTTPClient 替换 HTTP 客户端，主要面向测试场景。
func (s *HTTPSource) SetHTTPClient(client httpDoer) {
	if client == nil {
		s.http = &http.Client{Timeout: 10 * time.Second}
		return
	}
	s.http = client
}

func (s *HTTPSource) ReadManifest(ctx context.Context, galleryID int) ([]byte, error) {
	resp, err := s.do(ctx, http.MethodGet, s.MediaRef(galleryID, ManifestFilename))
	if err != nil {
		return nil, fmt.Errorf("request manifest for gallery %d: %w", galleryID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("%w: status %d", ErrManifestNotFound, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read manifest for gallery %d: %w", galleryID, err)
	}
	return data, nil
}

func (s *HTTPSource) Exists(ctx context.Context, galleryID int, filename string) (bool, error) {
	if err := validateFilename(filename); err != nil {
		return false, err
	}
	resp, err := s.do(ctx, http.MethodHead, s.MediaRef(galleryID, filename))
	if err != nil {
		return false, err
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode <= 299, nil
}

func (s *HTTPSource) OpenAsset(ctx context.Context, galleryID int, filename string) (io.ReadCloser, string, error) {
	if err := validateFilename(filename); err != nil {
		return nil, "", err
	}
	resp, err := s.do(ctx, http.MethodGet, s.MediaRef(galleryID, filename))
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, "", ErrAssetNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, "", fmt.Errorf("fetch asset %s: status %d", filename, resp.StatusCode)
	}
	contentType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = contentTypeFor(filename)
	}
	return resp.Body, contentType, nil
}

func (s *HTTPSource) MediaRef(galleryID int, filename string) string {
	return s.baseURL + "/" + path.Join(galleryDir(galleryID), url.PathEscape(filename))
}

func (s *HTTPSource) do(ctx context.Context, method, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	client := s.http
	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(req)
}
