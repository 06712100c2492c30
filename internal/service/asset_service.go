package service

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var downloadNamePattern = regexp.MustCompile(`[^a-z0-9]`)

// DownloadFilename 把 meme 标题转换为下载时的文件名。
func DownloadFilename(title string) string {
	return downloadNamePattern.ReplaceAllString(strings.ToLower(title), "_") + ".jpg"
}

// Asset 是已打开、可直接返回给客户端的图集文件。
type Asset struct {
	Body        io.ReadCloser
	ContentType string
	Filename    string
}

// AssetService 负责打开图集文件以供下载。
type AssetService struct {
	source GallerySource
}

// NewAssetService 创建基于 source 的 AssetService。
func NewAssetService(source GallerySource) *AssetService {
	return &AssetService{source: source}
}

// Open 读取图集 galleryID 中的 item，调用方负责关闭 Body。
func (s *AssetService) Open(ctx context.Context, galleryID int, item GalleryItem) (*Asset, error) {
	body, contentType, err := s.source.OpenAsset(ctx, galleryID, item.Filename)
	if err != nil {
		return nil, fmt.Errorf("open asset %d/%s: %w", galleryID, item.Filename, err)
	}
	return &Asset{Body: body, ContentType: contentType, Filename: DownloadFilename(item.Title)}, nil
}
