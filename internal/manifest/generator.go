// Package manifest 扫描本地 memes 目录，为每个日期图集生成 manifest.json。
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/memecal/internal/service"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Image 是扫描到的单个图片文件。
type Image struct {
	GalleryID int
	Filename  string
	Width     int
	Height    int
}

// Result 汇总一次生成的结果。
type Result struct {
	Galleries int
	Written   []int
	Unchanged []int
}

// Collect 遍历 root/<galleryID>/ 下的图片文件，按图集分组。
func Collect(root string) (map[int][]Image, error) {
	found := map[int][]Image{}
	root = filepath.Clean(root)

	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path == root {
				return nil
			}
			if strings.HasPrefix(filepath.Base(path), ".") {
				return godirwalk.SkipThis
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			parts := strings.Split(rel, string(filepath.Separator))

			if de.IsDir() {
				if len(parts) != 1 {
					return godirwalk.SkipThis
				}
				if _, ok := parseGalleryDir(parts[0]); !ok {
					return godirwalk.SkipThis
				}
				return nil
			}

			if len(parts) != 2 || !de.IsRegular() {
				return nil
			}
			id, ok := parseGalleryDir(parts[0])
			if !ok || !imageExtensions[strings.ToLower(filepath.Ext(parts[1]))] {
				return nil
			}

			img := Image{GalleryID: id, Filename: parts[1]}
			if w, h, err := dimensions(path); err == nil {
				img.Width, img.Height = w, h
			} else {
				log.Warn().Err(err).Str("path", path).Msg("could not read image dimensions")
			}
			found[id] = append(found[id], img)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	for id := range found {
		images := found[id]
		sort.Slice(images, func(i, j int) bool {
			return lessFilename(images[i].Filename, images[j].Filename)
		})
	}
	return found, nil
}

// Build 合并已有 manifest 与扫描结果：保留已有条目的顺序、标题和提交者，
// 删除已不存在的文件，新文件按文件名追加到末尾。
func Build(existing service.Manifest, images []Image) service.Manifest {
	byName := make(map[string]Image, len(images))
	for _, img := range images {
		byName[img.Filename] = img
	}

	out := service.Manifest{Memes: make([]service.ManifestEntry, 0, len(images))}
	seen := make(map[string]bool, len(images))
	for _, entry := range existing.Memes {
		img, ok := byName[entry.Filename]
		if !ok || seen[entry.Filename] {
			continue
		}
		seen[entry.Filename] = true
		entry.Width, entry.Height = img.Width, img.Height
		out.Memes = append(out.Memes, entry)
	}

	for _, img := range images {
		if seen[img.Filename] {
			continue
		}
		out.Memes = append(out.Memes, service.ManifestEntry{
			Filename: img.Filename,
			Width:    img.Width,
			Height:   img.Height,
		})
	}
	return out
}

// Generate 为 root 下的每个图集写入 manifest.json，内容未变化时不重写文件。
// 已有 manifest 但不再包含图片的图集会被重写为空列表。
func Generate(root string) (Result, error) {
	collected, err := Collect(root)
	if err != nil {
		return Result{}, err
	}

	// 图片已全部删除的图集仍需重写 manifest，否则会继续列出不存在的文件。
	listed, err := galleriesWithManifest(root)
	if err != nil {
		return Result{}, err
	}
	for _, id := range listed {
		if _, ok := collected[id]; !ok {
			collected[id] = nil
		}
	}

	ids := make([]int, 0, len(collected))
	for id := range collected {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	result := Result{Galleries: len(ids)}
	for _, id := range ids {
		path := filepath.Join(root, strconv.Itoa(id), service.ManifestFilename)

		existing, raw, err := readExisting(path)
		if err != nil {
			return result, err
		}

		data, err := json.MarshalIndent(Build(existing, collected[id]), "", "  ")
		if err != nil {
			return result, fmt.Errorf("encode manifest for gallery %d: %w", id, err)
		}
		data = append(data, '\n')

		if bytes.Equal(raw, data) {
			result.Unchanged = append(result.Unchanged, id)
			continue
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return result, fmt.Errorf("write %s: %w", path, err)
		}
		log.Info().Int("gallery", id).Int("memes", len(collected[id])).Msg("manifest written")
		result.Written = append(result.Written, id)
	}
	return result, nil
}

func readExisting(path string) (service.Manifest, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return service.Manifest{}, nil, nil
		}
		return service.Manifest{}, nil, fmt.Errorf("read %s: %w", path, err)
	}
	existing, err := service.ParseManifest(raw)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("existing manifest is malformed, regenerating")
		return service.Manifest{}, raw, nil
	}
	return existing, raw, nil
}

func galleriesWithManifest(root string) ([]int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", root, err)
	}
	var ids []int
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, ok := parseGalleryDir(entry.Name())
		if !ok {
			continue
		}
		info, err := os.Stat(filepath.Join(root, entry.Name(), service.ManifestFilename))
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseGalleryDir(name string) (int, bool) {
	id, err := strconv.Atoi(name)
	if err != nil || id < 0 || strconv.Itoa(id) != name {
		return 0, false
	}
	return id, true
}

func dimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// lessFilename 让 2.jpg 排在 10.jpg 之前。
func lessFilename(a, b string) bool {
	na, errA := strconv.Atoi(strings.TrimSuffix(a, filepath.Ext(a)))
	nb, errB := strconv.Atoi(strings.TrimSuffix(b, filepath.Ext(b)))
	switch {
	case errA == nil && errB == nil && na != nb:
		return na < nb
	case errA == nil && errB != nil:
		return true
	case errA != nil && errB == nil:
		return false
	}
	return a < b
}
