package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/memecal/internal/service"
	"github.com/rs/zerolog/log"
)

const debounceDelay = 500 * time.Millisecond

// Watcher 监听 memes 根目录及各图集目录的变动。
type Watcher struct {
	root     string
	fs       *fsnotify.Watcher
	debounce time.Duration

	// generated 在每次重新生成后调用，仅供测试观察。
	generated func(Result, error)
}

// NewWatcher 注册 root 及其下已有的图集目录；返回时监听已经生效。
func NewWatcher(root string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("new watcher: %w", err)
	}
	w := &Watcher{root: root, fs: fw, debounce: debounceDelay}
	if err := w.addDirs(); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Run 在图片变动平息 debounce 时间后重新生成 manifest，直到 ctx 结束。
// manifest.json 自身的变动会被忽略。Run 返回时关闭底层 watcher。
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) == service.ManifestFilename {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			log.Debug().Str("event", event.String()).Msg("memes changed")
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.fs.Add(event.Name); err != nil {
						log.Warn().Err(err).Str("dir", event.Name).Msg("could not watch new directory")
					}
				}
			}
			timer.Reset(w.debounce)
		case <-timer.C:
			result, err := Generate(w.root)
			if err != nil {
				log.Error().Err(err).Msg("regenerate manifests failed")
			}
			if w.generated != nil {
				w.generated(result, err)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watch error")
		}
	}
}

// Watch 监听 root 并在图片变动后重新生成 manifest，直到 ctx 结束。
func Watch(ctx context.Context, root string) error {
	w, err := NewWatcher(root)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

func (w *Watcher) addDirs() error {
	if err := w.fs.Add(w.root); err != nil {
		return fmt.Errorf("watch %s: %w", w.root, err)
	}
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return fmt.Errorf("read %s: %w", w.root, err)
	}
	count := 1
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, ok := parseGalleryDir(entry.Name()); !ok {
			continue
		}
		if err := w.fs.Add(filepath.Join(w.root, entry.Name())); err != nil {
			return fmt.Errorf("watch %s: %w", entry.Name(), err)
		}
		count++
	}
	log.Info().Int("dirs", count).Msg("watching memes")
	return nil
}
