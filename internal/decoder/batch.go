package decoder

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// BatchResult is one replay's outcome within a batch run. Err is set when
// that replay failed; failures never abort sibling replays.
type BatchResult struct {
	Path   string
	Result *Result
	Err    error
}

// Discover walks root for replay first segments (*.0.vgr), skipping AppleDouble
// droppings and __MACOSX directories. Paths come back sorted.
func Discover(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if name == "__MACOSX" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, "._") {
			return nil
		}
		if strings.HasSuffix(name, ".0.vgr") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// DecodeDir discovers and decodes every replay under root using a bounded
// worker pool. Replays are independent, so workers share nothing but the
// job feed; results come back in discovery order.
func (d *Decoder) DecodeDir(ctx context.Context, root string, workers int, opts Options) ([]BatchResult, error) {
	paths, err := Discover(root)
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	results := make([]BatchResult, len(paths))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				path := paths[i]
				res, err := d.Decode(path, opts)
				if err != nil {
					d.log.Error().Err(err).Str("replay", path).Msg("decode failed")
				}
				results[i] = BatchResult{Path: path, Result: res, Err: err}
			}
		}()
	}

feed:
	for i := range paths {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}
