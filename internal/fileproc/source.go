package fileproc

import (
	"context"

	"github.com/panbanda/sift/pkg/source"
)

// LoadFiles reads paths from src in parallel. Files that fail to load are
// reported in the returned ProcessingErrors and left out of the result; the
// remaining files keep their input order.
func LoadFiles(
	ctx context.Context,
	paths []string,
	src source.ContentSource,
	maxWorkers int,
	onProgress ProgressFunc,
) ([]source.File, *ProcessingErrors, error) {
	loaded, errs, err := MapIndexed(ctx, paths, maxWorkers, func(_ context.Context, path string) (source.File, error) {
		return source.Load(src, path)
	}, onProgress)
	if err != nil {
		return nil, nil, err
	}

	files := make([]source.File, 0, len(paths))
	failures := &ProcessingErrors{}
	for i, path := range paths {
		if errs[i] != nil {
			failures.Add(path, errs[i])
			continue
		}
		files = append(files, loaded[i])
	}

	if !failures.HasErrors() {
		return files, nil, nil
	}
	return files, failures, nil
}
