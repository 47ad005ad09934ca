package hasher

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/spf13/afero"

	"github.com/moyu-x/file-sorter/pkg/logger"
)

type HashResult struct {
	Path   string
	Digest string
	Error  error
}

// HashAll 使用 goroutine 池并行计算多个文件的哈希
// 结果顺序与输入一致；单个文件失败不影响其他文件
func HashAll(ctx context.Context, fs afero.Fs, paths []string, workers int) ([]HashResult, error) {
	results := make([]HashResult, len(paths))
	if len(paths) == 0 {
		return results, nil
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	var wg sync.WaitGroup
	pool, err := ants.NewPoolWithFunc(workers, func(arg interface{}) {
		defer wg.Done()
		i := arg.(int)
		if err := ctx.Err(); err != nil {
			results[i] = HashResult{Path: paths[i], Error: err}
			return
		}
		digest, err := CalculateHash(fs, paths[i])
		results[i] = HashResult{Path: paths[i], Digest: digest, Error: err}
	})
	if err != nil {
		return nil, fmt.Errorf("创建 goroutine 池失败: %w", err)
	}
	defer pool.Release()

	logger.Get().Debug().Int("workers", workers).Int("files", len(paths)).Msg("启动哈希计算池")

	for i := range paths {
		wg.Add(1)
		if err := pool.Invoke(i); err != nil {
			wg.Done()
			results[i] = HashResult{Path: paths[i], Error: err}
		}
	}
	wg.Wait()

	return results, ctx.Err()
}
