package translator

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// DocumentRunner 处理单个文档的函数，由流水线或增强模式提供
type DocumentRunner func(ctx context.Context, inputPath, outputPath string) (*RunResult, error)

// outputSuffixes 本工具自身的输出文件后缀，批量扫描时跳过
var outputSuffixes = []string{"_bilingual", "_enhanced"}

// FindInputFiles 收集首轮翻译的输入文件。
// path 为目录时递归扫描 .txt 文件并跳过已生成的输出；
// limit 大于 0 时只取排序后的前 limit 个
func FindInputFiles(path string, limit int) ([]string, error) {
	return findFiles(path, limit, func(p string) bool {
		return !isOutputFile(p)
	})
}

// FindBilingualFiles 收集增强模式的输入。
// 目录模式下只取首轮输出的 *_bilingual.txt
func FindBilingualFiles(path string, limit int) ([]string, error) {
	return findFiles(path, limit, func(p string) bool {
		return strings.HasSuffix(stemOf(p), "_bilingual")
	})
}

func findFiles(path string, limit int, keep func(string) bool) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		if !keep(p) {
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

// isOutputFile 是否为本工具生成的输出文件
func isOutputFile(path string) bool {
	stem := stemOf(path)
	for _, suffix := range outputSuffixes {
		if strings.HasSuffix(stem, suffix) {
			return true
		}
	}
	return false
}

func stemOf(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// RunMany 用固定大小的工作池处理多个文件。
// 单个文件的失败不影响其他文件；结果顺序与输入一致
func RunMany(ctx context.Context, inputs []string, concurrency int, derive func(string) string, run DocumentRunner) []*RunResult {
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]*RunResult, len(inputs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				input := inputs[i]
				res, err := run(ctx, input, derive(input))
				if res == nil {
					res = &RunResult{Input: input, Status: StatusFailed, Err: err}
				}
				results[i] = res
			}
		}()
	}

	for i := range inputs {
		select {
		case <-ctx.Done():
		case jobs <- i:
			continue
		}
		break
	}
	close(jobs)
	wg.Wait()

	// 取消时未开始的文件补上占位结果
	for i, r := range results {
		if r == nil {
			results[i] = &RunResult{Input: inputs[i], Status: StatusFailed, Err: ctx.Err()}
		}
	}
	return results
}

// AggregateExitCode 多文件运行的进程退出码：
// 任一失败取 1，否则任一部分完成取 2，全部完成取 0
func AggregateExitCode(results []*RunResult) int {
	code := 0
	for _, r := range results {
		switch r.Status {
		case StatusFailed:
			return 1
		case StatusPartial:
			code = 2
		}
	}
	return code
}
