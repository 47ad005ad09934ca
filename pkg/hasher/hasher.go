package hasher

import (
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"

	"github.com/moyu-x/file-sorter/pkg/logger"
)

// DigestLength 摘要的十六进制长度
const DigestLength = 16

// CalculateHash 计算文件内容的 xxHash 摘要，返回 16 位十六进制字符串
func CalculateHash(fs afero.Fs, filePath string) (string, error) {
	logger.Get().Trace().Str("file", filePath).Msg("计算文件哈希")

	file, err := fs.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("打开文件失败: %w", err)
	}
	defer file.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("计算哈希失败: %w", err)
	}

	return fmt.Sprintf("%016x", h.Sum64()), nil
}
