package classifier

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/h2non/filetype"
	"github.com/spf13/afero"

	"github.com/moyu-x/file-sorter/internal"
)

// FileHeaderSize 文件类型检测所需的文件头部大小（字节）
const FileHeaderSize = 261

var ErrMalformedTable = errors.New("分类表格式错误")

// DefaultCategories 内置分类表
var DefaultCategories = map[string][]string{
	"Videos":       {".mp4", ".mkv", ".avi", ".mov", ".wmv", ".flv", ".webm"},
	"Pictures":     {".jpg", ".jpeg", ".png", ".gif", ".bmp", ".svg", ".ico", ".tiff", ".webp"},
	"Music":        {".mp3", ".wav", ".flac", ".aac", ".ogg", ".m4a", ".wma"},
	"Documents":    {".pdf", ".docx", ".txt", ".pptx", ".xlsx", ".doc", ".xls", ".ppt", ".odt", ".rtf"},
	"Archives":     {".zip", ".rar", ".7z", ".tar", ".gz", ".bz2", ".xz"},
	"Code":         {".py", ".js", ".java", ".cpp", ".c", ".h", ".cs", ".php", ".rb", ".go", ".rs", ".html", ".css"},
	"Executables":  {".exe", ".msi", ".app", ".deb", ".rpm", ".dmg"},
	"Spreadsheets": {".csv", ".ods"},
}

// Classifier 按扩展名查找分类，加载后不可变
type Classifier struct {
	byExt      map[string]string
	categories map[string][]string
}

// NormalizeExt 统一扩展名格式：小写并带前导点
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// New 使用内置分类表创建分类器
func New() *Classifier {
	c, err := NewWithOverrides(nil)
	if err != nil {
		// 内置表不应出错
		panic(err)
	}
	return c
}

// NewWithOverrides 合并内置分类表与用户分类，生成不可变的查找表
// 同名用户分类替换内置分类；用户分类与内置分类争夺同一扩展名时以用户为准；
// 两个用户分类声明同一扩展名视为格式错误
func NewWithOverrides(overrides map[string][]string) (*Classifier, error) {
	merged := make(map[string][]string, len(DefaultCategories)+len(overrides))
	for name, exts := range DefaultCategories {
		if _, replaced := overrides[name]; replaced {
			continue
		}
		merged[name] = exts
	}

	byExt := make(map[string]string)
	for name, exts := range merged {
		for _, ext := range exts {
			byExt[NormalizeExt(ext)] = name
		}
	}

	userClaims := make(map[string]string)
	for _, name := range sortedKeys(overrides) {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: 分类名不能为空", ErrMalformedTable)
		}
		if strings.ContainsAny(name, `/\`) {
			return nil, fmt.Errorf("%w: 分类名 %q 不能包含路径分隔符", ErrMalformedTable, name)
		}
		// 分类名直接作为目录名，必须落在目标根目录之下
		if name == "." || name == ".." || filepath.Clean(name) != name || filepath.IsAbs(name) {
			return nil, fmt.Errorf("%w: 分类名 %q 不是合法的目录名", ErrMalformedTable, name)
		}

		exts := make([]string, 0, len(overrides[name]))
		for _, raw := range overrides[name] {
			ext := NormalizeExt(raw)
			if ext == "" {
				return nil, fmt.Errorf("%w: 分类 %q 包含空扩展名", ErrMalformedTable, name)
			}
			if strings.ContainsAny(ext, `/\`) {
				return nil, fmt.Errorf("%w: 扩展名 %q 不能包含路径分隔符", ErrMalformedTable, raw)
			}
			if owner, ok := userClaims[ext]; ok && owner != name {
				return nil, fmt.Errorf("%w: 扩展名 %s 同时属于 %q 和 %q", ErrMalformedTable, ext, owner, name)
			}
			userClaims[ext] = name

			// 从内置分类中移除被抢占的扩展名
			if prev, ok := byExt[ext]; ok && prev != name {
				merged[prev] = without(merged[prev], ext)
			}
			byExt[ext] = name
			exts = append(exts, ext)
		}
		merged[name] = exts
	}

	return &Classifier{byExt: byExt, categories: merged}, nil
}

// Classify 返回扩展名对应的分类，未知或空扩展名返回 Other
func (c *Classifier) Classify(ext string) string {
	if category, ok := c.byExt[NormalizeExt(ext)]; ok {
		return category
	}
	return internal.FallbackCategory
}

// ClassifyName 按文件名的扩展名分类
func (c *Classifier) ClassifyName(name string) string {
	return c.Classify(filepath.Ext(name))
}

// Known 扩展名是否在分类表中
func (c *Classifier) Known(ext string) bool {
	_, ok := c.byExt[NormalizeExt(ext)]
	return ok
}

// Categories 返回分类表副本（分类名 -> 扩展名列表）
func (c *Classifier) Categories() map[string][]string {
	out := make(map[string][]string, len(c.categories))
	for name, exts := range c.categories {
		out[name] = append([]string(nil), exts...)
	}
	return out
}

// Names 返回排序后的分类名
func (c *Classifier) Names() []string {
	return sortedKeys(c.categories)
}

// Sniff 读取文件头部，用 filetype 检测真实扩展名
// 无法识别时返回空字符串
func (c *Classifier) Sniff(fs afero.Fs, filePath string) (string, error) {
	file, err := fs.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("打开文件失败: %w", err)
	}
	defer file.Close()

	head := make([]byte, FileHeaderSize)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("读取文件头部失败: %w", err)
	}
	if n == 0 {
		return "", nil
	}

	kind, err := filetype.Match(head[:n])
	if err != nil {
		return "", fmt.Errorf("检测文件类型失败: %w", err)
	}
	if kind == filetype.Unknown {
		return "", nil
	}
	return NormalizeExt(kind.Extension), nil
}

func without(exts []string, drop string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		if NormalizeExt(ext) != drop {
			out = append(out, ext)
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
