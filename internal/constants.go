package internal

const (
	// 配置文件默认目录
	DefaultConfigDir = "~/.file-sorter"

	// 操作日志默认路径
	DefaultHistoryPath = "~/.file-sorter/history.jsonl"

	// SQLite 操作日志默认路径
	DefaultHistoryDBPath = "~/.file-sorter/history.db"

	// 配置文件路径环境变量
	ConfigEnvVar = "FILE_SORTER_CONFIG"

	// 默认源目录
	DefaultSourceDir = "~/Downloads"

	// 未匹配扩展名的默认分类
	FallbackCategory = "Other"

	// 按日期整理时子目录的格式
	DateFolderLayout = "2006-01"
)
