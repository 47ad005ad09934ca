package oplog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/moyu-x/file-sorter/internal"
	"github.com/moyu-x/file-sorter/pkg/logger"
)

// OperationRecord 操作日志表
type OperationRecord struct {
	Seq         int64     `gorm:"primaryKey;autoIncrement"`
	OpID        string    `gorm:"uniqueIndex;not null"`
	Source      string    `gorm:"not null"`
	Destination string    `gorm:"not null"`
	Root        string    `gorm:"not null;default:''"`
	Category    string    `gorm:"not null;default:''"`
	Outcome     string    `gorm:"not null"`
	CreatedDirs string    `gorm:"not null;default:''"` // JSON 数组
	CreatedAt   time.Time `gorm:"not null"`
}

func (OperationRecord) TableName() string {
	return "operations"
}

// SQLite 基于 SQLite 的操作日志
type SQLite struct {
	db *gorm.DB
}

func OpenSQLite(dbPath string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("创建数据库目录失败: %w", err)
	}

	// 使用纯 Go 的 modernc 驱动（注册名为 "sqlite"）
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("打开数据库连接失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取数据库连接失败: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := db.AutoMigrate(&OperationRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("创建数据库表失败: %w", err)
	}

	logger.Get().Debug().Str("path", dbPath).Msg("数据库初始化完成")
	return &SQLite{db: db}, nil
}

func (s *SQLite) Append(ctx context.Context, op Operation) error {
	var dirs string
	if len(op.CreatedDirs) > 0 {
		data, err := json.Marshal(op.CreatedDirs)
		if err != nil {
			return fmt.Errorf("序列化新建目录失败: %w", err)
		}
		dirs = string(data)
	}

	record := &OperationRecord{
		OpID:        op.ID,
		Source:      op.Source,
		Destination: op.Destination,
		Root:        op.Root,
		Category:    op.Category,
		Outcome:     string(op.Outcome),
		CreatedDirs: dirs,
		CreatedAt:   op.Timestamp,
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("插入操作记录失败: %w", err)
	}
	return nil
}

func (s *SQLite) Recent(ctx context.Context, n int) ([]Operation, error) {
	if n <= 0 {
		return nil, nil
	}

	var records []OperationRecord
	if err := s.db.WithContext(ctx).Order("seq DESC").Limit(n).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("查询操作记录失败: %w", err)
	}

	ops := make([]Operation, 0, len(records))
	for _, r := range records {
		op := Operation{
			ID:          r.OpID,
			Source:      r.Source,
			Destination: r.Destination,
			Root:        r.Root,
			Category:    r.Category,
			Outcome:     internal.Outcome(r.Outcome),
			Timestamp:   r.CreatedAt,
		}
		if r.CreatedDirs != "" {
			if err := json.Unmarshal([]byte(r.CreatedDirs), &op.CreatedDirs); err != nil {
				return nil, fmt.Errorf("解析新建目录失败: %s: %w", r.OpID, err)
			}
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (s *SQLite) RemoveTail(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}

	tail := s.db.Model(&OperationRecord{}).Select("seq").Order("seq DESC").Limit(n)
	if err := s.db.WithContext(ctx).Where("seq IN (?)", tail).Delete(&OperationRecord{}).Error; err != nil {
		return fmt.Errorf("删除操作记录失败: %w", err)
	}
	return nil
}

func (s *SQLite) Remove(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Where("op_id IN ?", ids).Delete(&OperationRecord{}).Error; err != nil {
		return fmt.Errorf("删除操作记录失败: %w", err)
	}
	return nil
}

func (s *SQLite) Len(ctx context.Context) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&OperationRecord{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("统计操作记录失败: %w", err)
	}
	return int(count), nil
}

func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("获取数据库连接失败: %w", err)
	}
	return sqlDB.Close()
}
