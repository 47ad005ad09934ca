package sorter

import (
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/spf13/afero"

	"github.com/moyu-x/file-sorter/internal"
)

// 日期来源
const (
	DateFromModTime = "mtime"
	DateFromExif    = "exif"
)

// 通常带有 EXIF 信息的格式
var exifExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".tiff": true,
	".tif":  true,
	".heic": true,
}

// fileDate 选择用于按日期整理的时间，EXIF 不可用时回退到修改时间
func fileDate(fs afero.Fs, rec internal.FileRecord, source string) time.Time {
	if source == DateFromExif && exifExts[rec.Ext] {
		if t, ok := exifDate(fs, rec.Path); ok {
			return t
		}
	}
	return rec.ModTime
}

func exifDate(fs afero.Fs, path string) (time.Time, bool) {
	f, err := fs.Open(path)
	if err != nil {
		return time.Time{}, false
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		// 没有 EXIF 信息的图片很常见
		return time.Time{}, false
	}

	if tag, err := x.Get(exif.DateTimeOriginal); err == nil {
		if s, err := tag.StringVal(); err == nil {
			if t, err := time.ParseInLocation("2006:01:02 15:04:05", s, time.Local); err == nil {
				return t, true
			}
		}
	}
	if t, err := x.DateTime(); err == nil && t.Year() > 1900 {
		return t, true
	}
	return time.Time{}, false
}
