package bilingual

import (
	"os"
	"path/filepath"
	"strings"
)

// Serialize 将文档序列化为双语文本。
// 对未修改的文档，Serialize(Parse(b)) 与 b 逐字节一致。
func Serialize(doc *Document) []byte {
	var b strings.Builder
	b.WriteString(doc.Metadata.Raw)

	for _, u := range doc.Units {
		b.WriteString(u.Source)
		b.WriteByte('\n')
		b.WriteString(targetLine(u))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// targetLine 译文行的落盘形式
func targetLine(u *Unit) string {
	if u.IsBlank() {
		return ""
	}
	if u.Target == "" {
		return MarkerUntranslated
	}
	if u.Verdict == VerdictBad {
		return u.Target + " " + MarkerNeedsReview
	}
	return u.Target
}

// WriteFile 原子地写出文档：先写入同目录下的临时文件，
// 成功后再重命名覆盖目标路径，调用方不会观察到写了一半的文件。
func WriteFile(path string, doc *Document) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".bitrans-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(Serialize(doc)); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
