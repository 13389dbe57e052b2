package tablewriter

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Column 表格列定义
type Column struct {
	Name         string // 列名
	SeparateLine bool   // 是否单独一行显示
	RightAlign   bool   // 是否右对齐
}

// ColumnOption 列选项函数类型
type ColumnOption func(*Column)

// RightAlign 右对齐，用于金额等数字列
func RightAlign() ColumnOption {
	return func(c *Column) {
		c.RightAlign = true
	}
}

// TableWriter 表格写入器
// 计算列宽时忽略颜色控制符，彩色输出也能对齐
type TableWriter struct {
	cols []Column
	rows []map[string]string
}

// Col 创建普通列
func Col(name string, opts ...ColumnOption) Column {
	c := Column{Name: name}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// NewLineCol 创建单独行列，值为空时不输出
func NewLineCol(name string) Column {
	return Column{Name: name, SeparateLine: true}
}

func New(cols ...Column) *TableWriter {
	return &TableWriter{cols: cols}
}

// Write 写入一行数据，未出现的列名会追加为新列
func (w *TableWriter) Write(r map[string]interface{}) {
	row := make(map[string]string, len(r))
	for k, v := range r {
		row[k] = fmt.Sprint(v)
		if !w.hasCol(k) {
			w.cols = append(w.cols, Col(k))
		}
	}
	w.rows = append(w.rows, row)
}

func (w *TableWriter) hasCol(name string) bool {
	for _, c := range w.cols {
		if c.Name == name {
			return true
		}
	}
	return false
}

var ansi = regexp.MustCompile("\x1b\\[[0-9;]*m")

// displayWidth 去掉颜色控制符后的字符数
func displayWidth(s string) int {
	return utf8.RuneCountInString(ansi.ReplaceAllString(s, ""))
}

func pad(s string, width int, right bool) string {
	gap := width - displayWidth(s)
	if gap <= 0 {
		return s
	}
	if right {
		return strings.Repeat(" ", gap) + s
	}
	return s + strings.Repeat(" ", gap)
}

// Flush 输出表头和所有行，列之间两个空格
func (w *TableWriter) Flush(out io.Writer) error {
	var cols []Column
	for _, c := range w.cols {
		if !c.SeparateLine {
			cols = append(cols, c)
		}
	}

	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = displayWidth(c.Name)
		for _, row := range w.rows {
			if n := displayWidth(row[c.Name]); n > widths[i] {
				widths[i] = n
			}
		}
	}

	line := func(cell func(c Column) string) error {
		if len(cols) == 0 {
			return nil
		}
		fields := make([]string, len(cols))
		for i, c := range cols {
			fields[i] = pad(cell(c), widths[i], c.RightAlign)
			if i == len(cols)-1 && !c.RightAlign {
				fields[i] = cell(c)
			}
		}
		_, err := fmt.Fprintln(out, strings.Join(fields, "  "))
		return err
	}

	if err := line(func(c Column) string { return c.Name }); err != nil {
		return err
	}
	for _, row := range w.rows {
		if err := line(func(c Column) string { return row[c.Name] }); err != nil {
			return err
		}
		for _, c := range w.cols {
			if !c.SeparateLine || row[c.Name] == "" {
				continue
			}
			if _, err := fmt.Fprintf(out, "  %s: %s\n", c.Name, row[c.Name]); err != nil {
				return err
			}
		}
	}
	return nil
}
