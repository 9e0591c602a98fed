// Package output 负责命令结果的格式化输出
//
// 数据写 stdout，提示与错误写 stderr，保证 JSON 输出可被管道消费。
package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"sort"
	"strings"

	"github.com/pterm/pterm"

	"github.com/weisyn/nearnft/client/core/errs"
)

// Format 输出格式
type Format string

const (
	// FormatJSON JSON格式（默认）
	FormatJSON Format = "json"
	// FormatPretty 美化JSON格式
	FormatPretty Format = "pretty"
	// FormatTable 表格格式
	FormatTable Format = "table"
	// FormatText 纯文本格式
	FormatText Format = "text"
)

// ParseFormat 解析输出格式
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatPretty, FormatTable, FormatText:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (json|pretty|table|text)", s)
	}
}

// Formatter 输出格式化器
type Formatter struct {
	format    Format
	writer    io.Writer // 数据输出
	logWriter io.Writer // 提示输出
	silent    bool
}

// NewFormatter 创建格式化器
func NewFormatter(format Format, writer io.Writer) *Formatter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Formatter{
		format:    format,
		writer:    writer,
		logWriter: os.Stderr,
	}
}

// Format 当前格式
func (f *Formatter) Format() Format { return f.format }

// SetLogWriter 设置提示输出目标（默认 stderr）
func (f *Formatter) SetLogWriter(writer io.Writer) {
	if writer == nil {
		writer = os.Stderr
	}
	f.logWriter = writer
}

// SetSilent 设置静默模式
func (f *Formatter) SetSilent(silent bool) {
	f.silent = silent
}

// Print 打印输出
func (f *Formatter) Print(data interface{}) error {
	if f.silent {
		return nil
	}

	switch f.format {
	case FormatPretty:
		return f.printJSON(data, true)
	case FormatTable:
		return f.printTable(data)
	case FormatText:
		return f.printText(data)
	default:
		return f.printJSON(data, false)
	}
}

func (f *Formatter) printJSON(data interface{}, pretty bool) error {
	var out []byte
	var err error
	if pretty {
		out, err = json.MarshalIndent(data, "", "  ")
	} else {
		out, err = json.Marshal(data)
	}
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if _, err := fmt.Fprintln(f.writer, string(out)); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// printTable 结构体先转为通用 JSON 形态，再按 map / 列表渲染
func (f *Formatter) printTable(data interface{}) error {
	generic, err := normalize(data)
	if err != nil {
		return err
	}

	var rows pterm.TableData
	switch v := generic.(type) {
	case map[string]interface{}:
		rows = mapRows(v)
	case []interface{}:
		rows = sliceRows(v)
	default:
		return f.printText(data)
	}
	if len(rows) <= 1 {
		_, err := fmt.Fprintln(f.writer, "(empty)")
		return err
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithHeaderRowSeparator("-").WithData(rows).Srender()
	if err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	if _, err := fmt.Fprintln(f.writer, table); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func mapRows(m map[string]interface{}) pterm.TableData {
	rows := pterm.TableData{{"Key", "Value"}}
	for _, k := range sortedKeys(m) {
		rows = append(rows, []string{k, formatValue(m[k])})
	}
	return rows
}

func sliceRows(items []interface{}) pterm.TableData {
	var objects []map[string]interface{}
	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			objects = nil
			break
		}
		objects = append(objects, m)
	}

	if objects == nil {
		rows := pterm.TableData{{"#", "Value"}}
		for i, it := range items {
			rows = append(rows, []string{fmt.Sprintf("%d", i), formatValue(it)})
		}
		return rows
	}

	columns := extractColumns(objects)
	rows := pterm.TableData{columns}
	for _, obj := range objects {
		row := make([]string, len(columns))
		for i, col := range columns {
			if v, ok := obj[col]; ok {
				row[i] = formatValue(v)
			} else {
				row[i] = "-"
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func (f *Formatter) printText(data interface{}) error {
	var s string
	switch v := data.(type) {
	case string:
		s = v
	case fmt.Stringer:
		s = v.String()
	default:
		generic, err := normalize(data)
		if err != nil {
			return err
		}
		s = formatValue(generic)
	}
	if _, err := fmt.Fprintln(f.writer, s); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// PrintSuccess 打印成功消息
func (f *Formatter) PrintSuccess(message string) {
	if f.silent {
		return
	}
	_, _ = fmt.Fprint(f.logWriter, pterm.Success.Sprintln(message))
}

// PrintWarning 打印警告消息
func (f *Formatter) PrintWarning(message string) {
	if f.silent {
		return
	}
	_, _ = fmt.Fprint(f.logWriter, pterm.Warning.Sprintln(message))
}

// PrintInfo 打印信息消息
func (f *Formatter) PrintInfo(message string) {
	if f.silent {
		return
	}
	_, _ = fmt.Fprint(f.logWriter, pterm.Info.Sprintln(message))
}

// PrintError 打印错误，静默模式下仍然输出
//
// JSON 格式下输出 ErrorOutput 结构，便于脚本解析。
func (f *Formatter) PrintError(err error) {
	if err == nil {
		return
	}
	if f.format == FormatJSON || f.format == FormatPretty {
		body, _ := json.Marshal(NewErrorOutputFrom(err))
		_, _ = fmt.Fprintln(f.logWriter, string(body))
		return
	}
	_, _ = fmt.Fprint(f.logWriter, pterm.Error.Sprintln("错误: "+err.Error()))
}

// ===== 辅助函数 =====

// normalize 经一次 JSON 往返得到 map / slice 形态，数字保留原文
func normalize(data interface{}) (interface{}, error) {
	switch data.(type) {
	case map[string]interface{}, []interface{}, nil:
		return data, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return v, nil
}

func formatValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case *big.Int:
		if v == nil {
			return "-"
		}
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	case int, int64, uint, uint64, uint32:
		return fmt.Sprintf("%d", v)
	case float32, float64:
		return fmt.Sprintf("%v", v)
	case nil:
		return "-"
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

// extractColumns 按首次出现顺序收集列名，单行内按字母序
func extractColumns(data []map[string]interface{}) []string {
	seen := make(map[string]bool)
	columns := make([]string, 0)
	for _, row := range data {
		for _, key := range sortedKeys(row) {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}
	return columns
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ErrorOutput 错误输出结构
type ErrorOutput struct {
	Error struct {
		Kind    string      `json:"kind"`
		Name    string      `json:"name,omitempty"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	} `json:"error"`
}

// NewErrorOutput 创建错误输出
func NewErrorOutput(kind, message string, details interface{}) *ErrorOutput {
	out := &ErrorOutput{}
	out.Error.Kind = kind
	out.Error.Message = message
	out.Error.Details = details
	return out
}

// NewErrorOutputFrom 按错误分类构造输出
func NewErrorOutputFrom(err error) *ErrorOutput {
	kind := string(errs.KindOf(err))
	if kind == "" {
		kind = "internal"
	}
	out := NewErrorOutput(kind, err.Error(), nil)
	var e *errs.Error
	if errors.As(err, &e) {
		out.Error.Name = e.Name
	}
	return out
}
