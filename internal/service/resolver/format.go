package resolver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Julian1897/smart-data-qa/internal/service/engine"
)

// previewRows caps how many rows a large result renders in full.
const previewRows = 5

// FormatResult renders an execution result into a readable answer string.
func FormatResult(result *engine.Result) string {
	if result == nil || len(result.Rows) == 0 {
		return "查询没有返回任何结果。"
	}

	// 单值结果直接给出数值。
	if len(result.Rows) == 1 && len(result.Columns) == 1 {
		return fmt.Sprintf("查询结果：%s", renderValue(result.Rows[0][0]))
	}

	if len(result.Rows) <= previewRows {
		var b strings.Builder
		fmt.Fprintf(&b, "查询到 %d 条记录：\n\n", len(result.Rows))
		writeRows(&b, result, len(result.Rows))
		return b.String()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "查询到 %d 条记录，显示前 %d 条：\n\n", len(result.Rows), previewRows)
	writeRows(&b, result, previewRows)
	fmt.Fprintf(&b, "... 还有 %d 条记录", len(result.Rows)-previewRows)
	return b.String()
}

func writeRows(b *strings.Builder, result *engine.Result, n int) {
	for i := 0; i < n; i++ {
		parts := make([]string, len(result.Columns))
		for j, col := range result.Columns {
			parts[j] = fmt.Sprintf("%s: %s", col, renderValue(result.Rows[i][j]))
		}
		fmt.Fprintf(b, "%d. %s\n", i+1, strings.Join(parts, ", "))
	}
}

func renderValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(value, 10)
	default:
		return fmt.Sprintf("%v", value)
	}
}
