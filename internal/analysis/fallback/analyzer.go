// Package fallback answers questions about a dataset without any external
// service. It recognizes a closed set of question patterns by keyword
// matching, evaluated in priority order, and always produces a deterministic
// answer for a matching dataset/question pair.
package fallback

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Julian1897/smart-data-qa/internal/model/dataset"
)

const defaultHeadRows = 5

var (
	rowCountKeywords = []string{
		"多少行", "行数", "多少条", "几行", "几条记录", "总行数", "总共有多少",
		"how many rows", "row count", "number of rows", "number of records", "how many records",
	}
	headKeywords = []string{
		"前", "头",
	}
	headEnglishKeywords = []string{
		"first", "top", "head",
	}
	headUnitKeywords = []string{
		"条", "行", "记录", "rows", "records", "entries",
	}
	distributionKeywords = []string{
		"分布", "各个类别", "各类", "类别统计", "占比", "count by", "distribution", "group by", "breakdown",
	}
	averageKeywords  = []string{"平均", "average", "mean"}
	sumKeywords      = []string{"总和", "求和", "合计", "sum", "total of"}
	maxValueKeywords = []string{"最大值", "最高值", "max value", "maximum value", "highest value"}
	minValueKeywords = []string{"最小值", "最低值", "min value", "minimum value", "lowest value"}
	maxKeywords      = []string{"最高", "最大", "max", "top", "highest", "largest", "biggest"}
	minKeywords      = []string{"最低", "最小", "min", "lowest", "smallest"}
)

var digitPattern = regexp.MustCompile(`\d+`)

// Analyze answers the question from the dataset alone. It never fails: when
// no pattern matches it returns a graceful explanatory message.
func Analyze(table *dataset.Table, question string) string {
	q := strings.ToLower(strings.TrimSpace(question))

	switch {
	case containsAny(q, rowCountKeywords):
		return answerRowCount(table)
	case isHeadQuestion(q):
		return answerHead(table, q)
	case isDistributionQuestion(q):
		return answerDistribution(table, question)
	case containsAny(q, averageKeywords):
		return answerAggregate(table, question, aggAvg)
	case containsAny(q, sumKeywords):
		return answerAggregate(table, question, aggSum)
	case containsAny(q, maxValueKeywords):
		return answerAggregate(table, question, aggMax)
	case containsAny(q, minValueKeywords):
		return answerAggregate(table, question, aggMin)
	case containsAny(q, maxKeywords):
		return answerExtremeRecord(table, question, true)
	case containsAny(q, minKeywords):
		return answerExtremeRecord(table, question, false)
	default:
		return "未配置语言模型，无法理解该问题。可以尝试询问：数据有多少行、显示前几条记录、某一列的类别分布，或某一列的平均值、总和、最大值、最小值。"
	}
}

func answerRowCount(table *dataset.Table) string {
	return fmt.Sprintf("数据总共有 %d 行。", table.RowCount())
}

func isHeadQuestion(q string) bool {
	if containsAny(q, headKeywords) && containsAny(q, headUnitKeywords) {
		return true
	}
	// 英文形式要求带数字，"top salary" 这类问法留给极值匹配。
	return containsAny(q, headEnglishKeywords) && digitPattern.MatchString(q)
}

func answerHead(table *dataset.Table, q string) string {
	if table.RowCount() == 0 {
		return "数据为空，没有可以显示的记录。"
	}

	n := defaultHeadRows
	if m := digitPattern.FindString(q); m != "" {
		if parsed, err := strconv.Atoi(m); err == nil && parsed > 0 {
			n = parsed
		}
	}
	if n > table.RowCount() {
		n = table.RowCount()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "以下是前 %d 条记录：\n\n", n)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d. %s\n", i+1, renderRow(table, i))
	}
	return b.String()
}

func isDistributionQuestion(q string) bool {
	if containsAny(q, distributionKeywords) {
		return true
	}
	// "各部门的数量" style phrasing.
	return strings.Contains(q, "各") && (strings.Contains(q, "数量") || strings.Contains(q, "多少"))
}

func answerDistribution(table *dataset.Table, question string) string {
	col := findColumn(table, question)
	if col < 0 {
		col = firstTextColumn(table)
	}
	if col < 0 {
		return "没有找到适合做分布统计的类别列。"
	}

	counts := make(map[string]int)
	order := make(map[string]int)
	var keys []string
	for i, row := range table.Rows {
		value := row[col]
		if value == "" {
			value = "(空)"
		}
		if _, seen := counts[value]; !seen {
			order[value] = i
			keys = append(keys, value)
		}
		counts[value]++
	}
	// 按数量降序，数量相同时按首次出现顺序。
	sort.SliceStable(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return order[keys[i]] < order[keys[j]]
	})

	var b strings.Builder
	fmt.Fprintf(&b, "%s 的分布统计：\n\n", table.Columns[col].Name)
	for _, key := range keys {
		fmt.Fprintf(&b, "• %s: %d\n", key, counts[key])
	}
	return b.String()
}

type aggregation int

const (
	aggAvg aggregation = iota
	aggSum
	aggMax
	aggMin
)

func answerAggregate(table *dataset.Table, question string, agg aggregation) string {
	col, msg := resolveNumericColumn(table, question)
	if col < 0 {
		return msg
	}

	values := numericValues(table, col)
	if len(values) == 0 {
		return fmt.Sprintf("列 %s 中没有可以计算的数值。", table.Columns[col].Name)
	}

	name := table.Columns[col].Name
	switch agg {
	case aggAvg:
		var sum float64
		for _, v := range values {
			sum += v
		}
		return fmt.Sprintf("%s 的平均值为 %.2f。", name, sum/float64(len(values)))
	case aggSum:
		var sum float64
		for _, v := range values {
			sum += v
		}
		return fmt.Sprintf("%s 的总和为 %s。", name, formatNumber(sum))
	case aggMax:
		max := values[0]
		for _, v := range values[1:] {
			if v > max {
				max = v
			}
		}
		return fmt.Sprintf("%s 的最大值为 %s。", name, formatNumber(max))
	default:
		min := values[0]
		for _, v := range values[1:] {
			if v < min {
				min = v
			}
		}
		return fmt.Sprintf("%s 的最小值为 %s。", name, formatNumber(min))
	}
}

func answerExtremeRecord(table *dataset.Table, question string, wantMax bool) string {
	col, msg := resolveNumericColumn(table, question)
	if col < 0 {
		return msg
	}

	bestRow := -1
	var bestValue float64
	for i, row := range table.Rows {
		v, err := strconv.ParseFloat(row[col], 64)
		if err != nil {
			continue
		}
		// 并列时保留原始行序中先出现的记录。
		if bestRow < 0 || (wantMax && v > bestValue) || (!wantMax && v < bestValue) {
			bestRow = i
			bestValue = v
		}
	}
	if bestRow < 0 {
		return fmt.Sprintf("列 %s 中没有可以比较的数值。", table.Columns[col].Name)
	}

	direction := "最高"
	if !wantMax {
		direction = "最低"
	}
	return fmt.Sprintf("%s %s的记录：%s", table.Columns[col].Name, direction, renderRow(table, bestRow))
}

// resolveNumericColumn picks the numeric column a question refers to. A named
// column that does not exist, or the absence of any usable numeric column, is
// a recoverable user-facing message, never a crash.
func resolveNumericColumn(table *dataset.Table, question string) (int, string) {
	if col := findColumn(table, question); col >= 0 {
		if table.Columns[col].Type != dataset.Number {
			return -1, fmt.Sprintf("列 %s 不是数值列，无法进行数值计算。", table.Columns[col].Name)
		}
		return col, ""
	}

	var numeric []int
	for i, c := range table.Columns {
		if c.Type == dataset.Number {
			numeric = append(numeric, i)
		}
	}
	if len(numeric) == 0 {
		return -1, "数据中没有数值列，无法进行数值计算。"
	}
	return -1, fmt.Sprintf("没有找到问题中提到的列。可选的数值列有：%s。", strings.Join(columnNames(table, numeric), "、"))
}

// findColumn matches column names mentioned in the question, preferring the
// longest name so overlapping names resolve unambiguously.
func findColumn(table *dataset.Table, question string) int {
	q := strings.ToLower(question)
	best := -1
	bestLen := 0
	for i, c := range table.Columns {
		name := strings.ToLower(c.Name)
		if name != "" && strings.Contains(q, name) && len(name) > bestLen {
			best = i
			bestLen = len(name)
		}
	}
	return best
}

func firstTextColumn(table *dataset.Table) int {
	for i, c := range table.Columns {
		if c.Type == dataset.Text {
			return i
		}
	}
	if len(table.Columns) > 0 {
		return 0
	}
	return -1
}

func numericValues(table *dataset.Table, col int) []float64 {
	values := make([]float64, 0, len(table.Rows))
	for _, row := range table.Rows {
		if v, err := strconv.ParseFloat(row[col], 64); err == nil {
			values = append(values, v)
		}
	}
	return values
}

func renderRow(table *dataset.Table, row int) string {
	parts := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		parts[i] = fmt.Sprintf("%s: %s", c.Name, table.Rows[row][i])
	}
	return strings.Join(parts, ", ")
}

func columnNames(table *dataset.Table, indexes []int) []string {
	names := make([]string, len(indexes))
	for i, idx := range indexes {
		names[i] = table.Columns[idx].Name
	}
	return names
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
