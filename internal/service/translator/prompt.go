package translator

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/Julian1897/smart-data-qa/internal/model/qa"
)

// historyLimit caps how many prior turns are replayed into the prompt.
const historyLimit = 10

// buildSystemPrompt describes the dataset schema to the model. The translator
// only ever sees column names, types and the row count, never data rows.
func buildSystemPrompt(qc Context) string {
	var b strings.Builder
	b.WriteString("你是一个数据问答助手，负责把用户的自然语言问题翻译成 SQLite 查询。\n")
	b.WriteString("数据存放在表 data_table 中，结构如下：\n")
	for _, col := range qc.Columns {
		fmt.Fprintf(&b, "- %s (%s)\n", col.Name, col.Type)
	}
	fmt.Fprintf(&b, "共 %d 行数据。\n\n", qc.RowCount)
	b.WriteString("要求：\n")
	b.WriteString("1. 只输出一条 SQLite SELECT 语句，不要输出解释或其他文字。\n")
	b.WriteString("2. 只能查询 data_table 表，不允许任何写操作。\n")
	b.WriteString("3. 如果问题引用了之前的回答，请结合对话历史理解指代。\n")
	return b.String()
}

// buildHistory replays the tail of the conversation so follow-up questions
// can resolve references to earlier answers.
func buildHistory(entries []qa.Entry) []*schema.Message {
	if len(entries) == 0 {
		return nil
	}

	start := 0
	if len(entries) > historyLimit {
		start = len(entries) - historyLimit
	}

	history := make([]*schema.Message, 0, (len(entries)-start)*2)
	for _, entry := range entries[start:] {
		history = append(history, schema.UserMessage(entry.Question))
		history = append(history, schema.AssistantMessage(entry.Answer, nil))
	}
	return history
}

// ExtractSQL pulls a runnable statement out of raw model output: markdown
// fences are stripped, then lines from the first SELECT/WITH up to a
// terminating semicolon are collected, skipping comment lines.
func ExtractSQL(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```sql", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var sqlLines []string
	inSQL := false
	for _, line := range strings.Split(cleaned, "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		switch {
		case !inSQL && (strings.HasPrefix(upper, "SELECT") || strings.HasPrefix(upper, "WITH")):
			inSQL = true
			sqlLines = append(sqlLines, line)
			if strings.HasSuffix(line, ";") {
				return strings.Join(sqlLines, " ")
			}
		case inSQL && strings.HasSuffix(line, ";"):
			sqlLines = append(sqlLines, line)
			return strings.Join(sqlLines, " ")
		case inSQL && line != "" && !strings.HasPrefix(line, "--"):
			sqlLines = append(sqlLines, line)
		}
	}

	return strings.Join(sqlLines, " ")
}
