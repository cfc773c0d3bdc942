package chat

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// weekdayNames 按 locale 索引，顺序与 time.Weekday 一致（周日为 0）
var weekdayNames = map[string][7]string{
	"en": {"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
	"es": {"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"},
	"pt": {"domingo", "segunda-feira", "terça-feira", "quarta-feira", "quinta-feira", "sexta-feira", "sábado"},
	"zh": {"星期日", "星期一", "星期二", "星期三", "星期四", "星期五", "星期六"},
}

const baseInstructions = `You are a friendly productivity assistant inside a personal task tracker.
Today is {{TODAY}} ({{WEEKDAY}}). Resolve relative dates such as "tomorrow" or "next Friday" against today.
Answer in the user's language. Keep replies short and concrete.
`

const fencedInstructions = `When the user asks you to change their data, first reply in natural language, then append exactly ONE fenced block tagged json containing either a single action object or an array of action objects. Never emit more than one block. Omit the block when no change is needed.

Available actions:
- {"action":"create_task","title":"...","priority":"low|medium|high","due_date":"YYYY-MM-DD","team_id":123}
- {"action":"create_note","title":"...","content":"...","is_important":false}
- {"action":"push_notification","title":"...","description":"...","type":"info|alert|reminder"}
- {"action":"update_task","id":123,"updates":{"title":"...","status":"todo|done","priority":"low|medium|high","due_date":"YYYY-MM-DD"}}
- {"action":"delete_task","id":123}
- {"action":"create_team","name":"..."}

Only "title" is required for create_task, "content" for create_note, "title" and "description" for push_notification, "id" and "updates" for update_task, "id" for delete_task and "name" for create_team. Use ids exactly as they appear in the context below.

Example:
Sure, I've added that for you.
` + "```json\n{\"action\":\"create_task\",\"title\":\"Buy milk\",\"priority\":\"medium\"}\n```\n"

const toolInstructions = `When the user asks you to change their data, call the provided functions (create_task, create_note, push_notification, update_task, delete_task, create_team) and also reply in natural language. Never write JSON action blocks in the reply text. Use ids exactly as they appear in the context below.
`

// Composer 生成系统提示词，对相同输入输出相同结果
type Composer struct {
	locale string
	tools  bool
	loc    *time.Location
}

// NewComposer tools 为 true 时提示模型使用函数调用而不是 JSON 代码块；
// loc 与解析 due_date 时使用的时区一致，nil 表示 UTC
func NewComposer(locale string, tools bool, loc *time.Location) *Composer {
	if _, ok := weekdayNames[locale]; !ok {
		locale = "en"
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Composer{locale: locale, tools: tools, loc: loc}
}

// Compose 拼接固定指令模板和上下文
func (c *Composer) Compose(b Bundle, now time.Time) string {
	tmpl := baseInstructions
	if c.tools {
		tmpl += toolInstructions
	} else {
		tmpl += fencedInstructions
	}

	now = now.In(c.loc)
	r := strings.NewReplacer(
		"{{TODAY}}", now.Format(dateLayout),
		"{{WEEKDAY}}", weekdayNames[c.locale][now.Weekday()],
	)

	var sb strings.Builder
	sb.WriteString(r.Replace(tmpl))
	sb.WriteString("\n")
	sb.WriteString(RenderContext(b, c.loc))
	return sb.String()
}

// RenderContext 以文本形式输出任务、笔记和团队，截止日期换算到 loc 后输出
func RenderContext(b Bundle, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	var sb strings.Builder

	sb.WriteString("Current tasks:\n")
	if len(b.Tasks.Items) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, t := range b.Tasks.Items {
		due := "no due date"
		if t.DueDate != nil {
			due = t.DueDate.In(loc).Format(dateLayout)
		}
		fmt.Fprintf(&sb, "[%d] %q (%s, %s, %s)\n", t.ID, t.Title, t.Status, t.Priority, due)
	}

	sb.WriteString("\nRecent notes:\n")
	if len(b.Notes.Items) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, n := range b.Notes.Items {
		title := n.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(&sb, "[%s] %s\n", title, n.Content)
	}

	sb.WriteString("\nTeams:\n")
	if len(b.Teams.Items) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, m := range b.Teams.Items {
		fmt.Fprintf(&sb, "%q (%d)\n", m.TeamName, m.TeamID)
	}

	return sb.String()
}
