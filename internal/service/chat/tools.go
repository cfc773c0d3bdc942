package chat

import "taskmate/internal/service/llm"

var (
	priorityEnum = []string{"low", "medium", "high"}
	statusEnum   = []string{"todo", "done"}
)

// ToolSpecs 以函数声明的形式描述六种意图，供支持 function calling 的模型使用
func ToolSpecs() []llm.ToolSpec {
	return []llm.ToolSpec{
		{
			Name:        KindCreateTask,
			Description: "Create a new task for the user.",
			Params: []llm.ToolParam{
				{Name: "title", Type: "string", Required: true},
				{Name: "priority", Type: "string", Enum: priorityEnum},
				{Name: "due_date", Type: "string", Description: "YYYY-MM-DD or RFC3339"},
				{Name: "team_id", Type: "integer", Description: "one of the user's team ids"},
			},
		},
		{
			Name:        KindCreateNote,
			Description: "Save a note for the user.",
			Params: []llm.ToolParam{
				{Name: "content", Type: "string", Required: true},
				{Name: "title", Type: "string"},
				{Name: "is_important", Type: "boolean"},
			},
		},
		{
			Name:        KindPushNotification,
			Description: "Send the user an in-app notification.",
			Params: []llm.ToolParam{
				{Name: "title", Type: "string", Required: true},
				{Name: "description", Type: "string", Required: true},
				{Name: "type", Type: "string", Enum: []string{"info", "alert", "reminder", "task_created"}},
			},
		},
		{
			Name:        KindUpdateTask,
			Description: "Update fields of an existing task by id.",
			Params: []llm.ToolParam{
				{Name: "id", Type: "integer", Required: true},
				{Name: "updates", Type: "object", Required: true, Properties: []llm.ToolParam{
					{Name: "title", Type: "string"},
					{Name: "status", Type: "string", Enum: statusEnum},
					{Name: "priority", Type: "string", Enum: priorityEnum},
					{Name: "due_date", Type: "string", Description: "empty string clears the due date"},
				}},
			},
		},
		{
			Name:        KindDeleteTask,
			Description: "Delete an existing task by id.",
			Params: []llm.ToolParam{
				{Name: "id", Type: "integer", Required: true},
			},
		},
		{
			Name:        KindCreateTeam,
			Description: "Create a team owned by the user.",
			Params: []llm.ToolParam{
				{Name: "name", Type: "string", Required: true},
			},
		},
	}
}
