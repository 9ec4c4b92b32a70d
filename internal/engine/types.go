package engine

import (
	"strings"
	"time"
)

type NodeType string

const (
	NodeTypeTrigger   NodeType = "trigger"
	NodeTypeInput     NodeType = "input"
	NodeTypeAction    NodeType = "action"
	NodeTypeCondition NodeType = "condition"
	NodeTypeOutput    NodeType = "output"
)

// Port tags an outgoing edge. Condition nodes route on "true"/"false";
// every other node type uses "default" (an empty port is treated as default).
type Port string

const (
	PortTrue    Port = "true"
	PortFalse   Port = "false"
	PortDefault Port = "default"
)

type Node struct {
	ID      string         `json:"id"`
	Type    NodeType       `json:"type"`
	Label   string         `json:"label"`
	AgentID string         `json:"agentId,omitempty"`
	Config  map[string]any `json:"config,omitempty"`
}

type Edge struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	Target     string `json:"target"`
	SourcePort Port   `json:"sourcePort,omitempty"`
}

// GraphConfig is the editor-produced workflow graph. The interpreter treats
// it as an immutable snapshot for the duration of one execution.
type GraphConfig struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

type Workflow struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Description   string      `json:"description,omitempty"`
	Status        string      `json:"status,omitempty"`
	Configuration GraphConfig `json:"configuration"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

type AgentRole string

const (
	RoleGlobalManager      AgentRole = "global_manager"
	RoleProjectManager     AgentRole = "project_manager"
	RoleProductOwner       AgentRole = "product_owner"
	RoleTechLead           AgentRole = "tech_lead"
	RoleArchitect          AgentRole = "architect"
	RoleDeveloper          AgentRole = "developer"
	RoleFrontendDeveloper  AgentRole = "frontend_developer"
	RoleBackendDeveloper   AgentRole = "backend_developer"
	RoleFullstackDeveloper AgentRole = "fullstack_developer"
	RoleMobileDeveloper    AgentRole = "mobile_developer"
	RoleDevopsEngineer     AgentRole = "devops_engineer"
	RoleQAEngineer         AgentRole = "qa_engineer"
	RoleSecurityEngineer   AgentRole = "security_engineer"
	RoleDataEngineer       AgentRole = "data_engineer"
	RoleDataScientist      AgentRole = "data_scientist"
	RoleUXDesigner         AgentRole = "ux_designer"
	RoleUIDesigner         AgentRole = "ui_designer"
	RoleTechnicalWriter    AgentRole = "technical_writer"
	RoleMarketingManager   AgentRole = "marketing_manager"
	RoleSupportEngineer    AgentRole = "support_engineer"
)

// ModelConfig holds per-agent overrides for the model collaborator.
// Nil pointer fields fall back to the provider's defaults.
type ModelConfig struct {
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

// workingMemoryLimit bounds the advisory memory written back to an agent
// after it completes a unit of work.
const workingMemoryLimit = 800

type Agent struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Role          AgentRole      `json:"role"`
	Priority      int            `json:"priority"`
	Capabilities  []string       `json:"capabilities,omitempty"`
	IsActive      bool           `json:"is_active"`
	SystemPrompt  string         `json:"system_prompt,omitempty"`
	ModelConfig   ModelConfig    `json:"model_config"`
	WorkingMemory string         `json:"working_memory,omitempty"`
	Facts         map[string]any `json:"facts,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionCancelled ExecutionStatus = "cancelled"
)

type Execution struct {
	ID          string          `json:"id"`
	WorkflowID  string          `json:"workflow_id"`
	Status      ExecutionStatus `json:"status"`
	Parameters  map[string]any  `json:"parameters,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

type StatusTransition struct {
	Status TaskStatus `json:"status"`
	At     time.Time  `json:"at"`
}

type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Task records one node-visit within an execution. It is updated in place
// while the node's strategy runs and is immutable once status is terminal.
type Task struct {
	ID                string             `json:"id"`
	ExecutionID       string             `json:"execution_id"`
	NodeID            string             `json:"node_id"`
	AgentID           string             `json:"agent_id,omitempty"`
	Description       string             `json:"description"`
	Input             map[string]any     `json:"input,omitempty"`
	Status            TaskStatus         `json:"status"`
	StatusTransitions []StatusTransition `json:"status_transitions"`
	StartedAt         time.Time          `json:"started_at"`
	CompletedAt       *time.Time         `json:"completed_at,omitempty"`
	DurationMS        int64              `json:"duration_ms"`
	ModelName         string             `json:"model_name,omitempty"`
	ModelCalls        int                `json:"model_calls"`
	TokenUsage        TokenUsage         `json:"token_usage"`
	Output            string             `json:"output,omitempty"`
}

// Transition appends a status change to the task's ordered transition log
// and sets the current status.
func (t *Task) Transition(status TaskStatus, at time.Time) {
	t.Status = status
	t.StatusTransitions = append(t.StatusTransitions, StatusTransition{Status: status, At: at})
}

// InputField describes one field of an input node's form.
type InputField struct {
	Key          string   `json:"key"`
	Label        string   `json:"label"`
	Type         string   `json:"type"` // text|number|boolean|select|textarea
	Options      []string `json:"options,omitempty"`
	DefaultValue any      `json:"defaultValue,omitempty"`
}

// PendingInput describes the value(s) an input node is waiting for.
// Type is one of text|number|boolean|select|multi.
type PendingInput struct {
	NodeID  string       `json:"nodeId"`
	Label   string       `json:"label"`
	Type    string       `json:"type"`
	Options []string     `json:"options,omitempty"`
	Fields  []InputField `json:"fields,omitempty"`
}

// IsMultiInput reports whether the node collects several fields at once.
func (n *Node) IsMultiInput() bool {
	multi, _ := n.Config["isMultiInput"].(bool)
	return multi
}

// InputFields decodes the node's configured field list. Config comes from
// the graph editor as loosely typed JSON, so each entry is re-shaped here.
func (n *Node) InputFields() []InputField {
	raw, ok := n.Config["fields"].([]any)
	if !ok {
		return nil
	}
	fields := make([]InputField, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		f := InputField{}
		f.Key, _ = m["key"].(string)
		f.Label, _ = m["label"].(string)
		f.Type, _ = m["type"].(string)
		if f.Type == "" {
			f.Type = "text"
		}
		if opts, ok := m["options"].([]any); ok {
			for _, o := range opts {
				if s, ok := o.(string); ok {
					f.Options = append(f.Options, s)
				}
			}
		}
		f.DefaultValue = m["defaultValue"]
		fields = append(fields, f)
	}
	return fields
}

// TaskKey returns the run-context key a single-field input node stores its
// value under: the first configured field key, falling back to the node ID.
func (n *Node) TaskKey() string {
	if fields := n.InputFields(); len(fields) > 0 && fields[0].Key != "" {
		return fields[0].Key
	}
	return n.ID
}

// PendingDescriptor builds the pending-input descriptor surfaced to the
// caller when this input node has no value available yet.
func (n *Node) PendingDescriptor() *PendingInput {
	p := &PendingInput{NodeID: n.ID, Label: n.Label, Type: "text"}
	fields := n.InputFields()
	if n.IsMultiInput() {
		p.Type = "multi"
		p.Fields = fields
		return p
	}
	if len(fields) > 0 {
		if fields[0].Type != "" && fields[0].Type != "textarea" {
			p.Type = fields[0].Type
		}
		p.Options = fields[0].Options
		if p.Label == "" {
			p.Label = fields[0].Label
		}
	}
	return p
}

// ApplyMemory overwrites the agent's advisory working memory with the last
// produced message, truncated, and replaces facts when the message is itself
// a JSON object. It reports whether anything changed.
func (a *Agent) ApplyMemory(message string, facts map[string]any) bool {
	msg := strings.TrimSpace(message)
	if msg == "" && facts == nil {
		return false
	}
	if len(msg) > workingMemoryLimit {
		msg = msg[:workingMemoryLimit]
	}
	a.WorkingMemory = msg
	if facts != nil {
		a.Facts = facts
	}
	a.UpdatedAt = time.Now()
	return true
}
