package model

import "time"

const (
	AuditStatusSuccess = "success"
	AuditStatusFailure = "failure"
)

const (
	AuditActionSignup         = "auth.signup"
	AuditActionLogin          = "auth.login"
	AuditActionLogout         = "auth.logout"
	AuditActionRefresh        = "auth.refresh"
	AuditActionPasswordChange = "user.password_change"
	AuditActionUserUpdate     = "user.update"
	AuditActionUserDelete     = "user.delete"
	AuditActionRoleChange     = "user.role_change"
)

type AuditActor struct {
	UserID   string `json:"user_id,omitempty"`
	Nickname string `json:"nickname,omitempty"`
	Role     Role   `json:"role,omitempty"`
	IP       string `json:"ip,omitempty"`
}

type AuditEntry struct {
	ID         int64      `json:"id"`
	Action     string     `json:"action"`
	OccurredAt time.Time  `json:"occurred_at"`
	Actor      AuditActor `json:"actor"`
	Status     string     `json:"status"`
	Resource   string     `json:"resource,omitempty"`
	Error      string     `json:"error,omitempty"`
}

type AuditQuery struct {
	Action  string
	ActorID string
	Status  string
	From    time.Time
	To      time.Time
	Page    int
	Limit   int
}

type AuditListData struct {
	Items []AuditEntry `json:"items"`
}
