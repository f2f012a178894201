// internal/models/audit.go
package models

type AuditLog struct {
	BaseModel
	UserID       *int64 `json:"user_id" gorm:"index"`
	Role         string `json:"role" gorm:"size:20"`
	Action       string `json:"action" gorm:"size:100;not null;index"`
	ResourceType string `json:"resource_type" gorm:"size:50;not null;index"`
	ResourceID   *int64 `json:"resource_id" gorm:"index"`
	NewValues    JSONB  `json:"new_values" gorm:"type:jsonb"`
	StatusCode   int    `json:"status_code"`
	IPAddress    string `json:"ip_address" gorm:"size:45"`
	UserAgent    string `json:"user_agent" gorm:"type:text"`
}
