// 文件路径: internal/repository/types.go
// 模块说明: 这是 internal 模块里的 types 逻辑，下面的注释会用非常通俗的中文帮你理解每一步。
package repository

import "encoding/json"

// Inbound is one row of the inbounds table. Settings carries the flat exported
// projection of the profile as JSON.
type Inbound struct {
	ID            int64
	Protocol      string
	Network       string
	Security      string
	Port          int
	Tag           string
	Remark        string
	ServerAddress string
	Settings      json.RawMessage
	CreatedAt     int64
	UpdatedAt     int64
}

// User is a panel user that inbounds can be assigned to.
type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	CreatedAt int64  `json:"createdAt"`
}

// UserGroup bundles users so inbounds can be assigned to many at once.
type UserGroup struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"`
}
