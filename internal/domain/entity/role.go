// Package entity 定义领域实体
package entity

// Role 调用方角色（由上游网关校验后注入）
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleTherapist Role = "therapist"
	RoleMember    Role = "member"
)

// Valid 是否为已知角色
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTherapist, RoleMember:
		return true
	}
	return false
}

// CanReview 是否可以审核生成结果
func (r Role) CanReview() bool {
	return r == RoleAdmin || r == RoleTherapist
}

// SeesAll 是否可以查看所有人的生成记录
func (r Role) SeesAll() bool {
	return r.CanReview()
}
