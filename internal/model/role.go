package model

type UserRole int8

const (
	UserRoleDefault = UserRole(iota)
	UserRoleAdmin
)
