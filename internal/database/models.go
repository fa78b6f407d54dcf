package database

import (
	"gorm.io/gorm"
)

// User 表示系统中的账号信息。文档通过 user_id 归属到账号。
type User struct {
	gorm.Model
	Username     string `gorm:"uniqueIndex;size:64"`
	PasswordHash string `gorm:"size:255"`
}
