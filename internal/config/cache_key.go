package config

import (
	"fmt"
	"time"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// RevokedTokenKey marks a JWT id as logged out until the token expires.
func (r *CacheKeyStruct) RevokedTokenKey(jti string) string {
	return fmt.Sprintf("auth:revoked:%s", jti)
}

// TeacherSchoolKey caches the school a teacher profile belongs to.
func (r *CacheKeyStruct) TeacherSchoolKey(teacherID string) string {
	return fmt.Sprintf("teacher:%s:school", teacherID)
}

// BulkRateLimitKey returns the fixed-window counter key for a user's bulk requests.
// The window start is truncated to the minute.
func (r *CacheKeyStruct) BulkRateLimitKey(userID string, now time.Time) string {
	return fmt.Sprintf("ratelimit:bulk:%s:%d", userID, now.Truncate(time.Minute).Unix())
}

// ClassRosterChannel returns the Redis PubSub channel name for a class roster.
func (r *CacheKeyStruct) ClassRosterChannel(classID int) string {
	return fmt.Sprintf("class:%d:roster", classID)
}

var CacheKey = NewCacheKeyStruct()
