package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionPrefix returns the Redis key prefix for viewer sessions.
func (r *CacheKeyStruct) SessionPrefix() string {
	return "handouts:session:"
}

// SessionKey returns the Redis key holding a session token's data.
func (r *CacheKeyStruct) SessionKey(token string) string {
	return fmt.Sprintf("%s%s", r.SessionPrefix(), token)
}


// HandoffKey marks a handoff token ID as spent.
func (r *CacheKeyStruct) HandoffKey(jti string) string {
	return fmt.Sprintf("handouts:handoff:%s", jti)
}

var CacheKey = NewCacheKeyStruct()
