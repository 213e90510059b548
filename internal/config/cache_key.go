package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionKey returns the cache key for a user's login session.
func (r *CacheKeyStruct) SessionKey(userID string) string {
	return fmt.Sprintf("login:%s", userID)
}

// RosterChannel returns the Redis PubSub channel name carrying live
// check-in events for a class.
func (r *CacheKeyStruct) RosterChannel(classID string) string {
	return fmt.Sprintf("class:%s:roster", classID)
}

// GeocodeKey returns the cache key for a reverse-geocoded address, keyed
// by coordinates rounded to ~10 m so nearby check-ins share one lookup.
func (r *CacheKeyStruct) GeocodeKey(lat, lon float64) string {
	return fmt.Sprintf("geocode:%.4f:%.4f", lat, lon)
}

var CacheKey = NewCacheKeyStruct()
