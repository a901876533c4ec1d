package constants

import "time"

// Freshness windows used when configuration does not override them.
var Freshness = struct {
	Interactive time.Duration
	Prewarm     time.Duration
}{
	Interactive: 12 * time.Hour,
	Prewarm:     2 * time.Hour,
}

var RedisConfig = struct {
	KeyPrefix    string
	ReadyTimeout time.Duration
}{
	KeyPrefix:    "herobuilds:",
	ReadyTimeout: 15 * time.Second,
}

var PostgresConfig = struct {
	ReadyTimeout time.Duration
	QueryTimeout time.Duration
}{
	ReadyTimeout: 30 * time.Second,
	QueryTimeout: 5 * time.Second,
}

var WebSocketConfig = struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	SendBufferSize int
}{
	WriteWait:      10 * time.Second,
	PongWait:       60 * time.Second,
	PingPeriod:     54 * time.Second,
	SendBufferSize: 16,
}

var HTTPServer = struct {
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
}{
	ReadHeaderTimeout: 10 * time.Second,
	// Cold reads block on a full page render.
	WriteTimeout: 2 * time.Minute,
	IdleTimeout:  90 * time.Second,
}
