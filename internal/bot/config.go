package bot

import (
	"time"
)

// BotConfig represents the configuration for the bot
type BotConfig struct {
	// Words shown per /review batch
	ReviewBatchSize int
	// Days covered by /progress
	SummaryDays int
	// Weak areas listed by /weak
	WeakAreaListSize int
	// Long polling timeout in seconds
	UpdateTimeout int
	// Largest voice message we download
	MaxVoiceBytes int64
	// Time budget for handling one update
	HandlerTimeout time.Duration
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *BotConfig {
	return &BotConfig{
		ReviewBatchSize:  10,
		SummaryDays:      7,
		WeakAreaListSize: 10,
		UpdateTimeout:    60,
		MaxVoiceBytes:    10 << 20,
		HandlerTimeout:   time.Minute,
	}
}
