package services

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// TrackTime logs the elapsed time of op at debug level.
// Call it as defer TrackTime("op", time.Now()).
func TrackTime(op string, start time.Time) {
	log.WithFields(log.Fields{
		"op":         op,
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Debug("timing")
}
