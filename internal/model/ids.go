// Package model holds the core data types shared across the orchestrator:
// goals, plans, tasks, pipelines, reviews, schedules and events.
package model

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const idSuffixSpace = int64(0x1000000) // 16^6

// NewID generates a sortable, collision-resistant identifier of the form
// "{prefix}-{YYYYMMDD}-{hex6}".
func NewID(prefix string, now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(idSuffixSpace))
	if err != nil {
		return "", fmt.Errorf("model: generate id: %w", err)
	}
	return fmt.Sprintf("%s-%s-%06x", prefix, now.UTC().Format("20060102"), n.Int64()), nil
}
