// Package difficulty retargets the proof of work difficulty from the
// observed cadence of recent blocks.
package difficulty

import (
	"time"
)

// MinDifficulty is the lowest difficulty ever produced.
const MinDifficulty = 1

// MaxDifficulty is the number of hex characters in a block hash. A harder
// difficulty could never be solved.
const MaxDifficulty = 64

// Timeline provides the timestamps of the blocks in a chain.
type Timeline interface {
	Len() int
	TimeAt(i int) time.Time
}

// Controller is a two threshold controller. After every Interval blocks it
// compares the average time between the last Interval blocks to the target
// and moves the difficulty by one step when the chain is running at less
// than half or more than one and a half times the target.
type Controller struct {
	TargetBlockTime time.Duration
	Interval        int
}

// Retarget returns the difficulty to use for the next block given the
// current difficulty and the chain as it stands.
func (c Controller) Retarget(current uint, chain Timeline) uint {
	length := chain.Len()
	if c.Interval < 1 || length <= c.Interval || length%c.Interval != 0 {
		return current
	}

	first := chain.TimeAt(length - 1 - c.Interval)
	last := chain.TimeAt(length - 1)
	average := last.Sub(first) / time.Duration(c.Interval)

	switch {
	case 2*average < c.TargetBlockTime:
		if current < MaxDifficulty {
			current++
		}

	case 2*average > 3*c.TargetBlockTime:
		if current > MinDifficulty {
			current--
		}
	}

	if current < MinDifficulty {
		current = MinDifficulty
	}

	return current
}
