// Package history derives the human-facing view of operation records:
// a lowercase display status and how far through its timelock a pending
// operation is. Pure read-side projection, no authority over anything.
package history

import (
	"sort"
	"strings"
	"time"

	"github.com/PracticalParticle/secureops/internal/optype"
)

// View is the display projection of one operation record.
type View struct {
	Record optype.OperationRecord

	// DisplayStatus is the lowercase status label.
	DisplayStatus string

	// Progress is the elapsed fraction of the timelock window, in
	// [0, 1]. Terminal records always report 1.
	Progress float64

	// Remaining is the time left until the release time, zero once
	// elapsed or for terminal records.
	Remaining time.Duration
}

// Ready reports whether the operation can be directly approved now.
func (v View) Ready() bool {
	return v.Record.Status == optype.StatusPending && v.Remaining == 0
}

// Project derives the view of a single record. timelock is the
// contract's current timelock period, used to anchor the start of the
// progress window at releaseTime minus timelock.
func Project(rec optype.OperationRecord, timelock time.Duration, now time.Time) View {
	v := View{
		Record:        rec,
		DisplayStatus: strings.ToLower(rec.Status.String()),
	}
	if rec.Status.Terminal() || rec.Status == optype.StatusUndefined {
		v.Progress = 1
		return v
	}

	release := time.Unix(rec.ReleaseTime, 0)
	if !now.Before(release) {
		v.Progress = 1
		return v
	}
	v.Remaining = release.Sub(now)

	if timelock <= 0 {
		// No window to measure against; the lock simply has not
		// elapsed yet.
		return v
	}
	elapsed := timelock - v.Remaining
	if elapsed < 0 {
		elapsed = 0
	}
	v.Progress = float64(elapsed) / float64(timelock)
	if v.Progress > 1 {
		v.Progress = 1
	}
	return v
}

// ProjectAll projects a set of records sorted newest first.
func ProjectAll(recs []optype.OperationRecord, timelock time.Duration, now time.Time) []View {
	views := make([]View, 0, len(recs))
	for _, rec := range recs {
		views = append(views, Project(rec, timelock, now))
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].Record.OperationID > views[j].Record.OperationID
	})
	return views
}
