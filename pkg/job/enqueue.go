package job

import (
	"time"

	"github.com/riverqueue/river"
)

// insertOptions is river.InsertOpts plus the dedup settings. The key
// travels in the job args, where River's ByArgs uniqueness sees it.
type insertOptions struct {
	river.InsertOpts
	uniqueKey string
	uniqueFor time.Duration
}

// EnqueueOption adjusts a single Enqueue call.
type EnqueueOption func(*insertOptions)

// InQueue routes the job to a queue registered with WithQueue.
func InQueue(name string) EnqueueOption {
	return func(o *insertOptions) {
		if name != "" {
			o.Queue = name
		}
	}
}

func ScheduledAt(t time.Time) EnqueueOption {
	return func(o *insertOptions) { o.ScheduledAt = t }
}

func ScheduledIn(d time.Duration) EnqueueOption {
	return func(o *insertOptions) { o.ScheduledAt = time.Now().Add(d) }
}

// MaxAttempts limits how often River runs the job. Delivery jobs run once
// because the outbox tracks retries itself.
func MaxAttempts(n int) EnqueueOption {
	return func(o *insertOptions) {
		if n > 0 {
			o.MaxAttempts = n
		}
	}
}

// UniqueFor drops the insert if an equivalent job was inserted during the
// last d. Jobs are equivalent when task name, payload and UniqueKey match.
//
//	svc.Enqueue(ctx, "deliver_email", p,
//		job.UniqueKey(recordID),
//		job.UniqueFor(time.Minute))
func UniqueFor(d time.Duration) EnqueueOption {
	return func(o *insertOptions) { o.uniqueFor = d }
}

// UniqueKey has no effect without UniqueFor.
func UniqueKey(key string) EnqueueOption {
	return func(o *insertOptions) { o.uniqueKey = key }
}

// Priority ranges 1 (first) to 4.
func Priority(p int) EnqueueOption {
	return func(o *insertOptions) { o.Priority = p }
}

func Tags(tags ...string) EnqueueOption {
	return func(o *insertOptions) { o.Tags = append(o.Tags, tags...) }
}
