// Package job runs background tasks on River, a Postgres-native queue.
//
// Every job is stored as one River kind carrying a task name and a JSON
// payload. A [Task] decodes that payload into its own type:
//
//	type DeliverTask struct{ svc *dispatch.Service }
//
//	func (t *DeliverTask) Name() string { return "deliver_email" }
//
//	func (t *DeliverTask) Handle(ctx context.Context, p DeliverPayload) error {
//		_, err := t.svc.AttemptDelivery(ctx, p.RecordID)
//		return err
//	}
//
// A [ScheduledTask] adds Schedule, a five-field cron expression parsed with
// robfig/cron.
//
// [Manager] registers tasks and runs workers. [Enqueuer] only inserts jobs
// and suits the HTTP process when a separate worker drains the queue:
//
//	m, err := job.NewManager(pool,
//		job.WithTask[DeliverPayload](deliver),
//		job.WithScheduledTask(sweep),
//		job.WithMaxWorkers(10),
//		job.WithLogger(log),
//	)
//
//	err = m.Enqueue(ctx, "deliver_email", payload, job.MaxAttempts(1))
//
// River keeps its state in its own tables; apply them with [Migrate] before
// starting a manager.
package job
