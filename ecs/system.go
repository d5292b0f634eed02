package ecs

// System is a behavior run once per frame by a Scheduler.
// Systems may hold *Query fields, which are pre-matched on registration,
// as well as custom state that persists between frames.
type System interface {
	Execute(frame *UpdateFrame)
}
