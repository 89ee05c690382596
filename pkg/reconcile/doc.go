// Package reconcile keeps the local task list and a remote to-do API in step.
//
// # Identity
//
// A task starts local-only. When the remote backend accepts a create, or when
// a remote task is imported, the task is promoted to a server-linked identity
// carrying the numeric remote id. From then on toggles, priority changes and
// deletions are mirrored to the backend using that id. Local-only tasks are
// never sent anywhere after their initial create attempt.
//
// # Failures
//
// The local list is the source of truth. A failed remote call is reported
// through the Notifier and the local change stands. Only failures to load or
// save the snapshot are returned as errors.
//
// # Import
//
// Remote tasks are de-duplicated against existing tasks by trimmed,
// case-folded text before they are added.
package reconcile
