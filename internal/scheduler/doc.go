// Package scheduler runs the tasks of a dependency graph under a weighted
// resource budget.
//
// # How It Works
//
// A single coordinating goroutine owns the state of every task. Tasks whose
// dependencies have all succeeded or been skipped enter a ready queue,
// ordered by their distance to the goals (closest first) and then by the
// order in which they became ready. The coordinator walks that queue and
// starts every task whose weight still fits the budget; each started task
// runs on its own goroutine and reports back on a single results channel.
// Workers never touch task state.
//
// Tasks the staleness plan marks as up to date become skipped instead of
// running. A failed task blocks all of its transitive dependents, while
// unrelated branches keep running.
//
// # Aborting
//
// Cancelling the context passed to Run stops new dispatches. Tasks already
// running are left to finish, since killing them halfway would leave
// partial outputs behind, and every task that never started is reported as
// cancelled.
package scheduler
