// Package task implements a single-process task-graph executor. A Task is a
// named unit of work with dependency edges, a lifecycle state and an
// optional cached result. Callers wire tasks together (referencing one
// task's value as another's argument adds the edge) and then drive the
// graph from a chosen root with Run, which executes tasks in dependency
// order, honors retry-later deferrals, aborts on the first unrecoverable
// failure and can checkpoint progress to disk so an interrupted run
// resumes where it left off.
//
// Execution is strictly sequential: one work function runs at a time and
// the run loop exclusively owns the graph for the duration of Run, so no
// locking is involved.
package task
