// Package page
// Author: momentics <momentics@gmail.com>
//
// Multi-thread task runner with a single shared shutdown.
//
// A Page spawns independent Tasks, each on its own locked OS thread, and
// stops them all as soon as any one of them finishes on its own. The
// sequence is:
//   - a Task returns: the Page's running flag is cleared and the joiner woken
//   - Join observes the cleared flag and cancels every still-running Task
//   - Join waits for every thread to exit
//
// Tasks see cancellation through their context, which every suspending
// operation in transport/tcp honours.
package page
