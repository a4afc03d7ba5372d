// Package pool
// Author: momentics <momentics@gmail.com>
//
// Reusable scratch memory for hioload-page endpoints: a generic sync.Pool
// wrapper and the fixed-size chunk pool backing receive loops.
package pool
