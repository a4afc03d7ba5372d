// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp implements reactor-backed non-blocking TCP endpoints.
//
// Every operation (Accept, Connect, Send, Flush, Recv) retries its syscall
// until it would block, then registers exactly one waker with the reactor
// and parks the calling goroutine until that waker fires, the context is
// cancelled, or the endpoint is closed. EAGAIN never escapes this package;
// other OS errors are returned as *api.IOFault.
//
// An endpoint admits one in-flight operation at a time, because the reactor
// keeps a single waker per handle. The package is Linux-only.
package tcp
