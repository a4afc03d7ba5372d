// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the readiness binding used by hioload-page
// endpoints: an edge-triggered epoll poller that keeps exactly one pending
// waker per registered handle and invokes it once per readiness edge.
package reactor
