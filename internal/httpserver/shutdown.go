package httpserver

import "time"

// ShutdownTimeout controls how long in-flight requests may finish once a
// stop signal arrives.
const ShutdownTimeout = 15 * time.Second
