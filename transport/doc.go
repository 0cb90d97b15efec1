// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package transport provides Multi, the engine a transfer pool drives:
// attach configured transfers, perform, ask for the descriptor set and a
// timeout hint, wait for readiness, then read completion messages.
package transport
