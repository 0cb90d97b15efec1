// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package api holds the contracts shared by every hioload-batch layer:
// request descriptors and their responses, the batch container, and the
// structured error taxonomy used to report pool-level failures.
package api
