// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package transfer configures single HTTP exchanges from request
// descriptors. A Builder applies URL, method and body wiring, TLS options,
// header list, redirect and timeout policy; the resulting Handle executes
// the exchange and captures status, headers, body and error text.
package transfer
