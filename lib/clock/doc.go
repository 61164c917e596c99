// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the injectable time source used by the transaction ID
// generator, the device age filter, event envelopes and registration
// token expiry.
//
// Production code uses Real(). Tests use Fake(), whose time moves only
// when Advance or Set is called.
package clock
