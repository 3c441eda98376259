/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package lineup

import "errors"

var (
	// ErrInvalidTemplate marks configuration errors found before planning.
	ErrInvalidTemplate = errors.New("invalid lineup template")

	// ErrInvariant marks a compiled lineup that breaks ordering or contiguity.
	ErrInvariant = errors.New("lineup invariant violated")

	// ErrReplaySource marks a replay whose original airing cannot be used.
	ErrReplaySource = errors.New("replay source unavailable")

	// ErrMediaGroup marks a clip whose rotation group is missing or empty.
	ErrMediaGroup = errors.New("media group unavailable")

	// ErrCanonicalID marks a malformed canonical id.
	ErrCanonicalID = errors.New("malformed canonical id")
)
