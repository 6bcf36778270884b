// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import "strconv"

// FloatToString converts a float64 to string with 2 decimal places.
func FloatToString(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
