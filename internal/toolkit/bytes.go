// Copyright (c) 2026 The Evstream Authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package toolkit

import "unsafe"

// BytesToString converts byte slice to a string without memory allocation.
func BytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	/* #nosec G103 */
	return unsafe.String(&b[0], len(b))
}

// StringToBytes converts string to a byte slice without memory allocation.
// The returned slice must not be modified.
func StringToBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	/* #nosec G103 */
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
