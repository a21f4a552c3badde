/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package backend

import "strings"

const (
	meaningDeletionPrefix = "この意味はユーザによって削除されました（元の意味: "
	hookDeletionPrefix    = "この記憶hookはユーザによって削除されました（元の記憶hook: "
	deletionSuffix        = "）"
)

var htmlEscaper = strings.NewReplacer("<", "&lt;", ">", "&gt;")

// SanitizeInput escapes angle brackets and trims surrounding whitespace.
func SanitizeInput(input string) string {
	return strings.TrimSpace(htmlEscaper.Replace(input))
}

// NormalizeWord is the stored form of a headword.
func NormalizeWord(wordText string) string {
	return SanitizeInput(strings.ToLower(strings.TrimSpace(wordText)))
}

func markDeleted(prefix, text string) string {
	return prefix + text + deletionSuffix
}

// restoreDeleted strips the deletion marker written by markDeleted.
func restoreDeleted(prefix, text string) string {
	if !strings.HasPrefix(text, prefix) {
		return text
	}
	return strings.TrimSuffix(strings.TrimPrefix(text, prefix), deletionSuffix)
}
