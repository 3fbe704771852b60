// Copyright 2021-2024 The Connect Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tl

import (
	"hash/crc32"
	"regexp"
	"strings"
)

var (
	explicitIDPattern = regexp.MustCompile(`^([A-Za-z_][\w.]*)#[0-9a-fA-F]+`)
	trueFlagPattern   = regexp.MustCompile(`\s\w+:flags\d*\.\d+\?true\b`)
	bytesTypePattern  = regexp.MustCompile(`([:<])bytes\b`)
)

// CombinatorID derives a constructor's identifier from its TL declaration,
// the way the schema compiler does: the CRC32 (IEEE) of the declaration
// after normalization. For example,
//
//	CombinatorID("boolTrue = Bool;") == 0x997275b5
//
// Normalization drops any explicit #id, the trailing semicolon, braces
// around type parameters, and flag fields of type true; it spells bytes as
// string, turns angle brackets into spaces, and collapses whitespace.
func CombinatorID(declaration string) uint32 {
	return crc32.ChecksumIEEE([]byte(NormalizeDeclaration(declaration)))
}

// NormalizeDeclaration returns the form of a TL declaration that
// CombinatorID hashes.
func NormalizeDeclaration(declaration string) string {
	decl := strings.TrimSpace(declaration)
	decl = strings.TrimSuffix(decl, ";")
	decl = explicitIDPattern.ReplaceAllString(decl, "$1")
	decl = trueFlagPattern.ReplaceAllString(decl, "")
	decl = bytesTypePattern.ReplaceAllString(decl, "${1}string")
	decl = strings.NewReplacer("{", " ", "}", " ", "<", " ", ">", " ").Replace(decl)
	return strings.Join(strings.Fields(decl), " ")
}
