// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package capability

import "sync"

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide registry, seeding the built-in capability
// roster on first access. The registry lives for the rest of the process;
// there is no teardown.
func Global() *Registry {
	globalOnce.Do(func() {
		global = New()
		global.Bootstrap()
	})
	return global
}
