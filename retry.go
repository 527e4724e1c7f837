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

package uploader

// RetryGovernor caps how many times a registration may reach the commit step.
type RetryGovernor struct {
	MaxRetries int
}

// Next returns the counter to persist and whether the attempt may proceed.
// A nil previous counter means the registration was never attempted.
func (g RetryGovernor) Next(previous *int) (next int, proceed bool) {
	if previous != nil {
		next = *previous
	}
	next++
	return next, next < g.MaxRetries
}
