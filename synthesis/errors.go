// Copyright 2025 Seamark Systems
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

package synthesis

import "errors"

var (
	// ErrToolRoundsExceeded indicates the model kept requesting tool calls
	// without ever producing answer text within the round cap.
	ErrToolRoundsExceeded = errors.New("synthesis: tool round limit exceeded")

	// ErrEmptyAnswer indicates the model finished without emitting any text
	// and without requesting further tool calls.
	ErrEmptyAnswer = errors.New("synthesis: model produced no answer text")
)
