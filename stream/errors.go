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

package stream

import "errors"

var (
	// ErrNoTopic indicates no live producer exists for the message.
	ErrNoTopic = errors.New("stream: no live topic for message")

	// ErrPollExhausted indicates the resume poll loop hit its attempt
	// ceiling before the message reached a terminal state.
	ErrPollExhausted = errors.New("stream: poll attempts exhausted")
)
