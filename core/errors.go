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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidMessage indicates a Message failed validation.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrInvalidSession indicates a Session failed validation.
	ErrInvalidSession = errors.New("invalid session")

	// ErrEmptyQuery indicates the Query field is empty.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrEmptySessionID indicates the SessionID field is empty.
	ErrEmptySessionID = errors.New("session id cannot be empty")

	// ErrEmptyClientID indicates the ClientID field is empty.
	ErrEmptyClientID = errors.New("client id cannot be empty")

	// ErrInvalidStatus indicates an unknown lifecycle status value.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrStatusTransition indicates a disallowed lifecycle transition.
	ErrStatusTransition = errors.New("status transition not allowed")

	// ErrNoAnswer indicates a message has no stored response document yet.
	ErrNoAnswer = errors.New("message has no answer")
)
