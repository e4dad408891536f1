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

import "fmt"

// ValidateMessage validates a Message according to domain rules.
//
// Validation rules:
//   - Query must not be empty
//   - SessionID must not be empty
//   - Status must be a known lifecycle value
//
// NOT validated (populated by the worker):
//   - Type (empty until classification)
//   - Response, Summary, RetrievalResult, SearchParams
func ValidateMessage(msg *Message) error {
	if msg == nil {
		return fmt.Errorf("%w: message is nil", ErrInvalidMessage)
	}

	if msg.Query == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrEmptyQuery)
	}

	if msg.SessionID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrEmptySessionID)
	}

	if !msg.Status.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidMessage, ErrInvalidStatus, msg.Status)
	}

	return nil
}

// ValidateSession validates a Session according to domain rules.
func ValidateSession(sess *Session) error {
	if sess == nil {
		return fmt.Errorf("%w: session is nil", ErrInvalidSession)
	}

	if sess.ClientID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSession, ErrEmptyClientID)
	}

	return nil
}

// Transition checks that moving msg to next is allowed and applies it.
// Terminal statuses never change again.
func (m *Message) Transition(next Status) error {
	if !m.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrStatusTransition, m.Status, next)
	}
	m.Status = next
	return nil
}
